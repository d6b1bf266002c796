// Package journal implements the durable append-only store backing the
// engine loop: four logical tables (GlobalIndex, Requests, Responses,
// States) persisted as bbolt buckets, written in the two-phase "seen" /
// "processed" sequence the recovery contract depends on.
package journal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"clobd/internal/clob"
	"clobd/internal/codec"
)

var (
	bucketGlobalIndex = []byte("global_index")
	bucketRequests    = []byte("requests")
	bucketResponses   = []byte("responses")
	bucketStates      = []byte("states")

	keySeen      = []byte{0}
	keyProcessed = []byte{1}
)

// ErrNotFound is returned when a lookup key has no recorded value.
var ErrNotFound = errors.New("journal: not found")

// Store is the bbolt-backed journal. All writes happen through PutSeen and
// PutProcessed, each an atomic bbolt transaction, matching the two
// transactions per tick the engine loop requires.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bbolt database at path and ensures
// all four buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketGlobalIndex, bucketRequests, bucketResponses, bucketStates} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: init buckets: %w", err)
	}

	log.Info().Str("path", path).Msg("journal opened")
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func u64key(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func getCursor(tx *bolt.Tx, key []byte) (uint64, bool) {
	b := tx.Bucket(bucketGlobalIndex).Get(key)
	if b == nil {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}

// Seen returns the "seen" cursor (0 if never set).
func (s *Store) Seen() (uint64, error) {
	var g uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		if v, ok := getCursor(tx, keySeen); ok {
			g = v
		}
		return nil
	})
	return g, err
}

// Processed returns the "processed" cursor (0 if never set).
func (s *Store) Processed() (uint64, error) {
	var g uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		if v, ok := getCursor(tx, keyProcessed); ok {
			g = v
		}
		return nil
	})
	return g, err
}

// PutSeen persists the "seen" transaction for global index g: advances the
// seen cursor and records req. Called on receipt, before tick runs.
func (s *Store) PutSeen(g uint64, req clob.Request) error {
	payload := codec.EncodeRequest(req)
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketGlobalIndex).Put(keySeen, u64key(g)); err != nil {
			return err
		}
		return tx.Bucket(bucketRequests).Put(u64key(g), payload)
	})
	if err != nil {
		return fmt.Errorf("journal: put seen %d: %w", g, err)
	}
	return nil
}

// PutProcessed persists the "processed" transaction for global index g:
// advances the processed cursor and records resp and the post-state.
// Called only after tick has returned, per the invariant that a successful
// response implies the processed transaction is durable.
func (s *Store) PutProcessed(g uint64, resp clob.Response, state *clob.ClobState) error {
	respPayload := codec.EncodeResponse(resp)
	statePayload := codec.EncodeState(state)
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketGlobalIndex).Put(keyProcessed, u64key(g)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketResponses).Put(u64key(g), respPayload); err != nil {
			return err
		}
		return tx.Bucket(bucketStates).Put(u64key(g), statePayload)
	})
	if err != nil {
		return fmt.Errorf("journal: put processed %d: %w", g, err)
	}
	return nil
}

// LoadState loads and decodes States[g].
func (s *Store) LoadState(g uint64) (*clob.ClobState, error) {
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketStates).Get(u64key(g))
		if v == nil {
			return ErrNotFound
		}
		payload = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal: load state %d: %w", g, err)
	}
	state, err := codec.DecodeState(payload)
	if err != nil {
		return nil, fmt.Errorf("journal: decode state %d: %w", g, err)
	}
	return state, nil
}

// LoadRequest loads and decodes Requests[g].
func (s *Store) LoadRequest(g uint64) (clob.Request, error) {
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRequests).Get(u64key(g))
		if v == nil {
			return ErrNotFound
		}
		payload = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal: load request %d: %w", g, err)
	}
	req, err := codec.DecodeRequest(payload)
	if err != nil {
		return nil, fmt.Errorf("journal: decode request %d: %w", g, err)
	}
	return req, nil
}

// Recover implements the startup recovery contract: returns the state to
// resume from and the global index to resume at. If seen > processed, the
// dangling seen request is discarded —
// AddOrder is not idempotent (it allocates a fresh oid), so replaying it
// would diverge from what, if anything, the original caller observed.
func (s *Store) Recover() (*clob.ClobState, uint64, error) {
	processed, err := s.Processed()
	if err != nil {
		return nil, 0, err
	}
	seen, err := s.Seen()
	if err != nil {
		return nil, 0, err
	}

	if seen > processed {
		log.Warn().
			Uint64("seen", seen).
			Uint64("processed", processed).
			Msg("discarding dangling seen request from incomplete tick")
	}

	if processed == 0 {
		log.Info().Msg("journal recovery: starting from genesis")
		return clob.NewState(), 0, nil
	}

	state, err := s.LoadState(processed)
	if err != nil {
		return nil, 0, fmt.Errorf("journal: recover at %d: %w", processed, err)
	}
	log.Info().Uint64("global_index", processed).Msg("journal recovery: resuming from last processed state")
	return state, processed, nil
}
