// Package engine is the single-writer execution loop: it owns the only
// mutable ClobState, consumes submitted requests off a bounded channel in
// arrival order, assigns each a monotonically increasing global index,
// applies the state transition function, and persists the result to the
// journal before replying.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"clobd/internal/clob"
	"clobd/internal/journal"
)

const defaultChannelCapacity = 128

// ApiResponse is what Submit returns: the tick's Response alongside the
// global index it was assigned, so a caller can use it as a confirmation
// sequence number.
type ApiResponse struct {
	Response    clob.Response
	GlobalIndex uint64
}

type submission struct {
	req   clob.Request
	reply chan submissionResult
}

type submissionResult struct {
	resp ApiResponse
	err  error
}

// Engine is the sole mutator of ClobState. All other components see only
// read-only snapshots via the journal.
type Engine struct {
	store   *journal.Store
	inbox   chan submission
	state   *clob.ClobState
	current uint64
	t       *tomb.Tomb
}

// New runs the startup recovery procedure against an already opened store
// and returns an Engine ready to Run. channelCapacity bounds the request queue; submitters
// block once it is full — this is the only backpressure mechanism the
// engine provides.
func New(store *journal.Store, channelCapacity int) (*Engine, error) {
	if channelCapacity <= 0 {
		channelCapacity = defaultChannelCapacity
	}

	state, g, err := store.Recover()
	if err != nil {
		return nil, fmt.Errorf("engine: recovery failed: %w", err)
	}

	return &Engine{
		store:   store,
		inbox:   make(chan submission, channelCapacity),
		state:   state,
		current: g,
	}, nil
}

// Run starts the consumer loop under a tomb supervised by ctx. It blocks
// until ctx is cancelled or the loop returns an error, at which point the
// loop finishes the in-flight request, leaves outstanding persistence
// durable, and exits.
func (e *Engine) Run(ctx context.Context) error {
	e.t, ctx = tomb.WithContext(ctx)
	e.t.Go(func() error {
		return e.loop(ctx)
	})
	log.Info().Uint64("global_index", e.current).Msg("engine running")
	return e.t.Wait()
}

// Shutdown requests the loop to stop and waits for it to finish.
func (e *Engine) Shutdown() error {
	e.t.Kill(nil)
	return e.t.Wait()
}

func (e *Engine) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case sub := <-e.inbox:
			e.current++
			g := e.current

			if err := e.store.PutSeen(g, sub.req); err != nil {
				log.Error().Err(err).Uint64("global_index", g).Msg("journal write failed, engine stopping")
				sub.reply <- submissionResult{err: err}
				return err
			}

			resp, newState := clob.Tick(sub.req, e.state)

			if err := e.store.PutProcessed(g, resp, newState); err != nil {
				log.Error().Err(err).Uint64("global_index", g).Msg("journal write failed, engine stopping")
				sub.reply <- submissionResult{err: err}
				return err
			}

			e.state = newState

			select {
			case sub.reply <- submissionResult{resp: ApiResponse{Response: resp, GlobalIndex: g}}:
			default:
				log.Warn().Uint64("global_index", g).Msg("reply slot dropped, tick already committed")
			}
		}
	}
}

// Submit enqueues req and blocks until the engine has processed it (or the
// context is cancelled). Once enqueued, a request is always processed to
// completion regardless of whether the caller is still waiting.
func (e *Engine) Submit(ctx context.Context, req clob.Request) (ApiResponse, error) {
	sub := submission{req: req, reply: make(chan submissionResult, 1)}

	select {
	case e.inbox <- sub:
	case <-ctx.Done():
		return ApiResponse{}, ctx.Err()
	}

	select {
	case result := <-sub.reply:
		return result.resp, result.err
	case <-ctx.Done():
		return ApiResponse{}, ctx.Err()
	}
}

// LatestState returns the most recently committed snapshot, for read-only
// queries (e.g. GET /clob-state) that must not race the writer loop.
func (e *Engine) LatestState() (*clob.ClobState, error) {
	g, err := e.store.Processed()
	if err != nil {
		return nil, err
	}
	if g == 0 {
		return clob.NewState(), nil
	}
	return e.store.LoadState(g)
}
