package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clobd/internal/clob"
	"clobd/internal/common"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecoverFromGenesis(t *testing.T) {
	store := openTestStore(t)

	state, g, err := store.Recover()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), g)
	assert.Equal(t, uint64(0), state.NextOID)
}

func TestPutSeenThenProcessedAdvancesCursors(t *testing.T) {
	store := openTestStore(t)

	var addr common.Address
	addr[19] = 1
	req := clob.DepositRequest{Address: addr, QuoteFree: 100}

	require.NoError(t, store.PutSeen(1, req))
	seen, err := store.Seen()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seen)

	processed, err := store.Processed()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), processed)

	resp, state := clob.Tick(req, clob.NewState())
	require.NoError(t, store.PutProcessed(1, resp, state))

	processed, err = store.Processed()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), processed)

	loaded, err := store.LoadState(1)
	require.NoError(t, err)
	assert.Equal(t, state.NextOID, loaded.NextOID)

	loadedReq, err := store.LoadRequest(1)
	require.NoError(t, err)
	assert.Equal(t, req, loadedReq)
}

func TestRecoverResumesFromLastProcessed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(path)
	require.NoError(t, err)

	var addr common.Address
	addr[19] = 1
	req := clob.DepositRequest{Address: addr, QuoteFree: 50}
	require.NoError(t, store.PutSeen(1, req))
	resp, state := clob.Tick(req, clob.NewState())
	require.NoError(t, store.PutProcessed(1, resp, state))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	recovered, g, err := reopened.Recover()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), g)
	assert.Equal(t, uint64(50), recovered.QuoteBalances[addr].Free)
}

func TestRecoverDiscardsDanglingSeen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(path)
	require.NoError(t, err)

	var addr common.Address
	addr[19] = 1
	// Simulate a crash between PutSeen(1) and PutProcessed(1): seen
	// advances but processed never does.
	require.NoError(t, store.PutSeen(1, clob.DepositRequest{Address: addr, QuoteFree: 1}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	state, g, err := reopened.Recover()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), g)
	assert.Equal(t, uint64(0), state.NextOID)
}
