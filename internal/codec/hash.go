package codec

import (
	"github.com/ethereum/go-ethereum/crypto"

	"clobd/internal/clob"
)

// StateHash returns the Keccak-256 digest of state's canonical binary
// encoding. This is the commitment the zkVM replay harness anchors to: two
// executions that reach the same state produce the same hash regardless of
// which executor (native or guest) ran the tick loop.
func StateHash(state *clob.ClobState) [32]byte {
	return crypto.Keccak256Hash(EncodeState(state))
}
