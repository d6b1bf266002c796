// Package clob implements the state transition function: the pure,
// deterministic core that applies one Request to a ClobState, updating it in
// place, and produces a Response. It is the only place balances, the order book and fill status
// are reconciled; it performs no I/O and reads no ambient state (clock,
// RNG, environment), so the same function can be re-executed bit-for-bit
// inside a zkVM guest.
package clob

import (
	"clobd/internal/book"
	"clobd/internal/common"
)

// ClobState is the complete deterministic state of the pair.
type ClobState struct {
	NextOID       uint64
	BaseBalances  map[common.Address]*common.AssetBalance
	QuoteBalances map[common.Address]*common.AssetBalance
	Book          *book.Book
	OrderStatus   map[uint64]*common.FillStatus
}

// NewState returns the genesis state: empty balances, an empty book,
// NextOID = 0.
func NewState() *ClobState {
	return &ClobState{
		BaseBalances:  make(map[common.Address]*common.AssetBalance),
		QuoteBalances: make(map[common.Address]*common.AssetBalance),
		Book:          book.New(),
		OrderStatus:   make(map[uint64]*common.FillStatus),
	}
}

func balanceOf(m map[common.Address]*common.AssetBalance, addr common.Address) *common.AssetBalance {
	bal, ok := m[addr]
	if !ok {
		bal = &common.AssetBalance{}
		m[addr] = bal
	}
	return bal
}
