package clob

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clobd/internal/common"
)

func addr(b byte) common.Address {
	var a common.Address
	a[common.AddressLen-1] = b
	return a
}

func mustAddOrder(t *testing.T, state *ClobState, req AddOrderRequest) AddOrderResponse {
	t.Helper()
	resp, _ := Tick(req, state)
	out, ok := resp.(AddOrderResponse)
	require.True(t, ok)
	return out
}

// Scenario 1: resting bid + ask, no cross.
func TestScenario_RestingNoCross(t *testing.T) {
	u1, u2 := addr(1), addr(2)
	state := NewState()

	Tick(DepositRequest{Address: u1, BaseFree: 0, QuoteFree: 100}, state)
	Tick(DepositRequest{Address: u2, BaseFree: 10, QuoteFree: 0}, state)

	out1 := mustAddOrder(t, state, AddOrderRequest{Address: u1, IsBuy: true, LimitPrice: 5, Size: 10})
	require.True(t, out1.Success)
	assert.Empty(t, out1.Status.Fills)

	out2 := mustAddOrder(t, state, AddOrderRequest{Address: u2, IsBuy: false, LimitPrice: 7, Size: 5})
	require.True(t, out2.Success)
	assert.Empty(t, out2.Status.Fills)

	assert.Equal(t, uint64(5), state.Book.BidMax())
	assert.Equal(t, uint64(7), state.Book.AskMin())
	assert.Equal(t, common.AssetBalance{Free: 50, Locked: 50}, *state.QuoteBalances[u1])
	assert.Equal(t, common.AssetBalance{Free: 5, Locked: 5}, *state.BaseBalances[u2])
}

// Scenario 2: full cross at maker price, including self-trade.
func TestScenario_FullCrossSelfTrade(t *testing.T) {
	u1 := addr(1)
	state := NewState()
	Tick(DepositRequest{Address: u1, BaseFree: 3, QuoteFree: 100}, state)

	buyOut := mustAddOrder(t, state, AddOrderRequest{Address: u1, IsBuy: true, LimitPrice: 5, Size: 10})
	require.True(t, buyOut.Success)

	sellOut := mustAddOrder(t, state, AddOrderRequest{Address: u1, IsBuy: false, LimitPrice: 5, Size: 3})
	require.True(t, sellOut.Success)
	require.Len(t, sellOut.Status.Fills, 1)

	fill := sellOut.Status.Fills[0]
	assert.Equal(t, buyOut.Status.OID, fill.MakerOID)
	assert.Equal(t, uint64(3), fill.Size)
	assert.Equal(t, uint64(5), fill.Price)
	assert.Equal(t, u1, fill.Buyer)
	assert.Equal(t, u1, fill.Seller)
}

// Scenario 3: partial cross then rest, with price improvement refunded to
// the taker's free balance rather than left stranded in locked.
func TestScenario_PartialCrossThenRest(t *testing.T) {
	u1, u2 := addr(1), addr(2)
	state := NewState()
	Tick(DepositRequest{Address: u1, BaseFree: 0, QuoteFree: 1000}, state)
	Tick(DepositRequest{Address: u2, BaseFree: 20, QuoteFree: 0}, state)

	sellOut := mustAddOrder(t, state, AddOrderRequest{Address: u2, IsBuy: false, LimitPrice: 10, Size: 20})
	require.True(t, sellOut.Success)

	buyOut := mustAddOrder(t, state, AddOrderRequest{Address: u1, IsBuy: true, LimitPrice: 12, Size: 15})
	require.True(t, buyOut.Success)
	require.Len(t, buyOut.Status.Fills, 1)
	assert.Equal(t, uint64(15), buyOut.Status.Fills[0].Size)
	assert.Equal(t, uint64(10), buyOut.Status.Fills[0].Price)
	assert.Equal(t, uint64(0), buyOut.Status.Size-buyOut.Status.FilledSize)

	assert.Equal(t, uint64(10), state.Book.AskMin())
	assert.Equal(t, uint64(15), state.BaseBalances[u1].Free)
	assert.Equal(t, uint64(150), state.QuoteBalances[u2].Free)
	assert.Equal(t, uint64(0), state.QuoteBalances[u1].Locked)
	assert.Equal(t, uint64(5), state.BaseBalances[u2].Locked)
	assert.Equal(t, uint64(850), state.QuoteBalances[u1].Free)
}

// Scenario 4: cancel restores locked funds.
func TestScenario_CancelRestoresLocked(t *testing.T) {
	u1, u2 := addr(1), addr(2)
	state := NewState()
	Tick(DepositRequest{Address: u1, BaseFree: 0, QuoteFree: 1000}, state)
	Tick(DepositRequest{Address: u2, BaseFree: 20, QuoteFree: 0}, state)

	sellOut := mustAddOrder(t, state, AddOrderRequest{Address: u2, IsBuy: false, LimitPrice: 10, Size: 20})
	mustAddOrder(t, state, AddOrderRequest{Address: u1, IsBuy: true, LimitPrice: 12, Size: 15})

	resp, _ := Tick(CancelOrderRequest{OID: sellOut.Status.OID}, state)
	cancelOut, ok := resp.(CancelOrderResponse)
	require.True(t, ok)
	require.True(t, cancelOut.Success)

	assert.Equal(t, common.AssetBalance{Free: 20, Locked: 0}, *state.BaseBalances[u2])
	assert.Equal(t, uint64(math.MaxUint64), state.Book.AskMin())
}

// Scenario 5: insufficient funds leaves state unchanged.
func TestScenario_InsufficientFunds(t *testing.T) {
	u1 := addr(1)
	state := NewState()
	Tick(DepositRequest{Address: u1, QuoteFree: 10}, state)

	nextOIDBefore := state.NextOID
	resp, _ := Tick(AddOrderRequest{Address: u1, IsBuy: true, LimitPrice: 5, Size: 3}, state)
	out, ok := resp.(AddOrderResponse)
	require.True(t, ok)

	assert.False(t, out.Success)
	assert.Nil(t, out.Status)
	assert.Equal(t, nextOIDBefore, state.NextOID)
	assert.Equal(t, uint64(10), state.QuoteBalances[u1].Free)
	assert.Equal(t, uint64(0), state.QuoteBalances[u1].Locked)
}

func TestWithdrawFromNeverDepositedAccount(t *testing.T) {
	state := NewState()
	resp, _ := Tick(WithdrawRequest{Address: addr(9), BaseFree: 1}, state)
	out, ok := resp.(WithdrawResponse)
	require.True(t, ok)
	assert.False(t, out.Success)
}

func TestAddOrderOverflowAtMaxUint64(t *testing.T) {
	u1 := addr(1)
	state := NewState()
	Tick(DepositRequest{Address: u1, QuoteFree: math.MaxUint64}, state)

	nextOIDBefore := state.NextOID
	resp, _ := Tick(AddOrderRequest{Address: u1, IsBuy: true, LimitPrice: math.MaxUint64, Size: 2}, state)
	out, ok := resp.(AddOrderResponse)
	require.True(t, ok)
	assert.False(t, out.Success)
	assert.Equal(t, nextOIDBefore, state.NextOID)
}

func TestMonotoneOIDs(t *testing.T) {
	u1 := addr(1)
	state := NewState()
	Tick(DepositRequest{Address: u1, QuoteFree: 1000}, state)

	first := mustAddOrder(t, state, AddOrderRequest{Address: u1, IsBuy: true, LimitPrice: 1, Size: 1})
	second := mustAddOrder(t, state, AddOrderRequest{Address: u1, IsBuy: true, LimitPrice: 1, Size: 1})
	assert.Equal(t, first.Status.OID+1, second.Status.OID)
}
