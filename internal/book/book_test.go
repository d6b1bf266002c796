package book

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

func TestEmptyBookSentinels(t *testing.T) {
	b := New()
	assert.Equal(t, uint64(0), b.BidMax())
	assert.Equal(t, uint64(math.MaxUint64), b.AskMin())
}

func TestCancelUnknownOID(t *testing.T) {
	b := New()
	_, ok := b.Cancel(42)
	assert.False(t, ok)
}

func TestLimitRestsWhenNoCross(t *testing.T) {
	b := New()

	remaining, fills := b.Limit(common.Order{OID: 1, Address: addr(1), IsBuy: true, LimitPrice: 5, Size: 10})
	require.Empty(t, fills)
	assert.Equal(t, uint64(10), remaining)
	assert.Equal(t, uint64(5), b.BidMax())

	remaining, fills = b.Limit(common.Order{OID: 2, Address: addr(2), IsBuy: false, LimitPrice: 7, Size: 5})
	require.Empty(t, fills)
	assert.Equal(t, uint64(5), remaining)
	assert.Equal(t, uint64(7), b.AskMin())
}

func TestLimitFullCross(t *testing.T) {
	b := New()
	_, _ = b.Limit(common.Order{OID: 1, Address: addr(1), IsBuy: true, LimitPrice: 10, Size: 20})

	remaining, fills := b.Limit(common.Order{OID: 2, Address: addr(2), IsBuy: false, LimitPrice: 10, Size: 15})
	require.Len(t, fills, 1)
	assert.Equal(t, uint64(0), remaining)
	assert.Equal(t, common.OrderFill{MakerOID: 1, TakerOID: 2, Size: 15, Price: 10, Buyer: addr(1), Seller: addr(2)}, fills[0])
	assert.Equal(t, uint64(10), b.BidMax())
}

func TestLimitSweepsMultipleLevels(t *testing.T) {
	b := New()
	_, _ = b.Limit(common.Order{OID: 1, Address: addr(1), IsBuy: false, LimitPrice: 10, Size: 5})
	_, _ = b.Limit(common.Order{OID: 2, Address: addr(2), IsBuy: false, LimitPrice: 11, Size: 5})

	remaining, fills := b.Limit(common.Order{OID: 3, Address: addr(3), IsBuy: true, LimitPrice: 12, Size: 8})
	require.Len(t, fills, 2)
	assert.Equal(t, uint64(5), fills[0].Size)
	assert.Equal(t, uint64(10), fills[0].Price)
	assert.Equal(t, uint64(3), fills[1].Size)
	assert.Equal(t, uint64(11), fills[1].Price)
	assert.Equal(t, uint64(0), remaining)
	assert.Equal(t, uint64(11), b.AskMin())
}

func TestLimitFIFOWithinLevel(t *testing.T) {
	b := New()
	_, _ = b.Limit(common.Order{OID: 1, Address: addr(1), IsBuy: true, LimitPrice: 10, Size: 5})
	_, _ = b.Limit(common.Order{OID: 2, Address: addr(2), IsBuy: true, LimitPrice: 10, Size: 5})

	_, fills := b.Limit(common.Order{OID: 3, Address: addr(3), IsBuy: false, LimitPrice: 10, Size: 6})
	require.Len(t, fills, 2)
	assert.Equal(t, uint64(1), fills[0].MakerOID)
	assert.Equal(t, uint64(5), fills[0].Size)
	assert.Equal(t, uint64(2), fills[1].MakerOID)
	assert.Equal(t, uint64(1), fills[1].Size)
}

func TestLimitPartialThenRest(t *testing.T) {
	b := New()
	_, _ = b.Limit(common.Order{OID: 1, Address: addr(1), IsBuy: false, LimitPrice: 10, Size: 20})

	remaining, fills := b.Limit(common.Order{OID: 2, Address: addr(2), IsBuy: true, LimitPrice: 12, Size: 15})
	require.Len(t, fills, 1)
	assert.Equal(t, uint64(0), remaining)
	assert.Equal(t, uint64(10), b.AskMin())

	lvl, ok := b.asks.Get(&PriceLevel{Price: 10})
	require.True(t, ok)
	require.Len(t, lvl.Orders, 1)
	assert.Equal(t, uint64(5), lvl.Orders[0].Size)
}

func TestCancelRemovesRestingOrder(t *testing.T) {
	b := New()
	_, _ = b.Limit(common.Order{OID: 1, Address: addr(1), IsBuy: true, LimitPrice: 10, Size: 5})

	removed, ok := b.Cancel(1)
	require.True(t, ok)
	assert.Equal(t, uint64(5), removed.Size)
	assert.Equal(t, uint64(0), b.BidMax())

	_, ok = b.Cancel(1)
	assert.False(t, ok)
}

func TestCancelLeavesLevelWithOtherOrders(t *testing.T) {
	b := New()
	_, _ = b.Limit(common.Order{OID: 1, Address: addr(1), IsBuy: true, LimitPrice: 10, Size: 5})
	_, _ = b.Limit(common.Order{OID: 2, Address: addr(2), IsBuy: true, LimitPrice: 10, Size: 7})

	_, ok := b.Cancel(1)
	require.True(t, ok)
	assert.Equal(t, uint64(10), b.BidMax())

	lvl, ok := b.bids.Get(&PriceLevel{Price: 10})
	require.True(t, ok)
	require.Len(t, lvl.Orders, 1)
	assert.Equal(t, uint64(2), lvl.Orders[0].OID)
}
