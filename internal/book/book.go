// Package book implements the price-level order book: insertion with
// crossing (limit) and removal (cancel). The book mutates only itself; it
// never touches balances, so it stays pure and side-effect free the way the
// state transition function needs it to be.
package book

import (
	"math"

	"github.com/tidwall/btree"

	"clobd/internal/common"
)

// PriceLevel is every resting order at one limit price, FIFO by insertion.
type PriceLevel struct {
	Price  uint64
	Orders []*common.Order
}

type priceLevels = btree.BTreeG[*PriceLevel]

// Book is the two-sided order book for a single trading pair.
type Book struct {
	bids       *priceLevels
	asks       *priceLevels
	oidToLevel map[uint64]uint64
}

// New returns an empty book. bids are sorted highest price first, asks
// lowest price first, mirroring the price-time priority the matching loop
// walks in.
func New() *Book {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price
	})
	return &Book{
		bids:       bids,
		asks:       asks,
		oidToLevel: make(map[uint64]uint64),
	}
}

// BidMax returns the best (highest) resting bid price, or 0 if there are no
// bids. The sentinel makes a sell at any positive price never cross an empty
// book.
func (b *Book) BidMax() uint64 {
	if lvl, ok := b.bids.Min(); ok {
		return lvl.Price
	}
	return 0
}

// AskMin returns the best (lowest) resting ask price, or math.MaxUint64 if
// there are no asks. The sentinel makes a buy at any price never cross an
// empty book.
func (b *Book) AskMin() uint64 {
	if lvl, ok := b.asks.Min(); ok {
		return lvl.Price
	}
	return math.MaxUint64
}

// Bids returns resting buy levels, best price first. Exposed for state
// iteration (codec, invariant checks); callers must not mutate the result.
func (b *Book) Bids() []*PriceLevel {
	return b.bids.Items()
}

// Asks returns resting sell levels, best price first.
func (b *Book) Asks() []*PriceLevel {
	return b.asks.Items()
}

func (b *Book) enqueue(order common.Order) {
	b.oidToLevel[order.OID] = order.LimitPrice
	o := order
	levels := b.asks
	if order.IsBuy {
		levels = b.bids
	}
	lvl, ok := levels.Get(&PriceLevel{Price: order.LimitPrice})
	if !ok {
		levels.Set(&PriceLevel{Price: order.LimitPrice, Orders: []*common.Order{&o}})
		return
	}
	lvl.Orders = append(lvl.Orders, &o)
}

// fillAtLevel walks a price level's FIFO, filling the taker against makers
// in arrival order. Returns the taker's unfilled remainder and the fills
// produced, in execution order.
func fillAtLevel(level *PriceLevel, takerOID, size uint64, takerIsBuy bool, takerAddr common.Address) (uint64, []common.OrderFill) {
	remaining := size
	consumed := 0
	var fills []common.OrderFill

	for _, maker := range level.Orders {
		fill := common.OrderFill{MakerOID: maker.OID, TakerOID: takerOID, Price: maker.LimitPrice}
		if takerIsBuy {
			fill.Buyer, fill.Seller = takerAddr, maker.Address
		} else {
			fill.Buyer, fill.Seller = maker.Address, takerAddr
		}

		if maker.Size <= remaining {
			consumed++
			remaining -= maker.Size
			fill.Size = maker.Size
			fills = append(fills, fill)
			if remaining == 0 {
				break
			}
		} else {
			maker.Size -= remaining
			fill.Size = remaining
			remaining = 0
			fills = append(fills, fill)
			break
		}
	}
	level.Orders = level.Orders[consumed:]
	return remaining, fills
}

// Limit inserts a limit order, matching it against the opposite side while
// it crosses. Returns the unfilled remainder (0 if fully filled) and the
// fills produced in execution order. Any remainder rests on the book at
// order.LimitPrice.
func (b *Book) Limit(order common.Order) (uint64, []common.OrderFill) {
	remaining := order.Size
	var fills []common.OrderFill

	if order.IsBuy {
		askMin := b.AskMin()
		for remaining > 0 && order.LimitPrice >= askMin {
			level, ok := b.asks.Get(&PriceLevel{Price: askMin})
			if !ok {
				// Empty ask side: askMin is the sentinel, not a resting level.
				break
			}
			var levelFills []common.OrderFill
			remaining, levelFills = fillAtLevel(level, order.OID, remaining, true, order.Address)
			fills = append(fills, levelFills...)
			if len(level.Orders) == 0 {
				b.asks.Delete(&PriceLevel{Price: askMin})
			}
			if remaining > 0 {
				askMin = b.AskMin()
			}
		}
	} else {
		bidMax := b.BidMax()
		for remaining > 0 && order.LimitPrice <= bidMax && bidMax != 0 {
			level, _ := b.bids.Get(&PriceLevel{Price: bidMax})
			var levelFills []common.OrderFill
			remaining, levelFills = fillAtLevel(level, order.OID, remaining, false, order.Address)
			fills = append(fills, levelFills...)
			if len(level.Orders) == 0 {
				b.bids.Delete(&PriceLevel{Price: bidMax})
			}
			if remaining > 0 {
				bidMax = b.BidMax()
			}
		}
	}

	if remaining > 0 {
		order.Size = remaining
		b.enqueue(order)
	}

	return remaining, fills
}

// Restore re-inserts an order that is already known to rest at its own
// limit price, without running it through the crossing logic. Used only by
// the codec when rebuilding a book from a decoded snapshot, where the
// orders were resting (and therefore non-crossing) at encode time.
func (b *Book) Restore(order common.Order) {
	b.enqueue(order)
}

// Cancel removes a resting order by OID, returning it and true on success,
// or the zero Order and false if it does not exist.
func (b *Book) Cancel(oid uint64) (common.Order, bool) {
	price, ok := b.oidToLevel[oid]
	if !ok {
		return common.Order{}, false
	}

	levels := b.asks
	lvl, found := levels.Get(&PriceLevel{Price: price})
	if !found {
		levels = b.bids
		lvl, found = levels.Get(&PriceLevel{Price: price})
	}
	if !found {
		return common.Order{}, false
	}

	idx := -1
	for i, o := range lvl.Orders {
		if o.OID == oid {
			idx = i
			break
		}
	}
	if idx == -1 {
		return common.Order{}, false
	}

	removed := *lvl.Orders[idx]
	lvl.Orders = append(lvl.Orders[:idx], lvl.Orders[idx+1:]...)
	if len(lvl.Orders) == 0 {
		levels.Delete(&PriceLevel{Price: price})
	}
	delete(b.oidToLevel, oid)

	return removed, true
}
