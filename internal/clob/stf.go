package clob

import "clobd/internal/common"

// Tick is the state transition function: it applies one Request to state,
// mutating it in place (the same way the reference implementation takes
// ownership of its state and mutates it) and returns the Response alongside
// the now-current state. Tick never panics on well-formed input; every
// domain failure (insufficient funds, overflow, unknown oid) is reported
// in-band via Response.
func Tick(req Request, state *ClobState) (Response, *ClobState) {
	switch r := req.(type) {
	case AddOrderRequest:
		return addOrder(r, state), state
	case CancelOrderRequest:
		return cancelOrder(r, state), state
	case DepositRequest:
		return deposit(r, state), state
	case WithdrawRequest:
		return withdraw(r, state), state
	default:
		// Unreachable for any Request produced by this package's
		// constructors or the codecs.
		return DepositResponse{Success: false}, state
	}
}

func deposit(req DepositRequest, state *ClobState) Response {
	base := balanceOf(state.BaseBalances, req.Address)
	quote := balanceOf(state.QuoteBalances, req.Address)

	newBaseFree, ok := common.CheckedAdd(base.Free, req.BaseFree)
	if !ok {
		return DepositResponse{Success: false}
	}
	newQuoteFree, ok := common.CheckedAdd(quote.Free, req.QuoteFree)
	if !ok {
		return DepositResponse{Success: false}
	}

	base.Free = newBaseFree
	quote.Free = newQuoteFree
	return DepositResponse{Success: true}
}

func withdraw(req WithdrawRequest, state *ClobState) Response {
	base, baseOK := state.BaseBalances[req.Address]
	quote, quoteOK := state.QuoteBalances[req.Address]
	if !baseOK || !quoteOK || base.Free < req.BaseFree || quote.Free < req.QuoteFree {
		return WithdrawResponse{Success: false}
	}
	base.Free -= req.BaseFree
	quote.Free -= req.QuoteFree
	return WithdrawResponse{Success: true}
}

func cancelOrder(req CancelOrderRequest, state *ClobState) Response {
	order, ok := state.Book.Cancel(req.OID)
	if !ok {
		return CancelOrderResponse{Success: false, FillStatus: nil}
	}

	if order.IsBuy {
		notional, _ := common.CheckedMul(order.Size, order.LimitPrice)
		releaseLocked(state.QuoteBalances, order.Address, notional)
	} else {
		releaseLocked(state.BaseBalances, order.Address, order.Size)
	}

	status := state.OrderStatus[req.OID]
	delete(state.OrderStatus, req.OID)
	return CancelOrderResponse{Success: true, FillStatus: status}
}

func releaseLocked(balances map[common.Address]*common.AssetBalance, addr common.Address, amount uint64) {
	bal := balances[addr]
	bal.Locked -= amount
	bal.Free += amount
}

func addOrder(req AddOrderRequest, state *ClobState) Response {
	if req.Size == 0 || req.LimitPrice == 0 {
		return AddOrderResponse{Success: false, Status: nil}
	}

	quoteSize, ok := common.CheckedMul(req.Size, req.LimitPrice)
	if !ok {
		return AddOrderResponse{Success: false, Status: nil}
	}

	base := balanceOf(state.BaseBalances, req.Address)
	quote := balanceOf(state.QuoteBalances, req.Address)

	if req.IsBuy {
		if quote.Free < quoteSize {
			return AddOrderResponse{Success: false, Status: nil}
		}
	} else {
		if base.Free < req.Size {
			return AddOrderResponse{Success: false, Status: nil}
		}
	}

	oid := state.NextOID
	state.NextOID++

	// Lock the taker's full notional before matching so conservation holds
	// even if the order partially fills and the remainder rests.
	if req.IsBuy {
		quote.Free -= quoteSize
		quote.Locked += quoteSize
	} else {
		base.Free -= req.Size
		base.Locked += req.Size
	}

	order := common.Order{OID: oid, Address: req.Address, IsBuy: req.IsBuy, LimitPrice: req.LimitPrice, Size: req.Size}
	remaining, fills := state.Book.Limit(order)

	for _, fill := range fills {
		settleFill(state, req.IsBuy, req.LimitPrice, fill)
	}

	status := &common.FillStatus{
		OID:        oid,
		Size:       req.Size,
		Address:    req.Address,
		FilledSize: req.Size - remaining,
		Fills:      fills,
	}
	state.OrderStatus[oid] = status

	return AddOrderResponse{Success: true, Status: status}
}

func decrementLocked(balances map[common.Address]*common.AssetBalance, addr common.Address, amount uint64) {
	balances[addr].Locked -= amount
}

func creditFree(balances map[common.Address]*common.AssetBalance, addr common.Address, amount uint64) {
	balanceOf(balances, addr).Free += amount
}

// settleFill applies the balance effects of one fill to both taker and
// maker, and updates the maker's FillStatus.
//
// Base-side locks are quantity-only (a resting sell locks exactly its own
// size, regardless of execution price), so releasing them is always an
// exact decrement of fill.Size, for whichever side is selling.
//
// Quote-side locks are price-scaled: a resting buy locks size×(its own
// limit price). A buy maker always executes at its own price (a fill's
// price is always the resting maker's limit price), so its quote lock
// releases exactly. A buy taker, though, reserved size×takerLimitPrice up front
// (step 3) but may cross at a better (lower) price; the reservation for
// the filled quantity must still be released in full, with the difference
// refunded to the taker's own free balance — price improvement accrues to
// the taker, it does not stay stranded in locked.
func settleFill(state *ClobState, takerIsBuy bool, takerLimitPrice uint64, fill common.OrderFill) {
	actual, _ := common.CheckedMul(fill.Size, fill.Price)

	if takerIsBuy {
		reserved, _ := common.CheckedMul(fill.Size, takerLimitPrice)
		decrementLocked(state.QuoteBalances, fill.Buyer, reserved)
		creditFree(state.QuoteBalances, fill.Buyer, reserved-actual)
		creditFree(state.BaseBalances, fill.Buyer, fill.Size)

		decrementLocked(state.BaseBalances, fill.Seller, fill.Size)
		creditFree(state.QuoteBalances, fill.Seller, actual)
	} else {
		decrementLocked(state.BaseBalances, fill.Seller, fill.Size)
		creditFree(state.QuoteBalances, fill.Seller, actual)

		decrementLocked(state.QuoteBalances, fill.Buyer, actual)
		creditFree(state.BaseBalances, fill.Buyer, fill.Size)
	}

	maker := state.OrderStatus[fill.MakerOID]
	if maker != nil {
		maker.FilledSize += fill.Size
		maker.Fills = append(maker.Fills, fill)
	}
}
