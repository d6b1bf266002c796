package clob

import "clobd/internal/common"

// Request is any of the four messages the engine accepts. The concrete
// types below are listed in the order the canonical binary codec assigns
// their discriminants: AddOrder=0, CancelOrder=1, Deposit=2, Withdraw=3.
type Request interface{ requestTag() uint8 }

// AddOrderRequest places a limit order.
type AddOrderRequest struct {
	Address    common.Address
	IsBuy      bool
	LimitPrice uint64
	Size       uint64
}

func (AddOrderRequest) requestTag() uint8 { return 0 }

// CancelOrderRequest cancels a resting order by OID.
type CancelOrderRequest struct {
	OID uint64
}

func (CancelOrderRequest) requestTag() uint8 { return 1 }

// DepositRequest credits free funds to an account.
type DepositRequest struct {
	Address   common.Address
	BaseFree  uint64
	QuoteFree uint64
}

func (DepositRequest) requestTag() uint8 { return 2 }

// WithdrawRequest debits free funds from an account.
type WithdrawRequest struct {
	Address   common.Address
	BaseFree  uint64
	QuoteFree uint64
}

func (WithdrawRequest) requestTag() uint8 { return 3 }

// RequestTag returns the canonical discriminant for req, for use by codecs.
func RequestTag(req Request) uint8 { return req.requestTag() }

// Response is any of the four responses tick can produce, in the same
// discriminant order as Request.
type Response interface{ responseTag() uint8 }

// AddOrderResponse reports the outcome of an AddOrderRequest.
type AddOrderResponse struct {
	Success bool
	Status  *common.FillStatus
}

func (AddOrderResponse) responseTag() uint8 { return 0 }

// CancelOrderResponse reports the outcome of a CancelOrderRequest.
type CancelOrderResponse struct {
	Success    bool
	FillStatus *common.FillStatus
}

func (CancelOrderResponse) responseTag() uint8 { return 1 }

// DepositResponse reports the outcome of a DepositRequest. A deposit fails
// only when crediting it would overflow a free balance.
type DepositResponse struct {
	Success bool
}

func (DepositResponse) responseTag() uint8 { return 2 }

// WithdrawResponse reports the outcome of a WithdrawRequest.
type WithdrawResponse struct {
	Success bool
}

func (WithdrawResponse) responseTag() uint8 { return 3 }

// ResponseTag returns the canonical discriminant for resp, for use by codecs.
func ResponseTag(resp Response) uint8 { return resp.responseTag() }
