package codec

import (
	"clobd/internal/clob"
	"clobd/internal/common"
)

// The JSON DTOs below are the HTTP edge's wire shape (camelCase). They
// are intentionally separate types from the clob package's Request/Response
// — address is a hex string here, not a common.Address, and nothing about
// these types needs to be deterministic.

// DepositRequestDTO is the body of POST /deposit.
type DepositRequestDTO struct {
	Address   string `json:"address"`
	BaseFree  uint64 `json:"baseFree"`
	QuoteFree uint64 `json:"quoteFree"`
}

// WithdrawRequestDTO is the body of POST /withdraw.
type WithdrawRequestDTO struct {
	Address   string `json:"address"`
	BaseFree  uint64 `json:"baseFree"`
	QuoteFree uint64 `json:"quoteFree"`
}

// AddOrderRequestDTO is the body of POST /orders.
type AddOrderRequestDTO struct {
	Address    string `json:"address"`
	IsBuy      bool   `json:"isBuy"`
	LimitPrice uint64 `json:"limitPrice"`
	Size       uint64 `json:"size"`
}

// CancelOrderRequestDTO is the body of POST /cancel.
type CancelOrderRequestDTO struct {
	OID uint64 `json:"oid"`
}

// OrderFillDTO is one fill within a FillStatusDTO.
type OrderFillDTO struct {
	MakerOID uint64 `json:"makerOid"`
	TakerOID uint64 `json:"takerOid"`
	Size     uint64 `json:"size"`
	Price    uint64 `json:"price"`
	Buyer    string `json:"buyer"`
	Seller   string `json:"seller"`
}

// FillStatusDTO is the JSON shape of a common.FillStatus.
type FillStatusDTO struct {
	OID        uint64         `json:"oid"`
	Size       uint64         `json:"size"`
	Address    string         `json:"address"`
	FilledSize uint64         `json:"filledSize"`
	Fills      []OrderFillDTO `json:"fills"`
}

// ApiResponseDTO wraps every HTTP response: the underlying Request's
// Response plus the global index the engine assigned it.
type ApiResponseDTO struct {
	Response    any    `json:"response"`
	GlobalIndex uint64 `json:"globalIndex"`
}

// AddOrderResponseDTO is the JSON shape of an AddOrderResponse.
type AddOrderResponseDTO struct {
	Success bool           `json:"success"`
	Status  *FillStatusDTO `json:"status"`
}

// CancelOrderResponseDTO is the JSON shape of a CancelOrderResponse.
type CancelOrderResponseDTO struct {
	Success    bool           `json:"success"`
	FillStatus *FillStatusDTO `json:"fillStatus"`
}

// SuccessResponseDTO is the JSON shape of a DepositResponse or
// WithdrawResponse; both carry nothing but success.
type SuccessResponseDTO struct {
	Success bool `json:"success"`
}

func fillStatusToDTO(s *common.FillStatus) *FillStatusDTO {
	if s == nil {
		return nil
	}
	fills := make([]OrderFillDTO, len(s.Fills))
	for i, f := range s.Fills {
		fills[i] = OrderFillDTO{
			MakerOID: f.MakerOID,
			TakerOID: f.TakerOID,
			Size:     f.Size,
			Price:    f.Price,
			Buyer:    f.Buyer.String(),
			Seller:   f.Seller.String(),
		}
	}
	return &FillStatusDTO{
		OID:        s.OID,
		Size:       s.Size,
		Address:    s.Address.String(),
		FilledSize: s.FilledSize,
		Fills:      fills,
	}
}

// ToRequest validates and converts an AddOrderRequestDTO into a
// clob.AddOrderRequest.
func (dto AddOrderRequestDTO) ToRequest() (clob.AddOrderRequest, error) {
	addr, err := common.ParseAddress(dto.Address)
	if err != nil {
		return clob.AddOrderRequest{}, err
	}
	return clob.AddOrderRequest{Address: addr, IsBuy: dto.IsBuy, LimitPrice: dto.LimitPrice, Size: dto.Size}, nil
}

// ToRequest converts a CancelOrderRequestDTO into a clob.CancelOrderRequest.
func (dto CancelOrderRequestDTO) ToRequest() clob.CancelOrderRequest {
	return clob.CancelOrderRequest{OID: dto.OID}
}

// ToRequest validates and converts a DepositRequestDTO into a
// clob.DepositRequest.
func (dto DepositRequestDTO) ToRequest() (clob.DepositRequest, error) {
	addr, err := common.ParseAddress(dto.Address)
	if err != nil {
		return clob.DepositRequest{}, err
	}
	return clob.DepositRequest{Address: addr, BaseFree: dto.BaseFree, QuoteFree: dto.QuoteFree}, nil
}

// ToRequest validates and converts a WithdrawRequestDTO into a
// clob.WithdrawRequest.
func (dto WithdrawRequestDTO) ToRequest() (clob.WithdrawRequest, error) {
	addr, err := common.ParseAddress(dto.Address)
	if err != nil {
		return clob.WithdrawRequest{}, err
	}
	return clob.WithdrawRequest{Address: addr, BaseFree: dto.BaseFree, QuoteFree: dto.QuoteFree}, nil
}

// ResponseToDTO converts any clob.Response into its JSON DTO, for embedding
// in an ApiResponseDTO.
func ResponseToDTO(resp clob.Response) any {
	switch v := resp.(type) {
	case clob.AddOrderResponse:
		return AddOrderResponseDTO{Success: v.Success, Status: fillStatusToDTO(v.Status)}
	case clob.CancelOrderResponse:
		return CancelOrderResponseDTO{Success: v.Success, FillStatus: fillStatusToDTO(v.FillStatus)}
	case clob.DepositResponse:
		return SuccessResponseDTO{Success: v.Success}
	case clob.WithdrawResponse:
		return SuccessResponseDTO{Success: v.Success}
	default:
		return nil
	}
}
