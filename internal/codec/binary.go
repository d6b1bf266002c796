// Package codec implements the two wire formats the core depends on: a
// canonical binary encoding for the journal and the zkVM replay tape, and a
// camelCase JSON encoding for the HTTP edge. The canonical encoding is the
// one with teeth — decode(encode(x)) = x must hold exactly, and encode must
// be a pure function of x, because a state hash is taken over its output.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"clobd/internal/book"
	"clobd/internal/clob"
	"clobd/internal/common"
)

// ErrTruncated is returned when a binary payload ends before a value has
// been fully read. It always indicates corruption or a version mismatch —
// well-formed input never triggers it.
var ErrTruncated = errors.New("codec: truncated input")

// ErrUnknownDiscriminant is returned when a sum-type tag byte does not match
// any of the declared variants, and by DecodeState when bytes remain after
// the last field of a ClobState.
var ErrUnknownDiscriminant = errors.New("codec: unknown discriminant")

// writer accumulates a canonical binary payload. The zero value is ready to
// use.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) Bytes() []byte { return w.buf.Bytes() }

func (w *writer) u8(v uint8) { w.buf.WriteByte(v) }

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) address(a common.Address) { w.buf.Write(a[:]) }

// reader consumes a canonical binary payload in order, reporting
// ErrTruncated instead of panicking on short input.
type reader struct {
	buf []byte
	pos int
}

func newReader(b []byte) *reader { return &reader{buf: b} }

func (r *reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, ErrTruncated
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) boolean() (bool, error) {
	b, err := r.u8()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *reader) address() (common.Address, error) {
	var a common.Address
	b, err := r.take(common.AddressLen)
	if err != nil {
		return a, err
	}
	copy(a[:], b)
	return a, nil
}

func (r *reader) remaining() bool { return r.pos < len(r.buf) }

// --- Order / OrderFill / FillStatus / AssetBalance ---

func writeOrder(w *writer, o common.Order) {
	w.u64(o.OID)
	w.address(o.Address)
	w.boolean(o.IsBuy)
	w.u64(o.LimitPrice)
	w.u64(o.Size)
}

func readOrder(r *reader) (common.Order, error) {
	var o common.Order
	var err error
	if o.OID, err = r.u64(); err != nil {
		return o, err
	}
	if o.Address, err = r.address(); err != nil {
		return o, err
	}
	if o.IsBuy, err = r.boolean(); err != nil {
		return o, err
	}
	if o.LimitPrice, err = r.u64(); err != nil {
		return o, err
	}
	if o.Size, err = r.u64(); err != nil {
		return o, err
	}
	return o, nil
}

func writeOrderFill(w *writer, f common.OrderFill) {
	w.u64(f.MakerOID)
	w.u64(f.TakerOID)
	w.u64(f.Size)
	w.u64(f.Price)
	w.address(f.Buyer)
	w.address(f.Seller)
}

func readOrderFill(r *reader) (common.OrderFill, error) {
	var f common.OrderFill
	var err error
	if f.MakerOID, err = r.u64(); err != nil {
		return f, err
	}
	if f.TakerOID, err = r.u64(); err != nil {
		return f, err
	}
	if f.Size, err = r.u64(); err != nil {
		return f, err
	}
	if f.Price, err = r.u64(); err != nil {
		return f, err
	}
	if f.Buyer, err = r.address(); err != nil {
		return f, err
	}
	if f.Seller, err = r.address(); err != nil {
		return f, err
	}
	return f, nil
}

func writeFillStatus(w *writer, s common.FillStatus) {
	w.u64(s.OID)
	w.u64(s.Size)
	w.address(s.Address)
	w.u64(s.FilledSize)
	w.u32(uint32(len(s.Fills)))
	for _, f := range s.Fills {
		writeOrderFill(w, f)
	}
}

func readFillStatus(r *reader) (common.FillStatus, error) {
	var s common.FillStatus
	var err error
	if s.OID, err = r.u64(); err != nil {
		return s, err
	}
	if s.Size, err = r.u64(); err != nil {
		return s, err
	}
	if s.Address, err = r.address(); err != nil {
		return s, err
	}
	if s.FilledSize, err = r.u64(); err != nil {
		return s, err
	}
	n, err := r.u32()
	if err != nil {
		return s, err
	}
	if n > 0 {
		s.Fills = make([]common.OrderFill, 0, n)
		for i := uint32(0); i < n; i++ {
			f, err := readOrderFill(r)
			if err != nil {
				return s, err
			}
			s.Fills = append(s.Fills, f)
		}
	}
	return s, nil
}

func writeOptionalFillStatus(w *writer, s *common.FillStatus) {
	if s == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	writeFillStatus(w, *s)
}

func readOptionalFillStatus(r *reader) (*common.FillStatus, error) {
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	if tag == 0 {
		return nil, nil
	}
	s, err := readFillStatus(r)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func writeAssetBalance(w *writer, b common.AssetBalance) {
	w.u64(b.Free)
	w.u64(b.Locked)
}

func readAssetBalance(r *reader) (common.AssetBalance, error) {
	var b common.AssetBalance
	var err error
	if b.Free, err = r.u64(); err != nil {
		return b, err
	}
	if b.Locked, err = r.u64(); err != nil {
		return b, err
	}
	return b, nil
}

// --- Request / Response ---

// EncodeRequest produces the canonical binary encoding of req. The leading
// byte is the discriminant returned by clob.RequestTag, in the declaration
// order fixed by the wire format: AddOrder=0, CancelOrder=1, Deposit=2,
// Withdraw=3.
func EncodeRequest(req clob.Request) []byte {
	w := &writer{}
	w.u8(clob.RequestTag(req))
	switch r := req.(type) {
	case clob.AddOrderRequest:
		w.address(r.Address)
		w.boolean(r.IsBuy)
		w.u64(r.LimitPrice)
		w.u64(r.Size)
	case clob.CancelOrderRequest:
		w.u64(r.OID)
	case clob.DepositRequest:
		w.address(r.Address)
		w.u64(r.BaseFree)
		w.u64(r.QuoteFree)
	case clob.WithdrawRequest:
		w.address(r.Address)
		w.u64(r.BaseFree)
		w.u64(r.QuoteFree)
	}
	return w.Bytes()
}

// DecodeRequest is the inverse of EncodeRequest.
func DecodeRequest(b []byte) (clob.Request, error) {
	r := newReader(b)
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		addr, err := r.address()
		if err != nil {
			return nil, err
		}
		isBuy, err := r.boolean()
		if err != nil {
			return nil, err
		}
		limitPrice, err := r.u64()
		if err != nil {
			return nil, err
		}
		size, err := r.u64()
		if err != nil {
			return nil, err
		}
		return clob.AddOrderRequest{Address: addr, IsBuy: isBuy, LimitPrice: limitPrice, Size: size}, nil
	case 1:
		oid, err := r.u64()
		if err != nil {
			return nil, err
		}
		return clob.CancelOrderRequest{OID: oid}, nil
	case 2:
		addr, err := r.address()
		if err != nil {
			return nil, err
		}
		baseFree, err := r.u64()
		if err != nil {
			return nil, err
		}
		quoteFree, err := r.u64()
		if err != nil {
			return nil, err
		}
		return clob.DepositRequest{Address: addr, BaseFree: baseFree, QuoteFree: quoteFree}, nil
	case 3:
		addr, err := r.address()
		if err != nil {
			return nil, err
		}
		baseFree, err := r.u64()
		if err != nil {
			return nil, err
		}
		quoteFree, err := r.u64()
		if err != nil {
			return nil, err
		}
		return clob.WithdrawRequest{Address: addr, BaseFree: baseFree, QuoteFree: quoteFree}, nil
	default:
		return nil, fmt.Errorf("%w: request tag %d", ErrUnknownDiscriminant, tag)
	}
}

// EncodeResponse produces the canonical binary encoding of resp.
func EncodeResponse(resp clob.Response) []byte {
	w := &writer{}
	w.u8(clob.ResponseTag(resp))
	switch v := resp.(type) {
	case clob.AddOrderResponse:
		w.boolean(v.Success)
		writeOptionalFillStatus(w, v.Status)
	case clob.CancelOrderResponse:
		w.boolean(v.Success)
		writeOptionalFillStatus(w, v.FillStatus)
	case clob.DepositResponse:
		w.boolean(v.Success)
	case clob.WithdrawResponse:
		w.boolean(v.Success)
	}
	return w.Bytes()
}

// DecodeResponse is the inverse of EncodeResponse.
func DecodeResponse(b []byte) (clob.Response, error) {
	r := newReader(b)
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		ok, err := r.boolean()
		if err != nil {
			return nil, err
		}
		status, err := readOptionalFillStatus(r)
		if err != nil {
			return nil, err
		}
		return clob.AddOrderResponse{Success: ok, Status: status}, nil
	case 1:
		ok, err := r.boolean()
		if err != nil {
			return nil, err
		}
		status, err := readOptionalFillStatus(r)
		if err != nil {
			return nil, err
		}
		return clob.CancelOrderResponse{Success: ok, FillStatus: status}, nil
	case 2:
		ok, err := r.boolean()
		if err != nil {
			return nil, err
		}
		return clob.DepositResponse{Success: ok}, nil
	case 3:
		ok, err := r.boolean()
		if err != nil {
			return nil, err
		}
		return clob.WithdrawResponse{Success: ok}, nil
	default:
		return nil, fmt.Errorf("%w: response tag %d", ErrUnknownDiscriminant, tag)
	}
}

// --- ClobState ---

func sortedU64Keys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedAddressKeys[V any](m map[common.Address]V) []common.Address {
	keys := make([]common.Address, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func writeBalanceMap(w *writer, m map[common.Address]*common.AssetBalance) {
	keys := sortedAddressKeys(m)
	w.u32(uint32(len(keys)))
	for _, k := range keys {
		w.address(k)
		writeAssetBalance(w, *m[k])
	}
}

func readBalanceMap(r *reader) (map[common.Address]*common.AssetBalance, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	m := make(map[common.Address]*common.AssetBalance, n)
	for i := uint32(0); i < n; i++ {
		addr, err := r.address()
		if err != nil {
			return nil, err
		}
		bal, err := readAssetBalance(r)
		if err != nil {
			return nil, err
		}
		m[addr] = &bal
	}
	return m, nil
}

func writeOrderStatusMap(w *writer, m map[uint64]*common.FillStatus) {
	keys := sortedU64Keys(m)
	w.u32(uint32(len(keys)))
	for _, k := range keys {
		w.u64(k)
		writeFillStatus(w, *m[k])
	}
}

func readOrderStatusMap(r *reader) (map[uint64]*common.FillStatus, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	m := make(map[uint64]*common.FillStatus, n)
	for i := uint32(0); i < n; i++ {
		oid, err := r.u64()
		if err != nil {
			return nil, err
		}
		status, err := readFillStatus(r)
		if err != nil {
			return nil, err
		}
		m[oid] = &status
	}
	return m, nil
}

// writeBookSide encodes price levels in ascending price order regardless of
// the side's own iteration order (Bids() returns best-first, i.e.
// descending); the canonical encoding always sorts by price ascending so
// that encode is a pure function of book contents, not of which side it is.
func writeBookSide(w *writer, levels []*book.PriceLevel) {
	sorted := append([]*book.PriceLevel(nil), levels...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })
	w.u32(uint32(len(sorted)))
	for _, lvl := range sorted {
		w.u64(lvl.Price)
		w.u32(uint32(len(lvl.Orders)))
		for _, o := range lvl.Orders {
			writeOrder(w, *o)
		}
	}
}

func readBookSide(r *reader) ([]*book.PriceLevel, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	levels := make([]*book.PriceLevel, 0, n)
	for i := uint32(0); i < n; i++ {
		price, err := r.u64()
		if err != nil {
			return nil, err
		}
		m, err := r.u32()
		if err != nil {
			return nil, err
		}
		orders := make([]*common.Order, 0, m)
		for j := uint32(0); j < m; j++ {
			o, err := readOrder(r)
			if err != nil {
				return nil, err
			}
			orders = append(orders, &o)
		}
		levels = append(levels, &book.PriceLevel{Price: price, Orders: orders})
	}
	return levels, nil
}

// EncodeState produces the canonical binary encoding of a ClobState: the
// next oid, both balance maps in ascending-address order, the book's bid
// and ask levels in ascending-price order, and the order-status map in
// ascending-oid order.
func EncodeState(state *clob.ClobState) []byte {
	w := &writer{}
	w.u64(state.NextOID)
	writeBalanceMap(w, state.BaseBalances)
	writeBalanceMap(w, state.QuoteBalances)
	writeBookSide(w, state.Book.Bids())
	writeBookSide(w, state.Book.Asks())
	writeOrderStatusMap(w, state.OrderStatus)
	return w.Bytes()
}

// DecodeState is the inverse of EncodeState. The returned state's book is
// rebuilt by re-enqueueing each resting order through book.Restore at its
// own limit price, without running the crossing logic, so every order rests
// unchanged.
func DecodeState(b []byte) (*clob.ClobState, error) {
	r := newReader(b)
	state := clob.NewState()

	nextOID, err := r.u64()
	if err != nil {
		return nil, err
	}
	state.NextOID = nextOID

	if state.BaseBalances, err = readBalanceMap(r); err != nil {
		return nil, err
	}
	if state.QuoteBalances, err = readBalanceMap(r); err != nil {
		return nil, err
	}

	bids, err := readBookSide(r)
	if err != nil {
		return nil, err
	}
	asks, err := readBookSide(r)
	if err != nil {
		return nil, err
	}
	for _, lvl := range bids {
		for _, o := range lvl.Orders {
			state.Book.Restore(*o)
		}
	}
	for _, lvl := range asks {
		for _, o := range lvl.Orders {
			state.Book.Restore(*o)
		}
	}

	if state.OrderStatus, err = readOrderStatusMap(r); err != nil {
		return nil, err
	}

	if r.remaining() {
		return nil, fmt.Errorf("%w: trailing bytes after ClobState", ErrUnknownDiscriminant)
	}

	return state, nil
}
