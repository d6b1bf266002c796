// Command zkreplay replays a recorded request tape through the state
// transition function and emits the resulting canonical state bytes and
// its Keccak-256 commitment. It exists to demonstrate that the same tape,
// run here or inside a zkVM guest executing the identical tick logic, must
// produce the identical hash.
//
// The tape is a flat sequence of length-prefixed (u32 little-endian)
// canonical-binary-encoded Requests, the same encoding the journal's
// Requests table stores.
package main

import (
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"clobd/internal/clob"
	"clobd/internal/codec"
)

func main() {
	tapePath := flag.String("tape", "", "path to a recorded request tape")
	flag.Parse()

	if *tapePath == "" {
		fmt.Fprintln(os.Stderr, "usage: zkreplay -tape <path>")
		os.Exit(1)
	}

	data, err := os.ReadFile(*tapePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read tape: %v\n", err)
		os.Exit(1)
	}

	requests, err := readTape(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode tape: %v\n", err)
		os.Exit(1)
	}

	state := clob.NewState()
	for _, req := range requests {
		_, state = clob.Tick(req, state)
	}

	encoded := codec.EncodeState(state)
	hash := codec.StateHash(state)

	fmt.Printf("requests replayed: %d\n", len(requests))
	fmt.Printf("final state: %s\n", hex.EncodeToString(encoded))
	fmt.Printf("state hash: %s\n", hex.EncodeToString(hash[:]))
}

func readTape(data []byte) ([]clob.Request, error) {
	var requests []clob.Request
	pos := 0
	for pos < len(data) {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("truncated length prefix at offset %d", pos)
		}
		n := binary.LittleEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(n) > len(data) {
			return nil, fmt.Errorf("truncated request at offset %d", pos)
		}
		req, err := codec.DecodeRequest(data[pos : pos+int(n)])
		if err != nil {
			return nil, fmt.Errorf("request at offset %d: %w", pos, err)
		}
		pos += int(n)

		requests = append(requests, req)
	}
	return requests, nil
}
