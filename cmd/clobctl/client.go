// Command clobctl is a CLI client for the clobd HTTP API: place,
// cancel, deposit, withdraw and state actions against a running engine.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"clobd/internal/codec"
)

func main() {
	serverAddr := flag.String("server", "http://127.0.0.1:8080", "address of the clobd HTTP API")
	action := flag.String("action", "place", "action to perform: place, cancel, deposit, withdraw, state")

	address := flag.String("address", "", "account address (0x-prefixed hex, 20 bytes)")
	sideStr := flag.String("side", "buy", "order side: buy or sell")
	price := flag.Uint64("price", 0, "limit price")
	size := flag.Uint64("size", 0, "order size")
	oid := flag.Uint64("oid", 0, "order id to cancel")
	baseFree := flag.Uint64("base", 0, "base amount for deposit/withdraw")
	quoteFree := flag.Uint64("quote", 0, "quote amount for deposit/withdraw")

	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	var (
		body any
		path string
	)

	switch strings.ToLower(*action) {
	case "deposit":
		path = "/deposit"
		body = codec.DepositRequestDTO{Address: *address, BaseFree: *baseFree, QuoteFree: *quoteFree}
	case "withdraw":
		path = "/withdraw"
		body = codec.WithdrawRequestDTO{Address: *address, BaseFree: *baseFree, QuoteFree: *quoteFree}
	case "place":
		path = "/orders"
		body = codec.AddOrderRequestDTO{
			Address:    *address,
			IsBuy:      strings.ToLower(*sideStr) == "buy",
			LimitPrice: *price,
			Size:       *size,
		}
	case "cancel":
		path = "/cancel"
		body = codec.CancelOrderRequestDTO{OID: *oid}
	case "state":
		getState(client, *serverAddr)
		return
	default:
		log.Fatalf("unknown action: %s", *action)
	}

	postJSON(client, *serverAddr+path, body)
}

func postJSON(client *http.Client, url string, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("encode request: %v", err)
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	printResponse(resp)
}

func getState(client *http.Client, serverAddr string) {
	resp, err := client.Get(serverAddr + "/clob-state")
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	printResponse(resp)
}

func printResponse(resp *http.Response) {
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read response: %v", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		fmt.Println(string(out))
		return
	}
	fmt.Println(pretty.String())
}
