// Package main runs a demo WebSocket client: it listens for validation
// events, submits one validation and prints what the server streams back.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const demoInstance = `Warehouses = 2;
Stores = 3;
Capacity = [10, 10];
FixedCost = [5, 7];
Goods = [4, 6, 2];
SupplyCost = [| 1, 2 | 3, 1 | 2, 2 |];
Incompatibilities = 1;
IncompatiblePairs = [| 1, 2 |];
`

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/validations/events"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	var ack wsMessage
	if err := c.ReadJSON(&ack); err != nil || ack.Type != "connection_ack" {
		log.Fatalf("no connection_ack: %+v %v", ack, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg wsMessage
			if err := c.ReadJSON(&msg); err != nil {
				log.Println("read:", err)
				return
			}
			log.Printf("WS %s: %s", msg.Type, string(msg.Payload))
			if msg.Type == "next" {
				return
			}
		}
	}()

	body, _ := json.Marshal(map[string]any{
		"instance": demoInstance,
		"solution": "{(1, 1, 4), (2, 2, 6), (3, 1, 2)}",
	})
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/validations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	var run struct {
		ID     string `json:"id"`
		Report struct {
			Cost           int `json:"cost"`
			ViolationCount int `json:"violationCount"`
		} `json:"report"`
	}
	err = json.NewDecoder(resp.Body).Decode(&run)
	_ = resp.Body.Close()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Validation %s: cost=%d violations=%d", run.ID, run.Report.Cost, run.Report.ViolationCount)

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Println("timeout waiting for event")
	}
}
