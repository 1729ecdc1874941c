// Gamestatus is a fake game-status API used for manual testing of
// endpoint failover. It serves JSON status data and can be flipped into
// a failing state to watch breakers trip and stale cache take over.
//
// Usage:
//
//	go run gamestatus.go -port 8081
//	curl http://localhost:8081/v1/status
//	curl -X POST http://localhost:8081/toggle-fail
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"
)

type serverStatus struct {
	Name      string    `json:"name"`
	Online    bool      `json:"online"`
	Players   int       `json:"players"`
	MaxSlots  int       `json:"max_slots"`
	Queue     int       `json:"queue"`
	UpdatedAt time.Time `json:"updated_at"`
}

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	name := flag.String("name", "test-server", "server name to report")
	flag.Parse()

	var failing atomic.Bool

	mux := http.NewServeMux()

	mux.HandleFunc("/v1/status", func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			log.Printf("%s %s -> 503 (failing mode)", r.Method, r.URL.Path)
			http.Error(w, "upstream maintenance", http.StatusServiceUnavailable)
			return
		}

		payload := serverStatus{
			Name:      *name,
			Online:    true,
			Players:   rand.Intn(200),
			MaxSlots:  200,
			Queue:     rand.Intn(10),
			UpdatedAt: time.Now().UTC(),
		}

		log.Printf("%s %s -> 200 (%d players)", r.Method, r.URL.Path, payload.Players)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	})

	mux.HandleFunc("/toggle-fail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		now := !failing.Load()
		failing.Store(now)
		log.Printf("failing mode: %v", now)
		fmt.Fprintf(w, "failing=%v\n", now)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("fake game-status API %q listening on %s", *name, addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
