// Package main implements a mock notification receiver for local development.
// It accepts the generic webhook and Discord webhook deliveries the buyback
// server sends, keeps the most recent ones in memory, and lists them so a
// developer can follow request lifecycle events without real endpoints.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/donaldgifford/mailin-buyback/internal/notify"
)

// received is one stored delivery.
type received struct {
	Seq        int           `json:"seq"`
	Backend    string        `json:"backend"`
	Action     string        `json:"action"`
	ReceivedAt time.Time     `json:"received_at"`
	Event      *notify.Event `json:"event,omitempty"`
	Discord    *discordBody  `json:"discord,omitempty"`
}

type discordBody struct {
	Embeds []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Fields      []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"fields"`
	} `json:"embeds"`
}

type eventsResponse struct {
	Events []received `json:"events"`
	Total  int        `json:"total"`
	Offset int        `json:"offset"`
	Limit  int        `json:"limit"`
}

// inbox is a bounded, concurrency-safe delivery log.
type inbox struct {
	mu        sync.Mutex
	events    []received
	max       int
	seq       int
	failEvery int
}

func newInbox(maxEvents, failEvery int) *inbox {
	return &inbox{max: maxEvents, failEvery: failEvery}
}

// admit counts a delivery attempt and reports whether it should be
// rejected to simulate a failing endpoint.
func (b *inbox) admit() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	return b.seq, b.failEvery > 0 && b.seq%b.failEvery == 0
}

func (b *inbox) add(r received) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, r)
	if over := len(b.events) - b.max; over > 0 {
		b.events = b.events[over:]
	}
}

func (b *inbox) list(action string) []received {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]received, 0, len(b.events))
	for _, e := range b.events {
		if action == "" || e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func (b *inbox) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	token := flag.String("token", "", "require 'Authorization: Bearer <token>' on webhook deliveries")
	maxEvents := flag.Int("max", 500, "number of deliveries to keep")
	failEvery := flag.Int("fail-every", 0, "reject every Nth delivery with 503 (0 disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock notification receiver", "addr", addr,
		"webhook_url", "http://localhost"+addr+"/webhook",
		"discord_url", "http://localhost"+addr+"/api/webhooks/1/mock")

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, newMux(logger, newInbox(*maxEvents, *failEvery), *token)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newMux(logger *slog.Logger, box *inbox, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", webhookHandler(logger, box, token))
	mux.HandleFunc("POST /api/webhooks/{id}/{token}", discordHandler(logger, box))
	mux.HandleFunc("GET /events", eventsHandler(box))
	mux.HandleFunc("DELETE /events", func(w http.ResponseWriter, _ *http.Request) {
		box.reset()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

func webhookHandler(logger *slog.Logger, box *inbox, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			logger.Warn("webhook delivery with bad or missing token")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}

		seq, fail := box.admit()
		if fail {
			logger.Warn("simulating webhook failure", "seq", seq)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "simulated outage"})
			return
		}

		var ev notify.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if ev.Action == "" || ev.RequestID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "action and request_id are required"})
			return
		}
		if hdr := r.Header.Get("X-Event-Action"); hdr != "" && hdr != string(ev.Action) {
			logger.Warn("X-Event-Action header disagrees with body", "header", hdr, "action", ev.Action)
		}

		box.add(received{
			Seq:        seq,
			Backend:    "webhook",
			Action:     string(ev.Action),
			ReceivedAt: time.Now(),
			Event:      &ev,
		})
		logger.Info("webhook event", "seq", seq, "action", ev.Action,
			"request_number", ev.RequestNumber, "status", ev.Status)
		w.WriteHeader(http.StatusNoContent)
	}
}

func discordHandler(logger *slog.Logger, box *inbox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seq, fail := box.admit()
		if fail {
			logger.Warn("simulating discord failure", "seq", seq)
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"message": "You are being rate limited.", "retry_after": 1})
			return
		}

		var body discordBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Embeds) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Cannot send an empty message", "code": 50006})
			return
		}

		box.add(received{
			Seq:        seq,
			Backend:    "discord",
			Action:     body.Embeds[0].Title,
			ReceivedAt: time.Now(),
			Discord:    &body,
		})
		logger.Info("discord message", "seq", seq, "title", body.Embeds[0].Title, "webhook", r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func eventsHandler(box *inbox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = v
		}
		offset := 0
		if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
			offset = v
		}

		matched := box.list(r.URL.Query().Get("action"))
		total := len(matched)

		if offset >= len(matched) {
			matched = []received{}
		} else {
			matched = matched[offset:min(offset+limit, len(matched))]
		}

		writeJSON(w, http.StatusOK, eventsResponse{
			Events: matched,
			Total:  total,
			Offset: offset,
			Limit:  limit,
		})
	}
}
