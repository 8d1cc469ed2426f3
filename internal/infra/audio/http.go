package audio

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"factory-assistant/internal/application"
)

// HTTPSource accepts commands over HTTP and holds each caller's connection
// open until the assistant replies. Synthesized audio is kept in memory for
// a short while and served from /audio/{id}.
type HTTPSource struct {
	addr        string
	server      *http.Server
	requests    chan *application.Request
	logger      *slog.Logger
	mu          sync.Mutex
	running     bool
	mux         *http.ServeMux
	closeOnce   sync.Once
	rateLimiter *RateLimiter

	replyWait time.Duration

	audioMu    sync.Mutex
	audioStore map[string]storedAudio
}

type storedAudio struct {
	data    []byte
	expires time.Time
}

func NewHTTPSource(addr string, logger *slog.Logger) *HTTPSource {
	h := &HTTPSource{
		addr:        addr,
		requests:    make(chan *application.Request, 10),
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(30, time.Minute), // 30 requests per minute per IP
		replyWait:   30 * time.Second,
		audioStore:  make(map[string]storedAudio),
	}
	// Apply rate limiting to command endpoints
	h.mux.HandleFunc("POST /command", h.rateLimiter.Middleware(h.handleCommand))
	h.mux.HandleFunc("POST /audio", h.rateLimiter.Middleware(h.handleAudio))
	// No rate limiting on health check or reply audio
	h.mux.HandleFunc("GET /audio/{id}", h.handleReplyAudio)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	return h
}

func (h *HTTPSource) Name() string {
	return "http"
}

func (h *HTTPSource) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil
	}

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		h.logger.Info("HTTP command server starting", "addr", h.addr)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", "error", err)
		}
	}()

	h.running = true
	return nil
}

func (h *HTTPSource) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return nil
	}

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.server.Shutdown(ctx); err != nil {
			h.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := h.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	h.closeOnce.Do(func() {
		close(h.requests)
	})
	h.running = false
	return nil
}

func (h *HTTPSource) Next(ctx context.Context) (*application.Request, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case req, ok := <-h.requests:
		if !ok {
			return nil, fmt.Errorf("request channel closed")
		}
		return req, nil
	}
}

func (h *HTTPSource) Handler() http.Handler {
	return h.mux
}

func (h *HTTPSource) handleCommand(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if body.Text == "" {
		http.Error(w, "empty text", http.StatusBadRequest)
		return
	}

	h.logger.Info("received text command via HTTP", "text", body.Text)
	h.serve(w, &application.Request{Text: body.Text})
}

func (h *HTTPSource) handleAudio(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 10*1024*1024))
	if err != nil {
		h.logger.Error("reading audio body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if len(data) == 0 {
		http.Error(w, "empty audio", http.StatusBadRequest)
		return
	}

	h.logger.Info("received audio via HTTP", "bytes", len(data))
	h.serve(w, &application.Request{Audio: data})
}

// serve queues the request and blocks until the assistant answers or the
// wait budget runs out.
func (h *HTTPSource) serve(w http.ResponseWriter, req *application.Request) {
	replies := make(chan application.Reply, 1)
	req.Reply = func(reply application.Reply) {
		select {
		case replies <- reply:
		default:
		}
	}

	select {
	case h.requests <- req:
	default:
		http.Error(w, "queue full, try again", http.StatusServiceUnavailable)
		return
	}

	select {
	case reply := <-replies:
		h.writeReply(w, reply)
	case <-time.After(h.replyWait):
		http.Error(w, "timed out waiting for a response", http.StatusGatewayTimeout)
	}
}

func (h *HTTPSource) writeReply(w http.ResponseWriter, reply application.Reply) {
	resp := map[string]string{"response": reply.Text}
	if len(reply.Audio) > 0 {
		id := h.storeAudio(reply.Audio)
		resp["audio_url"] = "/audio/" + id
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *HTTPSource) storeAudio(data []byte) string {
	buf := make([]byte, 16)
	rand.Read(buf)
	id := hex.EncodeToString(buf)

	now := time.Now()
	h.audioMu.Lock()
	for key, stored := range h.audioStore {
		if now.After(stored.expires) {
			delete(h.audioStore, key)
		}
	}
	h.audioStore[id] = storedAudio{data: data, expires: now.Add(5 * time.Minute)}
	h.audioMu.Unlock()

	return id
}

func (h *HTTPSource) handleReplyAudio(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	h.audioMu.Lock()
	stored, ok := h.audioStore[id]
	h.audioMu.Unlock()

	if !ok || time.Now().After(stored.expires) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Write(stored.data)
}

func (h *HTTPSource) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	running := h.running
	queueSize := len(h.requests)
	h.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK

	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"status":"%s","running":%t,"queue_size":%d}`, status, running, queueSize)
}
