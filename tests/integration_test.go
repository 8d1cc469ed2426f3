package tests

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"factory-assistant/internal/application"
	"factory-assistant/internal/domain"
	"factory-assistant/internal/grammar"
	"factory-assistant/internal/infra/audio"
	"factory-assistant/internal/infra/factory"
)

// factoryBackend is an httptest stand-in for the factory data service. It
// serves a snapshot and records every mutation it receives.
type factoryBackend struct {
	mu          sync.Mutex
	furnaceOn   bool
	lights      []bool
	toggleCalls int
	lastAuth    string
}

func newFactoryBackend() *factoryBackend {
	return &factoryBackend{lights: []bool{true, false}}
}

func (b *factoryBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /data/all", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"machines": []map[string]any{
				{"name": "Furnace", "maintenance_status": "Normal Operation", "power": b.furnaceOn, "temperature": 82.0},
				{"name": "Mixer", "maintenance_status": "Bearing Wear", "power": true},
			},
			"rooms": []map[string]any{
				{"name": "Machine Room", "lights": b.lights, "noise": 71.0},
			},
			"cartons_num": 104,
		})
	})

	mux.HandleFunc("POST /toggle/machine", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.lastAuth = r.Header.Get("Authorization")
		b.toggleCalls++
		b.furnaceOn = !b.furnaceOn
		json.NewEncoder(w).Encode(map[string]any{"machine_name": "Furnace", "power": b.furnaceOn})
	})

	mux.HandleFunc("POST /toggle/lights", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RoomName string `json:"room_name"`
			LightNum int    `json:"light_num"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		b.mu.Lock()
		defer b.mu.Unlock()
		b.lastAuth = r.Header.Get("Authorization")
		b.toggleCalls++
		b.lights[body.LightNum] = !b.lights[body.LightNum]
		json.NewEncoder(w).Encode(map[string]any{"room_name": body.RoomName, "lights": b.lights})
	})

	return mux
}

func newTestCatalog() *domain.Catalog {
	return domain.NewCatalog(
		[]string{"Furnace", "Mixer"},
		[]string{"Machine Room"},
		map[string]domain.Field{
			"temperature": {Name: "temperature", Unit: "degrees Celsius"},
			"noise":       {Name: "noise", Unit: "decibels"},
			"lights":      {Name: "lights"},
		},
		map[string]domain.Predicate{
			"bearing_wear": {Status: "Bearing Wear"},
		},
	)
}

// startAssistant wires the grammar interpreter, the real factory client and
// an HTTP command source together and runs the assistant against them.
func startAssistant(t *testing.T, ctx context.Context, backendURL, token string) *audio.HTTPSource {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := newTestCatalog()

	source := audio.NewHTTPSource(":0", logger)
	client := factory.NewClient(backendURL)

	assistant := application.NewAssistant(
		source,
		&application.NoopSTT{},
		grammar.NewMatcher(catalog),
		application.NewQueryResolver(catalog),
		application.NewActionDispatcher(client, client, catalog, logger),
		client,
		&application.NoopTranslator{},
		&application.NoopSynthesizer{},
		&application.NoopNotifier{},
		token,
		"en",
		logger,
	)

	go func() {
		_ = assistant.Run(ctx)
	}()

	return source
}

func ask(t *testing.T, source *audio.HTTPSource, text string) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(`{"text":"`+text+`"}`))
	rec := httptest.NewRecorder()
	source.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("command %q: status %d, body %s", text, rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp["response"]
}

func TestIntegration_Queries(t *testing.T) {
	backend := newFactoryBackend()
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	source := startAssistant(t, ctx, server.URL, "")
	time.Sleep(100 * time.Millisecond)

	tests := []struct {
		command string
		want    string
	}{
		{"what is the temperature of the furnace", "The temperature of the Furnace is 82 degrees Celsius."},
		{"what is the status of the mixer", "The Mixer is reporting bearing wear."},
		{"which machines have bearing wear", "The machines with bearing wear are: Mixer."},
		{"are the lights on in the machine room", "The lights in the Machine Room are currently on, off."},
		{"how many cartons have been produced", "The total number of cartons produced is currently 104."},
		{"open the pod bay doors", "I'm sorry, I didn't understand that."},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			got := ask(t, source, tt.command)
			if got != tt.want {
				t.Errorf("response = %q, want %q", got, tt.want)
			}
		})
	}

	if backend.toggleCalls != 0 {
		t.Errorf("queries caused %d mutations", backend.toggleCalls)
	}
}

func TestIntegration_ActuationIdempotence(t *testing.T) {
	backend := newFactoryBackend()
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	source := startAssistant(t, ctx, server.URL, "test-token")
	time.Sleep(100 * time.Millisecond)

	// Furnace starts off, so turning it on mutates once.
	got := ask(t, source, "turn on the furnace")
	if got != "The Furnace is now on." {
		t.Errorf("first toggle response = %q", got)
	}
	if backend.toggleCalls != 1 {
		t.Errorf("toggle calls = %d, want 1", backend.toggleCalls)
	}
	if backend.lastAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", backend.lastAuth)
	}

	// Repeating the command finds the furnace already on and skips the write.
	got = ask(t, source, "turn on the furnace")
	if got != "The Furnace is already on." {
		t.Errorf("repeat toggle response = %q", got)
	}
	if backend.toggleCalls != 1 {
		t.Errorf("toggle calls after repeat = %d, want 1", backend.toggleCalls)
	}
}

func TestIntegration_ActuationRequiresToken(t *testing.T) {
	backend := newFactoryBackend()
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	source := startAssistant(t, ctx, server.URL, "")
	time.Sleep(100 * time.Millisecond)

	got := ask(t, source, "turn off light 2 in the machine room")
	if got != "You need to log in before I can control equipment." {
		t.Errorf("response = %q", got)
	}
	if backend.toggleCalls != 0 {
		t.Errorf("unauthorized command caused %d mutations", backend.toggleCalls)
	}
}
