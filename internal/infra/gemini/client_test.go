package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"factory-assistant/internal/domain"
	"factory-assistant/internal/infra/gemini"
)

func testCatalog() *domain.Catalog {
	return domain.NewCatalog(
		[]string{"Furnace"},
		[]string{"Machine Room"},
		map[string]domain.Field{"temperature": {Name: "temperature", Unit: "degrees Celsius"}},
		map[string]domain.Predicate{"not_normal": {Status: "Normal Operation", NotEqual: true}},
	)
}

func generationServer(t *testing.T, extraction string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": extraction}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
}

func TestInterpret_Query(t *testing.T) {
	server := generationServer(t, `{"intent":"temperature","entity_name":"furnace","entity_type":"machine","light_num":null,"desired_power_state":null,"cartons_sold":null,"cartons_produced":null,"buyer":null}`)
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "gemini-test", server.URL, testCatalog())

	cmd, err := client.Interpret(context.Background(), "what is the temperature of the furnace", "en")
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}

	if cmd.Intent != "temperature" {
		t.Errorf("intent: got %q", cmd.Intent)
	}
	// Extracted names are title-cased for catalog matching.
	if cmd.EntityName != "Furnace" {
		t.Errorf("entity name: got %q, want Furnace", cmd.EntityName)
	}
	if cmd.EntityType != domain.EntityMachine {
		t.Errorf("entity type: got %q", cmd.EntityType)
	}
}

func TestInterpret_Actuation(t *testing.T) {
	server := generationServer(t, `{"intent":"toggle_lights","entity_name":"Machine Room","entity_type":"room","light_num":1,"desired_power_state":false,"cartons_sold":null,"cartons_produced":null,"buyer":null}`)
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "gemini-test", server.URL, testCatalog())

	cmd, err := client.Interpret(context.Background(), "turn off light 1 in the machine room", "en")
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}

	if cmd.Intent != domain.IntentToggleLights {
		t.Errorf("intent: got %q", cmd.Intent)
	}
	if cmd.Params.LightNum != 1 {
		t.Errorf("light num: got %d", cmd.Params.LightNum)
	}
	if cmd.Params.DesiredPowerState == nil || *cmd.Params.DesiredPowerState {
		t.Error("desired state: want off")
	}
}

// All-null extraction means "not understood", which is a Command, not an
// error.
func TestInterpret_NothingRecognized(t *testing.T) {
	server := generationServer(t, `{"intent":null,"entity_name":null,"entity_type":null,"light_num":null,"desired_power_state":null,"cartons_sold":null,"cartons_produced":null,"buyer":null}`)
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "gemini-test", server.URL, testCatalog())

	cmd, err := client.Interpret(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if cmd.Intent != "" {
		t.Errorf("intent: got %q, want empty", cmd.Intent)
	}
}

func TestInterpret_MalformedExtraction(t *testing.T) {
	server := generationServer(t, `this is not json`)
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "gemini-test", server.URL, testCatalog())

	_, err := client.Interpret(context.Background(), "hello", "en")
	var derr *domain.Error
	if !errors.As(err, &derr) || derr.Kind != domain.KindParse {
		t.Fatalf("expected KindParse, got %v", err)
	}
}

func TestInterpret_CarriesLanguageHint(t *testing.T) {
	server := generationServer(t, `{"intent":"temperature","entity_name":"Furnace","entity_type":"machine","light_num":null,"desired_power_state":null,"cartons_sold":null,"cartons_produced":null,"buyer":null}`)
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "gemini-test", server.URL, testCatalog())

	cmd, err := client.Interpret(context.Background(), "cual es la temperatura del horno", "es")
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if cmd.ResponseLanguage != "es" {
		t.Errorf("response language: got %q, want es", cmd.ResponseLanguage)
	}
}
