package domain

import (
	"strings"
	"unicode"
)

// Query intents answered from a state snapshot.
const (
	IntentStatus          = "status"
	IntentLights          = "lights"
	IntentCartonsProduced = "cartons_produced"
	IntentCartonsSold     = "cartons_sold"
	IntentAlerts          = "alerts"
)

// Actuation intents dispatched to the factory service.
const (
	IntentToggleLights       = "toggle_lights"
	IntentToggleMachinePower = "toggle_machine_power"
	IntentRecordSale         = "record_sale"
	IntentRecordCartons      = "record_cartons"
)

type EntityType string

const (
	EntityMachine EntityType = "machine"
	EntityRoom    EntityType = "room"
)

// Command is the structured form of one spoken or typed request. It is
// produced fresh per request by an interpreter and never mutated afterwards.
// An empty Intent is the designed "I don't understand" signal, not an error.
type Command struct {
	Intent     string
	EntityName string
	EntityType EntityType
	Params     Params

	RawText string
	// ResponseLanguage is the ISO-639-1 code the reply should be given in.
	// Carried through from transcription; has no effect on parsing.
	ResponseLanguage string
}

// Params holds the optional slots an actuation intent can fill.
type Params struct {
	// LightNum is one-based as spoken by the user; zero means unspecified.
	LightNum int
	// DesiredPowerState is nil when the user asked for a plain toggle.
	DesiredPowerState *bool
	CartonsSold       int
	CartonsProduced   int
	Buyer             string
}

// IsActuation reports whether the intent mutates remote factory state.
func IsActuation(intent string) bool {
	switch intent {
	case IntentToggleLights, IntentToggleMachinePower, IntentRecordSale, IntentRecordCartons:
		return true
	}
	return false
}

// IntentWords humanizes an intent key for use inside a sentence
// ("power_usage" -> "power usage").
func IntentWords(intent string) string {
	return strings.ReplaceAll(intent, "_", " ")
}

// TitleCase normalizes an entity name the way the catalog stores it
// ("machine room" -> "Machine Room").
func TitleCase(name string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
