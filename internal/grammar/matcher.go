// Package grammar is the deterministic interpreter strategy: a lexical
// matcher over the catalog vocabulary with no network dependency, no
// confidence scoring and no hidden state. The same text always yields the
// same Command.
package grammar

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"factory-assistant/internal/domain"
)

type Matcher struct {
	catalog *domain.Catalog
}

func NewMatcher(catalog *domain.Catalog) *Matcher {
	return &Matcher{catalog: catalog}
}

// Interpret scans the normalized text for the first entity in catalog
// declaration order and the first intent rule that fires. Unrecognized
// tokens are ignored; when no rule fires the Command carries an empty
// Intent, never an error.
func (m *Matcher) Interpret(_ context.Context, text, langHint string) (*domain.Command, error) {
	norm := normalize(text)
	cmd := &domain.Command{RawText: text, ResponseLanguage: langHint}

	// First entity match in declaration order wins; a command mentioning
	// two entities resolves to whichever the catalog lists first.
	for _, name := range m.catalog.EntityNames() {
		if hasPhrase(norm, strings.ToLower(name)) {
			typ, canonical, _ := m.catalog.ResolveEntity(name)
			cmd.EntityName = canonical
			cmd.EntityType = typ
			break
		}
	}

	m.matchIntent(norm, cmd)
	return cmd, nil
}

func (m *Matcher) matchIntent(norm string, cmd *domain.Command) {
	hasToggleVerb := hasAny(norm, "turn", "switch") && hasAny(norm, "on", "off")
	number, hasNumber := firstNumber(norm)

	switch {
	case hasToggleVerb && hasAny(norm, "light", "lights"):
		cmd.Intent = domain.IntentToggleLights
		cmd.Params.DesiredPowerState = desiredState(norm)
		if hasNumber {
			cmd.Params.LightNum = number
		}

	case hasToggleVerb && cmd.EntityType == domain.EntityMachine:
		cmd.Intent = domain.IntentToggleMachinePower
		cmd.Params.DesiredPowerState = desiredState(norm)

	case hasAny(norm, "sold", "sale") && hasNumber && number > 0:
		cmd.Intent = domain.IntentRecordSale
		cmd.Params.CartonsSold = number
		cmd.Params.Buyer = buyerAfterTo(norm)

	case hasAny(norm, "produced", "made", "record", "log") &&
		hasAny(norm, "carton", "cartons") && hasNumber && number > 0:
		cmd.Intent = domain.IntentRecordCartons
		cmd.Params.CartonsProduced = number

	case hasAny(norm, "light", "lights"):
		cmd.Intent = domain.IntentLights

	case hasAny(norm, "sold", "sale") && hasAny(norm, "carton", "cartons"):
		cmd.Intent = domain.IntentCartonsSold

	case hasAny(norm, "carton", "cartons"):
		cmd.Intent = domain.IntentCartonsProduced

	case hasAny(norm, "alert", "alerts", "alarm", "alarms"):
		cmd.Intent = domain.IntentAlerts

	case hasPhrase(norm, "not normal") || hasAny(norm, "wrong", "issues", "problems", "broken"):
		cmd.Intent = "not_normal"

	case hasAny(norm, "normal", "normally"):
		cmd.Intent = "normal_operation"

	case hasAny(norm, "clogged"):
		cmd.Intent = "clogged_filter"

	case hasAny(norm, "bearing", "bearings"):
		cmd.Intent = "bearing_wear"

	case hasAny(norm, "status", "condition", "doing"):
		cmd.Intent = domain.IntentStatus

	case hasAny(norm, "temperature", "temp", "hot", "cold"):
		cmd.Intent = "temperature"

	case hasAny(norm, "humidity", "humid"):
		cmd.Intent = "humidity"

	case hasAny(norm, "noise", "loud") || hasPhrase(norm, "noise level"):
		cmd.Intent = "noise"

	case hasAny(norm, "smoke"):
		cmd.Intent = "smoke"

	case hasAny(norm, "vibration", "vibrating", "vibrations"):
		cmd.Intent = "vibration"

	case hasPhrase(norm, "power usage") || hasPhrase(norm, "power consumption") ||
		hasAny(norm, "power", "energy"):
		cmd.Intent = "power_usage"
	}
}

func desiredState(norm string) *bool {
	// "off" is checked first so "turn the light off" never reads as on.
	if hasAny(norm, "off") {
		state := false
		return &state
	}
	if hasAny(norm, "on") {
		state := true
		return &state
	}
	return nil
}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "twenty": 20, "thirty": 30,
	"forty": 40, "fifty": 50, "hundred": 100,
}

func firstNumber(norm string) (int, bool) {
	for _, token := range strings.Fields(norm) {
		if n, err := strconv.Atoi(token); err == nil {
			return n, true
		}
		if n, ok := numberWords[token]; ok {
			return n, true
		}
	}
	return 0, false
}

func buyerAfterTo(norm string) string {
	_, after, found := strings.Cut(norm, " to ")
	if !found {
		return ""
	}
	return domain.TitleCase(strings.TrimSpace(after))
}

// normalize lowercases, strips punctuation and collapses whitespace, then
// pads the result so phrase matches always land on word boundaries.
func normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return " " + strings.Join(strings.Fields(b.String()), " ") + " "
}

func hasPhrase(norm, phrase string) bool {
	return strings.Contains(norm, " "+phrase+" ")
}

func hasAny(norm string, words ...string) bool {
	for _, w := range words {
		if hasPhrase(norm, w) {
			return true
		}
	}
	return false
}
