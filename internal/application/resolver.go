package application

import (
	"fmt"
	"strconv"
	"strings"

	"factory-assistant/internal/domain"
)

// statusPhrases maps raw maintenance statuses to how they are spoken.
// Unmapped statuses fall back to the humanized raw value.
var statusPhrases = map[string]string{
	"Normal Operation": "operating normally",
	"Clogged Filter":   "reporting a clogged filter",
	"Bearing Wear":     "reporting bearing wear",
}

func statusPhrase(raw string) string {
	if p, ok := statusPhrases[raw]; ok {
		return p
	}
	return strings.ToLower(strings.ReplaceAll(raw, "_", " "))
}

// QueryResolver answers read-path commands from a state snapshot. It is pure:
// no network, no mutation, same answer for the same inputs.
type QueryResolver struct {
	catalog *domain.Catalog
}

func NewQueryResolver(catalog *domain.Catalog) *QueryResolver {
	return &QueryResolver{catalog: catalog}
}

// Resolve evaluates the precedence ladder top to bottom, first match wins:
//
//  1. a status question, or any maintenance intent that names an entity,
//     answers about that one entity;
//  2. maintenance intents without an entity aggregate across all machines;
//  3. carton counters;
//  4. per-entity field lookup;
//  5. "no data found" fallbacks.
//
// The order matters: a command naming both a maintenance keyword and an
// entity must get a single-entity answer, never the full-factory list.
func (r *QueryResolver) Resolve(cmd *domain.Command, snap *domain.StateSnapshot) string {
	_, isMaintenance := r.catalog.MaintenancePredicate(cmd.Intent)

	if cmd.Intent == domain.IntentStatus || (isMaintenance && cmd.EntityName != "") {
		return r.entityStatus(cmd, snap)
	}

	if isMaintenance {
		return r.aggregateStatus(cmd.Intent, snap)
	}

	switch cmd.Intent {
	case domain.IntentCartonsProduced:
		return fmt.Sprintf("The total number of cartons produced is currently %d.", snap.CartonsNum)
	case domain.IntentCartonsSold:
		// The snapshot carries a production total only; inventing a sales
		// figure would be worse than admitting the gap.
		return "I can tell you the total cartons produced, but not specifically cartons sold from this data."
	}

	return r.entityField(cmd, snap)
}

func (r *QueryResolver) entityStatus(cmd *domain.Command, snap *domain.StateSnapshot) string {
	if cmd.EntityName == "" {
		return "I'm sorry, I couldn't find any data for that."
	}

	_, canonical, ok := r.catalog.ResolveEntity(cmd.EntityName)
	if !ok {
		return fmt.Sprintf("No data found for %s.", domain.TitleCase(cmd.EntityName))
	}

	machine, found := snap.FindMachine(canonical)
	if !found {
		return fmt.Sprintf("No status data found for %s.", canonical)
	}

	return fmt.Sprintf("The %s is %s.", machine.Name, statusPhrase(machine.Maintenance))
}

func (r *QueryResolver) aggregateStatus(intent string, snap *domain.StateSnapshot) string {
	predicate, _ := r.catalog.MaintenancePredicate(intent)

	var matching []string
	for _, machine := range snap.Machines {
		if predicate.Matches(machine.Maintenance) {
			matching = append(matching, machine.Name)
		}
	}

	words := domain.IntentWords(intent)
	if len(matching) == 0 {
		return fmt.Sprintf("No machines found with %s status.", words)
	}
	return fmt.Sprintf("The machines with %s are: %s.", words, strings.Join(matching, ", "))
}

func (r *QueryResolver) entityField(cmd *domain.Command, snap *domain.StateSnapshot) string {
	if cmd.EntityName == "" {
		return "I'm sorry, I couldn't find any data for that."
	}

	typ, canonical, ok := r.catalog.ResolveEntity(cmd.EntityName)
	if !ok {
		return fmt.Sprintf("No data found for %s.", domain.TitleCase(cmd.EntityName))
	}
	if cmd.EntityType != "" && cmd.EntityType != typ {
		return fmt.Sprintf("No data found for %s.", canonical)
	}

	field, ok := r.catalog.FieldForIntent(cmd.Intent)
	if !ok {
		return fmt.Sprintf("No data found for %s.", canonical)
	}

	if typ == domain.EntityRoom {
		room, found := snap.FindRoom(canonical)
		if !found {
			return fmt.Sprintf("No data found for %s.", canonical)
		}
		if cmd.Intent == domain.IntentLights {
			return lightsSentence(room)
		}
		return sensorSentence(cmd.Intent, room.Name, field, room.Sensors)
	}

	machine, found := snap.FindMachine(canonical)
	if !found {
		return fmt.Sprintf("No data found for %s.", canonical)
	}
	return sensorSentence(cmd.Intent, machine.Name, field, machine.Sensors)
}

// lightsSentence reports the two switches individually rather than as a
// numeric reading.
func lightsSentence(room *domain.RoomState) string {
	states := make([]string, len(room.Lights))
	for i, on := range room.Lights {
		states[i] = domain.OnOff(on)
	}
	return fmt.Sprintf("The lights in the %s are currently %s.", room.Name, strings.Join(states, ", "))
}

func sensorSentence(intent, name string, field domain.Field, sensors map[string]float64) string {
	value, ok := sensors[field.Name]
	if !ok {
		return fmt.Sprintf("No %s data found for %s.", domain.IntentWords(intent), name)
	}

	sentence := fmt.Sprintf("The %s of the %s is %s %s.",
		domain.IntentWords(intent), name,
		strconv.FormatFloat(value, 'f', -1, 64), field.Unit)
	return strings.ReplaceAll(sentence, " .", ".")
}
