package domain

import "strings"

// Field maps a query intent to the snapshot field it reads and the unit it is
// reported in.
type Field struct {
	Name string
	Unit string
}

// Predicate matches a machine's maintenance status either exactly or by
// exclusion.
type Predicate struct {
	Status   string
	NotEqual bool
}

func (p Predicate) Matches(status string) bool {
	if p.NotEqual {
		return status != p.Status
	}
	return status == p.Status
}

// NormalStatus is the raw maintenance status reported by healthy machines.
const NormalStatus = "Normal Operation"

// Catalog is the process-wide vocabulary of known machines, rooms, intents
// and field mappings. It is built once at startup and read-only afterwards.
type Catalog struct {
	machines []string
	rooms    []string

	entities   map[string]entityRef
	fields     map[string]Field
	predicates map[string]Predicate
}

type entityRef struct {
	typ       EntityType
	canonical string
}

// NewCatalog builds the vocabulary. Entity lookups are case-insensitive;
// declaration order of machines and rooms is preserved for deterministic
// scanning. The alerts intent always resolves through the same predicate
// table as the configured maintenance intents, defaulting to
// not-equal(NormalStatus) when the configuration does not override it.
func NewCatalog(machines, rooms []string, fields map[string]Field, predicates map[string]Predicate) *Catalog {
	c := &Catalog{
		machines:   make([]string, 0, len(machines)),
		rooms:      make([]string, 0, len(rooms)),
		entities:   make(map[string]entityRef, len(machines)+len(rooms)),
		fields:     make(map[string]Field, len(fields)),
		predicates: make(map[string]Predicate, len(predicates)+1),
	}

	for _, name := range machines {
		canonical := TitleCase(name)
		c.machines = append(c.machines, canonical)
		c.entities[strings.ToLower(canonical)] = entityRef{typ: EntityMachine, canonical: canonical}
	}
	for _, name := range rooms {
		canonical := TitleCase(name)
		c.rooms = append(c.rooms, canonical)
		c.entities[strings.ToLower(canonical)] = entityRef{typ: EntityRoom, canonical: canonical}
	}

	for intent, f := range fields {
		c.fields[intent] = f
	}
	for intent, p := range predicates {
		c.predicates[intent] = p
	}
	if _, ok := c.predicates[IntentAlerts]; !ok {
		c.predicates[IntentAlerts] = Predicate{Status: NormalStatus, NotEqual: true}
	}

	return c
}

// ResolveEntity looks up a machine or room by name, case-insensitively,
// returning its type and canonical name. Absence is a normal branch.
func (c *Catalog) ResolveEntity(name string) (EntityType, string, bool) {
	ref, ok := c.entities[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", "", false
	}
	return ref.typ, ref.canonical, true
}

// FieldForIntent returns the snapshot field a query intent reads.
func (c *Catalog) FieldForIntent(intent string) (Field, bool) {
	f, ok := c.fields[intent]
	return f, ok
}

// MaintenancePredicate returns the status predicate for a maintenance intent.
func (c *Catalog) MaintenancePredicate(intent string) (Predicate, bool) {
	p, ok := c.predicates[intent]
	return p, ok
}

// Machines returns the canonical machine names in declaration order.
func (c *Catalog) Machines() []string {
	out := make([]string, len(c.machines))
	copy(out, c.machines)
	return out
}

// Rooms returns the canonical room names in declaration order.
func (c *Catalog) Rooms() []string {
	out := make([]string, len(c.rooms))
	copy(out, c.rooms)
	return out
}

// EntityNames returns all canonical entity names, machines first, in
// declaration order. Interpreters scan this list, so its order defines the
// first-match policy for ambiguous commands.
func (c *Catalog) EntityNames() []string {
	out := make([]string, 0, len(c.machines)+len(c.rooms))
	out = append(out, c.machines...)
	out = append(out, c.rooms...)
	return out
}

// QueryIntents returns every intent the resolver can answer: field lookups,
// maintenance predicates and the counter intents.
func (c *Catalog) QueryIntents() []string {
	out := make([]string, 0, len(c.fields)+len(c.predicates)+3)
	for intent := range c.fields {
		out = append(out, intent)
	}
	for intent := range c.predicates {
		out = append(out, intent)
	}
	out = append(out, IntentStatus, IntentCartonsProduced, IntentCartonsSold)
	return out
}
