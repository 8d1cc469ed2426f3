package config

import (
	"os"
	"path/filepath"
	"testing"

	"factory-assistant/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Audio.Source != "http" {
		t.Errorf("Audio.Source = %q, want http", cfg.Audio.Source)
	}
	if cfg.Interpreter.Strategy != "grammar" {
		t.Errorf("Interpreter.Strategy = %q, want grammar", cfg.Interpreter.Strategy)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if len(cfg.Catalog.Machines) == 0 {
		t.Error("default machines missing")
	}
	if m := cfg.Catalog.MaintenanceStatusMap["not_normal"]; !m.NotEqual || m.Status != domain.NormalStatus {
		t.Errorf("not_normal default = %+v", m)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("FACTORY_TOKEN", "secret-token")
	path := writeConfig(t, "factory:\n  base_url: http://factory:5000\n  token: ${FACTORY_TOKEN}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Factory.Token != "secret-token" {
		t.Errorf("Factory.Token = %q, want secret-token", cfg.Factory.Token)
	}
}

func TestStatusMatcherForms(t *testing.T) {
	path := writeConfig(t, `catalog:
  machines: [Press]
  rooms: [Dock]
  maintenance_status_map:
    overheating: "Overheating"
    alerts:
      not: "Normal Operation"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	exact := cfg.Catalog.MaintenanceStatusMap["overheating"]
	if exact.NotEqual || exact.Status != "Overheating" {
		t.Errorf("exact matcher = %+v", exact)
	}

	excl := cfg.Catalog.MaintenanceStatusMap["alerts"]
	if !excl.NotEqual || excl.Status != "Normal Operation" {
		t.Errorf("exclusion matcher = %+v", excl)
	}
}

func TestStatusMatcherRejectsBadMapping(t *testing.T) {
	path := writeConfig(t, `catalog:
  maintenance_status_map:
    broken:
      equals: "Overheating"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for mapping without 'not' key")
	}
}

func TestBuildCatalog(t *testing.T) {
	path := writeConfig(t, `catalog:
  machines: [Furnace]
  rooms: [Warehouse]
  field_mappings:
    temperature:
      field_name: temperature
      unit: degrees Celsius
  maintenance_status_map:
    clogged_filter: "Clogged Filter"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	catalog := cfg.BuildCatalog()

	typ, canonical, ok := catalog.ResolveEntity("furnace")
	if !ok || typ != domain.EntityMachine || canonical != "Furnace" {
		t.Errorf("ResolveEntity(furnace) = %v %q %v", typ, canonical, ok)
	}

	field, ok := catalog.FieldForIntent("temperature")
	if !ok || field.Unit != "degrees Celsius" {
		t.Errorf("FieldForIntent(temperature) = %+v %v", field, ok)
	}

	pred, ok := catalog.MaintenancePredicate("clogged_filter")
	if !ok || pred.NotEqual || pred.Status != "Clogged Filter" {
		t.Errorf("MaintenancePredicate(clogged_filter) = %+v %v", pred, ok)
	}

	// Alerts is always answerable even when the config does not declare it.
	if _, ok := catalog.MaintenancePredicate("alerts"); !ok {
		t.Error("alerts predicate missing")
	}
}
