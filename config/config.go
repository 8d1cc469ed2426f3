package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"factory-assistant/internal/domain"
)

type Config struct {
	Audio       AudioConfig       `yaml:"audio"`
	Interpreter InterpreterConfig `yaml:"interpreter"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Anthropic   AnthropicConfig   `yaml:"anthropic"`
	Factory     FactoryConfig     `yaml:"factory"`
	Pushover    PushoverConfig    `yaml:"pushover"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Log         LogConfig         `yaml:"log"`
}

type AudioConfig struct {
	Source     string `yaml:"source"`
	HTTPAddr   string `yaml:"http_addr"`
	FileDir    string `yaml:"file_dir"`
	SampleRate int    `yaml:"sample_rate"`
}

type InterpreterConfig struct {
	// Strategy selects how spoken text becomes a command: "grammar" for the
	// deterministic matcher, "gemini" or "claude" for constrained extraction.
	Strategy string `yaml:"strategy"`
}

type OpenAIConfig struct {
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type FactoryConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CatalogConfig declares the factory vocabulary: which machines and rooms
// exist, which snapshot fields can be asked about, and how maintenance
// intents map to raw status strings.
type CatalogConfig struct {
	Machines             []string                 `yaml:"machines"`
	Rooms                []string                 `yaml:"rooms"`
	FieldMappings        map[string]FieldMapping  `yaml:"field_mappings"`
	MaintenanceStatusMap map[string]StatusMatcher `yaml:"maintenance_status_map"`
}

type FieldMapping struct {
	FieldName string `yaml:"field_name"`
	Unit      string `yaml:"unit"`
}

// StatusMatcher accepts either a plain string for an exact status match or
// a {not: status} mapping for an exclusion match.
type StatusMatcher struct {
	Status   string
	NotEqual bool
}

func (m *StatusMatcher) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		m.Status = value.Value
		m.NotEqual = false
		return nil
	case yaml.MappingNode:
		var wrapped struct {
			Not string `yaml:"not"`
		}
		if err := value.Decode(&wrapped); err != nil {
			return err
		}
		if wrapped.Not == "" {
			return fmt.Errorf("maintenance status mapping needs a 'not' key")
		}
		m.Status = wrapped.Not
		m.NotEqual = true
		return nil
	default:
		return fmt.Errorf("maintenance status must be a string or {not: status}")
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Audio.Source == "" {
		c.Audio.Source = "http"
	}
	if c.Audio.HTTPAddr == "" {
		c.Audio.HTTPAddr = ":8080"
	}
	if c.Audio.FileDir == "" {
		c.Audio.FileDir = "./audio"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Interpreter.Strategy == "" {
		c.Interpreter.Strategy = "grammar"
	}
	if c.OpenAI.Language == "" {
		c.OpenAI.Language = "en"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.Factory.BaseURL == "" {
		c.Factory.BaseURL = "http://localhost:5000"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if len(c.Catalog.Machines) == 0 {
		c.Catalog.Machines = []string{"Furnace", "Encapsulator", "Mixer", "Conveyor Belt"}
	}
	if len(c.Catalog.Rooms) == 0 {
		c.Catalog.Rooms = []string{"Machine Room", "Warehouse", "Packaging Area"}
	}
	if len(c.Catalog.FieldMappings) == 0 {
		c.Catalog.FieldMappings = map[string]FieldMapping{
			"temperature": {FieldName: "temperature", Unit: "degrees Celsius"},
			"humidity":    {FieldName: "humidity", Unit: "percent"},
			"noise":       {FieldName: "noise", Unit: "decibels"},
			"smoke":       {FieldName: "smoke", Unit: "parts per million"},
			"vibration":   {FieldName: "vibration", Unit: "millimeters per second"},
			"power_usage": {FieldName: "power_usage", Unit: "kilowatts"},
			"lights":      {FieldName: "lights", Unit: ""},
		}
	}
	if len(c.Catalog.MaintenanceStatusMap) == 0 {
		c.Catalog.MaintenanceStatusMap = map[string]StatusMatcher{
			"normal_operation": {Status: domain.NormalStatus},
			"not_normal":       {Status: domain.NormalStatus, NotEqual: true},
			"clogged_filter":   {Status: "Clogged Filter"},
			"bearing_wear":     {Status: "Bearing Wear"},
		}
	}
}

// BuildCatalog converts the declared vocabulary into the domain catalog.
func (c *Config) BuildCatalog() *domain.Catalog {
	fields := make(map[string]domain.Field, len(c.Catalog.FieldMappings))
	for intent, fm := range c.Catalog.FieldMappings {
		fields[intent] = domain.Field{Name: fm.FieldName, Unit: fm.Unit}
	}

	predicates := make(map[string]domain.Predicate, len(c.Catalog.MaintenanceStatusMap))
	for intent, m := range c.Catalog.MaintenanceStatusMap {
		predicates[intent] = domain.Predicate{Status: m.Status, NotEqual: m.NotEqual}
	}

	return domain.NewCatalog(c.Catalog.Machines, c.Catalog.Rooms, fields, predicates)
}
