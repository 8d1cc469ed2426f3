// Package gemini is the constrained-extraction interpreter strategy: it
// hands the text plus the enumerated catalog vocabulary to the generation
// service and demands a response conforming to a fixed schema, with null for
// anything unidentified.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"factory-assistant/internal/domain"
	"factory-assistant/internal/infra"
)

type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	catalog    *domain.Catalog
}

func NewClient(apiKey, model string, catalog *domain.Catalog) *Client {
	return NewClientWithURL(apiKey, model, "https://generativelanguage.googleapis.com/v1beta", catalog)
}

func NewClientWithURL(apiKey, model, baseURL string, catalog *domain.Catalog) *Client {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		model:      model,
		catalog:    catalog,
	}
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type request struct {
	Contents         []content        `json:"contents"`
	SystemInstruct   *content         `json:"systemInstruction,omitempty"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	MaxOutputTokens  int             `json:"maxOutputTokens"`
	Temperature      float64         `json:"temperature"`
	ResponseMimeType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema"`
}

// responseSchema pins the generator to the eight Command slots, every one
// nullable so "not identified" is representable without free text.
var responseSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "intent": {"type": "STRING", "nullable": true},
    "entity_name": {"type": "STRING", "nullable": true},
    "entity_type": {"type": "STRING", "enum": ["machine", "room"], "nullable": true},
    "light_num": {"type": "INTEGER", "nullable": true},
    "desired_power_state": {"type": "BOOLEAN", "nullable": true},
    "cartons_sold": {"type": "INTEGER", "nullable": true},
    "cartons_produced": {"type": "INTEGER", "nullable": true},
    "buyer": {"type": "STRING", "nullable": true}
  },
  "propertyOrdering": ["intent", "entity_name", "entity_type", "light_num", "desired_power_state", "cartons_sold", "cartons_produced", "buyer"]
}`)

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

type extracted struct {
	Intent            *string `json:"intent"`
	EntityName        *string `json:"entity_name"`
	EntityType        *string `json:"entity_type"`
	LightNum          *int    `json:"light_num"`
	DesiredPowerState *bool   `json:"desired_power_state"`
	CartonsSold       *int    `json:"cartons_sold"`
	CartonsProduced   *int    `json:"cartons_produced"`
	Buyer             *string `json:"buyer"`
}

func (c *Client) Interpret(ctx context.Context, text, langHint string) (*domain.Command, error) {
	systemPrompt := c.buildPrompt(langHint)

	reqBody := request{
		SystemInstruct: &content{
			Parts: []part{{Text: systemPrompt}},
		},
		Contents: []content{
			{Role: "user", Parts: []part{{Text: text}}},
		},
		GenerationConfig: generationConfig{
			MaxOutputTokens:  256,
			Temperature:      0.1,
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, domain.WrapError(domain.KindParse, "marshaling request", err)
	}

	var result response
	retryErr := infra.Retry(ctx, infra.DefaultRetryPolicy(), func() error {
		url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return fmt.Errorf("gemini API error %d: %s (retryable)", resp.StatusCode, string(respBody))
			}
			return fmt.Errorf("gemini API error %d: %s", resp.StatusCode, string(respBody))
		}

		if err = json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return nil, domain.WrapError(domain.KindParse, "calling generation service", retryErr)
	}

	if result.Error != nil {
		return nil, domain.WrapError(domain.KindParse, "generation service error",
			fmt.Errorf("%s (code %d)", result.Error.Message, result.Error.Code))
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, domain.NewError(domain.KindParse, "empty response from generation service")
	}

	responseText := strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var ext extracted
	if err = json.Unmarshal([]byte(responseText), &ext); err != nil {
		return nil, domain.WrapError(domain.KindParse,
			fmt.Sprintf("parsing extraction JSON (%s)", responseText), err)
	}

	return c.toCommand(ext, text, langHint), nil
}

func (c *Client) toCommand(ext extracted, text, langHint string) *domain.Command {
	cmd := &domain.Command{RawText: text, ResponseLanguage: langHint}

	if ext.Intent != nil {
		cmd.Intent = *ext.Intent
	}
	if ext.EntityName != nil {
		cmd.EntityName = domain.TitleCase(*ext.EntityName)
	}
	if ext.EntityType != nil {
		cmd.EntityType = domain.EntityType(*ext.EntityType)
	}
	if ext.LightNum != nil {
		cmd.Params.LightNum = *ext.LightNum
	}
	cmd.Params.DesiredPowerState = ext.DesiredPowerState
	if ext.CartonsSold != nil {
		cmd.Params.CartonsSold = *ext.CartonsSold
	}
	if ext.CartonsProduced != nil {
		cmd.Params.CartonsProduced = *ext.CartonsProduced
	}
	if ext.Buyer != nil {
		cmd.Params.Buyer = *ext.Buyer
	}

	return cmd
}

func (c *Client) buildPrompt(langHint string) string {
	intents := append(c.catalog.QueryIntents(),
		domain.IntentToggleLights,
		domain.IntentToggleMachinePower,
		domain.IntentRecordSale,
		domain.IntentRecordCartons,
	)

	prompt := fmt.Sprintf(`You are a factory voice assistant. Extract the user's intent and any relevant entity (machine or room) from their command.

Possible machine names: %s
Possible room names: %s
Possible intents: %s

Rules:
- Use the EXACT entity name as it appears in the lists.
- light_num is the spoken light number (1 or 2).
- desired_power_state is true for "on", false for "off", null when the user did not say.
- cartons_sold / cartons_produced are quantities for record commands, null otherwise.
- If an intent or entity cannot be identified, use null for that field.

Examples:
User: "What is the temperature of the Furnace?"
{"intent": "temperature", "entity_name": "Furnace", "entity_type": "machine", "light_num": null, "desired_power_state": null, "cartons_sold": null, "cartons_produced": null, "buyer": null}

User: "Turn off light 1 in the Machine Room"
{"intent": "toggle_lights", "entity_name": "Machine Room", "entity_type": "room", "light_num": 1, "desired_power_state": false, "cartons_sold": null, "cartons_produced": null, "buyer": null}

User: "We sold 12 cartons to Acme"
{"intent": "record_sale", "entity_name": null, "entity_type": null, "light_num": null, "desired_power_state": null, "cartons_sold": 12, "cartons_produced": null, "buyer": "Acme"}

User: "Is anything wrong?"
{"intent": "not_normal", "entity_name": null, "entity_type": null, "light_num": null, "desired_power_state": null, "cartons_sold": null, "cartons_produced": null, "buyer": null}

User: "Hello"
{"intent": null, "entity_name": null, "entity_type": null, "light_num": null, "desired_power_state": null, "cartons_sold": null, "cartons_produced": null, "buyer": null}`,
		strings.Join(c.catalog.Machines(), ", "),
		strings.Join(c.catalog.Rooms(), ", "),
		strings.Join(intents, ", "),
	)

	if langHint != "" {
		prompt += fmt.Sprintf("\n\nThe user is speaking language %q; the assistant will answer in that language.", langHint)
	}

	return prompt
}
