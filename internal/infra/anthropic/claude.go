// Package anthropic is an alternative constrained-extraction backend behind
// the same Interpreter contract as the gemini client, for deployments keyed
// to the Anthropic API instead.
package anthropic

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

type ClaudeClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	catalog    *domain.Catalog
}

func NewClaudeClient(apiKey, model string, catalog *domain.Catalog) *ClaudeClient {
	return NewClaudeClientWithURL(apiKey, model, "https://api.anthropic.com/v1", catalog)
}

func NewClaudeClientWithURL(apiKey, model, baseURL string, catalog *domain.Catalog) *ClaudeClient {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &ClaudeClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		model:      model,
		catalog:    catalog,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type response struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
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

func (c *ClaudeClient) Interpret(ctx context.Context, text, langHint string) (*domain.Command, error) {
	intents := append(c.catalog.QueryIntents(),
		domain.IntentToggleLights,
		domain.IntentToggleMachinePower,
		domain.IntentRecordSale,
		domain.IntentRecordCartons,
	)

	systemPrompt := fmt.Sprintf(`You are a factory voice assistant. Extract the user's intent and any relevant entity (machine or room) from their command.

Possible machine names: %s
Possible room names: %s
Possible intents: %s

Respond ONLY with valid JSON (no markdown, no backticks):
{
  "intent": "one of the intents or null",
  "entity_name": "exact machine or room name or null",
  "entity_type": "machine|room|null",
  "light_num": 1,
  "desired_power_state": true,
  "cartons_sold": null,
  "cartons_produced": null,
  "buyer": null
}

Use null for every field you cannot identify. light_num is the spoken light
number. desired_power_state is true for "on", false for "off".`,
		strings.Join(c.catalog.Machines(), ", "),
		strings.Join(c.catalog.Rooms(), ", "),
		strings.Join(intents, ", "),
	)

	reqBody := request{
		Model:     c.model,
		MaxTokens: 256,
		System:    systemPrompt,
		Messages: []message{
			{Role: "user", Content: text},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, domain.WrapError(domain.KindParse, "marshaling request", err)
	}

	var result response
	retryErr := infra.Retry(ctx, infra.DefaultRetryPolicy(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return fmt.Errorf("claude API error %d: %s (retryable)", resp.StatusCode, string(respBody))
			}
			return fmt.Errorf("claude API error %d: %s", resp.StatusCode, string(respBody))
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return nil, domain.WrapError(domain.KindParse, "calling generation service", retryErr)
	}

	if len(result.Content) == 0 {
		return nil, domain.NewError(domain.KindParse, "empty response from claude")
	}

	responseText := strings.TrimSpace(result.Content[0].Text)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var ext extracted
	if err = json.Unmarshal([]byte(responseText), &ext); err != nil {
		return nil, domain.WrapError(domain.KindParse,
			fmt.Sprintf("parsing extraction JSON (%s)", responseText), err)
	}

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

	return cmd, nil
}
