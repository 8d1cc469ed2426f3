// Package factory is the client for the remote factory-state service. The
// read path surfaces three distinct failure shapes (transport, non-2xx,
// malformed body) because the resolver reports them differently; the write
// path classifies remote failures into the dispatch error taxonomy.
package factory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"factory-assistant/internal/application"
	"factory-assistant/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

// FetchSnapshot performs exactly one outbound read. No retries here: a stale
// or re-read snapshot would undermine the compare-before-act guarantee.
func (c *Client) FetchSnapshot(ctx context.Context) (*domain.StateSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/all", nil)
	if err != nil {
		return nil, domain.WrapError(domain.KindFetchTransport, "creating request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.KindFetchTransport, "fetching factory data", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, domain.WrapError(domain.KindFetchHTTP, "",
			fmt.Errorf("factory data service returned %d: %s", resp.StatusCode, string(body)))
	}

	var snapshot domain.StateSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, domain.WrapError(domain.KindFetchParse, "decoding factory data", err)
	}

	return &snapshot, nil
}

type toggleLightsRequest struct {
	RoomName string `json:"room_name"`
	LightNum int    `json:"light_num"`
}

type toggleLightsResponse struct {
	RoomName string `json:"room_name"`
	Lights   []bool `json:"lights"`
}

func (c *Client) ToggleLights(ctx context.Context, room string, lightIndex int, token string) (*application.LightsConfirmation, error) {
	var result toggleLightsResponse
	err := c.mutate(ctx, "/toggle/lights", toggleLightsRequest{RoomName: room, LightNum: lightIndex}, token, &result)
	if err != nil {
		return nil, err
	}
	return &application.LightsConfirmation{Room: result.RoomName, Lights: result.Lights}, nil
}

type toggleMachineRequest struct {
	MachineName string `json:"machine_name"`
}

type toggleMachineResponse struct {
	MachineName string `json:"machine_name"`
	Power       bool   `json:"power"`
}

func (c *Client) ToggleMachine(ctx context.Context, machine string, token string) (*application.PowerConfirmation, error) {
	var result toggleMachineResponse
	err := c.mutate(ctx, "/toggle/machine", toggleMachineRequest{MachineName: machine}, token, &result)
	if err != nil {
		return nil, err
	}
	return &application.PowerConfirmation{Machine: result.MachineName, Power: result.Power}, nil
}

type saleRequest struct {
	CartonsSold int    `json:"cartons_sold"`
	DateTime    string `json:"DateTime"`
	Buyer       string `json:"Buyer"`
}

type saleResponse struct {
	CartonsSold int    `json:"cartons_sold"`
	Buyer       string `json:"Buyer"`
}

func (c *Client) RecordSale(ctx context.Context, cartons int, buyer, token string) (*application.SaleConfirmation, error) {
	payload := saleRequest{
		CartonsSold: cartons,
		DateTime:    c.now().UTC().Format(time.RFC3339),
		Buyer:       buyer,
	}

	var result saleResponse
	if err := c.mutate(ctx, "/tx/sale", payload, token, &result); err != nil {
		return nil, err
	}
	return &application.SaleConfirmation{CartonsSold: result.CartonsSold, Buyer: result.Buyer}, nil
}

type cartonsRequest struct {
	CartonsProduced int    `json:"cartons_produced"`
	DateTime        string `json:"DateTime"`
}

type cartonsResponse struct {
	Addition struct {
		CartonsProduced int `json:"cartons_produced"`
	} `json:"addition"`
	CartonsNum int `json:"cartons_num"`
}

func (c *Client) RecordCartons(ctx context.Context, cartons int, token string) (*application.CartonsConfirmation, error) {
	payload := cartonsRequest{
		CartonsProduced: cartons,
		DateTime:        c.now().UTC().Format(time.RFC3339),
	}

	var result cartonsResponse
	if err := c.mutate(ctx, "/tx/cartons", payload, token, &result); err != nil {
		return nil, err
	}
	return &application.CartonsConfirmation{
		CartonsProduced: result.Addition.CartonsProduced,
		Total:           result.CartonsNum,
	}, nil
}

// mutate issues exactly one mutating call and decodes the server-confirmed
// state. No retries: a retried toggle is a double toggle.
func (c *Client) mutate(ctx context.Context, path string, payload any, token string, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.WrapError(domain.KindRemoteServer, "marshaling request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return domain.WrapError(domain.KindRemoteServer, "creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.KindRemoteServer, "sending request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.WrapError(domain.KindRemoteServer, "reading response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return domain.WrapError(domain.KindRemoteServer, "decoding response", err)
	}
	return nil
}

// classify maps a remote failure onto the dispatch error taxonomy, pulling
// the service's own error detail out of the body when it is parseable.
func classify(statusCode int, body []byte) *domain.Error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return domain.WrapError(domain.KindRemoteAuth, "",
			fmt.Errorf("factory service returned %d: %s", statusCode, string(body)))
	case statusCode == http.StatusBadRequest:
		return domain.WrapError(domain.KindRemoteBadRequest, remoteDetail(body),
			fmt.Errorf("factory service returned 400: %s", string(body)))
	case statusCode == http.StatusNotFound:
		return domain.WrapError(domain.KindRemoteNotFound, "",
			fmt.Errorf("factory service returned 404: %s", string(body)))
	default:
		return domain.WrapError(domain.KindRemoteServer, "",
			fmt.Errorf("factory service returned %d: %s", statusCode, string(body)))
	}
}

func remoteDetail(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}
