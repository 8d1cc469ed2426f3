// Package gtts covers the two Google Translate collaborators: speech
// synthesis for replies and text translation into the speaker's language.
package gtts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	httpClient   *http.Client
	ttsURL       string
	translateURL string
}

func NewClient() *Client {
	return NewClientWithURLs(
		"https://translate.google.com/translate_tts",
		"https://translate.googleapis.com/translate_a/single",
	)
}

func NewClientWithURLs(ttsURL, translateURL string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		ttsURL:       ttsURL,
		translateURL: translateURL,
	}
}

// Synthesize renders text as MP3 audio in the given language.
func (c *Client) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if language == "" {
		language = "en"
	}

	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", language)
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ttsURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts service error: %s", resp.Status)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	return audio, nil
}

// Translate converts text into the target language, auto-detecting the
// source.
func (c *Client) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if targetLanguage == "" || targetLanguage == "en" {
		return text, nil
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", targetLanguage)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.translateURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translating: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate service error: %s", resp.Status)
	}

	// The response is nested arrays: [[[translated, original, ...], ...], ...]
	var payload []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding translation: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty translation response")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("decoding translation segments: %w", err)
	}

	var sb strings.Builder
	for _, segment := range segments {
		if len(segment) == 0 {
			continue
		}
		var translated string
		if err := json.Unmarshal(segment[0], &translated); err != nil {
			continue
		}
		sb.WriteString(translated)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no translated text in response")
	}
	return sb.String(), nil
}
