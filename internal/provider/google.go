// Package provider contains translation providers for the gateway.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGoogleEndpoint is the keyless Google Translate endpoint.
const DefaultGoogleEndpoint = "https://translate.googleapis.com/translate_a/single"

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Google translates through the public Google Translate web endpoint.
// It does not retry; the gateway owns retry policy.
type Google struct {
	endpoint string
	client   *http.Client
}

// NewGoogle creates a Google provider. An empty endpoint uses the default.
func NewGoogle(endpoint string, timeout time.Duration) *Google {
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	return &Google{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Translate implements gateway.Provider.
func (g *Google) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", sourceLang)
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("google request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Debug("Google returned bad status code", "status_code", resp.StatusCode)
		return "", fmt.Errorf("google returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return parseGoogleResponse(body)
}

// parseGoogleResponse extracts the translated sentences from the nested
// array the endpoint returns: [[["translated","source",...],...],...].
func parseGoogleResponse(body []byte) (string, error) {
	var root []json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(root) == 0 {
		return "", fmt.Errorf("empty response")
	}

	var sentences [][]json.RawMessage
	if err := json.Unmarshal(root[0], &sentences); err != nil {
		return "", fmt.Errorf("unexpected sentence list: %w", err)
	}

	var b strings.Builder
	for _, s := range sentences {
		if len(s) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(s[0], &part); err != nil {
			// Trailing transliteration entries carry null here.
			continue
		}
		b.WriteString(part)
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("response contained no translation")
	}
	return b.String(), nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
