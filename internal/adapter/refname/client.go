// Package refname looks up local-language names for activation references.
package refname

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// parenRe strips bracketed readings, in ASCII or full-width parentheses.
var parenRe = regexp.MustCompile(`\(.+\)|（.+）`)

// Client queries a reference-name service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a lookup client against baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// LocalName returns the local-language name of ref, or "" when the service
// does not know it.
func (c *Client) LocalName(ctx context.Context, ref string) (string, error) {
	u := c.baseURL + "?" + url.Values{"refid": {ref}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reference lookup %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("reference API error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if r.Counts == 0 || len(r.Reference) == 0 {
		c.logger.Debug("reference not found", "reference", ref)
		return "", nil
	}
	return strings.TrimSpace(parenRe.ReplaceAllString(r.Reference[0].NameK, "")), nil
}

// Reference API response types.

type response struct {
	Counts    int         `json:"counts"`
	Reference []reference `json:"reference"`
}

type reference struct {
	Name  string `json:"name"`
	NameK string `json:"name_k"`
}
