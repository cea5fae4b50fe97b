// Package sequence notifies the downstream sequence service of resolved profiles.
package sequence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds notification configuration.
type Config struct {
	BaseURL string        `mapstructure:"base_url"` // Empty disables notifications
	Timeout time.Duration `mapstructure:"timeout"`
}

// SetDefaults sets viper defaults for sequence configuration.
func (c *Config) SetDefaults(v *viper.Viper, prefix string) {
	p := ""
	if prefix != "" {
		p = prefix + "."
	}
	v.SetDefault(p+"base_url", "")
	v.SetDefault(p+"timeout", 10*time.Second)
}

// Client posts profile documents to {base}/profile/{id}.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client; it returns nil when baseURL is empty.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, http: httpClient, logger: logger}
}

// NewClient builds the client from the configuration, or nil when disabled.
func (c *Config) NewClient(logger *slog.Logger) *Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewClient(c.BaseURL, &http.Client{Timeout: timeout}, logger)
}

// SendProfile posts doc for profileID. A nil client does nothing.
func (c *Client) SendProfile(ctx context.Context, profileID string, doc json.RawMessage) error {
	if c == nil {
		return nil
	}
	if len(doc) == 0 {
		doc = json.RawMessage("null")
	}

	target := c.baseURL + "/profile/" + url.PathEscape(profileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(doc))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send profile %s: %w", profileID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send profile %s: status %d", profileID, resp.StatusCode)
	}
	c.logger.Debug("profile sent", "pid", profileID)
	return nil
}
