package characterai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/voxa/pkg/logging"
	"github.com/harunnryd/voxa/pkg/resilience"
)

const (
	defaultBaseURL = "https://neo.character.ai"
	defaultWSURL   = "wss://neo.character.ai/ws/"
	originID       = "web-next"
)

type Config struct {
	Token   string
	BaseURL string
	WSURL   string
}

// Client is the shared HTTP/websocket plumbing for the Character.AI
// dialogue and synthesis providers.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("missing characterai token")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.WSURL == "" {
		cfg.WSURL = defaultWSURL
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: logging.NewComponentLogger(slog.Default(), "characterai"),
	}, nil
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Token "+c.cfg.Token)
	return h
}

// dialWS opens one websocket conversation channel. Callers own the
// connection lifecycle.
func (c *Client) dialWS(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.WSURL, c.header())
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Error("rate limit on websocket dial", slog.String("status", resp.Status))
			return nil, resilience.RateLimitError{Provider: "characterai", Message: resp.Status}
		}
		return nil, err
	}
	return conn, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header = c.header()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return resilience.RateLimitError{Provider: "characterai", Message: resp.Status}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("characterai: %s %s: %s", http.MethodPost, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) getBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("characterai: GET audio: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
