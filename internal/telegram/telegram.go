// Package telegram posts operator notices to a Telegram chat. Messages are best effort:
// a missing configuration disables the client, and failures never reach the caller's workflow.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/baharkarakas/custodial-ledger/internal/metrics"
)

const defaultBaseURL = "https://api.telegram.org"

var ErrDisabled = errors.New("telegram is not configured")

type Client struct {
	token   string
	chatID  string
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func New(token, chatID string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		chatID:  chatID,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telegram",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

func (c *Client) Enabled() bool { return c.token != "" && c.chatID != "" }

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts text (HTML parse mode) to the configured chat.
func (c *Client) Send(ctx context.Context, text string) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.send(ctx, text)
	})
	return err
}

func (c *Client) send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessage{ChatID: c.chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("telegram: status %d: %w", resp.StatusCode, err)
	}
	if !out.OK {
		return fmt.Errorf("telegram: %s", out.Description)
	}
	return nil
}

// Submitter is the part of worker.Pool Announcer needs.
type Submitter interface {
	TrySubmit(f func()) bool
}

// Announcer sends operator notices on a worker pool and never reports back.
type Announcer struct {
	client *Client
	pool   Submitter
}

func NewAnnouncer(client *Client, pool Submitter) *Announcer {
	return &Announcer{client: client, pool: pool}
}

func (a *Announcer) Announce(text string) {
	if a == nil || a.client == nil || !a.client.Enabled() {
		return
	}
	ok := a.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.client.Send(ctx, text); err != nil {
			metrics.OperatorMessagesFailed.Inc()
			slog.Warn("operator notice failed", "err", err)
		}
	})
	if !ok {
		metrics.OperatorMessagesFailed.Inc()
	}
}
