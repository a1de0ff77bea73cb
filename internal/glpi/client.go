package glpi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nicopel-ti/helpdesk/internal/config"
)

// ErrNoSessionToken is returned when initSession answers without a token.
var ErrNoSessionToken = errors.New("glpi: initSession returned no session_token")

// TicketInput is the local data sent when opening a GLPI ticket.
type TicketInput struct {
	Requester   string
	Sector      string
	Description string
	AnyDesk     string
	Note        string
}

// Client talks to the GLPI REST API. Each call opens its own session and
// kills it afterwards.
type Client struct {
	baseURL   string
	appToken  string
	userToken string
	http      *http.Client
	logger    *zap.Logger
}

// NewClient builds a client from configuration.
func NewClient(cfg config.GLPIConfig, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.URL, "/") + "/apirest.php",
		appToken:  cfg.AppToken,
		userToken: cfg.UserToken,
		http:      &http.Client{Timeout: timeout},
		logger:    logger.With(zap.String("component", "glpi")),
	}
}

// CreateTicket opens a ticket in GLPI with status "new" and returns its id.
func (c *Client) CreateTicket(ctx context.Context, in TicketInput) (int64, error) {
	body := map[string]any{"input": map[string]any{
		"name":                truncateRunes(in.Description, 250),
		"content":             ticketContent(in),
		"status":              StatusNew,
		"_users_id_requester": 0,
	}}

	var created struct {
		ID int64 `json:"id"`
	}
	err := c.withSession(ctx, func(token string) error {
		return c.do(ctx, http.MethodPost, "/Ticket", token, body, &created)
	})
	if err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, errors.New("glpi: ticket created without id")
	}
	c.logger.Info("ticket created in glpi", zap.Int64("glpi_id", created.ID))
	return created.ID, nil
}

// UpdateStatus sets the GLPI status id of a ticket.
func (c *Client) UpdateStatus(ctx context.Context, ticketID int64, status int) error {
	body := map[string]any{"input": map[string]any{"status": status}}
	return c.withSession(ctx, func(token string) error {
		return c.do(ctx, http.MethodPut, fmt.Sprintf("/Ticket/%d", ticketID), token, body, nil)
	})
}

// AddFollowup posts a public followup on a ticket.
func (c *Client) AddFollowup(ctx context.Context, ticketID int64, content string) error {
	body := map[string]any{"input": map[string]any{
		"itemtype":   "Ticket",
		"items_id":   ticketID,
		"tickets_id": ticketID,
		"content":    content,
		"is_private": 0,
	}}
	return c.withSession(ctx, func(token string) error {
		return c.do(ctx, http.MethodPost, "/ITILFollowup", token, body, nil)
	})
}

func (c *Client) withSession(ctx context.Context, fn func(token string) error) error {
	token, err := c.initSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// killSession must run even if ctx already expired.
		killCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := c.do(killCtx, http.MethodGet, "/killSession", token, nil, nil); err != nil {
			c.logger.Warn("glpi killSession failed", zap.Error(err))
		}
	}()
	return fn(token)
}

func (c *Client) initSession(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/initSession", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("App-Token", c.appToken)
	req.Header.Set("Authorization", "user_token "+c.userToken)

	var session struct {
		SessionToken string `json:"session_token"`
	}
	if err := c.send(req, &session); err != nil {
		return "", fmt.Errorf("glpi initSession: %w", err)
	}
	if session.SessionToken == "" {
		return "", ErrNoSessionToken
	}
	return session.SessionToken, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("App-Token", c.appToken)
	req.Header.Set("Session-Token", token)

	if err := c.send(req, out); err != nil {
		return fmt.Errorf("glpi %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func ticketContent(in TicketInput) string {
	anyDesk := in.AnyDesk
	if anyDesk == "" {
		anyDesk = "Não informado"
	}
	note := in.Note
	if note == "" {
		note = "N/A"
	}
	return fmt.Sprintf(
		"<p><strong>Solicitante:</strong> %s</p>"+
			"<p><strong>Setor:</strong> %s</p>"+
			"<p><strong>AnyDesk:</strong> %s</p><hr>"+
			"<p><strong>Descrição do Problema:</strong></p><p>%s</p>"+
			"<p><strong>Observações:</strong> %s</p>",
		html.EscapeString(in.Requester),
		html.EscapeString(in.Sector),
		html.EscapeString(anyDesk),
		html.EscapeString(in.Description),
		html.EscapeString(note),
	)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
