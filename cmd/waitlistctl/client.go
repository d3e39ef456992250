package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type joinReply struct {
	Message      string `json:"message" yaml:"message"`
	ReferralCode string `json:"referralCode" yaml:"referralCode"`
	Position     int64  `json:"position" yaml:"position"`
}

type statusReply struct {
	Position      int64  `json:"position" yaml:"position"`
	ReferralCount int64  `json:"referralCount" yaml:"referralCount"`
	TotalCount    int64  `json:"totalCount" yaml:"totalCount"`
	ReferralCode  string `json:"referralCode" yaml:"referralCode"`
}

type countReply struct {
	Count int64 `json:"count" yaml:"count"`
}

type user struct {
	Email         string  `json:"email" yaml:"email"`
	Position      int64   `json:"position" yaml:"position"`
	ReferralCode  string  `json:"referralCode" yaml:"referralCode"`
	ReferralCount int64   `json:"referralCount" yaml:"referralCount"`
	ReferredBy    *string `json:"referredBy" yaml:"referredBy"`
	JoinedAt      string  `json:"joinedAt" yaml:"joinedAt"`
}

type listReply struct {
	Users []user `json:"users" yaml:"users"`
	Count int    `json:"count" yaml:"count"`
}

type deleteReply struct {
	Message string `json:"message" yaml:"message"`
	Email   string `json:"email" yaml:"email"`
}

type statsReply struct {
	Totals map[string]int64 `json:"totals" yaml:"totals"`
	Window string           `json:"window,omitempty" yaml:"window,omitempty"`
	Recent map[string]int64 `json:"recent,omitempty" yaml:"recent,omitempty"`
}

// apiError é uma resposta != 2xx do servidor.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

type client struct {
	baseURL string
	secret  string
	http    *http.Client
}

func newClient(baseURL, secret string, timeout time.Duration) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *client) Join(ctx context.Context, email, referredBy string) (joinReply, error) {
	body := map[string]string{"email": email}
	if referredBy != "" {
		body["referredBy"] = referredBy
	}
	var out joinReply
	err := c.do(ctx, http.MethodPost, "/api/waitlist/join", nil, body, false, &out)
	return out, err
}

func (c *client) Status(ctx context.Context, code string) (statusReply, error) {
	var out statusReply
	err := c.do(ctx, http.MethodGet, "/api/waitlist/status", url.Values{"ref": {code}}, nil, false, &out)
	return out, err
}

func (c *client) Count(ctx context.Context) (countReply, error) {
	var out countReply
	err := c.do(ctx, http.MethodGet, "/api/waitlist/count", nil, nil, false, &out)
	return out, err
}

func (c *client) List(ctx context.Context) (listReply, error) {
	var out listReply
	err := c.do(ctx, http.MethodGet, "/api/waitlist/list", url.Values{"secret": {c.secret}}, nil, false, &out)
	return out, err
}

func (c *client) Delete(ctx context.Context, email string) (deleteReply, error) {
	var out deleteReply
	err := c.do(ctx, http.MethodPost, "/api/waitlist/delete", nil, map[string]string{"email": email}, true, &out)
	return out, err
}

// Stats lê os contadores; window vazio traz só os totais.
func (c *client) Stats(ctx context.Context, window string) (statsReply, error) {
	var query url.Values
	if window != "" {
		query = url.Values{"window": {window}}
	}
	var out statsReply
	err := c.do(ctx, http.MethodGet, "/api/waitlist/stats", query, nil, true, &out)
	return out, err
}

func (c *client) do(ctx context.Context, method, path string, query url.Values, in any, bearer bool, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer && c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}
	return json.Unmarshal(raw, out)
}
