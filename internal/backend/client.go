/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal HTTP client for the document server API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new server client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// WithInsecureTLS disables certificate verification, for self-signed
// development servers only.
func (c *Client) WithInsecureTLS() *Client {
	c.client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec
	return c
}

// apiError carries the status of a failed request. It unwraps to
// ErrNotFound or ErrConflict for 404 and 409 responses.
type apiError struct {
	Method, Path string
	Status       int
	Message      string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("server %s %s: %d", e.Method, e.Path, e.Status)
}

func (e *apiError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		return &apiError{Method: method, Path: u.Path, Status: resp.StatusCode, Message: e.Error}
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// List returns the stored documents, newest first.
func (c *Client) List(ctx context.Context) ([]DocumentInfo, error) {
	var list []DocumentInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Search lists documents whose name or page text matches text.
func (c *Client) Search(ctx context.Context, text string, limit int) ([]DocumentInfo, error) {
	q := url.Values{}
	q.Set("q", text)
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var list []DocumentInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents?"+q.Encode(), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Pull fetches one document with its body.
func (c *Client) Pull(ctx context.Context, id string) (Document, error) {
	var d Document
	err := c.doJSON(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(id), nil, &d)
	return d, err
}

// Push stores body under id on top of baseVersion (0 creates) and returns
// the stored document. A stale baseVersion yields ErrConflict.
func (c *Client) Push(ctx context.Context, id, name string, body json.RawMessage, baseVersion int64) (Document, error) {
	var d Document
	req := documentRequest{Name: name, Version: baseVersion, Body: body}
	err := c.doJSON(ctx, http.MethodPut, "/api/documents/"+url.PathEscape(id), req, &d)
	return d, err
}

// Create stores a new document under a server-assigned id.
func (c *Client) Create(ctx context.Context, name string, body json.RawMessage) (Document, error) {
	var d Document
	err := c.doJSON(ctx, http.MethodPost, "/api/documents", documentRequest{Name: name, Body: body}, &d)
	return d, err
}

// RequestToken asks the server for a bearer token and stores it on c.
func (c *Client) RequestToken(ctx context.Context, subject string, ttl time.Duration) (string, time.Time, error) {
	var resp struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	in := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", in, &resp); err != nil {
		return "", time.Time{}, err
	}
	exp, _ := time.Parse(time.RFC3339, resp.ExpiresAt)
	c.Token = resp.Token
	return resp.Token, exp, nil
}

// Version returns the server build string.
func (c *Client) Version(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &apiError{Method: http.MethodGet, Path: "/version", Status: resp.StatusCode}
	}
	return strings.TrimSpace(string(b)), nil
}
