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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	applog "drawdoc/internal/log"
	"drawdoc/internal/model"
	"drawdoc/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// devSecret is used when no auth secret is configured.
const devSecret = "dev-secret-change-me"

// maxBodyBytes bounds uploaded documents.
const maxBodyBytes = 8 << 20

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr   string // http bind address, e.g., ":8080"
	Secret string // HMAC secret for bearer tokens
}

// pinger is implemented by repos that can report readiness.
type pinger interface {
	Ping(ctx context.Context) error
}

type server struct {
	repo   Repo
	secret string
	log    *slog.Logger
}

// NewApp builds the HTTP API over repo.
func NewApp(repo Repo, secret string) *fiber.App {
	l := applog.WithComponent("backend")
	if secret == "" {
		secret = devSecret
		l.Warn("auth secret not set; using insecure dev secret")
	}
	s := &server{repo: repo, secret: secret, log: l}

	app := fiber.New(fiber.Config{
		AppName:      "drawdoc server",
		BodyLimit:    maxBodyBytes,
		ErrorHandler: s.handleError,
	})
	app.Use(recover.New())
	app.Use(s.logRequests)

	app.Get("/healthz", func(c fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/readyz", s.ready)
	app.Get("/version", func(c fiber.Ctx) error { return c.SendString(version.String()) })
	app.Post("/api/auth/token", s.issueToken)

	api := app.Group("/api/documents", requireAuth(secret))
	api.Get("/", s.listDocuments)
	api.Post("/", s.createDocument)
	api.Get("/:id", s.getDocument)
	api.Put("/:id", s.putDocument)
	return app
}

// Start serves repo on cfg.Addr until ctx is cancelled.
func Start(ctx context.Context, repo Repo, cfg ServerConfig) error {
	app := NewApp(repo, cfg.Secret)
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	applog.WithComponent("backend").Info("listening", slog.String("addr", cfg.Addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return app.ShutdownWithContext(sctx)
	}
}

func (s *server) logRequests(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("request",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Int("status", c.Response().StatusCode()),
		slog.Duration("latency", time.Since(start)),
	)
	return err
}

func (s *server) handleError(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		code = fiber.StatusConflict
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", slog.String("path", c.Path()), slog.Any("err", err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *server) ready(c fiber.Ctx) error {
	p, ok := s.repo.(pinger)
	if !ok {
		return c.SendString("ready")
	}
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("db not ready")
	}
	return c.SendString("ready")
}

// POST /api/auth/token → { token, expires_at }
func (s *server) issueToken(c fiber.Ctx) error {
	// Optional JSON body: { "subject": "name", "ttl_seconds": 3600 }
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid json")
		}
	}
	if req.Subject == "" {
		req.Subject = "dev"
	}
	if req.TTLSeconds <= 0 || req.TTLSeconds > 24*3600 {
		req.TTLSeconds = 3600
	}
	exp := time.Now().Add(time.Duration(req.TTLSeconds) * time.Second)
	tok, err := SignToken(s.secret, req.Subject, exp)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"token": tok, "expires_at": exp.UTC().Format(time.RFC3339)})
}

// GET /api/documents[?q=text&limit=n]
func (s *server) listDocuments(c fiber.Ctx) error {
	q := c.Query("q")
	limit, _ := strconv.Atoi(c.Query("limit"))
	var (
		list []DocumentInfo
		err  error
	)
	if strings.TrimSpace(q) != "" || limit > 0 {
		list, err = s.repo.Search(c.Context(), q, limit)
	} else {
		list, err = s.repo.List(c.Context())
	}
	if err != nil {
		return err
	}
	if list == nil {
		list = []DocumentInfo{}
	}
	return c.JSON(list)
}

func (s *server) getDocument(c fiber.Ctx) error {
	d, err := s.repo.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(d)
}

// documentRequest is the POST/PUT payload. Version is the base version for
// PUT (0 creates).
type documentRequest struct {
	Name    string          `json:"name"`
	Version int64           `json:"version"`
	Body    json.RawMessage `json:"body"`
}

func (s *server) decodeRequest(c fiber.Ctx) (documentRequest, error) {
	var req documentRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if strings.TrimSpace(req.Name) == "" {
		return req, fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	// The body must be a loadable document.
	if _, err := model.UnmarshalStore(req.Body); err != nil {
		return req, fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("invalid document: %v", err))
	}
	return req, nil
}

func (s *server) createDocument(c fiber.Ctx) error {
	req, err := s.decodeRequest(c)
	if err != nil {
		return err
	}
	d, err := s.repo.Create(c.Context(), req.Name, req.Body)
	if err != nil {
		return err
	}
	s.log.InfoContext(applog.ContextWithDoc(c.Context(), d.ID), "document created", slog.Any("subject", c.Locals(subjectKey)))
	return c.Status(fiber.StatusCreated).JSON(d)
}

func (s *server) putDocument(c fiber.Ctx) error {
	req, err := s.decodeRequest(c)
	if err != nil {
		return err
	}
	ctx := applog.ContextWithDoc(c.Context(), c.Params("id"))
	d, err := s.repo.Put(ctx, c.Params("id"), req.Name, req.Body, req.Version)
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "document stored", slog.Int64("version", d.Version), slog.Any("subject", c.Locals(subjectKey)))
	return c.JSON(d)
}
