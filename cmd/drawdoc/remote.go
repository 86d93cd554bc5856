/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drawdoc/internal/backend"
	"drawdoc/internal/config"
)

// EnvServerSecret holds the HMAC secret "drawdoc serve" signs tokens with.
const EnvServerSecret = "DRAWDOC_SERVER_SECRET"

func (a *app) client() *backend.Client {
	c := backend.NewClient(a.cfg.Server.BaseURL, a.token, a.cfg.Server.Timeout())
	if a.cfg.Server.TLSInsecure {
		a.log.Warn("TLS certificate verification disabled")
		c.WithInsecureTLS()
	}
	return c
}

func (a *app) cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.cfg.Server.Addr, "listen address")
	dsn := fs.String("db", a.cfg.Server.DatabaseURL, "PostgreSQL connection string")
	memory := fs.Bool("memory", false, "keep documents in memory instead of PostgreSQL")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo backend.Repo
	switch {
	case *memory:
		repo = backend.NewMemRepo()
		a.log.Warn("serving from memory; documents are lost on exit")
	case *dsn == "":
		return usageError("serve requires --db, server.db_url or " + config.EnvDatabaseURL + " (or --memory)")
	default:
		octx, cancel := context.WithTimeout(ctx, 15*time.Second)
		pg, err := backend.OpenPG(octx, *dsn)
		cancel()
		if err != nil {
			return err
		}
		defer func() { _ = pg.Close() }()
		repo = pg
	}
	fmt.Println(okStyle.Render("Serving on"), *addr)
	return backend.Start(ctx, repo, backend.ServerConfig{Addr: *addr, Secret: os.Getenv(EnvServerSecret)})
}

func (a *app) cmdLogin(args []string) error {
	subject := "dev"
	if len(args) > 0 {
		subject = args[0]
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.Timeout())
	defer cancel()
	c := a.client()
	tok, exp, err := c.RequestToken(ctx, subject, 24*time.Hour)
	if err != nil {
		return err
	}
	if err := config.SaveToken(tok); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	a.token = tok
	fmt.Println(okStyle.Render("Logged in"), "as", subject, "until", exp.Local().Format(time.RFC1123))
	return nil
}

func (a *app) cmdLogout(_ []string) error {
	if err := config.DeleteToken(); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("Logged out"))
	return nil
}

func (a *app) requireToken() error {
	if a.token == "" {
		return errors.New("not logged in; run drawdoc login")
	}
	return nil
}

func (a *app) cmdPush(args []string) error {
	if len(args) < 1 {
		return usageError("push requires <dir>")
	}
	if err := a.requireToken(); err != nil {
		return err
	}
	closeIx, err := a.open(args[0])
	if err != nil {
		return err
	}
	defer closeIx()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.Timeout())
	defer cancel()
	d, err := backend.PushWorkspace(ctx, a.client(), a.ws)
	if errors.Is(err, backend.ErrConflict) {
		return fmt.Errorf("%w; pull first", err)
	}
	if err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}
	a.log.Info("pushed", slog.String("doc_id", d.ID), slog.Int64("version", d.Version))
	fmt.Println(okStyle.Render("Pushed"), d.Name, fmt.Sprintf("(version %d)", d.Version))
	return nil
}

func (a *app) cmdPull(args []string) error {
	if len(args) < 1 {
		return usageError("pull requires <dir>")
	}
	fs := flag.NewFlagSet("pull", flag.ContinueOnError)
	force := fs.Bool("force", false, "discard unsaved local changes")
	if err := fs.Parse(args[1:]); err != nil {
		return usageError(err.Error())
	}
	if err := a.requireToken(); err != nil {
		return err
	}
	closeIx, err := a.open(args[0])
	if err != nil {
		return err
	}
	defer closeIx()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.Timeout())
	defer cancel()
	d, err := backend.PullWorkspace(ctx, a.client(), a.ws, a.docConfig(), *force)
	if err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}
	if a.cfg.Index.Enabled {
		a.track()()
	}
	fmt.Println(okStyle.Render("Pulled"), d.Name, fmt.Sprintf("(version %d)", d.Version))
	fmt.Println(workspaceSummary(a.ws))
	return nil
}
