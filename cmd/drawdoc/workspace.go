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
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"drawdoc/internal/document"
	applog "drawdoc/internal/log"
	"drawdoc/internal/script"
	"drawdoc/internal/shell"
	"drawdoc/internal/storage"
	"drawdoc/internal/telemetry"
	"drawdoc/internal/viewport"
)

func flushTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	telemetry.Default().Flush(ctx)
}

func (a *app) docConfig() document.Config {
	return document.Config{MaxUndoDepth: a.cfg.Undo.MaxDepth}
}

// open loads the workspace at dir into a.ws and wires the command
// listeners. The returned func releases the index.
func (a *app) open(dir string) (func(), error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	a.log.Info("open workspace", slog.String("root", abs))
	ws, err := storage.Open(abs, a.docConfig())
	if err != nil {
		return nil, err
	}
	*a.ws = *ws
	a.ws.Doc.AddListener(telemetry.CommandListener{Client: telemetry.Default()})
	return a.track(), nil
}

// track attaches the SQLite index to the open document when enabled.
func (a *app) track() func() {
	if !a.cfg.Index.Enabled {
		return func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if rebuilt, err := storage.DetectAndRebuildIndex(ctx, a.ws.Root, a.ws.Doc); err != nil {
		a.log.Warn("index check failed", slog.Any("err", err))
	} else if rebuilt {
		a.log.Info("index rebuilt", slog.String("root", a.ws.Root))
	}
	ix, err := storage.OpenIndex(a.ws.Root)
	if err != nil {
		a.log.Warn("index unavailable", slog.Any("err", err))
		return func() {}
	}
	ix.Track(a.ws.Doc)
	return func() { _ = ix.Close() }
}

// save writes the workspace and trims old backups.
func (a *app) save() error {
	if err := storage.Save(a.ws); err != nil {
		return err
	}
	if keep := a.cfg.General.BackupsKeep; keep > 0 {
		if n, err := storage.PruneBackups(a.ws.Root, keep); err != nil {
			a.log.Warn("prune backups failed", slog.Any("err", err))
		} else if n > 0 {
			a.log.Debug("pruned backups", slog.Int("removed", n))
		}
	}
	return nil
}

func (a *app) exporter() script.Exporter {
	return func(doc *document.Document, name string) error {
		return storage.ExportDocument(doc, a.ws.ExportPath(name))
	}
}

func (a *app) cmdInit(args []string) error {
	if len(args) < 2 {
		return usageError("init requires <dir> and <name>")
	}
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	a.log.Info("init workspace", slog.String("root", abs), slog.String("name", args[1]))
	ws, err := storage.InitWorkspace(abs, args[1], a.docConfig())
	if err != nil {
		return err
	}
	*a.ws = *ws
	if a.cfg.Index.Enabled {
		a.track()()
	}
	telemetry.Event("workspace_init", nil)
	fmt.Println(okStyle.Render("Created workspace at"), abs)
	return nil
}

func (a *app) cmdOpen(args []string) error {
	if len(args) < 1 {
		return usageError("open requires <dir>")
	}
	closeIx, err := a.open(args[0])
	if err != nil {
		return err
	}
	defer closeIx()
	fmt.Println(workspaceSummary(a.ws))
	return nil
}

func (a *app) cmdRun(args []string) error {
	if len(args) < 2 {
		return usageError("run requires <dir> and <script|->")
	}
	var src []byte
	var err error
	if args[1] == "-" {
		src, err = io.ReadAll(os.Stdin)
	} else {
		src, err = os.ReadFile(args[1])
	}
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	closeIx, err := a.open(args[0])
	if err != nil {
		return err
	}
	defer closeIx()

	results, runErr := script.Run(a.ws.Doc, string(src), a.exporter())
	for _, r := range results {
		if r.Output != "" {
			fmt.Println(r.Output)
		}
	}
	// statements applied before a failure are kept
	if a.ws.Doc.Dirty() {
		if err := a.save(); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return runErr
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("Applied %d statement(s)", len(results))))
	return nil
}

func (a *app) cmdShell(args []string) error {
	if len(args) < 1 {
		return usageError("shell requires <dir>")
	}
	closeIx, err := a.open(args[0])
	if err != nil {
		return err
	}
	defer closeIx()

	vp := viewport.NewWithCanvas(a.cfg.Viewport.CanvasWidth, a.cfg.Viewport.CanvasHeight)
	if a.ws.Meta.Viewport != nil {
		vp.Restore(*a.ws.Meta.Viewport)
	}
	// the shell owns the terminal; file logging keeps working
	applog.Init(applog.Merge(a.cfg.Logging.LogOptions(), applog.Options{Quiet: true}))
	return shell.Run(a.ws.Doc, vp, shell.Options{
		Exporter: a.exporter(),
		OnQuit: func() error {
			st := vp.State()
			a.ws.Meta.Viewport = &st
			return a.save()
		},
	})
}

func (a *app) cmdExport(args []string) error {
	if len(args) < 2 {
		return usageError("export requires <dir> and <file>")
	}
	closeIx, err := a.open(args[0])
	if err != nil {
		return err
	}
	defer closeIx()
	if err := storage.ExportDocument(a.ws.Doc, args[1]); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("Exported to"), args[1])
	return nil
}

func (a *app) cmdSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	typ := fs.String("type", "", "restrict to page_name or page_description")
	page := fs.String("page", "", "restrict to a page id")
	limit := fs.Int("limit", 20, "maximum results")
	if len(args) < 2 {
		return usageError("search requires <dir> and <text>")
	}
	if err := fs.Parse(args[2:]); err != nil {
		return usageError(err.Error())
	}
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	q := storage.SearchQuery{Text: args[1], PageID: *page, Limit: *limit}
	if *typ != "" {
		q.Types = []string{*typ}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := storage.Search(ctx, abs, q)
	if err != nil {
		return err
	}
	fmt.Println(searchTable(res))
	return nil
}

func (a *app) cmdJournal(args []string) error {
	if len(args) < 1 {
		return usageError("journal requires <dir>")
	}
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "number of entries to show")
	prune := fs.Int("prune", -1, "keep only the newest N entries")
	if err := fs.Parse(args[1:]); err != nil {
		return usageError(err.Error())
	}
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	ix, err := storage.OpenIndex(abs)
	if err != nil {
		return err
	}
	defer ix.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if *prune >= 0 {
		n, err := ix.PruneJournal(ctx, *prune)
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("Removed %d journal entries", n)))
		return nil
	}
	entries, err := ix.ListJournal(ctx, *limit)
	if err != nil {
		return err
	}
	fmt.Println(journalTable(entries))
	return nil
}
