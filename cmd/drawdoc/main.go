/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command drawdoc creates, edits, indexes and syncs drawing workspaces.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"drawdoc/internal/config"
	"drawdoc/internal/crash"
	applog "drawdoc/internal/log"
	"drawdoc/internal/storage"
	"drawdoc/internal/telemetry"
	"drawdoc/internal/version"
)

func usage() {
	fmt.Println(titleStyle.Render("drawdoc") + " " + version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  drawdoc version                          Show version")
	fmt.Println("  drawdoc init <dir> <name>                Create a new workspace")
	fmt.Println("  drawdoc open <dir>                       Print a workspace summary")
	fmt.Println("  drawdoc run <dir> <script|->             Apply a command script and save")
	fmt.Println("  drawdoc shell <dir>                      Interactive shell")
	fmt.Println("  drawdoc export <dir> <file>              Write the document JSON to <file>")
	fmt.Println("  drawdoc search <dir> <text> [flags]      Search the workspace index")
	fmt.Println("  drawdoc journal <dir> [flags]            Show or prune the command journal")
	fmt.Println("  drawdoc serve [flags]                    Run the document server")
	fmt.Println("  drawdoc login [subject]                  Request a server token and store it in the keychain")
	fmt.Println("  drawdoc logout                           Remove the stored server token")
	fmt.Println("  drawdoc push <dir>                       Upload the workspace document")
	fmt.Println("  drawdoc pull <dir> [--force]             Replace the workspace document with the server copy")
}

// app carries what every subcommand needs.
type app struct {
	cfg   config.AppConfig
	token string
	// ws is filled in place so the deferred crash handler sees the open workspace.
	ws  *storage.Workspace
	log *slog.Logger
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, token, cfgErr := config.Load()
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config load failed; using defaults", slog.Any("err", cfgErr))
	}

	tcfg := telemetry.FromEnv()
	tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
	telemetry.NewDefault(tcfg)

	a := &app{cfg: cfg, token: token, ws: &storage.Workspace{}, log: l}
	defer crash.Recover(a.ws)

	l.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage()
		return 2
	}
	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "version", "--version", "-v":
		fmt.Println("drawdoc", version.String())
		return 0
	case "help", "--help", "-h":
		usage()
		return 0
	case "init":
		err = a.cmdInit(rest)
	case "open":
		err = a.cmdOpen(rest)
	case "run":
		err = a.cmdRun(rest)
	case "shell":
		err = a.cmdShell(rest)
	case "export":
		err = a.cmdExport(rest)
	case "search":
		err = a.cmdSearch(rest)
	case "journal":
		err = a.cmdJournal(rest)
	case "serve":
		err = a.cmdServe(rest)
	case "login":
		err = a.cmdLogin(rest)
	case "logout":
		err = a.cmdLogout(rest)
	case "push":
		err = a.cmdPush(rest)
	case "pull":
		err = a.cmdPull(rest)
	default:
		fmt.Printf("unknown command %q\n\n", cmd)
		usage()
		return 2
	}
	flushTelemetry()
	if err != nil {
		if ue, ok := err.(usageError); ok {
			fmt.Println(string(ue))
			usage()
			return 2
		}
		l.Error(cmd+" failed", slog.Any("err", err))
		fmt.Println(errorStyle.Render("Error: ") + err.Error())
		return 1
	}
	return 0
}

// usageError reports wrong arguments; it prints usage and exits with 2.
type usageError string

func (e usageError) Error() string { return string(e) }
