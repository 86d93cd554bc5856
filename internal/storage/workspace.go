/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"drawdoc/internal/document"
	applog "drawdoc/internal/log"
	"drawdoc/internal/viewport"
)

const (
	ManifestFileName = "drawing.json"
	BackupsDirName   = "backups"
	ExportsDirName   = "exports"

	// manifestFormat is bumped on incompatible manifest changes.
	manifestFormat = 1
)

var standardSubDirs = []string{
	ExportsDirName,
	BackupsDirName,
}

// Meta is the workspace metadata stored next to the document.
// DocID is a stable identifier assigned at init and used by the document
// server. ServerVersion is the last version seen from the server (0 when the
// workspace was never pushed).
type Meta struct {
	Name          string          `json:"name"`
	DocID         string          `json:"doc_id"`
	ServerVersion int64           `json:"server_version,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Viewport      *viewport.State `json:"viewport,omitempty"`
}

type manifest struct {
	Format   int             `json:"format"`
	Meta     Meta            `json:"meta"`
	Document json.RawMessage `json:"document"`
}

// Workspace keeps track of the drawing loaded/saved from disk.
// Root is the workspace directory containing drawing.json and subfolders.
type Workspace struct {
	Root         string
	ManifestPath string
	Meta         Meta
	Doc          *document.Document
}

// InitWorkspace creates a new workspace directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders, and writes an empty drawing transactionally.
func InitWorkspace(root, name string, cfg document.Config) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(root)
	}
	ws := &Workspace{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Meta:         Meta{Name: name, DocID: uuid.NewString()},
		Doc:          document.NewWithConfig(cfg),
	}
	if err := Save(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// Open loads an existing workspace from the given root directory.
// If the current manifest cannot be read, parsed or validated, it will attempt the latest backup.
func Open(root string, cfg document.Config) (*Workspace, error) {
	l := applog.WithWorkspace(applog.WithOperation(applog.WithComponent("storage"), "open"), root)
	mpath := filepath.Join(root, ManifestFileName)
	ws := &Workspace{Root: root, ManifestPath: mpath}
	b, err := os.ReadFile(mpath)
	if err == nil {
		var meta Meta
		var doc *document.Document
		if meta, doc, err = decodeManifest(b, cfg); err == nil {
			ws.Meta, ws.Doc = meta, doc
			return ws, nil
		}
	}
	l.Warn("manifest unusable, trying latest backup", slog.Any("err", err))
	meta, doc, berr := openFromLatestBackup(root, cfg)
	if berr != nil {
		return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
	}
	ws.Meta, ws.Doc = meta, doc
	return ws, nil
}

func decodeManifest(b []byte, cfg document.Config) (Meta, *document.Document, error) {
	if err := ValidateManifest(b); err != nil {
		return Meta{}, nil, err
	}
	var m manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Format > manifestFormat {
		return Meta{}, nil, fmt.Errorf("manifest format %d is newer than supported %d", m.Format, manifestFormat)
	}
	doc, err := document.Load(m.Document, cfg)
	if err != nil {
		return Meta{}, nil, err
	}
	return m.Meta, doc, nil
}

func encodeManifest(meta Meta, doc *document.Document) ([]byte, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	data, err := json.MarshalIndent(manifest{Format: manifestFormat, Meta: meta, Document: body}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes the workspace document to disk with transactional semantics
// and a timestamped backup of the previous manifest (if present).
func Save(ws *Workspace) error {
	if ws == nil {
		return errors.New("nil Workspace")
	}
	if ws.Root == "" || ws.ManifestPath == "" {
		return errors.New("invalid Workspace: missing paths")
	}
	if ws.Doc == nil {
		return errors.New("invalid Workspace: no document")
	}
	ws.Meta.UpdatedAt = time.Now().UTC()
	data, err := encodeManifest(ws.Meta, ws.Doc)
	if err != nil {
		return err
	}

	// Ensure backups dir exists
	bdir := filepath.Join(ws.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// If a current manifest exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(ws.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bname := fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp)
		if cerr := copyFile(ws.ManifestPath, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	if err := writeAtomic(ws.ManifestPath, data); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	ws.Doc.MarkClean()
	return nil
}

// SaveAs writes the manifest to a new root folder, scaffolding structure if needed, and updates the handle.
func SaveAs(ws *Workspace, newRoot string) error {
	if ws == nil {
		return errors.New("nil Workspace")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	ws.Root = newRoot
	ws.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(ws)
}

// AutosaveCrashSnapshot writes the in-memory workspace to
// backups/drawing.json.crash-<stamp>.json without touching the manifest.
func AutosaveCrashSnapshot(ws *Workspace) (string, error) {
	if ws == nil || ws.Root == "" {
		return "", errors.New("invalid Workspace")
	}
	if ws.Doc == nil {
		return "", errors.New("no document to autosave")
	}
	data, err := encodeManifest(ws.Meta, ws.Doc)
	if err != nil {
		return "", err
	}
	bdir := filepath.Join(ws.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s.json", ManifestFileName, stamp))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// ExportDocument writes the bare document shape (id_counter, pages, nodes)
// to path.
func ExportDocument(doc *document.Document, path string) error {
	if doc == nil {
		return errors.New("nil document")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return fmt.Errorf("indent document: %w", err)
	}
	buf.WriteByte('\n')
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	return writeAtomic(path, buf.Bytes())
}

// ImportDocument reads a file written by ExportDocument.
func ImportDocument(path string, cfg document.Config) (*document.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return document.Load(b, cfg)
}

// ExportPath resolves a relative export name into the workspace exports folder.
func (ws *Workspace) ExportPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(ws.Root, ExportsDirName, name)
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// writeAtomic writes to a temp file in the same directory, then renames over target.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return err
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// listBackups returns backup manifests, oldest first.
func listBackups(root string) ([]string, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

// openFromLatestBackup tries the timestamped backups, newest first, and
// returns the first one that decodes.
func openFromLatestBackup(root string, cfg document.Config) (Meta, *document.Document, error) {
	candidates, err := listBackups(root)
	if err != nil {
		return Meta{}, nil, err
	}
	if len(candidates) == 0 {
		return Meta{}, nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			lastErr = fmt.Errorf("read backup %s: %w", filepath.Base(candidates[i]), err)
			continue
		}
		meta, doc, err := decodeManifest(b, cfg)
		if err != nil {
			lastErr = fmt.Errorf("parse backup %s: %w", filepath.Base(candidates[i]), err)
			continue
		}
		return meta, doc, nil
	}
	return Meta{}, nil, lastErr
}

// PruneBackups keeps the newest keep backup manifests and removes the rest.
func PruneBackups(root string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	candidates, err := listBackups(root)
	if err != nil {
		return 0, err
	}
	removed := 0
	for len(candidates) > keep {
		if err := os.Remove(candidates[0]); err != nil {
			return removed, fmt.Errorf("remove backup: %w", err)
		}
		candidates = candidates[1:]
		removed++
	}
	return removed, nil
}
