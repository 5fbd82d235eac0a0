// Package snapshot keeps timestamped copies of a document file so every
// mutation can be undone.
package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/oklog/ulid/v2"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/logging"
)

// Version of the archive layout.
const Version = "1.0"

const (
	documentEntry = "document.json"
	metadataEntry = "metadata.json"
	archiveSuffix = ".tar.gz"
	stampLayout   = "20060102-150405"
)

// ErrChecksum means the archived document does not match its metadata.
var ErrChecksum = errors.New("snapshot checksum mismatch")

// Metadata describes one snapshot archive.
type Metadata struct {
	ID          string    `json:"id"`
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source"`
	Description string    `json:"description"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
}

// Snapshot is an archive on disk with its metadata.
type Snapshot struct {
	Path string `json:"path"`
	Metadata
}

// Manager stores snapshots under one root directory, one subdirectory per
// document.
type Manager struct {
	root string
	now  func() time.Time
	log  *logging.Logger
}

// NewManager creates a manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{root: dir, now: time.Now, log: logging.New("snapshot")}
}

// Dir returns the directory holding the snapshots of docPath.
func (m *Manager) Dir(docPath string) string {
	base := filepath.Base(docPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(m.root, base)
}

// Take archives the current content of docPath.
func (m *Manager) Take(docPath, description string) (*Snapshot, error) {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	source, err := filepath.Abs(docPath)
	if err != nil {
		source = docPath
	}

	now := m.now().UTC()
	sum := sha256.Sum256(data)
	meta := Metadata{
		ID:          ulid.Make().String(),
		Version:     Version,
		CreatedAt:   now,
		Source:      source,
		Description: description,
		Size:        int64(len(data)),
		Checksum:    hex.EncodeToString(sum[:]),
	}

	dir := m.Dir(docPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	path := filepath.Join(dir, now.Format(stampLayout)+"-"+meta.ID+archiveSuffix)
	if err := writeArchive(path, data, &meta); err != nil {
		os.Remove(path)
		return nil, err
	}

	m.log.WithDocument(docPath).Info("snapshot_taken", map[string]interface{}{
		"id":   meta.ID,
		"path": path,
		"size": meta.Size,
	})
	return &Snapshot{Path: path, Metadata: meta}, nil
}

// List returns the snapshots of docPath, newest first. Unreadable archives
// are skipped.
func (m *Manager) List(docPath string) ([]Snapshot, error) {
	dir := m.Dir(docPath)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var paths []string
	err := doublestar.GlobWalk(os.DirFS(dir), "*"+archiveSuffix, func(path string, d fs.DirEntry) error {
		if !d.IsDir() {
			paths = append(paths, filepath.Join(dir, path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("glob: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))

	snapshots := make([]Snapshot, 0, len(paths))
	for _, path := range paths {
		meta, err := Inspect(path)
		if err != nil {
			m.log.Warn("snapshot_unreadable", map[string]interface{}{"path": path}, err)
			continue
		}
		snapshots = append(snapshots, Snapshot{Path: path, Metadata: *meta})
	}
	return snapshots, nil
}

// Inspect reads the metadata of a snapshot archive.
func Inspect(path string) (*Metadata, error) {
	meta, _, err := readArchive(path, false)
	return meta, err
}

// Restore writes the snapshot content back to docPath after snapshotting
// the current file. It returns the snapshot taken of the replaced content,
// or nil when docPath did not exist.
func (m *Manager) Restore(snapshotPath, docPath string) (*Snapshot, error) {
	meta, data, err := readArchive(snapshotPath, true)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != meta.Checksum {
		return nil, fmt.Errorf("%w: %s", ErrChecksum, snapshotPath)
	}

	var safety *Snapshot
	if _, err := os.Stat(docPath); err == nil {
		safety, err = m.Take(docPath, "before restore of "+meta.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshotting current document: %w", err)
		}
	}

	if err := os.WriteFile(docPath, data, 0644); err != nil {
		return nil, fmt.Errorf("restoring document: %w", err)
	}
	m.log.WithDocument(docPath).Info("snapshot_restored", map[string]interface{}{"id": meta.ID})
	return safety, nil
}

// Prune deletes all but the newest keep snapshots of docPath and returns
// the removed paths. keep <= 0 keeps everything.
func (m *Manager) Prune(docPath string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	snapshots, err := m.List(docPath)
	if err != nil {
		return nil, err
	}
	if len(snapshots) <= keep {
		return nil, nil
	}

	var removed []string
	for _, s := range snapshots[keep:] {
		if err := os.Remove(s.Path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", s.Path, err)
		}
		removed = append(removed, s.Path)
	}
	m.log.WithDocument(docPath).Debug("snapshots_pruned", map[string]interface{}{"removed": len(removed)})
	return removed, nil
}

func writeArchive(path string, data []byte, meta *Metadata) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	defer file.Close()

	gzw := gzip.NewWriter(file)
	tw := tar.NewWriter(gzw)

	if err := addToTar(tw, documentEntry, data, meta.CreatedAt); err != nil {
		return fmt.Errorf("adding document: %w", err)
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := addToTar(tw, metadataEntry, metaJSON, meta.CreatedAt); err != nil {
		return fmt.Errorf("adding metadata: %w", err)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip: %w", err)
	}
	return file.Close()
}

// readArchive returns the metadata and, when withDocument is set, the
// archived document.
func readArchive(path string, withDocument bool) (*Metadata, []byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	var (
		meta *Metadata
		data []byte
	)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading tar: %w", err)
		}

		switch header.Name {
		case metadataEntry:
			raw, err := io.ReadAll(tr)
			if err != nil {
				return nil, nil, fmt.Errorf("reading metadata: %w", err)
			}
			meta = &Metadata{}
			if err := json.Unmarshal(raw, meta); err != nil {
				return nil, nil, fmt.Errorf("parsing metadata: %w", err)
			}
		case documentEntry:
			if !withDocument {
				continue
			}
			data, err = io.ReadAll(tr)
			if err != nil {
				return nil, nil, fmt.Errorf("reading document: %w", err)
			}
		}
		if meta != nil && (data != nil || !withDocument) {
			break
		}
	}

	if meta == nil {
		return nil, nil, fmt.Errorf("snapshot missing metadata: %s", path)
	}
	if withDocument && data == nil {
		return nil, nil, fmt.Errorf("snapshot missing document: %s", path)
	}
	return meta, data, nil
}

func addToTar(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: modTime,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}
