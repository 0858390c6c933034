// Package textfile mirrors the rendered snapshot into a file for node_exporter's textfile collector.
package textfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vshulcz/airgauge/internal/domain"
	"github.com/vshulcz/airgauge/internal/ports"
)

const fileMode = 0o644

type Writer struct {
	store    ports.GaugeStore
	renderer ports.SnapshotRenderer
	path     string
}

func New(path string, store ports.GaugeStore, r ports.SnapshotRenderer) *Writer {
	return &Writer{path: path, store: store, renderer: r}
}

// Notify rewrites the file with the current store contents. Readers never observe a partial file.
func (w *Writer) Notify(_ context.Context, _ domain.Cycle) error {
	return writeAtomic(w.path, w.renderer.Render(w.store.Snapshot()))
}

func writeAtomic(path string, body []byte) (retErr error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".airgauge-*.tmp")
	if err != nil {
		return fmt.Errorf("create tmp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	closed := false
	defer func() {
		if !closed {
			if cerr := tmp.Close(); cerr != nil && retErr == nil {
				retErr = fmt.Errorf("close tmp: %w", cerr)
			}
		}
		if cleanup {
			if err := os.Remove(tmpName); err != nil && retErr == nil {
				retErr = fmt.Errorf("remove tmp: %w", err)
			}
		}
	}()
	if _, err := tmp.Write(body); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close tmp: %w", err)
	}
	closed = true
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	cleanup = false
	return nil
}
