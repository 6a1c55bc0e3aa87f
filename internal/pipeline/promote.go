package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/koios/screenframe/pkg/models"
)

// writeFileAtomic writes data to dest via a same-directory temp file and
// rename, so readers never observe a partial file.
func writeFileAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, 0o644)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	syncDir(dir)
	return nil
}

// promoteTree atomically replaces the canonical output directory with the
// staged tree. The previous canonical tree is parked under a run-scoped name
// first, so a failure midway can put it back; there is no window where a
// partially-written canonical tree is observable.
func promoteTree(staging, canonical, runID string) error {
	parked := canonical + ".old-" + runID

	if _, err := os.Stat(canonical); err == nil {
		if err := os.Rename(canonical, parked); err != nil {
			return fmt.Errorf("failed to park previous output: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat output directory: %w", err)
	}

	if err := os.Rename(staging, canonical); err != nil {
		// Put the previous tree back; the run failed but nothing was lost.
		if _, statErr := os.Stat(parked); statErr == nil {
			_ = os.Rename(parked, canonical)
		}
		return fmt.Errorf("failed to promote staging tree: %w", err)
	}

	syncDir(filepath.Dir(canonical))
	_ = os.RemoveAll(parked)
	return nil
}

// promoteFiles moves each successful staged file into the canonical tree
// individually (best-effort mode). Each move is an atomic rename.
func promoteFiles(staging, canonical string, results []models.ProcessingResult) error {
	for _, r := range results {
		if r.Status != models.StatusSuccess {
			continue
		}
		staged := filepath.Join(staging, r.Locale, filepath.Base(r.OutputPath))
		dest := filepath.Join(canonical, r.Locale, filepath.Base(r.OutputPath))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
		}
		if err := os.Rename(staged, dest); err != nil {
			return fmt.Errorf("failed to promote %s: %w", staged, err)
		}
		syncDir(filepath.Dir(dest))
	}
	return nil
}

// syncDir fsyncs a directory where the platform supports it, for crash
// safety after renames.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
