package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/koios/screenframe/pkg/models"
)

// Discover enumerates locale subdirectories under the input root and the
// screenshot files inside each, by extension. Locales are never hardcoded;
// whatever directories exist are the batch. An empty locale directory is a
// valid, empty batch.
func Discover(inputRoot string, extensions []string) ([]models.LocaleBatch, error) {
	entries, err := os.ReadDir(inputRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read input root: %w", err)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var batches []models.LocaleBatch
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(inputRoot, entry.Name())
		files, err := listScreenshots(dir, allowed)
		if err != nil {
			return nil, err
		}
		batches = append(batches, models.LocaleBatch{
			Locale: entry.Name(),
			Dir:    dir,
			Files:  files,
		})
	}

	sort.Slice(batches, func(i, j int) bool { return batches[i].Locale < batches[j].Locale })
	return batches, nil
}

func listScreenshots(dir string, allowed map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read locale directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
