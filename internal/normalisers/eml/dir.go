package eml

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/mailmind/internal/core/domain"
	"github.com/custodia-labs/mailmind/internal/logger"
)

// Extension is the file extension recognised by LoadDir.
const Extension = ".eml"

// LoadDir parses every .eml file under dir, recursively, in lexical path
// order. Files that fail to parse are logged and skipped.
func (n *Normaliser) LoadDir(ctx context.Context, dir string) ([]domain.EmailRecord, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), Extension) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(paths)

	records := make([]domain.EmailRecord, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := n.LoadFile(ctx, path)
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			continue
		}
		records = append(records, *record)
	}

	logger.Debug("Parsed %d of %d messages in %s", len(records), len(paths), dir)
	return records, nil
}

// LoadFile parses a single .eml file.
func (n *Normaliser) LoadFile(ctx context.Context, path string) (*domain.EmailRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening message: %w", err)
	}
	defer f.Close()

	return n.Normalise(ctx, f, path)
}
