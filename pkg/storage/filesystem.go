package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/flowedit/pkg/flow"
	"github.com/dshills/flowedit/pkg/validation"
)

// FilesystemRepository implements FlowRepository using filesystem storage.
// Flows are stored as YAML files in <baseDir>/flows/.
type FilesystemRepository struct {
	dir    *validation.Dir
	logger *slog.Logger
}

// NewFilesystemRepository creates a repository rooted at baseDir.
// It ensures the flows directory exists.
func NewFilesystemRepository(baseDir string, logger *slog.Logger) (*FilesystemRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	flowsDir := filepath.Join(baseDir, "flows")

	// Create directories if they don't exist
	if err := os.MkdirAll(flowsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create flows directory: %w", err)
	}
	dir, err := validation.NewDir(flowsDir)
	if err != nil {
		return nil, err
	}

	return &FilesystemRepository{
		dir:    dir,
		logger: logger.With("component", "storage", "backend", "filesystem"),
	}, nil
}

// Save persists a flow as a YAML file named after its id.
func (r *FilesystemRepository) Save(ctx context.Context, rec *flow.Record) error {
	if err := checkRecord(rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal flow to YAML: %w", err)
	}

	filePath, err := r.flowPath(rec.ID)
	if err != nil {
		return err
	}

	// Write to file atomically using a per-save temp file + rename
	tmp, err := os.CreateTemp(filepath.Dir(filePath), rec.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tmp.Name()

	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tempPath, 0644)
	}
	if werr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to write flow file: %w", werr)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		// Clean up temp file on failure
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to save flow file: %w", err)
	}

	return nil
}

// Load reads the flow stored under id.
func (r *FilesystemRepository) Load(ctx context.Context, id string) (*flow.Record, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := r.flowPath(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}

	var rec flow.Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse flow YAML: %w", err)
	}
	// The file name is authoritative
	rec.ID = id

	return &rec, nil
}

// Delete removes the flow file.
func (r *FilesystemRepository) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	path, err := r.flowPath(id)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete flow file: %w", err)
	}
	return nil
}

// List summarizes every readable flow file. Unreadable files are logged
// and skipped.
func (r *FilesystemRepository) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(r.dir.Base())
	if err != nil {
		return nil, fmt.Errorf("failed to read flows directory: %w", err)
	}

	out := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		// Skip non-YAML files and directories
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := strings.TrimSuffix(entry.Name(), ".yaml")
		rec, err := r.Load(ctx, id)
		if err != nil {
			r.logger.Warn("skipping unreadable flow", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, summarize(rec))
	}

	sortSummaries(out)
	return out, nil
}

// Close is a no-op for the filesystem repository.
func (r *FilesystemRepository) Close() error {
	return nil
}

// flowPath resolves the file for id, refusing names that lead outside
// the flows directory.
func (r *FilesystemRepository) flowPath(id string) (string, error) {
	path, err := r.dir.Resolve(id + ".yaml")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return path, nil
}
