package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// MaxNameLength bounds the names a Dir resolves.
const MaxNameLength = 1024

// PathError reports a rejected name.
type PathError struct {
	Name     string // name as given
	Reason   string
	Resolved string // may be empty
}

func (e *PathError) Error() string {
	if e.Resolved != "" {
		return fmt.Sprintf("path validation failed: %s (input: %s, resolved: %s)", e.Reason, e.Name, e.Resolved)
	}
	return fmt.Sprintf("path validation failed: %s (input: %s)", e.Reason, e.Name)
}

// Dir confines names to a base directory. It is safe for concurrent use.
type Dir struct {
	base     string
	resolved string
}

// NewDir returns a Dir for base, which must be an existing directory.
// Relative paths are made absolute.
func NewDir(base string) (*Dir, error) {
	if base == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve base path: %w", err)
	}

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("base path does not exist: %s", abs)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access base path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path is not a directory: %s", abs)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve symbolic links in base path: %w", err)
	}

	return &Dir{base: abs, resolved: resolved}, nil
}

// Base returns the absolute base directory.
func (d *Dir) Base() string {
	return d.base
}

// Resolve returns the absolute path of name inside the directory. The
// file itself need not exist yet, but when it does and is a symbolic link
// its target must stay inside the directory.
func (d *Dir) Resolve(name string) (string, error) {
	if name == "" {
		return "", &PathError{Name: name, Reason: "path cannot be empty"}
	}
	if len(name) > MaxNameLength {
		return "", &PathError{Name: name, Reason: fmt.Sprintf("path length exceeds maximum of %d bytes", MaxNameLength)}
	}
	if !filepath.IsLocal(name) {
		return "", &PathError{Name: name, Reason: "path escapes allowed directory"}
	}
	if runtime.GOOS == "windows" {
		if part, ok := reservedWindowsName(name); ok {
			return "", &PathError{Name: name, Reason: fmt.Sprintf("Windows reserved name not allowed: %s", part)}
		}
	}

	full := filepath.Join(d.base, filepath.Clean(name))

	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		// Not created yet: resolve the parent instead
		parent, perr := filepath.EvalSymlinks(filepath.Dir(full))
		if perr != nil {
			return "", &PathError{Name: name, Reason: "cannot resolve path"}
		}
		resolved = filepath.Join(parent, filepath.Base(full))
	}

	rel, err := filepath.Rel(d.resolved, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathError{Name: name, Reason: "resolved path escapes base directory", Resolved: resolved}
	}

	return full, nil
}

var windowsReserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

func reservedWindowsName(name string) (string, bool) {
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		base := strings.ToUpper(part)
		if i := strings.Index(base, "."); i != -1 {
			base = base[:i]
		}
		if windowsReserved[base] {
			return part, true
		}
	}
	return "", false
}
