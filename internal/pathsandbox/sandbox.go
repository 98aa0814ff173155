// Package pathsandbox resolves and validates caller-supplied paths against
// a whitelist of allowed base directories, rejecting anything that would
// escape them.
package pathsandbox

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ocrprov/engine/internal/errtax"
)

// AllowedDirsEnv is the environment variable carrying extra, comma-separated
// allowed base directories.
const AllowedDirsEnv = "OCR_PROVENANCE_ALLOWED_DIRS"

// Sandbox holds the resolved set of allowed base directories and validates
// paths against it.
type Sandbox struct {
	bases []string
}

// New builds a Sandbox from the default base directories (storage directory,
// user home, /tmp, current working directory), directories listed in
// OCR_PROVENANCE_ALLOWED_DIRS, and any real filesystem mount points detected
// from the kernel mount table.
func New(storageDir string) (*Sandbox, error) {
	bases := defaultBases(storageDir)

	if raw := os.Getenv(AllowedDirsEnv); raw != "" {
		for _, d := range strings.Split(raw, ",") {
			d = strings.TrimSpace(d)
			if d == "" {
				continue
			}
			bases = append(bases, d)
		}
	}

	bases = append(bases, detectBindMounts()...)

	return &Sandbox{bases: dedupeResolved(bases)}, nil
}

func defaultBases(storageDir string) []string {
	bases := []string{storageDir, os.TempDir()}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		bases = append(bases, home)
	}
	if cwd, err := os.Getwd(); err == nil && cwd != "" {
		bases = append(bases, cwd)
	}

	return bases
}

// dedupeResolved resolves each base to an absolute, cleaned path and drops
// duplicates and unresolvable entries.
func dedupeResolved(bases []string) []string {
	seen := make(map[string]bool, len(bases))
	out := make([]string, 0, len(bases))

	for _, b := range bases {
		abs, err := filepath.Abs(b)
		if err != nil {
			continue
		}
		abs = filepath.Clean(abs)
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}

	return out
}

// Validate resolves path (following symlinks) and confirms it falls inside
// one of the sandbox's allowed base directories. It returns the resolved,
// absolute path on success.
func (s *Sandbox) Validate(path string) (string, error) {
	if strings.ContainsRune(path, 0) {
		return "", errtax.New(errtax.CategoryValidation, "path contains a null byte", nil).WithDetail("path", path)
	}

	if looksLikeWindowsPath(path) && runtime.GOOS != "windows" {
		return "", errtax.New(errtax.CategoryPathNotFound,
			"Windows-style paths are not supported on this host; use the container mount path instead", nil).
			WithDetail("path", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errtax.New(errtax.CategoryPathNotFound, "failed to resolve path", err).WithDetail("path", path)
	}

	resolved, err := resolveSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errtax.New(errtax.CategoryPathNotFound, "path does not exist", err).WithDetail("path", path)
		}
		return "", errtax.New(errtax.CategoryPathNotFound, "failed to resolve path", err).WithDetail("path", path)
	}

	if !s.contains(resolved) {
		return "", errtax.New(errtax.CategoryPermissionDenied,
			"path is outside the allowed directories", nil).
			WithDetail("path", path).
			WithDetail("allowed_dirs", append([]string(nil), s.bases...))
	}

	return resolved, nil
}

// ValidateDir is like Validate but additionally requires path to be a directory.
func (s *Sandbox) ValidateDir(path string) (string, error) {
	resolved, err := s.Validate(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", errtax.New(errtax.CategoryPathNotFound, "path does not exist", err).WithDetail("path", path)
	}
	if !info.IsDir() {
		return "", errtax.New(errtax.CategoryPathNotDirectory, "path is not a directory", nil).WithDetail("path", path)
	}

	return resolved, nil
}

func (s *Sandbox) contains(resolved string) bool {
	for _, base := range s.bases {
		if resolved == base {
			return true
		}
		if strings.HasPrefix(resolved, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// resolveSymlinks follows symlinks in path where they exist, falling back to
// the cleaned input for components that don't exist yet (so sandbox
// validation still works for paths about to be created).
func resolveSymlinks(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	parent, base := filepath.Split(path)
	parent = filepath.Clean(parent)
	if parent == path {
		return path, nil
	}

	resolvedParent, perr := resolveSymlinks(parent)
	if perr != nil {
		return "", perr
	}
	return filepath.Join(resolvedParent, base), nil
}

func looksLikeWindowsPath(path string) bool {
	if len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/') {
		c := path[0]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	return strings.HasPrefix(path, `\\`)
}
