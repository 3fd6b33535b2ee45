package lock

import (
	"time"

	"github.com/hidakatsuya/rexer/internal/config"
)

// LockFile represents the .extensions.lock file: the record of what is
// actually installed. It is the sole source of truth — installed
// directories are never scanned to infer state.
type LockFile struct {
	Extensions []LockedExtension `yaml:"extensions"`
}

// LockedExtension records one installed extension with its resolved
// source and the commit that was checked out.
type LockedExtension struct {
	Name        string        `yaml:"name"`
	Kind        config.Kind   `yaml:"kind"`
	Source      config.Source `yaml:"source"`
	Commit      string        `yaml:"commit,omitempty"`
	InstalledAt time.Time     `yaml:"installed_at"`
}

// Find returns the locked extension with the given name, if present.
func (lf *LockFile) Find(name string) (LockedExtension, bool) {
	for _, ext := range lf.Extensions {
		if ext.Name == name {
			return ext, true
		}
	}
	return LockedExtension{}, false
}

// ByKind returns the locked extensions of one kind, in record order.
func (lf *LockFile) ByKind(kind config.Kind) []LockedExtension {
	var out []LockedExtension
	for _, ext := range lf.Extensions {
		if ext.Kind == kind {
			out = append(out, ext)
		}
	}
	return out
}
