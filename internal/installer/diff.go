package installer

import (
	"github.com/hidakatsuya/rexer/internal/config"
	"github.com/hidakatsuya/rexer/internal/lock"
)

// Diff partitions the desired and observed state by extension name.
// The partitions are pairwise disjoint: every desired name lands in
// exactly one of Added, SourceChanged, Unchanged, and every observed
// name in exactly one of Removed, SourceChanged, Unchanged.
type Diff struct {
	Added         []config.Declared
	Removed       []lock.LockedExtension
	SourceChanged []Change
	Unchanged     []lock.LockedExtension
}

// Change pairs a declared extension with the lock entry it replaces.
type Change struct {
	Declared config.Declared
	Locked   lock.LockedExtension
}

// Empty reports whether desired and observed state already agree.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.SourceChanged) == 0
}

// Calculate computes the diff between the declared extensions and the
// lock file. Names are matched case-sensitively; order is irrelevant.
func Calculate(desired *config.ExtensionsConfig, observed *lock.LockFile) Diff {
	var d Diff

	declared := make(map[string]bool)
	for _, dec := range desired.All() {
		declared[dec.Extension.Name] = true

		locked, ok := observed.Find(dec.Extension.Name)
		if !ok {
			d.Added = append(d.Added, dec)
			continue
		}
		// A kind change moves the extension to a different directory
		// tree, so it is handled like a source change.
		if !dec.Extension.Source.Equal(locked.Source) || dec.Kind != locked.Kind {
			d.SourceChanged = append(d.SourceChanged, Change{Declared: dec, Locked: locked})
		}
	}

	for _, locked := range observed.Extensions {
		if !declared[locked.Name] {
			d.Removed = append(d.Removed, locked)
			continue
		}
		changed := false
		for _, ch := range d.SourceChanged {
			if ch.Locked.Name == locked.Name {
				changed = true
				break
			}
		}
		if !changed {
			d.Unchanged = append(d.Unchanged, locked)
		}
	}

	return d
}
