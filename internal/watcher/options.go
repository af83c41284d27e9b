package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// SQLite writes land in these siblings before the main file is checkpointed.
// -shm is left out because readers touch it too.
var journalSuffixes = []string{"-wal", "-journal"}

// Options configures the file watcher behavior.
type Options struct {
	// SettleDelay is how long the export must stay unchanged before an event fires.
	SettleDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 500 * time.Millisecond
	}
}

// matches reports whether name is the export itself or one of its journals.
func matches(target, name string) bool {
	name = filepath.Clean(name)
	if name == target {
		return true
	}
	for _, suffix := range journalSuffixes {
		if name == target+suffix {
			return true
		}
	}
	return false
}

// isJournal reports whether name is a journal sibling of target.
func isJournal(target, name string) bool {
	return name != target && strings.HasPrefix(filepath.Clean(name), target)
}
