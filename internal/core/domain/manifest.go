package domain

import (
	"fmt"
	"sort"
)

// ManifestEntry is one record of run provenance, appended to the manifest
// under the run's identity key. Field names are the manifest wire format.
type ManifestEntry struct {
	// JobID is the job identifier recorded for the run. Generated as
	// "jobid-<epoch>" when the caller supplied none.
	JobID string `json:"jobid"`

	// Source is the normalised source connector name.
	Source string `json:"source"`

	// DataFile is the captured data file path. Empty for failure entries
	// recorded without a capture.
	DataFile string `json:"data_file"`

	// StateFilePath points at the persisted checkpoint for this run.
	StateFilePath string `json:"state_file_path"`

	// Timestamp is the run epoch, matching the output directory name.
	Timestamp int64 `json:"timestamp"`

	// ModifiedAt is when the entry was appended.
	ModifiedAt int64 `json:"modified_at"`
}

// Manifest maps identity keys to their chronological run history. Entries
// are only ever appended; corrections are made by appending a new entry.
type Manifest map[string][]ManifestEntry

// Append adds an entry to the identity's history, creating the history if
// the identity is new.
func (m Manifest) Append(identity string, entry ManifestEntry) {
	m[identity] = append(m[identity], entry)
}

// Latest returns the most recent entry for the identity, or false when the
// identity is unknown or has no entries.
func (m Manifest) Latest(identity string) (ManifestEntry, bool) {
	entries := m[identity]
	if len(entries) == 0 {
		return ManifestEntry{}, false
	}
	return entries[len(entries)-1], true
}

// Identities returns the known identity keys in sorted order.
func (m Manifest) Identities() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GenerateJobID returns the job identifier recorded when the caller did
// not supply one.
func GenerateJobID(epoch int64) string {
	return fmt.Sprintf("jobid-%d", epoch)
}
