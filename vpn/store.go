// Package vpn provides the server catalog and connection orchestration.
// This file contains the Store type for durable profile persistence.
package vpn

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"vpndial/common"
)

// Store persists the profile collection to a single YAML file. It is
// pure I/O with no business rules, and it never fails its caller:
// Load degrades to an empty collection and Save drops the write, in
// both cases reporting the problem to the diagnostic sink only.
// Losing a write must not crash an interactive session.
type Store struct {
	path string
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStorePath returns the per-user profile store location,
// creating the configuration directory if needed.
func DefaultStorePath() (string, error) {
	configDir, err := common.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, common.ProfilesFileName), nil
}

// Load reads the profile collection from disk. A missing file means no
// profiles yet. Unreadable or corrupt content degrades to an empty
// collection, so callers must tolerate Load returning fewer profiles
// than last saved. Records without a country code get the default.
func (s *Store) Load() []*ServerProfile {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			common.LogWarn("Cannot read profile store %s: %v", s.path, err)
		}
		return []*ServerProfile{}
	}

	var decoded []*ServerProfile
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		common.LogError("Profile store %s is corrupt, starting empty: %v", s.path, err)
		return []*ServerProfile{}
	}

	profiles := make([]*ServerProfile, 0, len(decoded))
	for _, p := range decoded {
		if p == nil {
			continue
		}
		if p.CountryCode == "" {
			p.CountryCode = common.DefaultCountryCode
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// Save writes the full profile collection to disk as a whole-file
// overwrite. Write failures are logged and swallowed.
func (s *Store) Save(profiles []*ServerProfile) {
	data, err := yaml.Marshal(profiles)
	if err != nil {
		common.LogError("Cannot serialize profiles: %v", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		common.LogError("Cannot create profile store directory: %v", err)
		return
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		common.LogError("Cannot write profile store %s: %v", s.path, err)
	}
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}
