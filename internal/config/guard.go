package config

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// envSnapshot maps a variable name to its previous value, nil meaning unset.
type envSnapshot map[string]*string

func captureEnv(keys ...string) envSnapshot {
	result := make(envSnapshot, len(keys))
	for _, key := range keys {
		value, set := os.LookupEnv(key)
		if !set {
			result[key] = nil
			continue
		}
		v := value
		result[key] = &v
	}
	return result
}

func (snapshot envSnapshot) restore() error {
	for key, value := range snapshot {
		if value == nil {
			if err := os.Unsetenv(key); err != nil {
				return fmt.Errorf("failed to unset %s: %w", key, err)
			}
			continue
		}
		if err := os.Setenv(key, *value); err != nil {
			return fmt.Errorf("failed to restore %s: %w", key, err)
		}
	}
	return nil
}

// Guard pins environment variables for the lifetime of a test session and
// hands the resulting Settings to the code under test.
//
// The pinned values are visible through os.Getenv until Restore is called,
// which puts back whatever was there before ApplyGuard.
type Guard struct {
	snapshot envSnapshot
	settings *Settings
	once     sync.Once
	err      error
}

// ApplyGuard sets the given overrides and captures the prior values.
// If any override cannot be applied, the environment is restored and an error returned.
func ApplyGuard(overrides map[string]string) (*Guard, error) {
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	g := &Guard{snapshot: captureEnv(keys...)}
	for _, key := range keys {
		if err := os.Setenv(key, overrides[key]); err != nil {
			_ = g.snapshot.restore()
			return nil, fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	settings, err := NewSettings()
	if err != nil {
		_ = g.snapshot.restore()
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	g.settings = settings
	return g, nil
}

// Settings returns the settings observed after the overrides were applied
func (g *Guard) Settings() *Settings {
	return g.settings
}

// Restore puts the environment back. Calling it more than once is a no-op.
func (g *Guard) Restore() error {
	g.once.Do(func() {
		g.err = g.snapshot.restore()
	})
	return g.err
}
