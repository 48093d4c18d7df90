package config

import (
	"errors"
	"fmt"
	"strings"

	rootconfig "github.com/crate/testdrive/config"
	"github.com/crate/testdrive/internal/constants"
)

// ErrInvalidSchema is returned when a schema name cannot be used as a quoted identifier
var ErrInvalidSchema = errors.New("invalid schema name")

// Settings is the toolkit configuration consumed from the environment
type Settings struct {
	// ExtSchema is the schema holding the subsystem tables
	ExtSchema string
}

// NewSettings reads the settings from the current process environment
func NewSettings() (*Settings, error) {
	s := &Settings{
		ExtSchema: rootconfig.GetEnv(constants.EnvExtSchema, constants.DefaultExtSchema),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate validates the settings
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.ExtSchema) == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidSchema, constants.EnvExtSchema)
	}
	if strings.ContainsAny(s.ExtSchema, "\"\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidSchema, s.ExtSchema)
	}
	return nil
}

// GetEnvironmentVars returns the environment variables describing these settings
func (s *Settings) GetEnvironmentVars() map[string]string {
	return map[string]string{
		constants.EnvExtSchema: s.ExtSchema,
	}
}
