package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crate/testdrive/internal/constants"
)

func TestNewSettings(t *testing.T) {
	tests := []struct {
		name      string
		setEnv    *string
		want      string
		wantError bool
	}{
		{
			name: "production default when unset",
			want: constants.DefaultExtSchema,
		},
		{
			name:   "value from environment",
			setEnv: strPtr(constants.TestdriveExtSchema),
			want:   constants.TestdriveExtSchema,
		},
		{
			name:      "empty schema",
			setEnv:    strPtr(""),
			wantError: true,
		},
		{
			name:      "schema with quote",
			setEnv:    strPtr(`bad"schema`),
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(constants.EnvExtSchema, "")
			if tt.setEnv == nil {
				require.NoError(t, os.Unsetenv(constants.EnvExtSchema))
			} else {
				t.Setenv(constants.EnvExtSchema, *tt.setEnv)
			}

			settings, err := NewSettings()
			if tt.wantError {
				assert.ErrorIs(t, err, ErrInvalidSchema)
				assert.Nil(t, settings)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, settings.ExtSchema)
			assert.Equal(t, map[string]string{constants.EnvExtSchema: tt.want}, settings.GetEnvironmentVars())
		})
	}
}

func TestGuard(t *testing.T) {
	t.Run("pins and restores a previously set variable", func(t *testing.T) {
		t.Setenv(constants.EnvExtSchema, "production")

		guard, err := ApplyGuard(map[string]string{constants.EnvExtSchema: constants.TestdriveExtSchema})
		require.NoError(t, err)

		assert.Equal(t, constants.TestdriveExtSchema, os.Getenv(constants.EnvExtSchema))
		assert.Equal(t, constants.TestdriveExtSchema, guard.Settings().ExtSchema)

		require.NoError(t, guard.Restore())
		assert.Equal(t, "production", os.Getenv(constants.EnvExtSchema))
	})

	t.Run("unsets a previously unset variable", func(t *testing.T) {
		t.Setenv(constants.EnvExtSchema, "")
		require.NoError(t, os.Unsetenv(constants.EnvExtSchema))

		guard, err := ApplyGuard(map[string]string{constants.EnvExtSchema: constants.TestdriveExtSchema})
		require.NoError(t, err)
		require.NoError(t, guard.Restore())

		_, set := os.LookupEnv(constants.EnvExtSchema)
		assert.False(t, set)
	})

	t.Run("restore is idempotent", func(t *testing.T) {
		t.Setenv(constants.EnvExtSchema, "production")

		guard, err := ApplyGuard(map[string]string{constants.EnvExtSchema: constants.TestdriveExtSchema})
		require.NoError(t, err)
		require.NoError(t, guard.Restore())

		t.Setenv(constants.EnvExtSchema, "changed-later")
		require.NoError(t, guard.Restore())
		assert.Equal(t, "changed-later", os.Getenv(constants.EnvExtSchema))
	})

	t.Run("invalid override fails and rolls back", func(t *testing.T) {
		t.Setenv(constants.EnvExtSchema, "production")

		guard, err := ApplyGuard(map[string]string{constants.EnvExtSchema: ""})
		assert.ErrorIs(t, err, ErrInvalidSchema)
		assert.Nil(t, guard)
		assert.Equal(t, "production", os.Getenv(constants.EnvExtSchema))
	})
}

func strPtr(s string) *string {
	return &s
}
