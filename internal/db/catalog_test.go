package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crate/testdrive/internal/config"
	"github.com/crate/testdrive/internal/constants"
	"github.com/crate/testdrive/internal/db"
	"github.com/crate/testdrive/internal/db/models"
)

func TestDefaultCatalog(t *testing.T) {
	settings := &config.Settings{ExtSchema: constants.TestdriveExtSchema}

	refs, err := db.DefaultCatalog(settings)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`"testdrive-ext"."retention_policy"`,
		`"testdrive-data"."raw_metrics"`,
		`"testdrive-data"."sensor_readings"`,
		`"testdrive-data"."testdrive"`,
		`"testdrive-data"."foobar"`,
		`"testdrive-data"."foobar_unique_single"`,
		`"testdrive-data"."foobar_unique_composite"`,
		`"testdrive"."demo"`,
	}, db.Strings(refs))
}

func TestDefaultCatalogFollowsSettings(t *testing.T) {
	refs, err := db.DefaultCatalog(&config.Settings{ExtSchema: "other-ext"})
	require.NoError(t, err)
	assert.Equal(t, db.TableRef{Schema: "other-ext", Name: models.RetentionPolicyTable}, refs[0])
}

func TestResolveCatalog(t *testing.T) {
	settings := &config.Settings{ExtSchema: "ext"}

	t.Run("drops duplicates", func(t *testing.T) {
		refs, err := db.ResolveCatalog(settings, []models.Declaration{
			{Namespace: models.NamespaceData, Table: "a"},
			{Namespace: models.NamespaceData, Table: "a"},
			{Namespace: models.NamespaceIO, Table: "a"},
		})
		require.NoError(t, err)
		assert.Len(t, refs, 2)
	})

	t.Run("empty declarations", func(t *testing.T) {
		refs, err := db.ResolveCatalog(settings, nil)
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("ext namespace needs settings", func(t *testing.T) {
		_, err := db.ResolveCatalog(nil, []models.Declaration{{Namespace: models.NamespaceExt, Table: "a"}})
		assert.Error(t, err)
	})

	t.Run("unknown namespace", func(t *testing.T) {
		_, err := db.ResolveCatalog(settings, []models.Declaration{{Namespace: models.Namespace(9), Table: "a"}})
		assert.Error(t, err)
	})

	t.Run("empty table name", func(t *testing.T) {
		_, err := db.ResolveCatalog(settings, []models.Declaration{{Namespace: models.NamespaceData}})
		assert.ErrorIs(t, err, db.ErrInvalidTableRef)
	})
}
