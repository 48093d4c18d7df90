package db

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/crate/testdrive/internal/config"
	"github.com/crate/testdrive/internal/constants"
	"github.com/crate/testdrive/internal/db/models"
)

// SchemaFor resolves the schema name backing a namespace
func SchemaFor(settings *config.Settings, ns models.Namespace) (string, error) {
	switch ns {
	case models.NamespaceExt:
		if settings == nil {
			return "", fmt.Errorf("settings are required to resolve the %s namespace", ns)
		}
		return settings.ExtSchema, nil
	case models.NamespaceData:
		return constants.TestdriveDataSchema, nil
	case models.NamespaceIO:
		return constants.TestdriveIOSchema, nil
	default:
		return "", fmt.Errorf("unknown namespace %d", ns)
	}
}

// ResolveCatalog turns table declarations into fully qualified references.
// Duplicates are dropped, first occurrence wins.
func ResolveCatalog(settings *config.Settings, decls []models.Declaration) ([]TableRef, error) {
	refs := make([]TableRef, 0, len(decls))
	for _, decl := range decls {
		schema, err := SchemaFor(settings, decl.Namespace)
		if err != nil {
			return nil, err
		}
		ref := TableRef{Schema: schema, Name: decl.Table}
		if err := ref.Validate(); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return lo.Uniq(refs), nil
}

// DefaultCatalog returns the reset list for every declared table.
//
// Tables which are not declared in the models package are not reset and may
// carry rows from one test to the next.
func DefaultCatalog(settings *config.Settings) ([]TableRef, error) {
	return ResolveCatalog(settings, models.Declarations())
}

// Strings renders references in their quoted form
func Strings(refs []TableRef) []string {
	return lo.Map(refs, func(ref TableRef, _ int) string {
		return ref.String()
	})
}
