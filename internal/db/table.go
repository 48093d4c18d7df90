package db

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTableRef is returned for table identifiers which are not fully qualified
var ErrInvalidTableRef = errors.New("invalid table reference")

// TableRef is a fully qualified table identifier
type TableRef struct {
	Schema string
	Name   string
}

// String renders the reference as "schema"."table"
func (r TableRef) String() string {
	return QuoteIdent(r.Schema) + "." + QuoteIdent(r.Name)
}

// Validate checks that both parts are present and printable
func (r TableRef) Validate() error {
	if r.Schema == "" || r.Name == "" {
		return fmt.Errorf("%w: schema and table name are required, got %s", ErrInvalidTableRef, r)
	}
	if strings.ContainsRune(r.Schema, 0) || strings.ContainsRune(r.Name, 0) {
		return fmt.Errorf("%w: identifiers must not contain NUL", ErrInvalidTableRef)
	}
	return nil
}

// QuoteIdent quotes an SQL identifier, doubling embedded quotes
func QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// ParseTableRef parses `"schema"."table"`, `schema.table` or a mix of both
func ParseTableRef(s string) (TableRef, error) {
	parts, err := splitIdents(strings.TrimSpace(s))
	if err != nil {
		return TableRef{}, fmt.Errorf("%w: %s: %v", ErrInvalidTableRef, s, err)
	}
	if len(parts) != 2 {
		return TableRef{}, fmt.Errorf("%w: %s: expected schema.table", ErrInvalidTableRef, s)
	}
	ref := TableRef{Schema: parts[0], Name: parts[1]}
	if err := ref.Validate(); err != nil {
		return TableRef{}, err
	}
	return ref, nil
}

// MustParseTableRef is like ParseTableRef but panics on error
func MustParseTableRef(s string) TableRef {
	ref, err := ParseTableRef(s)
	if err != nil {
		panic(err)
	}
	return ref
}

func splitIdents(s string) ([]string, error) {
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(s); {
		if s[i] == '"' {
			i++
			closed := false
			for i < len(s) {
				if s[i] == '"' {
					if i+1 < len(s) && s[i+1] == '"' {
						cur.WriteByte('"')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				cur.WriteByte(s[i])
				i++
			}
			if !closed {
				return nil, errors.New("unterminated quoted identifier")
			}
			if i < len(s) && s[i] != '.' {
				return nil, fmt.Errorf("unexpected %q after quoted identifier", s[i])
			}
			continue
		}
		if s[i] == '.' {
			parts = append(parts, cur.String())
			cur.Reset()
			i++
			continue
		}
		cur.WriteByte(s[i])
		i++
	}
	parts = append(parts, cur.String())
	return parts, nil
}
