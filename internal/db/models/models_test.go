package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeclarations(t *testing.T) {
	decls := Declarations()
	assert.Len(t, decls, 8)
	assert.Equal(t, Declaration{Namespace: NamespaceExt, Table: RetentionPolicyTable}, decls[0])

	// callers get a copy
	decls[0].Table = "mutated"
	assert.Equal(t, RetentionPolicyTable, Declarations()[0].Table)
}

func TestNamespaceString(t *testing.T) {
	assert.Equal(t, "ext", NamespaceExt.String())
	assert.Equal(t, "data", NamespaceData.String())
	assert.Equal(t, "io", NamespaceIO.String())
	assert.Equal(t, "unknown", Namespace(42).String())
}

func TestRetentionPolicyValidate(t *testing.T) {
	valid := RetentionPolicy{
		ID:              "policy-1",
		Strategy:        RetentionStrategyDelete,
		TableSchema:     "doc",
		TableName:       "raw_metrics",
		PartitionColumn: "ts_day",
		RetentionPeriod: 1,
	}

	tests := []struct {
		name    string
		mutate  func(p *RetentionPolicy)
		wantErr bool
	}{
		{name: "valid", mutate: func(_ *RetentionPolicy) {}},
		{name: "missing id", mutate: func(p *RetentionPolicy) { p.ID = "" }, wantErr: true},
		{name: "unknown strategy", mutate: func(p *RetentionPolicy) { p.Strategy = "ARCHIVE" }, wantErr: true},
		{name: "snapshot without repository", mutate: func(p *RetentionPolicy) { p.Strategy = RetentionStrategySnapshot }, wantErr: true},
		{
			name: "snapshot with repository",
			mutate: func(p *RetentionPolicy) {
				p.Strategy = RetentionStrategySnapshot
				p.TargetRepositoryName = "backup"
			},
		},
		{name: "missing table", mutate: func(p *RetentionPolicy) { p.TableName = "" }, wantErr: true},
		{name: "zero period", mutate: func(p *RetentionPolicy) { p.RetentionPeriod = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
