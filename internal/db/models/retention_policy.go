package models

import (
	"fmt"
)

// RetentionStrategy is the action taken when a partition expires
type RetentionStrategy string

// Retention strategies
const (
	RetentionStrategyDelete     RetentionStrategy = "DELETE"
	RetentionStrategyReallocate RetentionStrategy = "REALLOCATE"
	RetentionStrategySnapshot   RetentionStrategy = "SNAPSHOT"
)

// RetentionPolicy is a row of the retention policy subsystem table
type RetentionPolicy struct {
	ID                   string            `json:"id" gorm:"column:id;primaryKey"`
	Strategy             RetentionStrategy `json:"strategy" gorm:"column:strategy"`
	TableSchema          string            `json:"table_schema" gorm:"column:table_schema"`
	TableName            string            `json:"table_name" gorm:"column:table_name"`
	PartitionColumn      string            `json:"partition_column" gorm:"column:partition_column"`
	RetentionPeriod      int               `json:"retention_period" gorm:"column:retention_period"`
	TargetRepositoryName string            `json:"target_repository_name,omitempty" gorm:"column:target_repository_name"`
}

// Validate checks the policy fields required by every strategy
func (p *RetentionPolicy) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("retention policy id is required")
	}
	switch p.Strategy {
	case RetentionStrategyDelete, RetentionStrategyReallocate:
	case RetentionStrategySnapshot:
		if p.TargetRepositoryName == "" {
			return fmt.Errorf("strategy %s requires a target repository", p.Strategy)
		}
	default:
		return fmt.Errorf("unknown retention strategy: %q", p.Strategy)
	}
	if p.TableSchema == "" || p.TableName == "" {
		return fmt.Errorf("retention policy %s: table schema and name are required", p.ID)
	}
	if p.RetentionPeriod <= 0 {
		return fmt.Errorf("retention policy %s: retention period must be positive", p.ID)
	}
	return nil
}
