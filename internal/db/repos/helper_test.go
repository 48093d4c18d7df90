package repos_test

import (
	"context"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/crate/testdrive/internal/config"
	"github.com/crate/testdrive/internal/constants"
	"github.com/crate/testdrive/internal/db/models"
	"github.com/crate/testdrive/internal/db/repos"
	"github.com/crate/testdrive/test"
)

// DBRepositoryTestSuite provides a base test suite for repository tests
type DBRepositoryTestSuite struct {
	suite.Suite
	db         *gorm.DB
	dir        string
	ctx        context.Context
	settings   *config.Settings
	policyRepo *repos.RetentionPolicyRepository
}

func (s *DBRepositoryTestSuite) SetupTest() {
	gdb, dir, err := test.NewFileBasedTestDB(constants.TestdriveExtSchema, constants.TestdriveDataSchema)
	s.Require().NoError(err, "Failed to create test database")

	s.db = gdb
	s.dir = dir
	s.ctx = context.Background()
	s.settings = &config.Settings{ExtSchema: constants.TestdriveExtSchema}

	s.policyRepo, err = repos.NewRetentionPolicyRepository(s.db, s.settings)
	s.Require().NoError(err)
	s.Require().NoError(s.policyRepo.EnsureTable(s.ctx))
}

func (s *DBRepositoryTestSuite) TearDownTest() {
	test.CleanupTestDB(s.db, s.dir)
}

// Helper methods for creating test data

func (s *DBRepositoryTestSuite) samplePolicy(id string) *models.RetentionPolicy {
	return &models.RetentionPolicy{
		ID:              id,
		Strategy:        models.RetentionStrategyDelete,
		TableSchema:     constants.TestdriveDataSchema,
		TableName:       models.RawMetricsTable,
		PartitionColumn: "ts_day",
		RetentionPeriod: 1,
	}
}

func (s *DBRepositoryTestSuite) createTestPolicy(id string) *models.RetentionPolicy {
	policy := s.samplePolicy(id)
	s.Require().NoError(s.policyRepo.Create(s.ctx, policy))
	return policy
}
