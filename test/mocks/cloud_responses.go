package mocks

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ConsoleHost is the host of the cloud control-plane API
const ConsoleHost = "console.cratedb.cloud"

// Default test values for the simulated cluster
var (
	DefaultClusterID  = "e1e38d92-a650-48f1-8a70-8133f2d5c400"
	DefaultClusterURL = "https://testdrive.example.org:4200/"
	DefaultProjectID  = "3b6b7c82-d0ab-458c-ae6f-88f8346765ee"
)

// Default test values for the simulated import job
var (
	DefaultJobID           = "testdrive-job-id"
	DefaultJobMessage      = "Import succeeded"
	DefaultJobTargetTable  = "basic"
	DefaultJobStatusCreate = "REGISTERED"
	DefaultJobStatusDone   = "SUCCEEDED"
)

// ClusterPath returns the API path of a cluster
func ClusterPath(clusterID string) string {
	return fmt.Sprintf("/api/v2/clusters/%s/", clusterID)
}

// ImportJobsPath returns the API path of a cluster's import jobs
func ImportJobsPath(clusterID string) string {
	return ClusterPath(clusterID) + "import-jobs/"
}

// DefaultClusterResponse is the body served for GET on a cluster
func DefaultClusterResponse() fiber.Map {
	return fiber.Map{
		"url":        DefaultClusterURL,
		"project_id": DefaultProjectID,
	}
}

// DefaultImportJobCreatedResponse is the body served when an import job is submitted
func DefaultImportJobCreatedResponse() fiber.Map {
	return fiber.Map{
		"id":     DefaultJobID,
		"status": DefaultJobStatusCreate,
	}
}

// DefaultImportJobListResponse is the body served when listing import jobs:
// the submitted job, already finished.
func DefaultImportJobListResponse() []fiber.Map {
	return []fiber.Map{
		{
			"id":          DefaultJobID,
			"status":      DefaultJobStatusDone,
			"progress":    fiber.Map{"message": DefaultJobMessage},
			"destination": fiber.Map{"table": DefaultJobTargetTable},
		},
	}
}
