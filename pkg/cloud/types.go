package cloud

// ImportJobStatus is the lifecycle state of an import job
type ImportJobStatus string

// Import job states reported by the API
const (
	ImportJobRegistered ImportJobStatus = "REGISTERED"
	ImportJobSent       ImportJobStatus = "SENT"
	ImportJobInProgress ImportJobStatus = "IN_PROGRESS"
	ImportJobSucceeded  ImportJobStatus = "SUCCEEDED"
	ImportJobFailed     ImportJobStatus = "FAILED"
)

// Terminal reports whether the job will not change state anymore
func (s ImportJobStatus) Terminal() bool {
	return s == ImportJobSucceeded || s == ImportJobFailed
}

// Cluster is a managed CrateDB cluster
type Cluster struct {
	URL       string `json:"url"`
	ProjectID string `json:"project_id"`
}

// ImportJobProgress carries the human-readable progress of a job
type ImportJobProgress struct {
	Message string `json:"message"`
}

// ImportJobDestination is where an import job writes
type ImportJobDestination struct {
	Table string `json:"table"`
}

// ImportJob is an asynchronous data import into a cluster
type ImportJob struct {
	ID          string               `json:"id"`
	Status      ImportJobStatus      `json:"status"`
	Progress    ImportJobProgress    `json:"progress"`
	Destination ImportJobDestination `json:"destination"`
}

// ImportJobURL points an import job at a remote file
type ImportJobURL struct {
	URL string `json:"url"`
}

// ImportJobRequest submits an import job
type ImportJobRequest struct {
	Type        string               `json:"type"`
	Format      string               `json:"format"`
	Compression string               `json:"compression,omitempty"`
	URL         *ImportJobURL        `json:"url,omitempty"`
	Destination ImportJobDestination `json:"destination"`
}
