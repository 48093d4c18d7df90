// Package cloud provides a client for the import job API of CrateDB Cloud
package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/crate/testdrive/internal/logger"
)

const (
	// DefaultBaseURL is the cloud control-plane API
	DefaultBaseURL = "https://console.cratedb.cloud"
	// DefaultTimeout is the default timeout for API requests
	DefaultTimeout = 30 * time.Second
	// DefaultPollInterval is how often WaitForImportJob polls by default
	DefaultPollInterval = 2 * time.Second
)

// ErrImportJobFailed is returned when an import job ends in FAILED
var ErrImportJobFailed = errors.New("import job failed")

// Client is the interface for the cloud API client
type Client interface {
	GetCluster(ctx context.Context, clusterID string) (Cluster, error)
	CreateImportJob(ctx context.Context, clusterID string, req ImportJobRequest) (ImportJob, error)
	ListImportJobs(ctx context.Context, clusterID string) ([]ImportJob, error)
	WaitForImportJob(ctx context.Context, clusterID, jobID string, interval time.Duration) (ImportJob, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration

	// APIKey and APISecret authenticate requests with basic auth when set
	APIKey    string
	APISecret string
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL   string
	timeout   time.Duration
	apiKey    string
	apiSecret string
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (*APIClient, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &APIClient{
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		timeout:   timeout,
		apiKey:    opts.APIKey,
		apiSecret: opts.APISecret,
	}, nil
}

func clusterEndpoint(clusterID string) string {
	return fmt.Sprintf("/api/v2/clusters/%s/", url.PathEscape(clusterID))
}

func importJobsEndpoint(clusterID string) string {
	return clusterEndpoint(clusterID) + "import-jobs/"
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Accept", "application/json")
	if c.apiKey != "" {
		agent.BasicAuth(c.apiKey, c.apiSecret)
	}
	if body != nil {
		agent.JSON(body)
	}
	return agent, nil
}

// doRequest sends the HTTP request and decodes the response into v
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) error {
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	if statusCode < 200 || statusCode >= 300 {
		return &fiber.Error{
			Code:    statusCode,
			Message: string(body),
		}
	}

	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}
	return nil
}

func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	return c.doRequest(agent, response)
}

// GetCluster returns a cluster by ID
func (c *APIClient) GetCluster(ctx context.Context, clusterID string) (Cluster, error) {
	var cluster Cluster
	err := c.executeRequest(ctx, http.MethodGet, clusterEndpoint(clusterID), nil, &cluster)
	return cluster, err
}

// CreateImportJob submits an import job to a cluster
func (c *APIClient) CreateImportJob(ctx context.Context, clusterID string, req ImportJobRequest) (ImportJob, error) {
	var job ImportJob
	err := c.executeRequest(ctx, http.MethodPost, importJobsEndpoint(clusterID), req, &job)
	return job, err
}

// ListImportJobs returns the import jobs of a cluster
func (c *APIClient) ListImportJobs(ctx context.Context, clusterID string) ([]ImportJob, error) {
	var jobs []ImportJob
	err := c.executeRequest(ctx, http.MethodGet, importJobsEndpoint(clusterID), nil, &jobs)
	return jobs, err
}

// WaitForImportJob polls the job list until the job reaches a terminal
// state. A job that is not listed yet is polled again.
func (c *APIClient) WaitForImportJob(ctx context.Context, clusterID, jobID string, interval time.Duration) (ImportJob, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		jobs, err := c.ListImportJobs(ctx, clusterID)
		if err != nil {
			if ctx.Err() != nil {
				return ImportJob{}, ctx.Err()
			}
			return ImportJob{}, fmt.Errorf("failed to list import jobs: %w", err)
		}
		for _, job := range jobs {
			if job.ID != jobID {
				continue
			}
			logger.DebugWithFields("import job status", map[string]interface{}{
				"cluster": clusterID,
				"job":     jobID,
				"status":  job.Status,
			})
			switch job.Status {
			case ImportJobSucceeded:
				return job, nil
			case ImportJobFailed:
				return job, fmt.Errorf("%w: %s", ErrImportJobFailed, job.Progress.Message)
			}
		}

		select {
		case <-ctx.Done():
			return ImportJob{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
