package mocks

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/crate/testdrive/internal/logger"
)

// ErrInvalidStub is returned when a stub cannot be registered
var ErrInvalidStub = errors.New("invalid stub")

// StubResponse is a canned response served by the simulator
type StubResponse struct {
	Status int
	// Body is encoded as JSON; a nil body sends the status only
	Body interface{}
}

type routeKey struct {
	method string
	path   string
}

func (k routeKey) String() string {
	return k.method + " " + k.path
}

// stub serves its responses in registration order, one per call, and keeps
// repeating the last one.
type stub struct {
	responses []StubResponse
	calls     int
	bodies    [][]byte
}

func (s *stub) next() StubResponse {
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i]
}

// CloudSimulator is an in-process stand-in for the cloud control-plane API.
// Requests for unregistered routes get a 404 and are recorded as unmatched.
type CloudSimulator struct {
	App    *fiber.App
	Server *httptest.Server

	mu        sync.Mutex
	stubs     map[routeKey]*stub
	unmatched []string
}

// NewCloudSimulator starts a simulator with no routes registered on a
// local httptest server.
func NewCloudSimulator() *CloudSimulator {
	s := NewCloudSimulatorApp()
	s.Server = httptest.NewServer(adaptor.FiberApp(s.App))
	return s
}

// NewCloudSimulatorApp creates a simulator without starting a server. Use
// Serve to expose it.
func NewCloudSimulatorApp() *CloudSimulator {
	s := &CloudSimulator{stubs: make(map[routeKey]*stub)}

	s.App = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	s.App.Use(logger.APILogger())
	s.App.Use(s.handle)
	return s
}

// Serve serves the simulator on ln until the app is shut down
func (s *CloudSimulator) Serve(ln net.Listener) error {
	return s.App.Listener(ln)
}

func (s *CloudSimulator) handle(c *fiber.Ctx) error {
	key := routeKey{method: c.Method(), path: c.Path()}

	s.mu.Lock()
	st, ok := s.stubs[key]
	if !ok {
		s.unmatched = append(s.unmatched, key.String())
		s.mu.Unlock()
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("no stub registered for %s", key),
		})
	}
	// fasthttp reuses the request buffer
	st.bodies = append(st.bodies, append([]byte(nil), c.Body()...))
	resp := st.next()
	s.mu.Unlock()

	if resp.Body == nil {
		return c.SendStatus(resp.Status)
	}
	return c.Status(resp.Status).JSON(resp.Body)
}

// Register adds responses for a route. Registering the same route again
// appends to its response sequence.
func (s *CloudSimulator) Register(method, path string, responses ...StubResponse) error {
	if method == "" {
		return fmt.Errorf("%w: empty method", ErrInvalidStub)
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: path %q must start with /", ErrInvalidStub, path)
	}
	if len(responses) == 0 {
		return fmt.Errorf("%w: %s %s has no responses", ErrInvalidStub, method, path)
	}
	for _, r := range responses {
		if r.Status < 100 || r.Status > 599 {
			return fmt.Errorf("%w: status %d", ErrInvalidStub, r.Status)
		}
	}

	key := routeKey{method: strings.ToUpper(method), path: path}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stubs[key]
	if !ok {
		st = &stub{}
		s.stubs[key] = st
	}
	st.responses = append(st.responses, responses...)
	return nil
}

// RegisterJSON registers a single response with a JSON body
func (s *CloudSimulator) RegisterJSON(method, path string, status int, body interface{}) error {
	return s.Register(method, path, StubResponse{Status: status, Body: body})
}

// RegisterCluster installs the import job lifecycle of a cluster: the
// cluster lookup, the job submission acknowledged as REGISTERED, and the job
// listing showing the job as SUCCEEDED.
func (s *CloudSimulator) RegisterCluster(clusterID string) error {
	if clusterID == "" {
		return fmt.Errorf("%w: empty cluster id", ErrInvalidStub)
	}
	if err := s.RegisterJSON(http.MethodGet, ClusterPath(clusterID), fiber.StatusOK, DefaultClusterResponse()); err != nil {
		return err
	}
	if err := s.RegisterJSON(http.MethodPost, ImportJobsPath(clusterID), fiber.StatusOK, DefaultImportJobCreatedResponse()); err != nil {
		return err
	}
	return s.RegisterJSON(http.MethodGet, ImportJobsPath(clusterID), fiber.StatusOK, DefaultImportJobListResponse())
}

// Calls returns how often a registered route was served
func (s *CloudSimulator) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stubs[routeKey{method: strings.ToUpper(method), path: path}]; ok {
		return st.calls
	}
	return 0
}

// Bodies returns the request bodies a registered route received, in order
func (s *CloudSimulator) Bodies(method, path string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stubs[routeKey{method: strings.ToUpper(method), path: path}]
	if !ok {
		return nil
	}
	out := make([][]byte, len(st.bodies))
	copy(out, st.bodies)
	return out
}

// Unmatched returns the "METHOD path" of every request no stub answered
func (s *CloudSimulator) Unmatched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.unmatched))
	copy(out, s.unmatched)
	return out
}

// Reset drops all routes and recorded requests
func (s *CloudSimulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs = make(map[routeKey]*stub)
	s.unmatched = nil
}

// URL returns the base URL of the httptest server, "" without one
func (s *CloudSimulator) URL() string {
	if s.Server == nil {
		return ""
	}
	return s.Server.URL
}

// Close shuts the simulator down
func (s *CloudSimulator) Close() {
	if s.Server != nil {
		s.Server.Close()
	}
	_ = s.App.Shutdown()
}

// Transport returns a RoundTripper sending requests for the console host to
// the httptest server. Requests for other hosts pass through unchanged.
func (s *CloudSimulator) Transport() http.RoundTripper {
	target, _ := url.Parse(s.Server.URL)
	return &redirectTransport{
		target: target,
		host:   ConsoleHost,
		base:   s.Server.Client().Transport,
	}
}

// Client returns an http.Client using Transport
func (s *CloudSimulator) Client() *http.Client {
	return &http.Client{Transport: s.Transport()}
}

type redirectTransport struct {
	target *url.URL
	host   string
	base   http.RoundTripper
}

func (t *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Hostname() != t.host {
		return t.base.RoundTrip(req)
	}
	redirected := req.Clone(req.Context())
	redirected.URL.Scheme = t.target.Scheme
	redirected.URL.Host = t.target.Host
	redirected.Host = t.target.Host
	return t.base.RoundTrip(redirected)
}
