// This file implements the Backend interface against the Docker Engine
// REST API. The engine is reached over its unix socket by default; a TCP
// base URL can be supplied instead (used by tests and remote engines).
package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// apiVersion pins the Engine API version prefix for all requests.
	apiVersion = "v1.43"

	defaultSocketPath  = "/var/run/docker.sock"
	defaultStopTimeout = 10 * time.Second
)

// APIBackend implements Backend using the Docker Engine REST API.
//
// Container operations carry no client-side timeout beyond the caller's
// context: image pulls can be arbitrarily large. Ping and Info use short
// per-call deadlines since they are liveness probes.
type APIBackend struct {
	HTTPClient *http.Client // Custom HTTP client (optional)
	BaseURL    string       // Engine base URL; "http://unix" when using the socket
	SocketPath string       // Unix socket path (ignored when BaseURL targets TCP)

	StopTimeout time.Duration // Grace period passed to container stop
}

var _ Backend = (*APIBackend)(nil)

// NewAPIBackend creates an APIBackend for the engine socket at socketPath.
// An empty socketPath selects the platform default.
func NewAPIBackend(socketPath string) *APIBackend {
	path := strings.TrimSpace(socketPath)
	if path == "" {
		path = defaultSocketPath
	}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
	}
	return &APIBackend{
		HTTPClient:  &http.Client{Transport: transport},
		BaseURL:     "http://unix",
		SocketPath:  path,
		StopTimeout: defaultStopTimeout,
	}
}

// NewAPIBackendURL creates an APIBackend for a TCP engine endpoint.
func NewAPIBackendURL(baseURL string) *APIBackend {
	return &APIBackend{
		HTTPClient:  &http.Client{},
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		StopTimeout: defaultStopTimeout,
	}
}

// Ping probes engine liveness via GET /_ping.
func (b *APIBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := b.doRequest(ctx, http.MethodGet, "/_ping", nil)
	return err
}

// PullImage pulls ref and drains the progress stream until the pull
// completes.
func (b *APIBackend) PullImage(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fmt.Errorf("image reference is required")
	}
	image, tag := splitImageRef(ref)
	params := url.Values{}
	params.Set("fromImage", image)
	params.Set("tag", tag)

	resp, err := b.doStream(ctx, http.MethodPost, "/images/create?"+params.Encode())
	if err != nil {
		if isEngineNotFound(err) {
			return fmt.Errorf("%w: %v", ErrImageNotFound, err)
		}
		return err
	}
	defer resp.Body.Close()

	// The engine streams JSON progress messages; a pull failure surfaces
	// as an "error" field mid-stream with HTTP 200 already sent.
	dec := json.NewDecoder(resp.Body)
	for {
		var msg struct {
			Error string `json:"error"`
		}
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read pull stream for %s: %w", ref, err)
		}
		if msg.Error != "" {
			if strings.Contains(strings.ToLower(msg.Error), "not found") {
				return fmt.Errorf("%w: %s", ErrImageNotFound, msg.Error)
			}
			return fmt.Errorf("pull %s: %s", ref, msg.Error)
		}
	}
}

// CreateContainer creates a named container publishing cfg.ContainerPort on
// cfg.HostPort with the configured restart policy.
func (b *APIBackend) CreateContainer(ctx context.Context, name string, cfg ContainerConfig) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("container name is required")
	}
	if cfg.Image == "" {
		return "", fmt.Errorf("container image is required")
	}
	portKey := fmt.Sprintf("%d/tcp", cfg.ContainerPort)
	restart := cfg.RestartPolicy
	if restart == "" {
		restart = "unless-stopped"
	}

	body := createContainerRequest{
		Image:        cfg.Image,
		ExposedPorts: map[string]struct{}{portKey: {}},
		HostConfig: hostConfig{
			PortBindings: map[string][]portBinding{
				portKey: {{HostPort: strconv.Itoa(cfg.HostPort)}},
			},
			RestartPolicy: restartPolicy{Name: restart},
		},
	}

	data, err := b.doJSON(ctx, http.MethodPost, "/containers/create?name="+url.QueryEscape(name), body)
	if err != nil {
		if isEngineConflict(err) {
			return "", fmt.Errorf("%w: %v", ErrConflict, err)
		}
		if isEngineNotFound(err) {
			return "", fmt.Errorf("%w: %v", ErrImageNotFound, err)
		}
		return "", err
	}
	var resp struct {
		ID string `json:"Id"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parse create response: %w", err)
	}
	return resp.ID, nil
}

// StartContainer starts a container by name. A 304 from the engine means
// the container was already running and is treated as success.
func (b *APIBackend) StartContainer(ctx context.Context, name string) error {
	endpoint := fmt.Sprintf("/containers/%s/start", url.PathEscape(name))
	_, err := b.doRequest(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		if isEngineNotFound(err) {
			return fmt.Errorf("%w: %v", ErrContainerNotFound, err)
		}
		return err
	}
	return nil
}

// StopContainer stops a container by name with the configured grace period.
// A 304 (already stopped) is success.
func (b *APIBackend) StopContainer(ctx context.Context, name string) error {
	timeout := int(b.stopTimeout().Seconds())
	endpoint := fmt.Sprintf("/containers/%s/stop?t=%d", url.PathEscape(name), timeout)
	_, err := b.doRequest(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		if isEngineNotFound(err) {
			return fmt.Errorf("%w: %v", ErrContainerNotFound, err)
		}
		return err
	}
	return nil
}

// InspectContainer returns the state of a named container.
func (b *APIBackend) InspectContainer(ctx context.Context, name string) (ContainerState, error) {
	endpoint := fmt.Sprintf("/containers/%s/json", url.PathEscape(name))
	data, err := b.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		if isEngineNotFound(err) {
			return ContainerState{}, fmt.Errorf("%w: %v", ErrContainerNotFound, err)
		}
		return ContainerState{}, err
	}
	var resp struct {
		ID    string `json:"Id"`
		Name  string `json:"Name"`
		State struct {
			Status  string `json:"Status"`
			Running bool   `json:"Running"`
		} `json:"State"`
		Config struct {
			Image string `json:"Image"`
		} `json:"Config"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return ContainerState{}, fmt.Errorf("parse inspect response: %w", err)
	}
	return ContainerState{
		ID:      resp.ID,
		Name:    strings.TrimPrefix(resp.Name, "/"),
		Image:   resp.Config.Image,
		Running: resp.State.Running,
		Status:  resp.State.Status,
	}, nil
}

// Info returns runtime-level host counters from GET /info.
func (b *APIBackend) Info(ctx context.Context) (HostInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	data, err := b.doRequest(ctx, http.MethodGet, "/info", nil)
	if err != nil {
		return HostInfo{}, err
	}
	var resp struct {
		Containers        int    `json:"Containers"`
		ContainersRunning int    `json:"ContainersRunning"`
		ContainersStopped int    `json:"ContainersStopped"`
		Images            int    `json:"Images"`
		NCPU              int    `json:"NCPU"`
		MemTotal          int64  `json:"MemTotal"`
		ServerVersion     string `json:"ServerVersion"`
		OperatingSystem   string `json:"OperatingSystem"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return HostInfo{}, fmt.Errorf("parse info response: %w", err)
	}
	return HostInfo(resp), nil
}

// PruneContainers removes stopped containers.
func (b *APIBackend) PruneContainers(ctx context.Context) error {
	_, err := b.doRequest(ctx, http.MethodPost, "/containers/prune", nil)
	return err
}

// PruneImages removes dangling images.
func (b *APIBackend) PruneImages(ctx context.Context) error {
	_, err := b.doRequest(ctx, http.MethodPost, "/images/prune", nil)
	return err
}

// PruneVolumes removes unused anonymous volumes.
func (b *APIBackend) PruneVolumes(ctx context.Context) error {
	_, err := b.doRequest(ctx, http.MethodPost, "/volumes/prune", nil)
	return err
}

// PruneNetworks removes unused networks.
func (b *APIBackend) PruneNetworks(ctx context.Context) error {
	_, err := b.doRequest(ctx, http.MethodPost, "/networks/prune", nil)
	return err
}

// Wire shapes for POST /containers/create. Field names follow the engine's
// capitalized JSON convention.

type createContainerRequest struct {
	Image        string              `json:"Image"`
	ExposedPorts map[string]struct{} `json:"ExposedPorts,omitempty"`
	HostConfig   hostConfig          `json:"HostConfig"`
}

type hostConfig struct {
	PortBindings  map[string][]portBinding `json:"PortBindings,omitempty"`
	RestartPolicy restartPolicy            `json:"RestartPolicy"`
}

type portBinding struct {
	HostIP   string `json:"HostIp,omitempty"`
	HostPort string `json:"HostPort"`
}

type restartPolicy struct {
	Name string `json:"Name"`
}

// engineError carries the engine's HTTP status for classification.
type engineError struct {
	Status  int
	Message string
}

func (e *engineError) Error() string {
	return fmt.Sprintf("engine error (status %d): %s", e.Status, e.Message)
}

func (b *APIBackend) doJSON(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = strings.NewReader(string(data))
	}
	return b.doRequestBody(ctx, method, endpoint, body, "application/json")
}

func (b *APIBackend) doRequest(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	return b.doRequestBody(ctx, method, endpoint, body, "")
}

func (b *APIBackend) doRequestBody(ctx context.Context, method, endpoint string, body io.Reader, contentType string) ([]byte, error) {
	resp, err := b.send(ctx, method, endpoint, body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := classifyStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// doStream issues a request and returns the raw response for streaming
// endpoints (image pull). The caller owns the body.
func (b *APIBackend) doStream(ctx context.Context, method, endpoint string) (*http.Response, error) {
	resp, err := b.send(ctx, method, endpoint, nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = resp.Body.Close()
		if err := classifyStatus(resp.StatusCode, respBody); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (b *APIBackend) send(ctx context.Context, method, endpoint string, body io.Reader, contentType string) (*http.Response, error) {
	url := b.BaseURL + "/" + apiVersion + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := b.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request failed: %w", err)
	}
	return resp, nil
}

func (b *APIBackend) client() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

func (b *APIBackend) stopTimeout() time.Duration {
	if b.StopTimeout > 0 {
		return b.StopTimeout
	}
	return defaultStopTimeout
}

func classifyStatus(status int, body []byte) error {
	// 304 means start/stop was already satisfied; the engine treats it as
	// a no-op and so do we.
	if status < 400 {
		return nil
	}
	msg := strings.TrimSpace(string(body))
	var parsed struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
		msg = parsed.Message
	}
	return &engineError{Status: status, Message: msg}
}

func isEngineNotFound(err error) bool {
	var engineErr *engineError
	return errors.As(err, &engineErr) && engineErr.Status == http.StatusNotFound
}

func isEngineConflict(err error) bool {
	var engineErr *engineError
	return errors.As(err, &engineErr) && engineErr.Status == http.StatusConflict
}

func splitImageRef(ref string) (image, tag string) {
	// The tag separator is the last colon after the last slash; anything
	// before that may be a registry host with a port.
	slash := strings.LastIndex(ref, "/")
	colon := strings.LastIndex(ref, ":")
	if colon > slash {
		return ref[:colon], ref[colon+1:]
	}
	return ref, "latest"
}
