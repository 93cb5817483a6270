package glide

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AgentError is a failure reported by the agent itself, as opposed to a
// transport failure reaching it.
type AgentError struct {
	Status  int
	Message string
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("glide: agent error (status %d): %s", e.Status, e.Message)
}

// Client talks to one node's agent. The zero value is not usable; construct
// with NewClient.
type Client struct {
	BaseURL    string
	Secret     string
	HTTPClient *http.Client
}

// NewClient builds a client for the agent at baseURL, authenticating with the
// node's shared secret.
func NewClient(baseURL, secret string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("glide: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("glide: decoding %s %s response: %w", method, path, err)
	}
	if !env.Success || resp.StatusCode >= 400 {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &AgentError{Status: resp.StatusCode, Message: msg}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("glide: decoding %s %s data: %w", method, path, err)
		}
	}
	return nil
}

// Ping checks basic reachability and secret validity.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil)
}

// Health fetches the node's current health snapshot.
func (c *Client) Health(ctx context.Context) (*HealthStats, error) {
	var stats HealthStats
	if err := c.do(ctx, http.MethodGet, "/health", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreateContainer provisions a game server container on the node.
func (c *Client) CreateContainer(ctx context.Context, req CreateContainerRequest) (*Container, error) {
	var ct Container
	if err := c.do(ctx, http.MethodPost, "/containers", req, &ct); err != nil {
		return nil, err
	}
	return &ct, nil
}

// DeleteContainer removes the container and its data from the node.
func (c *Client) DeleteContainer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/containers/"+url.PathEscape(id), nil, nil)
}

// ContainerStatus fetches the runtime status of one container.
func (c *Client) ContainerStatus(ctx context.Context, id string) (*ContainerStatus, error) {
	var st ContainerStatus
	if err := c.do(ctx, http.MethodGet, "/containers/"+url.PathEscape(id)+"/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// StartContainer starts a stopped container.
func (c *Client) StartContainer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/containers/"+url.PathEscape(id)+"/start", nil, nil)
}

// StopContainer stops a running container.
func (c *Client) StopContainer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/containers/"+url.PathEscape(id)+"/stop", nil, nil)
}

// RestartContainer restarts a container.
func (c *Client) RestartContainer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/containers/"+url.PathEscape(id)+"/restart", nil, nil)
}

// SendCommand runs a console command inside the container and returns its
// output.
func (c *Client) SendCommand(ctx context.Context, id, command string) (string, error) {
	var out struct {
		Output string `json:"output"`
	}
	body := map[string]string{"command": command}
	if err := c.do(ctx, http.MethodPost, "/containers/"+url.PathEscape(id)+"/command", body, &out); err != nil {
		return "", err
	}
	return out.Output, nil
}

// ListFiles lists the container's data directory at the given path.
func (c *Client) ListFiles(ctx context.Context, id, dir string) ([]FileEntry, error) {
	var entries []FileEntry
	path := "/containers/" + url.PathEscape(id) + "/files"
	if dir != "" {
		path += "?path=" + url.QueryEscape(dir)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Logs fetches the container's recent log lines.
func (c *Client) Logs(ctx context.Context, id string, tail int) ([]string, error) {
	var lines []string
	path := "/containers/" + url.PathEscape(id) + "/logs"
	if tail > 0 {
		path += fmt.Sprintf("?tail=%d", tail)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}
