// internal/api/client.go

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperr "sshConsole/internal/error"
	"sshConsole/internal/models"
)

const (
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is read for the detail.
	maxErrorBody = 64 << 10
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the dashboard backend root, e.g. "http://localhost:8080".
	BaseURL string
	// Token is sent as a bearer credential on every request. It is never
	// inspected or logged.
	Token string
	// HTTPClient is used for all requests. If nil, a client with DefaultTimeout is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client talks to the dashboard's REST API. It implements session.Backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

type openSessionResponse struct {
	SessionID string `json:"session_id"`
}

type commandRequest struct {
	Command string `json:"command"`
}

func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, apperr.New(apperr.ConfigError, "backend URL is required", nil)
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, apperr.New(apperr.ConfigError, fmt.Sprintf("invalid backend URL %q", config.BaseURL), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, apperr.New(apperr.ConfigError, fmt.Sprintf("backend URL %q must be http or https", config.BaseURL), nil)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		token:      config.Token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// OpenSession asks the backend to open an SSH session to target.
func (c *Client) OpenSession(ctx context.Context, target models.Target) (string, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/v1/ssh/sessions", target, nil)
	if err != nil {
		return "", err
	}
	var response openSessionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse open session response: %w", err)
	}
	if response.SessionID == "" {
		return "", fmt.Errorf("backend returned an empty session id")
	}
	return response.SessionID, nil
}

// CloseSession tears a session down. A session the backend no longer knows
// about counts as closed.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, sessionPath(sessionID), nil, nil)
	if IsStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

// PollOutput returns output produced since the previous poll.
func (c *Client) PollOutput(ctx context.Context, sessionID string) (models.PollResult, error) {
	body, err := c.doRequest(ctx, http.MethodGet, sessionPath(sessionID)+"/output", nil, nil)
	if err != nil {
		return models.PollResult{}, err
	}
	var result models.PollResult
	if err := json.Unmarshal(body, &result); err != nil {
		return models.PollResult{}, fmt.Errorf("failed to parse output response: %w", err)
	}
	return result, nil
}

func (c *Client) SendCommand(ctx context.Context, sessionID, command string) error {
	_, err := c.doRequest(ctx, http.MethodPost, sessionPath(sessionID)+"/command", commandRequest{Command: command}, nil)
	return err
}

// ListServers returns the dashboard's server inventory.
func (c *Client) ListServers(ctx context.Context) ([]models.Server, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/v1/servers", nil, nil)
	if err != nil {
		return nil, err
	}
	var servers []models.Server
	if err := json.Unmarshal(body, &servers); err != nil {
		return nil, fmt.Errorf("failed to parse server list: %w", err)
	}
	return servers, nil
}

// ListFiles lists a remote directory through an open session.
func (c *Client) ListFiles(ctx context.Context, sessionID, path string) ([]models.RemoteFile, error) {
	body, err := c.doRequest(ctx, http.MethodGet, sessionPath(sessionID)+"/files", nil, url.Values{"path": {path}})
	if err != nil {
		return nil, err
	}
	var files []models.RemoteFile
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, fmt.Errorf("failed to parse file list: %w", err)
	}
	return files, nil
}

// DownloadFile streams a remote file into w and returns the bytes written.
func (c *Client) DownloadFile(ctx context.Context, sessionID, path string, w io.Writer) (int64, error) {
	response, err := c.send(ctx, http.MethodGet, sessionPath(sessionID)+"/files/content", nil, url.Values{"path": {path}})
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()

	n, err := io.Copy(w, response.Body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", path, err)
	}
	return n, nil
}

// Health reports whether the backend answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil, nil)
	return err
}

func sessionPath(sessionID string) string {
	return "/api/v1/ssh/sessions/" + url.PathEscape(sessionID)
}

// doRequest performs a request and returns the body of a 2xx response.
func (c *Client) doRequest(ctx context.Context, method, path string, requestBody any, query url.Values) ([]byte, error) {
	response, err := c.send(ctx, method, path, requestBody, query)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// send performs a request and converts any non-2xx response into an *Error.
// On success the caller owns the response body.
func (c *Client) send(ctx context.Context, method, path string, requestBody any, query url.Values) (*http.Response, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request to %s %s failed: %w", method, path, err)
	}
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return response, nil
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
	apiErr := &Error{StatusCode: response.StatusCode}
	if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil || apiErr.Detail == "" {
		apiErr.Detail = strings.TrimSpace(string(raw))
	}
	c.logger.Debug("backend request failed",
		"method", method,
		"path", path,
		"status", response.StatusCode,
	)
	return nil, apiErr
}
