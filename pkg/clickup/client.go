package clickup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	apierrors "cufetch/pkg/errors"
	"cufetch/pkg/logger"
	"cufetch/pkg/ratelimit"
)

const (
	// DefaultTimeout bounds a single JSON API call
	DefaultTimeout = 30 * time.Second

	// DefaultDownloadTimeout bounds connecting and waiting for response headers on a download
	DefaultDownloadTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response body is kept
	maxErrorBody = 4096
)

// Options configures a Client. Nothing is read from the environment.
type Options struct {
	Token           string
	TeamID          string
	BaseURL         string
	Timeout         time.Duration
	DownloadTimeout time.Duration
	// Ceiling caps requests per minute; nil disables it
	Ceiling *ratelimit.Ceiling
	Logger  logger.Logger
	// HTTPClient overrides the client used for API calls
	HTTPClient *http.Client
}

// Client is an authenticated ClickUp v2 API client
type Client struct {
	httpClient     *http.Client
	downloadClient *http.Client
	token          string
	teamID         string
	baseURL        string
	ceiling        *ratelimit.Ceiling
	logger         logger.Logger
}

// New creates a new ClickUp API client
func New(opts Options) *Client {
	// Use default logger if none provided
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.clickup.com/api/v2"
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	downloadTimeout := opts.DownloadTimeout
	if downloadTimeout <= 0 {
		downloadTimeout = DefaultDownloadTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient:     httpClient,
		downloadClient: newDownloadClient(downloadTimeout),
		token:          opts.Token,
		teamID:         opts.TeamID,
		baseURL:        baseURL,
		ceiling:        opts.Ceiling,
		logger:         log,
	}
}

// newDownloadClient bounds connect and header wait but not the body transfer,
// so large attachments are not cut off mid-stream
func newDownloadClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
	}
	return &http.Client{Transport: transport}
}

// TeamID returns the configured workspace id
func (c *Client) TeamID() string {
	return c.teamID
}

// BaseURL returns the API root requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest waits on the ceiling, attaches auth and sends the request
func (c *Client) doRequest(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	if err := c.ceiling.Wait(ctx); err != nil {
		return nil, apierrors.NewNetworkError(rawURL, fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &apierrors.HTTPError{
			Type:    apierrors.ErrorTypeUnknown,
			URL:     rawURL,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	// Personal tokens are sent as-is, without a Bearer prefix
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Accept", "application/json")

	// Log the request
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    rawURL,
	})

	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      rawURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, apierrors.NewNetworkError(rawURL, err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      rawURL,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := c.checkResponseStatus(resp, rawURL); err != nil {
		return nil, err
	}
	return resp, nil
}

// checkResponseStatus turns any non-2xx response into an HTTPError and closes its body
func (c *Client) checkResponseStatus(resp *http.Response, rawURL string) error {
	if apierrors.IsSuccess(resp.StatusCode) {
		return nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	httpErr := apierrors.NewStatusError(resp.StatusCode, rawURL, string(body))

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    rawURL,
		"type":   string(httpErr.Type),
	}
	if httpErr.Type == apierrors.ErrorTypeServerError {
		c.logger.ErrorWithFields("server error", fields)
	} else {
		c.logger.WarnWithFields("API request rejected", fields)
	}
	return httpErr
}

// buildURL joins the base URL, an API path and an optional query
func (c *Client) buildURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Get performs a GET against an API path and decodes the JSON body into target
func (c *Client) Get(ctx context.Context, path string, query url.Values, target interface{}) error {
	rawURL := c.buildURL(path, query)

	resp, err := c.doRequest(ctx, c.httpClient, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierrors.NewNetworkError(rawURL, fmt.Errorf("failed to read response body: %w", err))
	}

	if err := json.Unmarshal(body, target); err != nil {
		// Create a preview of the body for debugging
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return apierrors.NewParsingError(resp.StatusCode, rawURL, err)
	}

	return nil
}

// Open starts a streamed GET for an attachment URL. The caller must close
// the response body. Non-2xx responses are returned as *errors.HTTPError.
func (c *Client) Open(ctx context.Context, rawURL string) (*http.Response, error) {
	c.logger.DebugWithFields("opening attachment", map[string]interface{}{
		"url": rawURL,
	})
	return c.doRequest(ctx, c.downloadClient, rawURL)
}

// Teams lists the workspaces the token has access to
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var response TeamsResponse
	if err := c.Get(ctx, teamsPath(), nil, &response); err != nil {
		return nil, err
	}
	return response.Teams, nil
}

// Spaces lists the spaces of a workspace
func (c *Client) Spaces(ctx context.Context, teamID string) ([]Space, error) {
	var response SpacesResponse
	if err := c.Get(ctx, spacesPath(teamID), nil, &response); err != nil {
		return nil, err
	}
	return response.Spaces, nil
}

// FolderlessLists lists the lists attached directly to a space
func (c *Client) FolderlessLists(ctx context.Context, spaceID string) ([]List, error) {
	var response ListsResponse
	if err := c.Get(ctx, folderlessListsPath(spaceID), nil, &response); err != nil {
		return nil, err
	}
	return response.Lists, nil
}

// Folders lists the folders of a space, each with its lists
func (c *Client) Folders(ctx context.Context, spaceID string) ([]Folder, error) {
	var response FoldersResponse
	if err := c.Get(ctx, foldersPath(spaceID), nil, &response); err != nil {
		return nil, err
	}
	return response.Folders, nil
}

// TasksPage fetches one page of tasks in a list, closed tasks included
func (c *Client) TasksPage(ctx context.Context, listID string, page int) (*TasksPage, error) {
	c.logger.DebugWithFields("fetching task page", map[string]interface{}{
		"list_id": listID,
		"page":    page,
	})

	var response TasksPage
	if err := c.Get(ctx, tasksPath(listID), tasksQuery(page), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Task fetches a task with its attachments
func (c *Client) Task(ctx context.Context, taskID string) (*Task, error) {
	var response Task
	if err := c.Get(ctx, taskPath(taskID), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}
