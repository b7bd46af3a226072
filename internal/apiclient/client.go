package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reel/internal/api"
	"reel/internal/services"
)

// Client talks to a running reel daemon over its HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the daemon listening at bind (host:port or URL).
func New(bind string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SubmitJob admits a transcode job.
func (c *Client) SubmitJob(ctx context.Context, req api.SubmitJobRequest) (api.JobPayload, error) {
	var out api.JobPayload
	err := c.do(ctx, http.MethodPost, "/api/jobs", req, &out)
	return out, err
}

// GetJob fetches one job.
func (c *Client) GetJob(ctx context.Context, jobID string) (api.JobPayload, error) {
	var out api.JobPayload
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID), nil, &out)
	return out, err
}

// ListJobs fetches recent jobs. Zero limit uses the daemon default.
func (c *Client) ListJobs(ctx context.Context, limit int) ([]api.JobPayload, error) {
	path := "/api/jobs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out api.JobListPayload
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// CreateAsset registers a video asset.
func (c *Client) CreateAsset(ctx context.Context, req api.CreateAssetRequest) (api.AssetPayload, error) {
	var out api.AssetPayload
	err := c.do(ctx, http.MethodPost, "/api/assets", req, &out)
	return out, err
}

// GetAsset fetches one asset.
func (c *Client) GetAsset(ctx context.Context, assetID string) (api.AssetPayload, error) {
	var out api.AssetPayload
	err := c.do(ctx, http.MethodGet, "/api/assets/"+url.PathEscape(assetID), nil, &out)
	return out, err
}

// Status fetches queue composition.
func (c *Client) Status(ctx context.Context) (api.StatusPayload, error) {
	var out api.StatusPayload
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr *net.OpError
		if errors.As(err, &netErr) {
			return fmt.Errorf("connect to daemon at %s (is reeld running?): %w", c.baseURL, err)
		}
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload api.ErrorPayload
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		message := payload.Error
		if message == "" {
			message = resp.Status
		}
		return services.Wrap(markerForStatus(resp.StatusCode), "apiclient", method+" "+path, message, nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func markerForStatus(status int) error {
	switch status {
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusConflict:
		return services.ErrConflict
	case http.StatusBadRequest:
		return services.ErrValidation
	default:
		return errors.New("daemon error")
	}
}
