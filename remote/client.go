package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tubedeck/types"
)

const defaultUserAgent = "tubedeck"

// ClientConfig configures the connection to the collaborator service
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	KATimeout time.Duration
	UserAgent string
	Headers   map[string]string
}

// StatusError is returned when the collaborator answers with a non-success status
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("collaborator returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("collaborator returned %d: %s", e.StatusCode, e.Detail)
}

// Client talks to the collaborator service over HTTP
type Client struct {
	baseURL *url.URL
	http    *http.Client
	// artifacts can take minutes to stream, so they skip the request timeout
	streaming *http.Client
	config    ClientConfig
	log       zerolog.Logger
}

// NewClient creates a client for the service at cfg.BaseURL
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid service URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid service URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 60 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		IdleConnTimeout:     cfg.KATimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: cfg.Timeout, Transport: transport},
		streaming: &http.Client{Transport: transport},
		config:    cfg,
		log:       log.With().Str("component", "remote").Logger(),
	}, nil
}

// BaseURL returns the collaborator's base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ResolveInfo fetches metadata and the variant list for a video URL
func (c *Client) ResolveInfo(ctx context.Context, videoURL string) (types.VideoInfo, error) {
	var body infoResponse
	q := url.Values{"url": {videoURL}}
	if err := c.getJSON(ctx, "/info", q, &body); err != nil {
		return types.VideoInfo{}, err
	}
	if body.ID == "" {
		return types.VideoInfo{}, fmt.Errorf("malformed metadata for %s: missing id", videoURL)
	}
	return body.toVideoInfo(), nil
}

// Start asks the collaborator to begin downloading variantID of videoURL
func (c *Client) Start(ctx context.Context, videoURL, variantID string) (string, error) {
	payload, err := json.Marshal(startRequest{URL: videoURL, FormatID: variantID})
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/start_download", nil, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var body startResponse
	if err := c.doJSON(c.http, req, &body); err != nil {
		return "", err
	}
	if body.JobID == "" {
		return "", fmt.Errorf("collaborator returned an empty job id")
	}
	c.log.Debug().Str("job", body.JobID).Str("variant", variantID).Msg("download started")
	return body.JobID, nil
}

// Poll reports the current status of a job
func (c *Client) Poll(ctx context.Context, jobID string) (types.JobUpdate, error) {
	var body progressResponse
	q := url.Values{"job_id": {jobID}}
	if err := c.getJSON(ctx, "/progress", q, &body); err != nil {
		if ctx.Err() == nil {
			c.log.Debug().Str("job", jobID).Err(err).Msg("poll missed")
		}
		return nil, err
	}
	return body.toJobUpdate(), nil
}

// FetchArtifact opens the finished file for a job. The caller must close the body.
func (c *Client) FetchArtifact(ctx context.Context, jobID string) (*types.Artifact, error) {
	q := url.Values{"job_id": {jobID}}
	req, err := c.newRequest(ctx, http.MethodGet, "/download_file", q, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.streaming.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	artifact := &types.Artifact{
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		artifact.FileName = params["filename"]
	}
	if artifact.ContentType == "" {
		artifact.ContentType = "application/octet-stream"
	}
	return artifact, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, target any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.doJSON(c.http, req, target)
}

func (c *Client) doJSON(client *http.Client, req *http.Request, target any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	serr := &StatusError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body errorResponse
	if json.Unmarshal(data, &body) == nil && body.Detail != "" {
		serr.Detail = body.Detail
	} else {
		serr.Detail = strings.TrimSpace(string(data))
	}
	return serr
}
