package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/leynos/hoover/app/logcache"
	"github.com/leynos/hoover/app/server"
)

// ErrNotFound is returned when the server doesn't know the stream
var ErrNotFound = errors.New("stream not found")

// ErrNoStreams is returned when no stream is given and the server has nothing captured
var ErrNoStreams = errors.New("no captured streams")

// Repeater repeats failed function
type Repeater interface {
	Do(ctx context.Context, fun func() error, errors ...error) error
}

// Page is a materialized stream as returned by the server
type Page struct {
	Text  string
	Lines int
}

// Client talks to the hoover http api
type Client struct {
	URL        string // base url, e.g. http://localhost:8080
	User       string
	Password   string
	HTTPClient *http.Client
	Repeater   Repeater // optional, retries transient failures
}

// Text fetches the materialization of a stream
func (c *Client) Text(ctx context.Context, stream string, opts logcache.Options) (Page, error) {
	var page Page
	u := c.endpoint("/api/v1/streams/"+url.PathEscape(stream)+"/text", server.Query(opts))
	err := c.retry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodGet, u)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", stream, err)
		}
		page = Page{Text: string(body)}
		if n, err := strconv.Atoi(resp.Header.Get("X-Hoover-Lines")); err == nil {
			page.Lines = n
		}
		return nil
	})
	return page, err
}

// Snapshot asks the server to archive the current materialization of a stream
func (c *Client) Snapshot(ctx context.Context, stream string, opts logcache.Options) (int64, error) {
	u := c.endpoint("/api/v1/streams/"+url.PathEscape(stream)+"/snapshots", server.Query(opts))
	resp, err := c.do(ctx, http.MethodPost, u)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var snap server.APISnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return 0, fmt.Errorf("failed to decode snapshot response: %w", err)
	}
	return snap.ID, nil
}

// Streams lists streams known to the server
func (c *Client) Streams(ctx context.Context) ([]server.APIStream, error) {
	var res server.APIStreamsResponse
	err := c.retry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodGet, c.endpoint("/api/v1/streams", nil))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return fmt.Errorf("failed to decode streams: %w", err)
		}
		return nil
	})
	return res.Streams, err
}

// ResolveStream returns stream if set, otherwise the first stream with captured lines
func (c *Client) ResolveStream(ctx context.Context, stream string) (string, error) {
	if strings.TrimSpace(stream) != "" {
		return stream, nil
	}
	streams, err := c.Streams(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range streams {
		if s.Count > 0 {
			return s.ID, nil
		}
	}
	return "", ErrNoStreams
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := strings.TrimSuffix(c.URL, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// do makes a request and maps non-2xx responses to errors
func (c *Client) do(ctx context.Context, method, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	if c.User != "" {
		req.SetBasicAuth(c.User, c.Password)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", u, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&apiErr); err != nil || apiErr.Error == "" {
		apiErr.Error = http.StatusText(resp.StatusCode)
	}
	return nil, fmt.Errorf("server responded %d: %s", resp.StatusCode, apiErr.Error)
}

// retry runs fun through the repeater if one is set, a missing stream is never retried
func (c *Client) retry(ctx context.Context, fun func() error) error {
	if c.Repeater == nil {
		return fun()
	}
	return c.Repeater.Do(ctx, fun, ErrNotFound)
}
