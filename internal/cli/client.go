package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charliek/respawn/internal/api"
)

// Client is an HTTP client for the respawn status API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client. addr may be a bare host:port.
func NewClient(addr string) *Client {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}

	return &Client{
		baseURL: strings.TrimSuffix(addr, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetStatus gets supervisor status
func (c *Client) GetStatus() (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.get("/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EventParams contains parameters for event queries
type EventParams struct {
	Phases  []string
	Pattern string
	Limit   int
}

func (p EventParams) query(withLimit bool) string {
	query := url.Values{}
	if len(p.Phases) > 0 {
		query.Set("phase", strings.Join(p.Phases, ","))
	}
	if p.Pattern != "" {
		query.Set("pattern", p.Pattern)
	}
	if withLimit && p.Limit > 0 {
		query.Set("limit", strconv.Itoa(p.Limit))
	}
	if len(query) == 0 {
		return ""
	}
	return "?" + query.Encode()
}

// GetEvents gets recent supervision events with optional filtering
func (c *Client) GetEvents(params EventParams) (*api.EventsResponse, error) {
	var resp api.EventsResponse
	if err := c.get("/api/v1/events"+params.query(true), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamEvents streams events and calls the callback for each one.
// It returns when the server closes the stream.
func (c *Client) StreamEvents(params EventParams, callback func(api.EventResponse)) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/v1/events/stream"+params.query(false), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream stays open; only the connection attempt is bounded
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimPrefix(line, "data: ")
			var event api.EventResponse
			if err := json.Unmarshal([]byte(data), &event); err == nil {
				callback(event)
			}
		}
	}
}

func (c *Client) get(path string, v interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// decodeError turns an API error body into an error
func decodeError(resp *http.Response) error {
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Code != "" {
		return fmt.Errorf("%s: %s", errResp.Code, errResp.Error)
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}
