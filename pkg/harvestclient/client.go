package harvestclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 35 * time.Minute

// HarvestRequest is the harvest submission body.
type HarvestRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

// Client talks to a scholar harvest service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the service at baseURL. A nil httpClient gets a
// default with a timeout generous enough to cover a full harvest stream.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Stream is an open harvest progress stream. Callers must Close it.
type Stream struct {
	body    io.ReadCloser
	reader  *StreamReader
	machine *StateMachine
}

// Harvest submits a harvest and returns the live progress stream. The
// returned stream's state machine has already advanced to searching.
func (c *Client) Harvest(ctx context.Context, req HarvestRequest) (*Stream, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/harvests", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submitting harvest: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("harvest rejected: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	machine := NewStateMachine()
	machine.Start()
	return &Stream{
		body:    resp.Body,
		reader:  NewStreamReader(resp.Body),
		machine: machine,
	}, nil
}

// Next consumes the next event and returns the folded state along with the
// event kind. It returns io.EOF when the server closes the stream.
func (s *Stream) Next() (State, string, error) {
	kind, data, err := s.reader.Next()
	if err != nil {
		return s.machine.State(), "", err
	}
	s.machine.Apply(kind, data)
	return s.machine.State(), kind, nil
}

// State returns the current folded state without consuming an event.
func (s *Stream) State() State {
	return s.machine.State()
}

// Close releases the underlying connection.
func (s *Stream) Close() error {
	return s.body.Close()
}

// Download fetches a stored CSV artifact by filename. A 404 means the file
// never existed or its retention window elapsed.
func (c *Client) Download(ctx context.Context, filename string) ([]byte, error) {
	u := c.baseURL + "/api/v1/artifacts/" + url.PathEscape(filename)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("downloading artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("artifact %q not found or expired", filename)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading artifact: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
