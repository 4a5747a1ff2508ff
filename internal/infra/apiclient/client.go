// Package apiclient implements orchestrator.Backend over the HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
	"github.com/bryanwahyu/launchlens/internal/domain/ideas"
	"github.com/bryanwahyu/launchlens/internal/domain/plans"
)

const defaultTimeout = 90 * time.Second

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for baseURL authenticating with a bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// WithHTTPClient swaps the underlying transport, mostly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Raw   string `json:"raw"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// decodeError turns an error response back into a categorized error.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil || eb.Error == "" {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}
	return apperr.FromKindName(eb.Kind, eb.Error, eb.Raw)
}

func analysisPath(id ideas.AnalysisID, suffix string) string {
	return "/v1/analyses/" + url.PathEscape(string(id)) + suffix
}

func (c *Client) Usage(ctx context.Context) (ideas.Usage, error) {
	var u ideas.Usage
	err := c.do(ctx, http.MethodGet, "/v1/usage", nil, &u)
	return u, err
}

func (c *Client) Analyze(ctx context.Context, ideaText string) (*ideas.Analysis, error) {
	var a ideas.Analysis
	in := map[string]string{"ideaText": ideaText}
	if err := c.do(ctx, http.MethodPost, "/v1/analyses", in, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) Refine(ctx context.Context, r ideas.Refinement) (*ideas.Analysis, error) {
	var a ideas.Analysis
	if err := c.do(ctx, http.MethodPost, analysisPath(r.ParentID, "/refine"), r, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) History(ctx context.Context, limit int) ([]*ideas.Analysis, error) {
	var list []*ideas.Analysis
	path := "/v1/analyses"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	err := c.do(ctx, http.MethodGet, path, nil, &list)
	return list, err
}

func (c *Client) Get(ctx context.Context, id ideas.AnalysisID) (*ideas.Analysis, error) {
	var a ideas.Analysis
	if err := c.do(ctx, http.MethodGet, analysisPath(id, ""), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) Lineage(ctx context.Context, id ideas.AnalysisID) ([]*ideas.Analysis, error) {
	var list []*ideas.Analysis
	err := c.do(ctx, http.MethodGet, analysisPath(id, "/lineage"), nil, &list)
	return list, err
}

func (c *Client) Validate(ctx context.Context, id ideas.AnalysisID, notes string) (*ideas.Analysis, error) {
	var a ideas.Analysis
	in := map[string]string{"notes": notes}
	if err := c.do(ctx, http.MethodPost, analysisPath(id, "/validate"), in, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) Unvalidate(ctx context.Context, id ideas.AnalysisID) (*ideas.Analysis, error) {
	var a ideas.Analysis
	if err := c.do(ctx, http.MethodDelete, analysisPath(id, "/validate"), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id ideas.AnalysisID, status ideas.ProjectStatus) (*ideas.Analysis, error) {
	var a ideas.Analysis
	in := map[string]ideas.ProjectStatus{"status": status}
	if err := c.do(ctx, http.MethodPut, analysisPath(id, "/status"), in, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) Projects(ctx context.Context, status ideas.ProjectStatus) ([]*ideas.Analysis, error) {
	var list []*ideas.Analysis
	path := "/v1/projects"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	err := c.do(ctx, http.MethodGet, path, nil, &list)
	return list, err
}

func (c *Client) GeneratePlan(ctx context.Context, id ideas.AnalysisID) (*plans.ImprovementPlan, error) {
	var p plans.ImprovementPlan
	if err := c.do(ctx, http.MethodPost, analysisPath(id, "/plan"), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) LatestPlan(ctx context.Context, id ideas.AnalysisID) (*plans.ImprovementPlan, error) {
	var p plans.ImprovementPlan
	if err := c.do(ctx, http.MethodGet, analysisPath(id, "/plan"), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Recommendations(ctx context.Context) ([]ideas.Recommendation, error) {
	var body struct {
		Recommendations []ideas.Recommendation `json:"recommendations"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/recommendations", nil, &body)
	return body.Recommendations, err
}
