// Package api is the typed HTTP client for the team-dynamics analysis
// service. It normalizes responses so missing fields have deterministic
// defaults, and classifies failures into *APIError / ErrNotFound.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/stagewatch/internal/logging"
)

// DefaultBaseURL is where the service listens when run locally.
const DefaultBaseURL = "http://127.0.0.1:8000"

const maxResponseBody = 4 << 20

// Options configures a Client. Zero values pick defaults.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64 // <= 0 disables limiting
	Burst             int
}

// Client talks to the analysis service. Goroutine-safe.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client. There is no automatic retry: every failure
// goes back to the caller, and the user decides whether to try again.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// BaseURL returns the service root this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TeamInfo fetches the team-level distribution.
func (c *Client) TeamInfo(ctx context.Context, team string) (TeamInfo, error) {
	q := url.Values{"team_name": {team}}
	var w wireTeamInfo
	if err := c.getJSON(ctx, "/teaminfo", q, &w); err != nil {
		return TeamInfo{}, err
	}
	return w.normalize(), nil
}

// MemberInfo fetches a member's distribution and accumulated emotions.
// A member the server has never seen yields an error matching ErrNotFound.
func (c *Client) MemberInfo(ctx context.Context, team, member string) (MemberInfo, error) {
	q := url.Values{"team_name": {team}, "member_name": {member}}
	var w wireMemberInfo
	if err := c.getJSON(ctx, "/memberinfo", q, &w); err != nil {
		return MemberInfo{}, err
	}
	return w.normalize(), nil
}

// Chat sends one message.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	var w wireChatReply
	if err := c.postJSON(ctx, "/chat", req, &w); err != nil {
		return ChatReply{}, err
	}
	return w.normalize(), nil
}

// Analyze submits pre-split lines for bulk analysis.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (AnalysisResult, error) {
	var w wireAnalysis
	if err := c.postJSON(ctx, "/analyze", req, &w); err != nil {
		return AnalysisResult{}, err
	}
	return w.normalize(), nil
}

// AnalyzeFile uploads a chat log as multipart form data. The server does
// its own line splitting.
func (c *Client) AnalyzeFile(ctx context.Context, team, member, filename string, content io.Reader) (AnalysisResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("team_name", team); err != nil {
		return AnalysisResult{}, fmt.Errorf("build form: %w", err)
	}
	if member != "" {
		if err := mw.WriteField("member_name", member); err != nil {
			return AnalysisResult{}, fmt.Errorf("build form: %w", err)
		}
	}
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return AnalysisResult{}, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return AnalysisResult{}, fmt.Errorf("build form: %w", err)
	}

	// Some deployments read team_name from the query string instead of
	// the form, so send both.
	q := url.Values{"team_name": {team}}
	req, err := c.newRequest(ctx, http.MethodPost, "/analyze-file", q, &body)
	if err != nil {
		return AnalysisResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var w wireAnalysis
	if err := c.do(req, &w); err != nil {
		return AnalysisResult{}, err
	}
	return w.normalize(), nil
}

// Reset clears the team's server-side history and returns the server's
// confirmation message.
func (c *Client) Reset(ctx context.Context, team, member string) (string, error) {
	var w wireReset
	if err := c.postJSON(ctx, "/reset", resetRequest{TeamName: team, MemberName: member}, &w); err != nil {
		return "", err
	}
	if w.Message == "" {
		w.Message = fmt.Sprintf("Team '%s' has been reset.", team)
	}
	return w.Message, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	logging.Debug("API request", "method", req.Method, "path", req.URL.Path)
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("request cancelled: %w", ctxErr)
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, body)
		if resp.StatusCode == http.StatusNotFound {
			logging.Debug("API not found", "path", req.URL.Path)
		} else {
			logging.Error("API error", "path", req.URL.Path, "status", resp.StatusCode, "err", apiErr.Error())
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	logging.Debug("API response", "path", req.URL.Path, "status", resp.StatusCode, "dur", time.Since(start))
	return nil
}
