// Package execution is the client of the external Judge0-compatible code
// execution service. It carries no contest logic: it submits one job and
// turns whatever comes back (including nothing) into an ExecutionVerdict.
package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"
	"roundjudge/internal/platform/logger"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	defaultPollInterval   = 500 * time.Millisecond
	defaultRetryBaseDelay = 200 * time.Millisecond
	defaultMaxRetries     = 3
	maxResponseBytes      = 1 << 20
)

// Executor is what the rest of the application needs from the execution service.
type Executor interface {
	Execute(ctx context.Context, code string, language model.Language, stdin string, deadline time.Time) model.ExecutionVerdict
	Now() time.Time
}

type Options struct {
	BaseURL        string
	APIHost        string // RapidAPI host header, optional
	APIKey         string // RapidAPI key header, optional
	PollInterval   time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	HTTPClient     *http.Client
	Clock          clockwork.Clock
}

type Client struct {
	baseURL        string
	apiHost        string
	apiKey         string
	pollInterval   time.Duration
	maxRetries     int
	retryBaseDelay time.Duration
	http           *http.Client
	clock          clockwork.Clock
	logger         *zap.SugaredLogger
}

func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		apiHost:        opts.APIHost,
		apiKey:         opts.APIKey,
		pollInterval:   opts.PollInterval,
		maxRetries:     opts.MaxRetries,
		retryBaseDelay: opts.RetryBaseDelay,
		http:           opts.HTTPClient,
		clock:          opts.Clock,
		logger:         logger.NewNamedLogger("execution"),
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.retryBaseDelay <= 0 {
		c.retryBaseDelay = defaultRetryBaseDelay
	}
	if c.maxRetries < 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	return c
}

type submitRequest struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

type submitResponse struct {
	Token string `json:"token"`
}

type submissionStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type submissionResponse struct {
	Stdout        *string          `json:"stdout"`
	Stderr        *string          `json:"stderr"`
	CompileOutput *string          `json:"compile_output"`
	Status        submissionStatus `json:"status"`
}

func (c *Client) Now() time.Time {
	return c.clock.Now()
}

// Execute submits one job and waits for its verdict until deadline. It never
// returns an error: service problems become failing verdicts. Requests in
// flight when the injected clock reaches deadline are cancelled.
func (c *Client) Execute(ctx context.Context, code string, language model.Language, stdin string, deadline time.Time) model.ExecutionVerdict {
	remaining := deadline.Sub(c.clock.Now())
	if remaining <= 0 {
		return model.ServiceTimeoutVerdict()
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-callCtx.Done():
		case <-c.clock.After(remaining):
			cancel()
		}
	}()

	token, err := c.submit(callCtx, code, language, stdin, deadline)
	if err != nil {
		if ctx.Err() == nil && (callCtx.Err() != nil || !c.clock.Now().Before(deadline)) {
			c.logger.Warnf("Deadline reached while submitting job: %v", err)
			return model.ServiceTimeoutVerdict()
		}
		return model.ServiceErrorVerdict(err.Error())
	}
	return c.AwaitResult(callCtx, token, deadline)
}

// Submit creates a job and returns its token. Transport failures and non-2xx
// answers are retried with exponential backoff up to maxRetries times.
func (c *Client) Submit(ctx context.Context, code string, language model.Language, stdin string) (string, error) {
	return c.submit(ctx, code, language, stdin, time.Time{})
}

// submit stops retrying early when the next backoff would end past a
// non-zero deadline.
func (c *Client) submit(ctx context.Context, code string, language model.Language, stdin string, deadline time.Time) (string, error) {
	languageID, known := language.ExecutionID()
	if !known {
		c.logger.Warnf("Unknown language tag %q, falling back to language id %d", language, languageID)
	}

	body, err := json.Marshal(submitRequest{SourceCode: code, LanguageID: languageID, Stdin: stdin})
	if err != nil {
		return "", fmt.Errorf("failed to marshal execution request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		token, err := c.postSubmission(ctx, body)
		if err == nil {
			return token, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("submit job: %w", ctx.Err())
		}
		if attempt >= c.maxRetries {
			c.logger.Errorf("Giving up submitting job after %d attempts: %v", attempt+1, err)
			return "", fmt.Errorf("submit job: %v: %w", err, common.ErrServiceUnavailable)
		}
		wait := c.backoff(attempt)
		if !deadline.IsZero() && !c.clock.Now().Add(wait).Before(deadline) {
			c.logger.Warnf("Not retrying submit after %d attempts, deadline too close: %v", attempt+1, err)
			return "", fmt.Errorf("submit job: %v: %w", err, common.ErrServiceUnavailable)
		}
		c.logger.Warnf("Submit attempt %d failed, retrying: %v", attempt+1, err)
		if !c.sleep(ctx, wait) {
			return "", fmt.Errorf("submit job: %w", ctx.Err())
		}
	}
}

// AwaitResult polls the job until it reaches a terminal status or the deadline
// passes (pending -> polling -> terminal). On deadline a synthetic timeout
// verdict is returned; repeated fetch failures yield a service error verdict.
func (c *Client) AwaitResult(ctx context.Context, token string, deadline time.Time) model.ExecutionVerdict {
	failures := 0
	for {
		if !c.clock.Now().Before(deadline) {
			c.logger.Warnf("Deadline reached before fetching token %s", token)
			return model.ServiceTimeoutVerdict()
		}
		var wait time.Duration
		res, err := c.fetchSubmission(ctx, token)
		switch {
		case err != nil && ctx.Err() != nil:
			return model.ServiceTimeoutVerdict()
		case err != nil:
			failures++
			if failures > c.maxRetries {
				c.logger.Errorf("Giving up polling token %s after %d failures: %v", token, failures, err)
				return model.ServiceErrorVerdict(err.Error())
			}
			wait = c.backoff(failures - 1)
		case isTerminal(res.Status):
			return toVerdict(res)
		default:
			failures = 0
			wait = c.pollInterval
		}

		if !c.clock.Now().Add(wait).Before(deadline) {
			c.logger.Warnf("Deadline reached while waiting for token %s", token)
			return model.ServiceTimeoutVerdict()
		}
		if !c.sleep(ctx, wait) {
			return model.ServiceTimeoutVerdict()
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	return c.retryBaseDelay * time.Duration(1<<uint(attempt))
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(d):
		return true
	}
}

func (c *Client) postSubmission(ctx context.Context, body []byte) (string, error) {
	endpoint := c.baseURL + "/submissions?base64_encoded=false&wait=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req)

	var out submitResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("execution service returned an empty token")
	}
	return out.Token, nil
}

func (c *Client) fetchSubmission(ctx context.Context, token string) (*submissionResponse, error) {
	endpoint := c.baseURL + "/submissions/" + url.PathEscape(token) + "?base64_encoded=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setAuthHeaders(req)

	var out submissionResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	if c.apiHost != "" {
		req.Header.Set("X-RapidAPI-Host", c.apiHost)
	}
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
	}
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("execution service returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
