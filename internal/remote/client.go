package remote

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

	log "github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries     = 3
	defaultRetryDelay     = time.Second
	defaultRequestTimeout = 30 * time.Second
	maxErrorBodyBytes     = 512
)

// Request describes one authenticated call to the booking service.
type Request struct {
	Method     string
	Path       Path
	Credential Credential
	Body       any
	// Caller labels log lines, e.g. "DeskService".
	Caller string
	// Silent suppresses failure logging for probes that are expected to fail.
	Silent bool
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	MaxRetries     int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// Client issues authenticated calls with bounded retry for name resolution failures.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	maxRetries     int
	retryDelay     time.Duration
	requestTimeout time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a Client.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		return nil, errors.New("remote: base url is required")
	}
	parsed, errParse := url.Parse(strings.TrimRight(baseURL, "/"))
	if errParse != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", errParse)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("remote: invalid base url: %s", baseURL)
	}

	c := &Client{
		baseURL:        parsed,
		httpClient:     opts.HTTPClient,
		maxRetries:     opts.MaxRetries,
		retryDelay:     opts.RetryDelay,
		requestTimeout: opts.RequestTimeout,
		sleep:          sleepContext,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.retryDelay < 0 {
		c.retryDelay = defaultRetryDelay
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = defaultRequestTimeout
	}
	return c, nil
}

// Do sends req and returns the raw response body of a 2xx response.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	if c == nil {
		return nil, errors.New("remote: client not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Method == "" {
		req.Method = http.MethodPost
	}

	body, errBody := encodeBody(req.Body)
	if errBody != nil {
		return nil, errBody
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		payload, errAttempt := c.attempt(ctx, req, body)
		if errAttempt == nil {
			return payload, nil
		}
		lastErr = errAttempt
		if attempt >= c.maxRetries || !isRetryable(errAttempt) {
			return nil, errAttempt
		}
		log.WithField("caller", req.Caller).Warnf("Retry: got an error, start retrying %d times, %v", attempt, errAttempt)
		if errSleep := c.sleep(ctx, c.retryDelay*time.Duration(attempt)); errSleep != nil {
			return nil, errSleep
		}
	}
	if lastErr == nil {
		lastErr = errors.New("remote: max retries exceeded")
	}
	return nil, lastErr
}

// DoJSON sends req and decodes a 2xx body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	payload, errDo := c.Do(ctx, req)
	if errDo != nil {
		return errDo
	}
	payload = bytes.TrimSpace(payload)
	if out == nil || len(payload) == 0 {
		return nil
	}
	if errUnmarshal := json.Unmarshal(payload, out); errUnmarshal != nil {
		return fmt.Errorf("remote: decode %s response: %w", req.Path, errUnmarshal)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, req Request, body []byte) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	target := c.baseURL.String() + string(req.Path)
	httpReq, errReq := http.NewRequestWithContext(reqCtx, req.Method, target, bytes.NewReader(body))
	if errReq != nil {
		return nil, fmt.Errorf("remote: build request: %w", errReq)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(HeaderAppAuthToken, req.Credential.AppAuthToken)
	httpReq.Header.Set(HeaderAuthorization, req.Credential.Authorization)
	httpReq.Header.Set(HeaderAPIKey, req.Credential.APIKey)

	startedAt := time.Now()
	resp, errResp := c.httpClient.Do(httpReq)
	if errResp != nil {
		transportErr := &TransportError{Op: req.Method + " " + string(req.Path), Err: errResp}
		if !req.Silent {
			logTransportFailure(req, c.baseURL.Host, time.Since(startedAt), transportErr)
		}
		return nil, transportErr
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("remote: close response body error: %v", errClose)
		}
	}()

	payload, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return nil, &TransportError{Op: req.Method + " " + string(req.Path), Err: errRead}
	}
	duration := time.Since(startedAt)

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return payload, nil
	}

	if !req.Silent {
		logStatusFailure(req, c.baseURL.Host, resp.StatusCode, duration, body, payload)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &Error{StatusCode: http.StatusUnauthorized, Message: "Unauthorized"}
	}
	return nil, &Error{StatusCode: resp.StatusCode, Message: extractMessage(payload)}
}

func encodeBody(body any) ([]byte, error) {
	switch typed := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return typed, nil
	case json.RawMessage:
		return typed, nil
	case string:
		return []byte(typed), nil
	default:
		encoded, errMarshal := json.Marshal(typed)
		if errMarshal != nil {
			return nil, fmt.Errorf("remote: encode request body: %w", errMarshal)
		}
		return encoded, nil
	}
}

func extractMessage(payload []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if errUnmarshal := json.Unmarshal(payload, &parsed); errUnmarshal == nil {
		return strings.TrimSpace(parsed.Message)
	}
	return ""
}

func summarizePayload(payload []byte) string {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return ""
	}
	if len(trimmed) > maxErrorBodyBytes {
		return string(trimmed[:maxErrorBodyBytes]) + "...(truncated)"
	}
	return string(trimmed)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
