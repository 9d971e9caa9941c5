package remote

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, transport http.RoundTripper) (*Client, *[]time.Duration) {
	t.Helper()
	client, errNew := NewClient(Options{
		BaseURL:    "https://booking.example.test",
		MaxRetries: 3,
		RetryDelay: 10 * time.Millisecond,
		HTTPClient: &http.Client{Transport: transport},
	})
	if errNew != nil {
		t.Fatalf("new client: %v", errNew)
	}
	var waits []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return client, &waits
}

func okResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestDoRetriesNameResolutionFailuresThenSucceeds(t *testing.T) {
	var calls int32
	client, waits := newTestClient(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			return nil, &net.DNSError{Err: "no such host", Name: req.URL.Host, IsNotFound: true}
		}
		return okResponse(`{"ok":true}`), nil
	}))

	payload, errDo := client.Do(context.Background(), Request{Path: PathGetDesk, Caller: "Test"})
	if errDo != nil {
		t.Fatalf("expected success after retries, got %v", errDo)
	}
	if string(payload) != `{"ok":true}` {
		t.Fatalf("unexpected payload %q", payload)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(*waits) != 2 || (*waits)[0] != 10*time.Millisecond || (*waits)[1] != 20*time.Millisecond {
		t.Fatalf("expected linear backoff waits [10ms 20ms], got %v", *waits)
	}
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	var calls int32
	client, waits := newTestClient(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, &net.DNSError{Err: "no such host", Name: req.URL.Host, IsNotFound: true}
	}))

	_, errDo := client.Do(context.Background(), Request{Path: PathGetDesk, Silent: true})
	var transportErr *TransportError
	if !errors.As(errDo, &transportErr) {
		t.Fatalf("expected transport error, got %v", errDo)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(*waits) != 2 {
		t.Fatalf("expected no wait after the final attempt, got %v", *waits)
	}
}

func TestDoDoesNotRetryConnectionReset(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("connection reset by peer")
	}))

	if _, errDo := client.Do(context.Background(), Request{Path: PathGetDesk, Silent: true}); errDo == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestDoClassifiesUnauthorized(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	client, errNew := NewClient(Options{BaseURL: server.URL})
	if errNew != nil {
		t.Fatalf("new client: %v", errNew)
	}
	_, errDo := client.Do(context.Background(), Request{Path: PathSearchUserByID, Silent: true})
	if !errors.Is(errDo, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", errDo)
	}
	if calls != 1 {
		t.Fatalf("expected no retry on 401, got %d calls", calls)
	}
}

func TestDoPropagatesRemoteMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Resource already reserved"}`))
	}))
	defer server.Close()

	client, _ := NewClient(Options{BaseURL: server.URL})
	_, errDo := client.Do(context.Background(), Request{Path: PathBookDesk, Caller: "DeskService"})

	var remoteErr *Error
	if !errors.As(errDo, &remoteErr) {
		t.Fatalf("expected *Error, got %T", errDo)
	}
	if remoteErr.StatusCode != http.StatusConflict || remoteErr.Error() != "Resource already reserved" {
		t.Fatalf("unexpected remote error %+v", remoteErr)
	}
	if IsUnauthorized(errDo) {
		t.Fatal("409 must not be classified as unauthorized")
	}
}

func TestDoSendsCredentialHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderAppAuthToken) != "app" || r.Header.Get(HeaderAuthorization) != "Bearer x" || r.Header.Get(HeaderAPIKey) != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	client, _ := NewClient(Options{BaseURL: server.URL})
	var out struct {
		SysidUser int64 `json:"sysidUser"`
	}
	errDo := client.DoJSON(context.Background(), Request{
		Path:       PathSearchUserByID,
		Credential: Credential{AppAuthToken: "app", Authorization: "Bearer x", APIKey: "key"},
		Body:       map[string]int64{"sysidUser": 7},
	}, &out)
	if errDo != nil {
		t.Fatalf("DoJSON: %v", errDo)
	}
	if out.SysidUser != 7 {
		t.Fatalf("expected echoed body, got %+v", out)
	}
}
