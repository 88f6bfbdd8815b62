package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	applogger "PersonalQT/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *logSink) lines(t *testing.T) []map[string]interface{} {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]interface{}
	sc := bufio.NewScanner(bytes.NewReader(s.buf.Bytes()))
	for sc.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func (s *logSink) messages(t *testing.T) []string {
	var msgs []string
	for _, l := range s.lines(t) {
		msgs = append(msgs, l["message"].(string))
	}
	return msgs
}

func newLoggedClient(t *testing.T, opts ...ClientOption) (*Client, *logSink) {
	t.Helper()
	sink := &logSink{}
	l, err := applogger.New(&applogger.Config{Level: "debug", Format: "json", Writer: sink})
	require.NoError(t, err)
	c := NewClient(append(opts, WithInterceptors(NewLoggingInterceptor(l)))...)
	return c, sink
}

func countErrorBranches(msgs []string) map[string]int {
	counts := map[string]int{}
	for _, m := range msgs {
		switch m {
		case "API错误", "网络错误", "请求错误":
			counts[m]++
		}
	}
	return counts
}

// captureErrors records the error object each response interceptor saw.
type captureErrors struct {
	seen []error
}

func (c *captureErrors) OnResponse(resp *Response) (*Response, error) { return resp, nil }

func (c *captureErrors) OnResponseError(err error) error {
	c.seen = append(c.seen, err)
	return err
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestClientSuccessIsPassThrough(t *testing.T) {
	body := `[{"id":1,"name":"A"}]`
	var gotPath, gotQuery, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotContentType = r.Header.Get("Content-Type")
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	c, sink := newLoggedClient(t, WithBaseURL(srv.URL+"/"))

	resp, err := c.Do(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         "/categories/",
		QueryParams: url.Values{"limit": {"100"}},
	})
	require.NoError(t, err)

	assert.Equal(t, body, string(resp.Data))
	assert.Equal(t, "/categories/", gotPath)
	assert.Equal(t, "limit=100", gotQuery)
	assert.Equal(t, "application/json", gotContentType)

	lines := sink.lines(t)
	require.Len(t, lines, 2)
	assert.Equal(t, "发送请求", lines[0]["message"])
	assert.Equal(t, gotPath, lines[0]["path"])
	assert.Equal(t, map[string]interface{}{"limit": []interface{}{"100"}}, lines[0]["payload"])
	assert.Equal(t, "接收响应", lines[1]["message"])
	assert.Equal(t, []interface{}{map[string]interface{}{"id": float64(1), "name": "A"}}, lines[1]["data"])
}

func TestClientPostLogsBodyPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"x"}`)
	}))
	defer srv.Close()

	c, sink := newLoggedClient(t, WithBaseURL(srv.URL))

	var out map[string]string
	require.NoError(t, c.Post(context.Background(), "categories/", map[string]string{"name": "A"}, &out))

	assert.Equal(t, map[string]string{"name": "A"}, got)
	assert.Equal(t, "x", out["id"])
	lines := sink.lines(t)
	require.NotEmpty(t, lines)
	assert.Equal(t, map[string]interface{}{"name": "A"}, lines[0]["payload"])
}

func TestClientErrorStatusPropagatesSameError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"分类不存在"}`)
	}))
	defer srv.Close()

	capture := &captureErrors{}
	c, sink := newLoggedClient(t, WithBaseURL(srv.URL), WithInterceptors(capture))

	_, err := c.Do(context.Background(), &RequestOptions{Method: MethodGet, URL: "/categories/x"})
	require.Error(t, err)

	require.Len(t, capture.seen, 1)
	assert.Same(t, capture.seen[0], err)
	assert.Equal(t, ErrorKindResponse, Classify(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.JSONEq(t, `{"detail":"分类不存在"}`, string(respErr.Response.Data))

	assert.Equal(t, map[string]int{"API错误": 1}, countErrorBranches(sink.messages(t)))
}

func TestClientTimeoutIsNoResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	capture := &captureErrors{}
	c, sink := newLoggedClient(t, WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond), WithInterceptors(capture))

	_, err := c.Do(context.Background(), &RequestOptions{Method: MethodGet, URL: "/daily-funds/"})
	require.Error(t, err)

	var noResp *NoResponseError
	require.ErrorAs(t, err, &noResp)
	assert.True(t, noResp.Timeout())
	assert.Same(t, capture.seen[0], err)
	assert.Equal(t, map[string]int{"网络错误": 1}, countErrorBranches(sink.messages(t)))
}

func TestClientTransportErrorKeepsOriginal(t *testing.T) {
	boom := errors.New("connection refused")
	c, sink := newLoggedClient(t,
		WithBaseURL("http://backend.invalid"),
		WithTransport(roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, boom })),
	)

	_, err := c.Do(context.Background(), &RequestOptions{Method: MethodGet, URL: "/stock-trades/"})
	require.Error(t, err)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ErrorKindNoResponse, Classify(err))
	assert.Equal(t, map[string]int{"网络错误": 1}, countErrorBranches(sink.messages(t)))
}

func TestClientUnbuildableRequest(t *testing.T) {
	called := false
	c, sink := newLoggedClient(t,
		WithBaseURL("http://backend.invalid"),
		WithTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
			called = true
			return nil, errors.New("unreachable")
		})),
	)

	_, err := c.Do(context.Background(), &RequestOptions{Method: MethodPost, URL: "/categories/", Body: make(chan int)})
	require.Error(t, err)

	assert.False(t, called)
	assert.Equal(t, ErrorKindRequest, Classify(err))
	assert.Equal(t, map[string]int{"请求错误": 1}, countErrorBranches(sink.messages(t)))
}

func TestClientValidationFailureRunsErrorChain(t *testing.T) {
	invalid := errors.New("limit must be at most 1000")
	called := false
	capture := &captureErrors{}
	c, sink := newLoggedClient(t,
		WithBaseURL("http://backend.invalid"),
		WithTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
			called = true
			return nil, errors.New("unreachable")
		})),
		WithInterceptors(capture),
	)

	_, err := c.Do(context.Background(), &RequestOptions{
		Method:   MethodGet,
		URL:      "/categories/",
		Validate: func(context.Context, *RequestOptions) error { return invalid },
	})
	require.Error(t, err)

	assert.False(t, called)
	assert.ErrorIs(t, err, invalid)
	assert.Equal(t, ErrorKindRequest, Classify(err))
	require.Len(t, capture.seen, 1)
	assert.Same(t, capture.seen[0], err)
	assert.Equal(t, map[string]int{"请求错误": 1}, countErrorBranches(sink.messages(t)))
	assert.NotContains(t, sink.messages(t), "发送请求")
}

func TestClientValidateMayFillOptions(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Do(context.Background(), &RequestOptions{
		Method: MethodGet,
		URL:    "/categories/",
		Validate: func(_ context.Context, o *RequestOptions) error {
			o.QueryParams = url.Values{"limit": {"100"}}
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "limit=100", gotQuery)
}

type rejectRequests struct{ err error }

func (r rejectRequests) OnRequest(*RequestOptions) (*RequestOptions, error) { return nil, r.err }
func (r rejectRequests) OnRequestError(err error) error                     { return err }

type recordRequestErrors struct{ seen []error }

func (r *recordRequestErrors) OnRequest(o *RequestOptions) (*RequestOptions, error) { return o, nil }
func (r *recordRequestErrors) OnRequestError(err error) error {
	r.seen = append(r.seen, err)
	return err
}

func TestRequestInterceptorFailurePassesThrough(t *testing.T) {
	denied := errors.New("denied")
	rec := &recordRequestErrors{}
	called := false

	c, sink := newLoggedClient(t,
		WithBaseURL("http://backend.invalid"),
		WithTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
			called = true
			return nil, errors.New("unreachable")
		})),
		WithInterceptors(rejectRequests{err: denied}, rec),
	)

	_, err := c.Do(context.Background(), &RequestOptions{Method: MethodGet, URL: "/categories/"})
	require.Error(t, err)

	assert.False(t, called)
	require.Len(t, rec.seen, 1)
	assert.Same(t, denied, rec.seen[0])
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, ErrorKindRequest, Classify(err))
	assert.Equal(t, map[string]int{"请求错误": 1}, countErrorBranches(sink.messages(t)))
}

type fakeRecorder struct {
	outcomes []string
}

func (f *fakeRecorder) RecordRequest(method, outcome string, _ float64) {
	f.outcomes = append(f.outcomes, method+":"+outcome)
}

func TestMetricsInterceptorOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	c := NewClient(WithBaseURL(srv.URL), WithInterceptors(NewMetricsInterceptor(rec)))

	require.NoError(t, c.Get(context.Background(), "/ok", nil, nil))
	require.Error(t, c.Get(context.Background(), "/bad", nil, nil))

	assert.Equal(t, []string{"GET:ok", "GET:response"}, rec.outcomes)
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"http://h:8000/", "/categories/", "http://h:8000/categories/"},
		{"http://h:8000", "categories/", "http://h:8000/categories/"},
		{"http://h:8000/", "http://other/x", "http://other/x"},
	}
	for _, tt := range tests {
		c := NewClient(WithBaseURL(tt.base))
		got, err := c.resolveURL(tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient()
	assert.Equal(t, 10*time.Second, c.Timeout())
}
