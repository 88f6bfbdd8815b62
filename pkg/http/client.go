package http

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

const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodDelete = http.MethodDelete
	MethodPatch  = http.MethodPatch

	DefaultTimeout = 10 * time.Second
)

// ClientOption configures Client.
type ClientOption func(*Client)

// RequestOptions holds HTTP request parameters. URL may be relative to the
// client's base URL or absolute.
type RequestOptions struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string][]string
	Body        interface{}
	// Validate runs before the request chain and may fill in options derived
	// from the input it checks. A failure is returned as a *RequestError.
	Validate func(ctx context.Context, opts *RequestOptions) error
}

// Payload is what a request carries: query params when present, else the body.
func (o *RequestOptions) Payload() interface{} {
	if len(o.QueryParams) > 0 {
		return o.QueryParams
	}
	return o.Body
}

// Response is a completed 2xx exchange with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Data       []byte
	Duration   time.Duration
	Options    *RequestOptions
	Request    *http.Request
}

// Decode unmarshals the JSON body into dest.
func (r *Response) Decode(dest interface{}) error {
	if dest == nil || len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// Client sends JSON requests to a fixed base URL and runs every exchange
// through its interceptor chains.
type Client struct {
	baseURL   string
	timeout   time.Duration
	headers   map[string]string
	transport http.RoundTripper
	client    *http.Client

	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewClient creates a new HTTP client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout: DefaultTimeout,
		headers: map[string]string{"Content-Type": "application/json"},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.client = &http.Client{Timeout: c.timeout, Transport: c.transport}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Use appends interceptors. A value implementing both interfaces is
// registered on both chains.
func (c *Client) Use(interceptors ...interface{}) {
	for _, ic := range interceptors {
		if ri, ok := ic.(RequestInterceptor); ok {
			c.requestInterceptors = append(c.requestInterceptors, ri)
		}
		if ri, ok := ic.(ResponseInterceptor); ok {
			c.responseInterceptors = append(c.responseInterceptors, ri)
		}
	}
}

// Do runs opts through the request chain, sends it, and runs the outcome
// through the response chain. Failures are one of *RequestError,
// *NoResponseError or *ResponseError and are returned exactly as the
// response chain leaves them.
func (c *Client) Do(ctx context.Context, opts *RequestOptions) (*Response, error) {
	if opts != nil && opts.Validate != nil {
		if err := opts.Validate(ctx, opts); err != nil {
			return nil, c.runErrorChain(&RequestError{Options: opts, Err: err})
		}
	}

	opts, err := c.runRequestChain(opts)
	if err != nil {
		if Classify(err) == ErrorKindUnknown {
			err = &RequestError{Options: opts, Err: err}
		}
		return nil, c.runErrorChain(err)
	}

	resp, err := c.send(ctx, opts)
	if err != nil {
		return nil, c.runErrorChain(err)
	}

	for _, ic := range c.responseInterceptors {
		resp, err = ic.OnResponse(resp)
		if err != nil {
			return nil, c.runErrorChain(err)
		}
	}
	return resp, nil
}

// SendAndParse sends a request and decodes the JSON response into dest.
func (c *Client) SendAndParse(ctx context.Context, opts *RequestOptions, dest interface{}) error {
	resp, err := c.Do(ctx, opts)
	if err != nil {
		return err
	}

	switch v := dest.(type) {
	case nil:
		return nil
	case *[]byte:
		*v = resp.Data
		return nil
	case io.Writer:
		if _, err := v.Write(resp.Data); err != nil {
			return fmt.Errorf("copy body: %w", err)
		}
		return nil
	default:
		return resp.Decode(dest)
	}
}

// Get issues a GET with query params.
func (c *Client) Get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	return c.SendAndParse(ctx, &RequestOptions{Method: MethodGet, URL: path, QueryParams: params}, dest)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, dest interface{}) error {
	return c.SendAndParse(ctx, &RequestOptions{Method: MethodPost, URL: path, Body: body}, dest)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, dest interface{}) error {
	return c.SendAndParse(ctx, &RequestOptions{Method: MethodPut, URL: path, Body: body}, dest)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, dest interface{}) error {
	return c.SendAndParse(ctx, &RequestOptions{Method: MethodDelete, URL: path}, dest)
}

func (c *Client) runRequestChain(opts *RequestOptions) (*RequestOptions, error) {
	var err error
	for _, ic := range c.requestInterceptors {
		if err != nil {
			if next := ic.OnRequestError(err); next != nil {
				err = next
			}
			continue
		}
		var out *RequestOptions
		out, err = ic.OnRequest(opts)
		if err == nil && out != nil {
			opts = out
		}
	}
	return opts, err
}

func (c *Client) runErrorChain(err error) error {
	for _, ic := range c.responseInterceptors {
		if next := ic.OnResponseError(err); next != nil {
			err = next
		}
	}
	return err
}

func (c *Client) send(ctx context.Context, opts *RequestOptions) (*Response, error) {
	req, err := c.buildRequest(ctx, opts)
	if err != nil {
		return nil, &RequestError{Options: opts, Err: err}
	}

	start := time.Now()
	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, &NoResponseError{Options: opts, Request: req, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &NoResponseError{Options: opts, Request: req, Err: fmt.Errorf("read body: %w", err)}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Data:       body,
		Duration:   time.Since(start),
		Options:    opts,
		Request:    req,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ResponseError{Response: resp}
	}
	return resp, nil
}

func (c *Client) buildRequest(ctx context.Context, opts *RequestOptions) (*http.Request, error) {
	if opts == nil {
		return nil, fmt.Errorf("nil request options")
	}

	target, err := c.resolveURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("resolve url: %w", err)
	}

	body, err := c.createRequestBody(opts)
	if err != nil {
		return nil, fmt.Errorf("create body: %w", err)
	}

	method := opts.Method
	if method == "" {
		method = MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	c.addQueryParams(req, opts.QueryParams)
	c.addHeaders(req, opts.Headers)

	return req, nil
}

// resolveURL joins a relative path onto the base URL; absolute URLs pass through.
func (c *Client) resolveURL(path string) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	if u.IsAbs() || c.baseURL == "" {
		return path, nil
	}
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/"), nil
}

func (c *Client) createRequestBody(opts *RequestOptions) (io.Reader, error) {
	if opts.Body == nil {
		return nil, nil
	}

	switch v := opts.Body.(type) {
	case []byte:
		return bytes.NewBuffer(v), nil
	case *[]byte:
		return bytes.NewBuffer(*v), nil
	case io.Reader:
		return v, nil
	case string:
		return strings.NewReader(v), nil
	default:
		if formData, ok := opts.Body.(map[string]string); ok {
			if ct := opts.Headers["Content-Type"]; ct == "application/x-www-form-urlencoded" {
				values := url.Values{}
				for k, v := range formData {
					values.Set(k, v)
				}
				return strings.NewReader(values.Encode()), nil
			}
		}

		jsonBody, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return bytes.NewBuffer(jsonBody), nil
	}
}

func (c *Client) addQueryParams(req *http.Request, params map[string][]string) {
	if len(params) > 0 {
		q := req.URL.Query()
		for key, values := range params {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
}

func (c *Client) addHeaders(req *http.Request, headers map[string]string) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}

// WithBaseURL sets the URL relative request paths are joined onto.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHeader sets a header sent on every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithInterceptors registers interceptors at construction time.
func WithInterceptors(interceptors ...interface{}) ClientOption {
	return func(c *Client) {
		c.Use(interceptors...)
	}
}
