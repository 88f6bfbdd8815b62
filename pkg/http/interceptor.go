package http

import (
	"encoding/json"
	"errors"

	applogger "PersonalQT/pkg/logger"
)

// RequestInterceptor sees every outgoing request before it is built.
// OnRequestError receives failures raised by earlier interceptors; returning
// nil keeps the incoming error.
type RequestInterceptor interface {
	OnRequest(opts *RequestOptions) (*RequestOptions, error)
	OnRequestError(err error) error
}

// ResponseInterceptor sees every completed 2xx response and every failure.
// OnResponseError returning nil keeps the incoming error.
type ResponseInterceptor interface {
	OnResponse(resp *Response) (*Response, error)
	OnResponseError(err error) error
}

// RequestRecorder is notified of every exchange outcome.
type RequestRecorder interface {
	RecordRequest(method, outcome string, seconds float64)
}

// LoggingInterceptor logs requests and responses and labels failures by kind.
// It never alters what passes through it.
type LoggingInterceptor struct {
	l *applogger.Logger
}

// NewLoggingInterceptor builds a LoggingInterceptor writing to l.
func NewLoggingInterceptor(l *applogger.Logger) *LoggingInterceptor {
	return &LoggingInterceptor{l: l}
}

func (i *LoggingInterceptor) OnRequest(opts *RequestOptions) (*RequestOptions, error) {
	i.l.Info("发送请求",
		applogger.String("method", opts.Method),
		applogger.String("path", opts.URL),
		applogger.Any("payload", opts.Payload()),
	)
	return opts, nil
}

func (i *LoggingInterceptor) OnRequestError(err error) error {
	return err
}

func (i *LoggingInterceptor) OnResponse(resp *Response) (*Response, error) {
	i.l.Info("接收响应",
		applogger.String("url", resp.Options.URL),
		applogger.Int("status", resp.StatusCode),
		applogger.Any("data", rawOrString(resp.Data)),
	)
	return resp, nil
}

func (i *LoggingInterceptor) OnResponseError(err error) error {
	var respErr *ResponseError
	var noRespErr *NoResponseError
	switch {
	case errors.As(err, &respErr):
		i.l.Error("API错误",
			applogger.Int("status", respErr.StatusCode()),
			applogger.Any("data", rawOrString(respErr.Response.Data)),
		)
	case errors.As(err, &noRespErr):
		i.l.Error("网络错误",
			applogger.String("method", noRespErr.Request.Method),
			applogger.String("url", noRespErr.Request.URL.Redacted()),
			applogger.Bool("timeout", noRespErr.Timeout()),
			applogger.Error(noRespErr.Err),
		)
	default:
		i.l.Error("请求错误", applogger.String("message", errorMessage(err)))
	}
	return err
}

// MetricsInterceptor reports each exchange outcome to a RequestRecorder.
type MetricsInterceptor struct {
	rec RequestRecorder
}

// NewMetricsInterceptor builds a MetricsInterceptor.
func NewMetricsInterceptor(rec RequestRecorder) *MetricsInterceptor {
	return &MetricsInterceptor{rec: rec}
}

func (i *MetricsInterceptor) OnResponse(resp *Response) (*Response, error) {
	i.rec.RecordRequest(resp.Options.Method, "ok", resp.Duration.Seconds())
	return resp, nil
}

func (i *MetricsInterceptor) OnResponseError(err error) error {
	method := ""
	var seconds float64
	var respErr *ResponseError
	var noRespErr *NoResponseError
	var reqErr *RequestError
	switch {
	case errors.As(err, &respErr):
		method = respErr.Response.Options.Method
		seconds = respErr.Response.Duration.Seconds()
	case errors.As(err, &noRespErr):
		method = noRespErr.Request.Method
	case errors.As(err, &reqErr) && reqErr.Options != nil:
		method = reqErr.Options.Method
	}
	i.rec.RecordRequest(method, Classify(err).String(), seconds)
	return err
}

// rawOrString keeps JSON bodies structured in the log line.
func rawOrString(b []byte) interface{} {
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	return string(b)
}

func errorMessage(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Err != nil {
		return reqErr.Err.Error()
	}
	return err.Error()
}
