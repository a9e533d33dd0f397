package capi

//go:generate mockgen -source=deliverer.go -destination=mocks/mock_deliverer.go -package=mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/trackify-io/trackify/constants"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Deliverer performs one Graph API call. Transport failures are reported in
// Response.Error, never as a panic.
type Deliverer interface {
	Deliver(ctx context.Context, req *Request) *Response
}

type Request struct {
	URL     string
	Method  string
	Payload []byte
	Headers map[string]string
	Timeout time.Duration
}

type Response struct {
	Request      *Request
	StatusCode   int
	Header       http.Header
	ResponseBody []byte
	Error        error
	Latency      time.Duration
}

func (r *Response) String() string {
	return fmt.Sprintf("%s %s %d", r.Request.Method, r.Request.URL, r.StatusCode)
}

// HTTPDeliverer delivers via HTTP
type HTTPDeliverer struct {
	defaultTimeout time.Duration
	client         *http.Client
}

func NewHTTPDeliverer(timeout time.Duration) *HTTPDeliverer {
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport.(*http.Transport).Clone()),
	}
	return &HTTPDeliverer{
		defaultTimeout: timeout,
		client:         client,
	}
}

func timing(fn func()) time.Duration {
	start := time.Now()
	fn()
	return time.Since(start)
}

func (d *HTTPDeliverer) Deliver(ctx context.Context, req *Request) (res *Response) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = d.defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res = &Response{
		Request: req,
	}

	request, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Payload))
	if err != nil {
		res.Error = err
		return
	}

	for _, header := range constants.DefaultDelivererRequestHeaders {
		request.Header.Set(header.Name, header.Value)
	}
	for name, value := range req.Headers {
		request.Header.Set(name, value)
	}

	res.Latency = timing(func() {
		response, err := d.client.Do(request)
		if err != nil {
			res.Error = err
			return
		}
		defer func() { _ = response.Body.Close() }()
		res.StatusCode = response.StatusCode
		res.Header = response.Header

		body, err := io.ReadAll(response.Body)
		if err != nil {
			res.Error = err
			return
		}
		res.ResponseBody = body
	})

	return
}
