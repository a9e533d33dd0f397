package accesslog

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/trackify-io/trackify/pkg/identity"
	"github.com/trackify-io/trackify/utils"
)

type Entry struct {
	Latency  time.Duration
	ClientIP string
	Request  Request
	Response Response
}

type Request struct {
	Method    string
	Path      string
	Proto     string
	UserAgent string
	Referer   string
}

type Response struct {
	Status int
	Size   int
}

func NewEntry(r *http.Request) *Entry {
	entry := Entry{
		ClientIP: identity.ClientIP(r),
		Request: Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Proto:     r.Proto,
			UserAgent: r.UserAgent(),
			Referer:   r.Referer(),
		},
	}
	return &entry
}

func (m *Entry) MarshalZerologObject(e *zerolog.Event) {
	e.Str("client_ip", m.ClientIP)
	e.Dict("request", zerolog.Dict().
		Str("method", m.Request.Method).
		Str("path", m.Request.Path).
		Str("proto", m.Request.Proto).
		Str("user_agent", m.Request.UserAgent).
		Str("referer", m.Request.Referer),
	)
	e.Dict("response",
		zerolog.Dict().
			Int("status", m.Response.Status).
			Int("size", m.Response.Size),
	)
	e.Int64("latency", m.Latency.Milliseconds())
}

func (m *Entry) String() string {
	return fmt.Sprintf(`%s "%s %s %s" %d %d %dms "%s" "%s"`,
		m.ClientIP,
		m.Request.Method,
		m.Request.Path,
		m.Request.Proto,
		m.Response.Status,
		m.Response.Size,
		m.Latency.Milliseconds(),
		utils.DefaultIfZero(m.Request.Referer, "-"),
		utils.DefaultIfZero(m.Request.UserAgent, "-"),
	)
}
