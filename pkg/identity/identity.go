// Package identity extracts the browser identifiers Meta uses for matching
// from an inbound request.
package identity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trackify-io/trackify/constants"
)

type key struct{}

// RequestContext is built once per inbound request and passed down explicitly.
type RequestContext struct {
	IP        string
	UserAgent string
	SourceURL string
	Referer   string
	FBP       string
	FBC       string
}

var ipHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"CF-Connecting-IP",
}

func FromRequest(r *http.Request) *RequestContext {
	rc := &RequestContext{
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		SourceURL: requestURL(r),
	}
	if c, err := r.Cookie(constants.CookieFBP); err == nil {
		rc.FBP = c.Value
	}
	if c, err := r.Cookie(constants.CookieFBC); err == nil {
		rc.FBC = c.Value
	}
	if rc.FBC == "" {
		rc.FBC = FBCFromURL(r.URL)
	}
	return rc
}

// SetSourceURL replaces the source url with the page the browser reported,
// deriving fbc from its fbclid when no cookie was sent.
func (rc *RequestContext) SetSourceURL(raw string) {
	if raw == "" {
		return
	}
	rc.SourceURL = raw
	if rc.FBC != "" {
		return
	}
	if u, err := url.Parse(raw); err == nil {
		rc.FBC = FBCFromURL(u)
	}
}

// FBCFromURL formats the click id cookie value Meta expects: fb.1.{unix_ms}.{fbclid}.
func FBCFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	fbclid := u.Query().Get(constants.QueryFBCLID)
	if fbclid == "" {
		return ""
	}
	return fmt.Sprintf("fb.1.%d.%s", time.Now().UnixMilli(), fbclid)
}

// ClientIP returns the visitor address, trusting proxy headers first.
func ClientIP(r *http.Request) string {
	for _, header := range ipHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		first, _, _ := strings.Cut(value, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func WithContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, key{}, rc)
}

func FromContext(ctx context.Context) (*RequestContext, bool) {
	value, ok := ctx.Value(key{}).(*RequestContext)
	return value, ok
}
