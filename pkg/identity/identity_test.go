package identity

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fbcPattern = regexp.MustCompile(`^fb\.1\.\d{13}\.abc123$`)

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://shop.example.com/product/1?color=red", nil)
	r.RemoteAddr = "10.0.0.1:54321"
	r.Header.Set("User-Agent", "Mozilla/5.0")
	r.Header.Set("Referer", "https://google.com/")
	r.AddCookie(&http.Cookie{Name: "_fbp", Value: "fb.1.1700000000000.111"})
	r.AddCookie(&http.Cookie{Name: "_fbc", Value: "fb.1.1700000000000.click"})

	rc := FromRequest(r)
	assert.Equal(t, "10.0.0.1", rc.IP)
	assert.Equal(t, "Mozilla/5.0", rc.UserAgent)
	assert.Equal(t, "https://google.com/", rc.Referer)
	assert.Equal(t, "http://shop.example.com/product/1?color=red", rc.SourceURL)
	assert.Equal(t, "fb.1.1700000000000.111", rc.FBP)
	assert.Equal(t, "fb.1.1700000000000.click", rc.FBC)
}

func TestClientIPPrecedence(t *testing.T) {
	tests := []struct {
		desc     string
		headers  map[string]string
		expected string
	}{
		{
			desc:     "remote addr",
			expected: "192.0.2.1",
		},
		{
			desc: "x-forwarded-for first entry",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.7, 10.0.0.2",
				"X-Real-IP":       "203.0.113.8",
			},
			expected: "203.0.113.7",
		},
		{
			desc: "x-real-ip before cf-connecting-ip",
			headers: map[string]string{
				"X-Real-IP":        "203.0.113.8",
				"CF-Connecting-IP": "203.0.113.9",
			},
			expected: "203.0.113.8",
		},
		{
			desc: "invalid forwarded value is skipped",
			headers: map[string]string{
				"X-Forwarded-For":  "unknown",
				"CF-Connecting-IP": "2001:db8::1",
			},
			expected: "2001:db8::1",
		},
	}
	for _, test := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		for k, v := range test.headers {
			r.Header.Set(k, v)
		}
		assert.Equal(t, test.expected, FromRequest(r).IP, test.desc)
	}
}

func TestHTTPSSourceURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "https://shop.example.com/checkout", nil)
	r.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://shop.example.com/checkout", FromRequest(r).SourceURL)

	r = httptest.NewRequest(http.MethodGet, "http://shop.example.com/checkout", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://shop.example.com/checkout", FromRequest(r).SourceURL)
}

func TestFBCFromClickID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://shop.example.com/?fbclid=abc123", nil)
	assert.Regexp(t, fbcPattern, FromRequest(r).FBC)

	r.AddCookie(&http.Cookie{Name: "_fbc", Value: "fb.1.1.cookie"})
	assert.Equal(t, "fb.1.1.cookie", FromRequest(r).FBC)

	assert.Equal(t, "", FBCFromURL(nil))
	assert.Equal(t, "", FBCFromURL(&url.URL{Path: "/"}))
}

func TestSetSourceURL(t *testing.T) {
	rc := &RequestContext{SourceURL: "http://tracker/track"}
	rc.SetSourceURL("")
	assert.Equal(t, "http://tracker/track", rc.SourceURL)

	rc.SetSourceURL("https://shop.example.com/landing?fbclid=abc123")
	assert.Equal(t, "https://shop.example.com/landing?fbclid=abc123", rc.SourceURL)
	assert.Regexp(t, fbcPattern, rc.FBC)

	rc.FBC = "fb.1.1.cookie"
	rc.SetSourceURL("https://shop.example.com/?fbclid=other")
	assert.Equal(t, "fb.1.1.cookie", rc.FBC)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	rc := &RequestContext{IP: "1.2.3.4"}
	got, ok := FromContext(WithContext(context.Background(), rc))
	require.True(t, ok)
	assert.Same(t, rc, got)

	c := &Customer{Email: "a@b.co"}
	gotCustomer, ok := CustomerFromContext(WithCustomer(context.Background(), c))
	require.True(t, ok)
	assert.Same(t, c, gotCustomer)
}
