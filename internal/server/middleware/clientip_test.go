package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newIPRequest(remoteAddr, xff string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set(HeaderXForwardedFor, xff)
	}
	return req
}

func TestClientIPExtractor_NoTrustedProxies(t *testing.T) {
	t.Parallel()

	e := NewClientIPExtractor(nil)

	// X-Forwarded-For is ignored without trusted proxies
	req := newIPRequest("198.51.100.1:4242", "203.0.113.9")
	assert.Equal(t, "198.51.100.1", e.Extract(req))
}

func TestClientIPExtractor_TrustedProxy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		xff        string
		want       string
	}{
		{
			name:       "direct connection from untrusted peer",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "198.51.100.1:4242",
			xff:        "203.0.113.9",
			want:       "198.51.100.1",
		},
		{
			name:       "single hop through trusted proxy",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.5:4242",
			xff:        "203.0.113.9",
			want:       "203.0.113.9",
		},
		{
			name:       "walks right to left past trusted hops",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.5:4242",
			xff:        "203.0.113.9, 10.0.0.6",
			want:       "203.0.113.9",
		},
		{
			name:       "all hops trusted falls back to remote",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.5:4242",
			xff:        "10.0.0.7, 10.0.0.6",
			want:       "10.0.0.5",
		},
		{
			name:       "trusted single IP instead of CIDR",
			trusted:    []string{"10.0.0.5"},
			remoteAddr: "10.0.0.5:4242",
			xff:        "203.0.113.9",
			want:       "203.0.113.9",
		},
		{
			name:       "empty forwarded header falls back to remote",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.5:4242",
			xff:        "",
			want:       "10.0.0.5",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewClientIPExtractor(tt.trusted)
			assert.Equal(t, tt.want, e.Extract(newIPRequest(tt.remoteAddr, tt.xff)))
		})
	}
}

func TestClientIPExtractor_InvalidProxyEntriesSkipped(t *testing.T) {
	t.Parallel()

	e := NewClientIPExtractor([]string{"not-a-cidr", "also bad"})

	req := newIPRequest("198.51.100.1:4242", "203.0.113.9")
	assert.Equal(t, "198.51.100.1", e.Extract(req))
}

func TestClientIPExtractor_Identity(t *testing.T) {
	t.Parallel()

	e := NewClientIPExtractor(nil)

	assert.Equal(t, "198.51.100.1", e.Identity(newIPRequest("198.51.100.1:4242", "")))
	assert.Equal(t, IdentityUnknown, e.Identity(newIPRequest("", "")))
}

func TestStripPort(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "192.168.1.1", stripPort("192.168.1.1:8080"))
	assert.Equal(t, "::1", stripPort("[::1]:8080"))
	assert.Equal(t, "no-port-here", stripPort("no-port-here"))
}

func TestIsLoopback(t *testing.T) {
	t.Parallel()

	assert.True(t, IsLoopback("127.0.0.1"))
	assert.True(t, IsLoopback("::1"))
	assert.True(t, IsLoopback("localhost"))
	assert.False(t, IsLoopback("198.51.100.1"))
	assert.False(t, IsLoopback(IdentityUnknown))
	assert.False(t, IsLoopback(""))
}
