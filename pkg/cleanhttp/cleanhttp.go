package cleanhttp

import (
	"net"
	"net/http"
	"time"
)

// NewTransport returns a transport that is not shared with
// http.DefaultTransport. maxPerHost bounds how many connections are opened
// to a single server; 0 leaves it unbounded.
func NewTransport(maxPerHost int) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   maxPerHost,
		MaxConnsPerHost:       maxPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}
}

// NewClient returns a client over a fresh transport. Redirects are not
// followed, so a 3xx response is returned to the caller as is. Per-request
// deadlines are left to the caller's context.
func NewClient(maxPerHost int) *http.Client {
	return &http.Client{
		Transport: NewTransport(maxPerHost),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
