package plancache

import (
	"crypto/tls"
	"net/http"
	"net/url"
)

// Fetcher retrieves a resource from the network. It is the worker's
// only way to reach the origin, injected so the engine can run
// against a test double. An aborted or failed fetch surfaces as an
// ordinary error; an HTTP error status is still a response, not an
// error, matching network fetch semantics.
type Fetcher interface {
	Fetch(r *http.Request) (*http.Response, error)
}

// Origin fetches from an origin server over HTTP.
type Origin struct {
	originURL  url.URL
	hostHeader string
	client     *http.Client
}

// NewOrigin creates a fetcher for the given origin URL.
// Origins with paths are not supported.
// Use host if the origin URL is e.g. just an IP address: it is then
// used as the Host header and for TLS negotiation.
func NewOrigin(originURL url.URL, host string) *Origin {
	client := &http.Client{
		// do not follow redirects, the client gets them verbatim
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	hostHeader := originURL.Host
	if host != "" {
		hostHeader = host
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				ServerName: host,
			},
		}
	}
	return &Origin{
		originURL:  originURL,
		hostHeader: hostHeader,
		client:     client,
	}
}

// Fetch forwards the request to the origin, rewriting scheme and host.
func (o *Origin) Fetch(r *http.Request) (*http.Response, error) {
	req := r.Clone(r.Context())
	req.URL.Scheme = o.originURL.Scheme
	req.URL.Host = o.originURL.Host
	req.Host = o.hostHeader
	req.RequestURI = ""
	return o.client.Do(req)
}
