package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tenantgate/tenantgate/internal/models"
	"github.com/tenantgate/tenantgate/internal/settings"

	log "github.com/sirupsen/logrus"
)

// Upstream failure classes. Anything that produced a response over the
// wire is not a failure here — the target's own status is relayed.
var (
	// ErrUpstreamTimeout indicates the target did not answer in time.
	ErrUpstreamTimeout = errors.New("proxy: upstream timeout")
	// ErrUpstreamLookup indicates the target's hostname did not resolve.
	ErrUpstreamLookup = errors.New("proxy: upstream lookup failed")
	// ErrUpstreamUnreachable indicates a connection-level failure.
	ErrUpstreamUnreachable = errors.New("proxy: upstream unreachable")
	// ErrClientGone indicates the client disconnected mid-request.
	ErrClientGone = errors.New("proxy: client disconnected")
)

// hop-by-hop headers never relayed in either direction.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Forwarder relays a request to a service target and streams the response
// back. Bodies pass through as raw byte streams in both directions; no
// buffering, no parsing, no retries.
type Forwarder struct {
	client *http.Client
}

// NewForwarder constructs a Forwarder with a bounded outbound timeout.
func NewForwarder(timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = settings.DefaultProxyTimeout
	}
	return &Forwarder{
		client: &http.Client{
			Timeout: timeout,
			// Redirects from the target are relayed to the client, not followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// TargetURL rewrites the inbound path for the service target: the gateway
// routing prefix is stripped, the remainder and query string are kept
// unchanged, and the service's base URL is prepended.
func TargetURL(service *models.Service, inboundPath, rawQuery string) string {
	prefix := settings.GatewayRoutePrefix + "/" + service.Version + "/" + service.Name
	rest := strings.TrimPrefix(inboundPath, prefix)
	target := strings.TrimRight(service.Target, "/") + rest
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// Forward issues the rewritten request upstream and streams the response
// to w. The inbound context cancels the outbound request when the client
// disconnects. Returns one of the error classes above, or nil once the
// upstream status line has been relayed.
func (f *Forwarder) Forward(ctx context.Context, w http.ResponseWriter, r *http.Request, service *models.Service) error {
	targetURL := TargetURL(service, r.URL.Path, r.URL.RawQuery)

	req, errNew := http.NewRequestWithContext(ctx, r.Method, targetURL, r.Body)
	if errNew != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnreachable, errNew)
	}

	// Copy headers verbatim except Host and Content-Length: the transport
	// sets the correct Host for the outbound connection and recomputes the
	// length from the actual body.
	req.Header = r.Header.Clone()
	req.Header.Del("Host")
	req.Header.Del("Content-Length")
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}
	req.ContentLength = r.ContentLength

	resp, errDo := f.client.Do(req)
	if errDo != nil {
		return classifyTransportError(ctx, errDo)
	}
	defer resp.Body.Close()

	header := w.Header()
	for key, values := range resp.Header {
		if isHopHeader(key) {
			continue
		}
		for _, value := range values {
			header.Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, errCopy := io.Copy(w, resp.Body); errCopy != nil {
		// The status line is already relayed; a broken pipe here usually
		// means the client went away.
		log.WithError(errCopy).WithField("target", targetURL).Debug("proxy: response stream interrupted")
	}
	return nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrClientGone, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrUpstreamLookup, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
}

func isHopHeader(name string) bool {
	for _, h := range hopHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}
