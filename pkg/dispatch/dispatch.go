// Package dispatch sends a translated request to a channel's upstream and
// returns its response, applying retry/backoff, outbound proxying, and
// credential injection uniformly across all three families.
package dispatch

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/apierrors"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/channel"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
	internalretry "github.com/digitallysavvy/llm-gateway-proxy/pkg/internal/retry"
)

// Dispatcher sends encoded request bodies to a Channel's upstream.
type Dispatcher struct {
	clientCache map[string]*http.Client
}

// New returns a Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{clientCache: make(map[string]*http.Client)}
}

// clientFor returns the HTTP client to use for ch, building and caching one
// with ch's outbound proxy dialer the first time it is needed.
func (d *Dispatcher) clientFor(ch *channel.Channel) (*http.Client, error) {
	if c, ok := d.clientCache[ch.ID]; ok {
		return c, nil
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if ch.ProxyURL != "" {
		dialer, err := proxyDialer(ch.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("dispatch: building proxy dialer for channel %s: %w", ch.ID, err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	client := &http.Client{Transport: transport}
	d.clientCache[ch.ID] = client
	return client, nil
}

// proxyDialer builds a proxy.Dialer for an http://, https://, or socks5://
// outbound proxy URL.
func proxyDialer(proxyURLStr string) (proxy.Dialer, error) {
	u, err := url.Parse(proxyURLStr)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "socks5", "socks5h":
		return proxy.FromURL(u, proxy.Direct)
	case "http", "https":
		return &httpConnectDialer{proxyAddr: u.Host, tls: u.Scheme == "https"}, nil
	default:
		return nil, fmt.Errorf("dispatch: unsupported proxy scheme %q", u.Scheme)
	}
}

// httpConnectDialer tunnels TCP connections through an HTTP(S) proxy using
// CONNECT, for upstreams reached via an HTTP forward proxy rather than
// SOCKS5.
type httpConnectDialer struct {
	proxyAddr string
	tls       bool
}

func (h *httpConnectDialer) Dial(network, addr string) (net.Conn, error) {
	var conn net.Conn
	var err error
	if h.tls {
		conn, err = tls.Dial(network, h.proxyAddr, nil)
	} else {
		conn, err = net.Dial(network, h.proxyAddr)
	}
	if err != nil {
		return nil, err
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
	}
	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, err
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("dispatch: proxy CONNECT failed: %s", resp.Status)
	}
	return conn, nil
}

// Request describes one upstream call.
type Request struct {
	Channel *channel.Channel
	Method  string
	Path    string
	Body    []byte
	Headers map[string]string
}

// Response is an upstream's non-streaming response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Do performs a non-streaming request with retry/backoff. Retries are
// bounded by remaining time in ctx; a streaming call should use DoStream
// instead, since a partially-delivered stream must never be retried.
func (d *Dispatcher) Do(ctx context.Context, req Request, tr family.Translator) (*Response, error) {
	client, err := d.clientFor(req.Channel)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, "failed to build upstream client", err)
	}

	var result *Response
	retryCfg := internalretry.Config{
		MaxRetries:   2,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		ShouldRetry:  isRetryableStatus,
	}

	err = internalretry.Do(ctx, retryCfg, func(ctx context.Context) error {
		httpReq, err := d.buildRequest(ctx, req, tr)
		if err != nil {
			return err
		}
		httpResp, err := client.Do(httpReq)
		if err != nil {
			return err
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return err
		}
		result = &Response{StatusCode: httpResp.StatusCode, Body: body}
		if httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests {
			return &statusError{code: httpResp.StatusCode}
		}
		return nil
	})

	if err != nil && result == nil {
		return nil, apierrors.Wrap(apierrors.KindUpstreamError, "upstream request failed", err)
	}
	return result, nil
}

// DoStream opens a streaming request and returns the live response body for
// the caller to decode incrementally. It is never retried: once the first
// byte of an upstream SSE stream has reached the client, replaying the
// request would duplicate already-delivered content.
func (d *Dispatcher) DoStream(ctx context.Context, req Request, tr family.Translator) (io.ReadCloser, int, error) {
	client, err := d.clientFor(req.Channel)
	if err != nil {
		return nil, 0, apierrors.Wrap(apierrors.KindInternal, "failed to build upstream client", err)
	}

	httpReq, err := d.buildRequest(ctx, req, tr)
	if err != nil {
		return nil, 0, apierrors.Wrap(apierrors.KindInvalidRequest, "failed to build upstream request", err)
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, 0, apierrors.Wrap(apierrors.KindUpstreamError, "upstream stream request failed", err)
	}
	return httpResp.Body, httpResp.StatusCode, nil
}

func (d *Dispatcher) buildRequest(ctx context.Context, req Request, tr family.Translator) (*http.Request, error) {
	fullURL := req.Channel.BaseURL + req.Path
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	name, value := tr.AuthHeader(req.Channel.Credential)
	httpReq.Header.Set(name, value)

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("upstream returned status %d", e.code) }

func isRetryableStatus(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}
