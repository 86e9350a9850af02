package uploader

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// ClientOptions configures the HTTP client used for uploads.
type ClientOptions struct {
	// Timeout bounds the whole request including reading the response.
	// Zero means no timeout.
	Timeout time.Duration

	// ProxyURL routes requests through a proxy.
	// socks5:// and socks5h:// proxies are dialed with golang.org/x/net/proxy;
	// http:// and https:// proxies use the standard CONNECT/forwarding support.
	// Empty keeps the environment proxy settings (HTTP_PROXY and friends).
	ProxyURL string
}

// NewHTTPClient builds an HTTP client for the given options.
// The proxy is not contacted until the first request.
func NewHTTPClient(opts ClientOptions) (*http.Client, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		transport = &http.Transport{}
	} else {
		transport = transport.Clone()
	}

	if opts.ProxyURL != "" {
		u, err := url.Parse(opts.ProxyURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProxyURL, opts.ProxyURL)
		}

		switch u.Scheme {
		case "socks5", "socks5h":
			dialer, err := proxy.FromURL(u, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidProxyURL, err)
			}
			transport.Proxy = nil
			transport.DialContext = contextDialer(dialer)
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		default:
			return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxyURL, u.Scheme)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}, nil
}

// contextDialer adapts a proxy.Dialer to the DialContext signature.
// Dialers without context support are raced against ctx; if ctx wins, the
// connection that arrives late is closed.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)

		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			go func() {
				if result := <-resultCh; result.conn != nil {
					_ = result.conn.Close() //nolint:errcheck // Nobody is waiting for this connection
				}
			}()
			return nil, ctx.Err()
		}
	}
}
