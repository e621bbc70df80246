package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultFetchTimeout bounds HTTP downloads of remote sources.
const DefaultFetchTimeout = 60 * time.Second

// opener reads local files or, for http(s) paths, fetches the body.
type opener struct {
	client  *http.Client
	timeout time.Duration
}

func (o opener) open(ctx context.Context, path string) (io.ReadCloser, error) {
	if !isURL(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	client := o.client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := o.timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "housingprep/1.0")

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("http get: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return &cancelCloser{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func isURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// decoding wraps r so it yields UTF-8. name is any WHATWG encoding label
// ("windows-1252", "latin1", "utf-16le"); empty or utf-8 returns r as is.
func decoding(r io.Reader, name string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return r, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", name, err)
	}
	if enc == encoding.Nop {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
