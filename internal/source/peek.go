package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Peek returns at most n bytes from the start of path, which may be a local
// file or an http(s) URL.
func Peek(ctx context.Context, path string, n int, client *http.Client) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("peek: n must be > 0")
	}
	rc, err := opener{client: client}.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, int64(n)))
	if err != nil {
		return nil, fmt.Errorf("peek %s: %w", path, err)
	}
	return b, nil
}

// NormalizeHeaders applies the header normalisation the loaders use.
func NormalizeHeaders(header []string, headerMap map[string]string) []string {
	hm := lowerKeys(headerMap)
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = normalizeHeader(h, i == 0, hm)
	}
	return out
}
