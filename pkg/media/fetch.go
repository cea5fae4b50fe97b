package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Fetch downloads url and returns its body with the reported content type.
// Non-2xx responses and bodies larger than the configured limit are errors.
func (r *Resolver) Fetch(ctx context.Context, url string) (*Resolved, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(body)) > r.maxBytes {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, url)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body from %s", ErrNotFound, url)
	}

	return &Resolved{
		ContentType: resp.Header.Get("Content-Type"),
		Bytes:       body,
	}, nil
}
