package electrumx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ipld/go-ipld-prime/datamodel"

	"github.com/arc20-me/realm-stack/pkg/document"
)

// ErrUnavailable signals that every mirror failed a call (the 503 outcome).
// Callers treat it the same as "no data".
var ErrUnavailable = errors.New("all indexer mirrors unavailable")

// ErrMalformed is returned when a mirror answered with a body that is not JSON.
var ErrMalformed = errors.New("malformed indexer response")

// StatusUnavailable is the HTTP status reported for ErrUnavailable.
const StatusUnavailable = http.StatusServiceUnavailable

// MaxBodySize caps a single mirror response.
const MaxBodySize = 32 << 20

// Reply is a successful mirror response.
type Reply struct {
	Mirror string
	Status int
	Body   []byte
}

// Option adjusts a single call.
type Option func(*callOptions)

type callOptions struct {
	pinned int
}

// WithMirror pins a call to the mirror at index i.
func WithMirror(i int) Option {
	return func(o *callOptions) {
		o.pinned = i
	}
}

// Pinned reports the mirror index opts pin a call to.
func Pinned(opts ...Option) (int, bool) {
	o := callOptions{pinned: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return o.pinned, o.pinned >= 0
}

// Client issues method calls against the indexer mirrors.
type Client struct {
	selector *Selector
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a client. A nil httpClient uses a client with a 30s timeout.
func NewClient(selector *Selector, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		selector: selector,
		http:     httpClient,
		logger:   logger,
	}
}

// Selector returns the client's mirror selector.
func (c *Client) Selector() *Selector {
	return c.selector
}

// Fetch GETs {mirror}/{path} from each mirror in selector order and returns the first 2xx reply.
// Network errors and non-2xx statuses are logged and the next mirror is tried.
func (c *Client) Fetch(ctx context.Context, path string, opts ...Option) (*Reply, error) {
	pinned, _ := Pinned(opts...)

	path = strings.TrimLeft(path, "/")
	for _, idx := range c.selector.Order(pinned) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mirror := c.selector.Mirror(idx)
		target := mirror + "/" + path

		body, status, err := c.get(ctx, target)
		if err != nil {
			c.logger.Warn("indexer mirror request failed", "url", target, "error", err)
			continue
		}
		if status < 200 || status > 299 {
			c.logger.Warn("indexer mirror responded with error status", "url", target, "status", status)
			continue
		}
		return &Reply{Mirror: mirror, Status: status, Body: body}, nil
	}

	return nil, ErrUnavailable
}

func (c *Client) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", "realm-stack/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// MethodPath renders {method}?params=[...] with JSON positional params.
func MethodPath(method string, params []any) (string, error) {
	if params == nil {
		params = []any{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	return method + "?" + url.Values{"params": {string(encoded)}}.Encode(), nil
}

// Query calls method with positional params and returns the parsed JSON body.
func (c *Client) Query(ctx context.Context, method string, params []any, opts ...Option) (datamodel.Node, error) {
	path, err := MethodPath(method, params)
	if err != nil {
		return nil, err
	}

	reply, err := c.Fetch(ctx, path, opts...)
	if err != nil {
		return nil, err
	}

	n, err := document.DecodeJSON(reply.Body)
	if err != nil {
		c.logger.Warn("indexer returned malformed body", "method", method, "mirror", reply.Mirror, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return n, nil
}

// Succeeded reports whether a response carries the {"success": true} envelope flag.
func Succeeded(n datamodel.Node) bool {
	ok, _ := document.Bool(document.Lookup(n, "success"))
	return ok
}

// Result returns response.result from the standard envelope.
func Result(n datamodel.Node) datamodel.Node {
	return document.Lookup(n, "response", "result")
}
