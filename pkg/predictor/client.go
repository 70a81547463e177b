package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/go-go-golems/supportchat/pkg/chat"
)

// DefaultEndpoint is the address of the predictor started by `supportchat serve`
// with its default flags.
const DefaultEndpoint = "http://localhost:5000/api/predict"

// ErrUnreachable matches every failure of a predict call: transport errors,
// non-2xx statuses and bodies that are not JSON.
var ErrUnreachable = errors.New("predictor unreachable or returned an invalid response")

type UnreachableError struct {
	Op  string
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("predictor %s: %v", e.Op, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

func (e *UnreachableError) Is(target error) bool { return target == ErrUnreachable }

// Client posts messages to a predictor endpoint. It satisfies chat.Predictor.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

var _ chat.Predictor = &Client{}

type Option func(*Client)

// WithHTTPClient replaces the default client. No timeout is configured by
// default; cancellation comes from the caller's context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Endpoint() string { return c.endpoint }

func (c *Client) Predict(ctx context.Context, message string, history []chat.Message) (string, error) {
	body, err := json.Marshal(NewRequest(message, history))
	if err != nil {
		return "", errors.Wrap(err, "marshal predict request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &UnreachableError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UnreachableError{Op: "post", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &UnreachableError{Op: "post", Err: errors.Errorf("unexpected status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UnreachableError{Op: "read response", Err: err}
	}
	reply, err := decodeReply(raw)
	if err != nil {
		return "", &UnreachableError{Op: "decode response", Err: err}
	}
	return reply, nil
}

// decodeReply only fails on bodies that are not JSON. The shape is not
// validated: a missing or null reply is "", a reply that is not a string is
// shown as its JSON text, and a body that is not an object has no reply.
func decodeReply(raw []byte) (string, error) {
	if !json.Valid(raw) {
		return "", errors.New("response body is not JSON")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", nil
	}
	r, ok := obj["reply"]
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(r, &s); err == nil {
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, r); err != nil {
		return string(r), nil
	}
	return buf.String(), nil
}
