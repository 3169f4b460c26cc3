package together

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/HerbHall/narracode/pkg/llm"
)

type paramsKey struct{}

func withParams(ctx context.Context, p llm.Params) context.Context {
	return context.WithValue(ctx, paramsKey{}, p)
}

// paramsTransport writes the sampling parameters carried by the request
// context into the JSON body of chat completion requests. go-openai only
// models a fixed parameter set and drops a zero temperature; this keeps every
// named parameter, including temperature 0, on the wire unchanged.
type paramsTransport struct {
	next http.RoundTripper
}

func (t *paramsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	p, ok := req.Context().Value(paramsKey{}).(llm.Params)
	if !ok || req.Method != http.MethodPost || req.Body == nil ||
		!strings.HasSuffix(req.URL.Path, "/chat/completions") {
		return t.next.RoundTrip(req)
	}

	raw, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode request body: %w", err)
	}
	for k, v := range p.Map() {
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode parameter %q: %w", k, err)
		}
		body[k] = enc
	}
	out, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	r := req.Clone(req.Context())
	r.Body = io.NopCloser(bytes.NewReader(out))
	r.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(out)), nil }
	r.ContentLength = int64(len(out))
	r.Header.Set("Content-Length", strconv.Itoa(len(out)))
	return t.next.RoundTrip(r)
}
