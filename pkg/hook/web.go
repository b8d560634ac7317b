package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Web posts the value T as a JSON payload to each URL.
//
// The hook succeeds if and only if all of the URLs respond with 2xx.
// It stops at the first failure.
type Web[T any] struct {
	URLs []*url.URL

	// Client sends requests. If nil, http.DefaultClient is used.
	Client *http.Client
}

func (w Web[T]) client() *http.Client {
	if w.Client == nil {
		return http.DefaultClient
	}
	return w.Client
}

func (w Web[T]) Notify(ctx context.Context, value T) error {
	if len(w.URLs) == 0 {
		return nil
	}

	buf, err := json.Marshal(value)
	if err != nil {
		return errors.Join(err, ErrHookFailed)
	}

	for _, u := range w.URLs {
		if err := w.send(ctx, u.String(), buf); err != nil {
			return err
		}
	}
	return nil
}

func (w Web[T]) send(ctx context.Context, u string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return errors.Join(err, ErrHookFailed)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client().Do(req)
	if err != nil {
		return errors.Join(err, ErrHookFailed)
	}
	defer resp.Body.Close()

	if 200 <= resp.StatusCode && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	ctype := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ctype, "text/") && !(strings.HasPrefix(ctype, "application/") && strings.Contains(ctype, "json")) {
		return fmt.Errorf(
			"%w (%s %d, Content-Type: %s)",
			ErrHookFailed, u, resp.StatusCode, ctype,
		)
	}

	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf(
		"%w (%s %d, Content-Type: %s): %s",
		ErrHookFailed, u, resp.StatusCode, ctype, string(body),
	)
}

// Build a web hook from URL strings. Empty list yields a hook which does nothing.
func Build[T any](urls []string) (Web[T], error) {
	ret := Web[T]{URLs: make([]*url.URL, 0, len(urls))}
	for _, s := range urls {
		u, err := url.Parse(s)
		if err != nil {
			return Web[T]{}, fmt.Errorf("hook url %q: %w", s, err)
		}
		if !u.IsAbs() {
			return Web[T]{}, fmt.Errorf("hook url %q: should be absolute", s)
		}
		ret.URLs = append(ret.URLs, u)
	}
	return ret, nil
}
