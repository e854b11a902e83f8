package apiclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/localix/preloadd/pkg/preload"
)

// WatchResource streams state changes of key ("all" for every resource) and
// calls fn for each, starting with the current state. It returns when ctx
// is cancelled, the stream ends, or fn returns an error.
func (c *Client) WatchResource(ctx context.Context, key string, fn func(preload.PreloadedData) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, resourcePath("/api/v1/resources/%s/events", key), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// Streams outlive the client timeout.
	stream := &http.Client{Transport: c.httpClient.Transport}
	resp, err := stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return parseError(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var d preload.PreloadedData
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("event stream failed: %w", err)
	}
	return nil
}
