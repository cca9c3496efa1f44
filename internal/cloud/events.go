package cloud

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dlkinney/particle-go/internal/logging"
)

// Event is one entry from the cloud's server-sent event stream. Devices
// publish events with a name and an optional data payload.
type Event struct {
	Name        string
	Data        string
	TTL         int
	PublishedAt time.Time
	CoreID      string
}

// eventPayload is the JSON carried on the "data:" line of an SSE message.
type eventPayload struct {
	Data        string `json:"data"`
	TTL         int    `json:"ttl"`
	PublishedAt string `json:"published_at"`
	CoreID      string `json:"coreid"`
}

// SubscribeEvents opens the server-sent event stream for the account's
// devices, optionally filtered by event name prefix. Events are delivered
// on the returned channel until ctx is cancelled or the stream ends, at
// which point the channel is closed. Malformed stream entries are logged
// and skipped; they never terminate the subscription.
func (c *Client) SubscribeEvents(ctx context.Context, prefix string) (<-chan Event, error) {
	path := "/v1/devices/events"
	if prefix != "" {
		path += "/" + url.PathEscape(prefix)
	}

	req, err := c.newRequest(http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	// Streaming connection: the client-level timeout would kill the
	// stream, so use a transport without one. Cancellation comes from ctx.
	streamClient := &http.Client{Transport: c.HTTPClient.Transport}

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, NewNetworkError("event stream request failed", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_ = resp.Body.Close()
		return nil, NewAuthError("access token rejected")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, NewHTTPError(resp.StatusCode, "event stream rejected")
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var pendingName string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				pendingName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))

			case strings.HasPrefix(line, "data:"):
				if pendingName == "" {
					continue
				}
				event, ok := decodeEvent(pendingName, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
				pendingName = ""
				if !ok {
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}

			default:
				// Comments and keepalive blank lines
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			logging.Warn("event stream ended", zap.Error(err))
		}
	}()

	return events, nil
}

// decodeEvent parses the JSON payload of one SSE data line.
func decodeEvent(name, data string) (Event, bool) {
	var payload eventPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		logging.Debug("skipping malformed event payload",
			zap.String("event", name),
			zap.Error(err),
		)
		return Event{}, false
	}

	event := Event{
		Name:   name,
		Data:   payload.Data,
		TTL:    payload.TTL,
		CoreID: payload.CoreID,
	}
	if payload.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, payload.PublishedAt); err == nil {
			event.PublishedAt = t
		}
	}
	return event, true
}
