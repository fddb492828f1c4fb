// Package relay talks the NIP-01 wire protocol to a list of append-only
// signed-event relays: one-shot queries over short-lived websocket
// connections, fire-and-forget publishes, and the fan-out resolution and
// publish pipelines built on top.
package relay

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stammtischbot/internal/nostr"
)

// ErrTimeout is returned when a relay neither matched the subscription nor
// signaled EOSE within the query timeout.
var ErrTimeout = errors.New("relay query timed out")

// DefaultQueryTimeout bounds every one-shot relay query.
const DefaultQueryTimeout = 10 * time.Second

// Client opens one short-lived websocket connection per call. Connections are
// closed unconditionally on match, EOSE, timeout or transport error.
type Client struct {
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewClient creates a relay transport client.
func NewClient(logger *zap.Logger) *Client {
	return &Client{
		dialer: websocket.DefaultDialer,
		logger: logger,
	}
}

// Query subscribes with the filter and returns the first matching event, nil
// when the relay signals EOSE before any match, or an error (ErrTimeout
// wrapped when the deadline passed first).
func (c *Client) Query(ctx context.Context, relayURL string, filter nostr.Filter, timeout time.Duration) (*nostr.Event, error) {
	var result *nostr.Event
	err := c.subscribe(ctx, relayURL, filter, timeout, func(ev *nostr.Event) bool {
		result = ev
		return true // stop after the first match
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// QueryAll subscribes with the filter and accumulates every matching event
// until EOSE or timeout. A timeout after at least one event is not an error;
// the partial list is returned.
func (c *Client) QueryAll(ctx context.Context, relayURL string, filter nostr.Filter, timeout time.Duration) ([]nostr.Event, error) {
	var results []nostr.Event
	err := c.subscribe(ctx, relayURL, filter, timeout, func(ev *nostr.Event) bool {
		results = append(results, *ev)
		return false
	})
	if err != nil {
		if errors.Is(err, ErrTimeout) && len(results) > 0 {
			return results, nil
		}
		return nil, err
	}
	return results, nil
}

// Publish sends the event and returns once the write completes. The relay's
// OK response is not awaited; broadcast is best-effort by design.
func (c *Client) Publish(ctx context.Context, relayURL string, event *nostr.Event) error {
	conn, _, err := c.dialer.DialContext(ctx, relayURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", relayURL, err)
	}
	defer conn.Close()

	eventJSON, err := event.MarshalWire()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	msg := fmt.Sprintf(`["EVENT",%s]`, eventJSON)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", relayURL, err)
	}

	c.logger.Info("Published event",
		zap.String("relay", relayURL),
		zap.String("event_id", nostr.ShortID(event.ID)),
	)
	return nil
}

// subscribe runs one REQ subscription. onEvent returns true to stop reading.
func (c *Client) subscribe(ctx context.Context, relayURL string, filter nostr.Filter, timeout time.Duration, onEvent func(*nostr.Event) bool) error {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	deadline := time.Now().Add(timeout)

	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, relayURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", relayURL, err)
	}
	defer conn.Close()

	subID := "sub-" + randomID(8)
	req := []interface{}{"REQ", subID, filter}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send REQ to %s: %w", relayURL, err)
	}

	conn.SetReadDeadline(deadline)

	for {
		var msg []json.RawMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if isTimeout(err) {
				return fmt.Errorf("%w: %s", ErrTimeout, relayURL)
			}
			return fmt.Errorf("read from %s failed: %w", relayURL, err)
		}

		if len(msg) < 2 {
			continue
		}

		var msgType, gotSub string
		if err := json.Unmarshal(msg[0], &msgType); err != nil {
			continue
		}
		if err := json.Unmarshal(msg[1], &gotSub); err != nil || gotSub != subID {
			continue
		}

		switch msgType {
		case "EVENT":
			if len(msg) < 3 {
				continue
			}
			var ev nostr.Event
			if err := json.Unmarshal(msg[2], &ev); err != nil {
				c.logger.Warn("Malformed event frame", zap.String("relay", relayURL), zap.Error(err))
				continue
			}
			if !filter.Matches(&ev) {
				c.logger.Warn("Relay sent event outside the subscription filter",
					zap.String("relay", relayURL),
					zap.String("event_id", nostr.ShortID(ev.ID)),
				)
				continue
			}
			if onEvent(&ev) {
				return nil
			}
		case "EOSE":
			return nil
		}
	}
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func randomID(n int) string {
	buf := make([]byte, n)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
