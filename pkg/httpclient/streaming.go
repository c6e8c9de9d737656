package httpclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrStreamDropped is reported when the server dropped the stream for falling behind
var ErrStreamDropped = errors.New("stream dropped by server")

// StreamClient handles the Server-Sent Events log stream
type StreamClient struct {
	client *Client
	events chan StreamMessage
	errors chan error
	done   chan struct{}
	cancel context.CancelFunc
}

// StreamConfig configures the streaming client
type StreamConfig struct {
	// Replay asks for the retained history before live lines, on the first connection only
	Replay bool

	// BufferSize for the event channel
	BufferSize int

	// ReconnectDelay for automatic reconnection
	ReconnectDelay time.Duration

	// MaxReconnectAttempts (0 = infinite)
	MaxReconnectAttempts int
}

// SetDefaults sets reasonable default values for StreamConfig
func (sc *StreamConfig) SetDefaults() {
	if sc.BufferSize == 0 {
		sc.BufferSize = 100
	}
	if sc.ReconnectDelay == 0 {
		sc.ReconnectDelay = 2 * time.Second
	}
}

// Stream opens the live log stream in the background
func (c *Client) Stream(ctx context.Context, config StreamConfig) (*StreamClient, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}

	config.SetDefaults()
	streamCtx, cancel := context.WithCancel(ctx)

	streamClient := &StreamClient{
		client: c,
		events: make(chan StreamMessage, config.BufferSize),
		errors: make(chan error, 10),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go streamClient.startStreaming(streamCtx, config)

	return streamClient, nil
}

// Events returns the channel for receiving log lines
func (sc *StreamClient) Events() <-chan StreamMessage {
	return sc.events
}

// Errors returns the channel for receiving errors
func (sc *StreamClient) Errors() <-chan error {
	return sc.errors
}

// Done returns a channel that's closed when streaming ends
func (sc *StreamClient) Done() <-chan struct{} {
	return sc.done
}

// Close stops the streaming client and waits for it to finish
func (sc *StreamClient) Close() error {
	sc.cancel()
	<-sc.done
	return nil
}

// startStreaming handles the SSE streaming loop with reconnection
func (sc *StreamClient) startStreaming(ctx context.Context, config StreamConfig) {
	defer close(sc.done)
	defer close(sc.events)
	defer close(sc.errors)

	replay := config.Replay
	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}

		err := sc.connectAndStream(ctx, replay)
		replay = false
		if err != nil && ctx.Err() == nil {
			sc.reportError(ctx, fmt.Errorf("streaming error: %w", err))
		}

		if config.MaxReconnectAttempts > 0 && attempts >= config.MaxReconnectAttempts {
			sc.reportError(ctx, fmt.Errorf("max reconnect attempts (%d) exceeded", config.MaxReconnectAttempts))
			return
		}
		attempts++

		select {
		case <-time.After(config.ReconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (sc *StreamClient) reportError(ctx context.Context, err error) {
	select {
	case sc.errors <- err:
	case <-ctx.Done():
	default:
	}
}

// connectAndStream establishes the SSE connection and processes frames
func (sc *StreamClient) connectAndStream(ctx context.Context, replay bool) error {
	streamURL := sc.client.baseURL.ResolveReference(&url.URL{Path: "/api/v1/logs/stream"})
	if replay {
		values := streamURL.Query()
		values.Set("replay", "true")
		streamURL.RawQuery = values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create streaming request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Authorization", "Bearer "+sc.client.token)

	resp, err := sc.client.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("streaming failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	return sc.processSSEStream(ctx, resp.Body)
}

// processSSEStream reads frames separated by blank lines. Comments are ignored.
func (sc *StreamClient) processSSEStream(ctx context.Context, reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName, data string
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if data == "" {
				eventName = ""
				continue
			}
			if err := sc.dispatch(ctx, eventName, data); err != nil {
				return err
			}
			eventName, data = "", ""
		case strings.HasPrefix(line, ":"):
			// keepalive or connection comment
		case strings.HasPrefix(line, "event: "):
			eventName = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
		// id: lines carry the sequence, which is also in the payload
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return ctx.Err()
}

func (sc *StreamClient) dispatch(ctx context.Context, eventName, data string) error {
	switch eventName {
	case "dropped":
		return fmt.Errorf("%w: %s", ErrStreamDropped, data)
	case "", "log":
	default:
		return nil
	}

	var msg StreamMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		sc.reportError(ctx, fmt.Errorf("failed to parse event: %w", err))
		return nil
	}

	select {
	case sc.events <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
