// Package viewer is a client for the edge viewer API. It fetches the
// latest processed frame over HTTP or follows the live websocket feed.
package viewer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-edgeview/internal/httpc"
	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/web"
)

// ErrNoFrame is returned when the server has no processed frame yet.
var ErrNoFrame = errors.New("viewer: no frame available")

// Client talks to one viewer server.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
	logger *slog.Logger
}

// New creates a client for the server at baseURL (e.g. http://localhost:3001).
func New(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("viewer: parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("viewer: unsupported scheme %q", u.Scheme)
	}
	return &Client{
		base:   u,
		http:   httpc.Client,
		dialer: websocket.DefaultDialer,
		logger: log.Component("viewer"),
	}, nil
}

// Frame fetches /api/frame and returns the response with the decoded JPEG.
func (c *Client) Frame(ctx context.Context) (*web.FrameResponse, []byte, error) {
	body, err := httpc.GetBody(ctx, c.http, c.base.String()+"/api/frame")
	if err != nil {
		return nil, nil, fmt.Errorf("viewer: fetch frame: %w", err)
	}

	var resp web.FrameResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("viewer: decode frame response: %w", err)
	}
	if resp.Status != web.StatusSuccess || resp.Frame == nil {
		return &resp, nil, ErrNoFrame
	}

	data, err := DecodeDataURL(*resp.Frame)
	if err != nil {
		return &resp, nil, err
	}
	return &resp, data, nil
}

// Health fetches /api/health.
func (c *Client) Health(ctx context.Context) (*web.HealthResponse, error) {
	body, err := httpc.GetBody(ctx, c.http, c.base.String()+"/api/health")
	if err != nil {
		return nil, fmt.Errorf("viewer: health: %w", err)
	}
	var resp web.HealthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("viewer: decode health: %w", err)
	}
	return &resp, nil
}

// Stream follows /ws/frames, calling fn with every JPEG frame until ctx is
// cancelled, the server closes the connection or fn returns an error.
func (c *Client) Stream(ctx context.Context, fn func(jpeg []byte) error) error {
	wsURL := *c.base
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	wsURL.Path += "/ws/frames"

	conn, _, err := c.dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("viewer: dial %s: %w", wsURL.String(), err)
	}
	defer conn.Close()
	c.logger.Info("streaming frames", "url", wsURL.String())

	// Unblock ReadMessage on cancellation
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("viewer: read frame: %w", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		if err := fn(data); err != nil {
			return err
		}
	}
}

// DecodeDataURL extracts the payload of a base64 JPEG data URL.
func DecodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, web.FrameDataURL) {
		return nil, errors.New("viewer: frame is not a JPEG data URL")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, web.FrameDataURL))
	if err != nil {
		return nil, fmt.Errorf("viewer: decode frame: %w", err)
	}
	return data, nil
}
