package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hearthlabs/hearth/internal/domain"
	"github.com/hearthlabs/hearth/internal/infrastructure/logging"
)

const defaultCommandTimeout = 5 * time.Second

type Config struct {
	ControlURL     string
	CommandTimeout time.Duration
}

type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	OK      bool            `json:"ok,omitempty"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinPayload struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef,omitempty"`
	IsModerator bool   `json:"isModerator"`
	IsSpeaker   bool   `json:"isSpeaker"`
}

type targetPayload struct {
	UserID string `json:"userId"`
}

type mutePayload struct {
	Force *bool `json:"force,omitempty"`
	Muted bool  `json:"muted"`
}

type speakersPayload struct {
	UserIDs []string `json:"userIds"`
}

type memberPayload struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Callbacks receive transport-originated events. All are optional and
// invoked from the read pump goroutine; handlers must not block.
type Callbacks struct {
	OnActiveSpeakers func(userIDs []string)
	OnSpeakRequest   func(req domain.SpeakRequest)
	OnMemberJoined   func(roomID, userID, displayName string)
	OnMemberLeft     func(roomID, userID, displayName string)
	OnDisconnect     func(err error)
}

// Client is the websocket control-plane link to the voice server. Media
// flows elsewhere; this connection only carries join/leave, role
// commands, and presence events.
type Client struct {
	cfg       Config
	logger    logging.Logger
	callbacks Callbacks

	mu      sync.Mutex
	conn    *websocket.Conn
	closed  bool
	pending map[string]chan frame
}

func NewClient(cfg Config, logger logging.Logger, callbacks Callbacks) *Client {
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}

	return &Client{
		cfg:       cfg,
		logger:    logger,
		callbacks: callbacks,
		pending:   make(map[string]chan frame),
	}
}

// Join dials the control endpoint if needed and announces the local
// user in roomID. Returns domain.ErrTransportUnavailable wrapped around
// the underlying cause when the link cannot be established.
func (c *Client) Join(ctx context.Context, roomID, userID, displayName, avatarRef string, isModerator, isSpeaker bool) error {
	if err := c.connect(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransportUnavailable, err)
	}

	payload := joinPayload{
		RoomID:      roomID,
		UserID:      userID,
		DisplayName: displayName,
		AvatarRef:   avatarRef,
		IsModerator: isModerator,
		IsSpeaker:   isSpeaker,
	}

	_, err := c.sendCommand(ctx, CommandJoin, payload)
	return err
}

func (c *Client) Leave(ctx context.Context) error {
	_, err := c.sendCommand(ctx, CommandLeave, nil)
	c.teardown(nil)
	return err
}

// FireLeave sends a leave frame without waiting for the ack. Used by
// the shutdown hook where there is no time to round-trip.
func (c *Client) FireLeave() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.closed {
		return
	}

	msg := frame{Type: CommandLeave, ID: uuid.NewString()}
	_ = c.conn.WriteJSON(msg)
}

func (c *Client) ToggleMute(ctx context.Context, force *bool) (bool, error) {
	ack, err := c.sendCommand(ctx, CommandToggleMute, mutePayload{Force: force})
	if err != nil {
		return false, err
	}

	var result mutePayload
	if len(ack.Payload) > 0 {
		if err := json.Unmarshal(ack.Payload, &result); err != nil {
			return false, fmt.Errorf("malformed mute ack: %w", err)
		}
	}
	return result.Muted, nil
}

func (c *Client) RequestToSpeak(ctx context.Context, userID string) error {
	_, err := c.sendCommand(ctx, CommandRequestSpeak, targetPayload{UserID: userID})
	return err
}

func (c *Client) ApproveSpeaker(ctx context.Context, userID string) error {
	_, err := c.sendCommand(ctx, CommandApproveSpeaker, targetPayload{UserID: userID})
	return err
}

func (c *Client) RejectSpeaker(ctx context.Context, userID string) error {
	_, err := c.sendCommand(ctx, CommandRejectSpeaker, targetPayload{UserID: userID})
	return err
}

func (c *Client) BlockSpeaker(ctx context.Context, userID string) error {
	_, err := c.sendCommand(ctx, CommandBlockSpeaker, targetPayload{UserID: userID})
	return err
}

func (c *Client) Close() error {
	c.teardown(nil)
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.closed {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.CommandTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.ControlURL, nil)
	if err != nil {
		return err
	}

	c.conn = conn
	c.closed = false
	go c.readPump(conn)

	return nil
}

func (c *Client) sendCommand(ctx context.Context, commandType string, payload any) (frame, error) {
	c.mu.Lock()
	if c.conn == nil || c.closed {
		c.mu.Unlock()
		return frame{}, domain.ErrTransportUnavailable
	}

	msg := frame{Type: commandType, ID: uuid.NewString()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			c.mu.Unlock()
			return frame{}, err
		}
		msg.Payload = raw
	}

	ack := make(chan frame, 1)
	c.pending[msg.ID] = ack

	err := c.conn.WriteJSON(msg)
	c.mu.Unlock()

	if err != nil {
		c.dropPending(msg.ID)
		return frame{}, fmt.Errorf("%w: %v", domain.ErrTransportUnavailable, err)
	}

	select {
	case <-ctx.Done():
		c.dropPending(msg.ID)
		return frame{}, ctx.Err()
	case <-time.After(c.cfg.CommandTimeout):
		c.dropPending(msg.ID)
		return frame{}, fmt.Errorf("%w: no ack for %s", domain.ErrTransportUnavailable, commandType)
	case reply := <-ack:
		if reply.Type == "" {
			// Channel closed by teardown: the link died mid-command.
			return frame{}, domain.ErrTransportUnavailable
		}
		if !reply.OK {
			return reply, fmt.Errorf("%s rejected: %s", commandType, reply.Error)
		}
		return reply, nil
	}
}

func (c *Client) dropPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) readPump(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn(logging.Voice, logging.ExternalService, "control link read error", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
			c.teardown(err)
			return
		}

		var msg frame
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn(logging.Voice, logging.ExternalService, "dropping undecodable control frame", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
			continue
		}

		if msg.Type == AckFrame {
			c.mu.Lock()
			ack, ok := c.pending[msg.ID]
			if ok {
				delete(c.pending, msg.ID)
			}
			c.mu.Unlock()
			if ok {
				ack <- msg
			}
			continue
		}

		c.dispatchEvent(msg)
	}
}

func (c *Client) dispatchEvent(msg frame) {
	switch msg.Type {
	case EventSpeakersChanged:
		if c.callbacks.OnActiveSpeakers == nil {
			return
		}
		var payload speakersPayload
		if json.Unmarshal(msg.Payload, &payload) == nil {
			c.callbacks.OnActiveSpeakers(payload.UserIDs)
		}

	case EventSpeakRequested:
		if c.callbacks.OnSpeakRequest == nil {
			return
		}
		var payload memberPayload
		if json.Unmarshal(msg.Payload, &payload) == nil {
			c.callbacks.OnSpeakRequest(domain.SpeakRequest{
				RoomID:      payload.RoomID,
				UserID:      payload.UserID,
				DisplayName: payload.DisplayName,
			})
		}

	case EventMemberJoined:
		if c.callbacks.OnMemberJoined == nil {
			return
		}
		var payload memberPayload
		if json.Unmarshal(msg.Payload, &payload) == nil {
			c.callbacks.OnMemberJoined(payload.RoomID, payload.UserID, payload.DisplayName)
		}

	case EventMemberLeft:
		if c.callbacks.OnMemberLeft == nil {
			return
		}
		var payload memberPayload
		if json.Unmarshal(msg.Payload, &payload) == nil {
			c.callbacks.OnMemberLeft(payload.RoomID, payload.UserID, payload.DisplayName)
		}
	}
}

// teardown closes the link once, fails every in-flight command, and
// reports the disconnect.
func (c *Client) teardown(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true

	if c.conn != nil {
		_ = c.conn.Close()
	}

	for id, ack := range c.pending {
		delete(c.pending, id)
		close(ack)
	}
	c.mu.Unlock()

	if cause != nil && c.callbacks.OnDisconnect != nil {
		c.callbacks.OnDisconnect(cause)
	}
}
