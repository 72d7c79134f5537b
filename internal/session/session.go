package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hearthlabs/hearth/internal/domain"
	"github.com/hearthlabs/hearth/internal/infrastructure/changefeed"
	"github.com/hearthlabs/hearth/internal/infrastructure/logging"
	"github.com/hearthlabs/hearth/internal/infrastructure/metrics"
	"github.com/hearthlabs/hearth/internal/infrastructure/tracing"
	"github.com/hearthlabs/hearth/internal/infrastructure/validate"
	"github.com/hearthlabs/hearth/internal/notify"
)

const (
	DefaultJoinCooldown = time.Second
	DefaultJoinTimeout  = 10 * time.Second
)

type state int

const (
	stateIdle state = iota
	stateJoining
	stateJoined
	stateLeaving
)

// Identity is the local user this daemon acts for.
type Identity struct {
	UserID      string
	DisplayName string
	AvatarRef   string
}

type Options struct {
	JoinCooldown time.Duration
	JoinTimeout  time.Duration
	Retry        RetryPolicy
}

// joinAttempt is the per-room debounce record. Process-local only.
type joinAttempt struct {
	attempts int
	lastAt   time.Time
}

// Snapshot is the session view the control surface renders.
type Snapshot struct {
	Room           *domain.Room            `json:"room,omitempty"`
	Role           string                  `json:"role"`
	Status         domain.ConnectionStatus `json:"status"`
	Degraded       bool                    `json:"degraded"`
	Muted          bool                    `json:"muted"`
	ActiveSpeakers []string                `json:"activeSpeakers,omitempty"`
	SpeakRequests  []domain.SpeakRequest   `json:"speakRequests,omitempty"`
}

// Manager owns the lifecycle of the one room the local user is in.
// All mutating operations are serialized behind the state machine: a
// second join while one is in flight is rejected, never queued. No lock
// is held across store or transport calls.
type Manager struct {
	identity     Identity
	rooms        domain.RoomRepository
	participants domain.ParticipantRepository
	profiles     domain.ProfileRepository
	audit        domain.ModerationAuditRepository
	transport    AudioTransport
	slot         Slot
	publisher    ChangePublisher
	feed         *notify.Feed
	logger       logging.Logger
	opts         Options

	mu             sync.Mutex
	state          state
	current        *domain.Room
	me             *domain.Participant
	status         domain.ConnectionStatus
	degraded       bool
	muted          bool
	activeSpeakers []string
	attempts       map[string]*joinAttempt
	rejoined       bool

	moderation *Moderation
}

func NewManager(
	identity Identity,
	rooms domain.RoomRepository,
	participants domain.ParticipantRepository,
	profiles domain.ProfileRepository,
	audit domain.ModerationAuditRepository,
	transport AudioTransport,
	slot Slot,
	publisher ChangePublisher,
	feed *notify.Feed,
	logger logging.Logger,
	opts Options,
) *Manager {
	if opts.JoinCooldown <= 0 {
		opts.JoinCooldown = DefaultJoinCooldown
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = DefaultJoinTimeout
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}

	m := &Manager{
		identity:     identity,
		rooms:        rooms,
		participants: participants,
		profiles:     profiles,
		audit:        audit,
		transport:    transport,
		slot:         slot,
		publisher:    publisher,
		feed:         feed,
		logger:       logger,
		opts:         opts,
		state:        stateIdle,
		status:       domain.Disconnected,
		attempts:     make(map[string]*joinAttempt),
	}
	m.moderation = &Moderation{mgr: m}
	return m
}

func (m *Manager) Moderation() *Moderation {
	return m.moderation
}

// Join makes the local user a participant of roomID and brings the
// audio link up. Joining the room the user is already in is a no-op.
// Data membership and audio connectivity are independent: a transport
// failure after a successful store write leaves the session joined but
// degraded instead of rolling the join back.
func (m *Manager) Join(ctx context.Context, roomID string) error {
	m.mu.Lock()
	if m.state == stateJoined && m.current != nil && m.current.ID == roomID {
		m.mu.Unlock()
		return nil
	}
	if m.state == stateJoining || m.state == stateLeaving {
		m.mu.Unlock()
		metrics.JoinAttempts.WithLabelValues("concurrent").Inc()
		return domain.ErrConcurrentJoin
	}
	switchingFrom := ""
	if m.state == stateJoined && m.current != nil {
		switchingFrom = m.current.ID
	}

	attempt, ok := m.attempts[roomID]
	if !ok {
		attempt = &joinAttempt{}
		m.attempts[roomID] = attempt
	}
	if time.Since(attempt.lastAt) < m.opts.JoinCooldown {
		m.mu.Unlock()
		metrics.JoinAttempts.WithLabelValues("cooldown").Inc()
		return domain.ErrJoinCooldown
	}
	attempt.attempts++
	attempt.lastAt = time.Now()
	m.mu.Unlock()

	// Moving rooms means leaving the old one first. The leave runs to
	// completion before the joining state is entered.
	if switchingFrom != "" {
		if err := m.Leave(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	if m.state != stateIdle {
		m.mu.Unlock()
		metrics.JoinAttempts.WithLabelValues("concurrent").Inc()
		return domain.ErrConcurrentJoin
	}
	m.state = stateJoining
	m.setStatusLocked(domain.Connecting)
	m.mu.Unlock()

	joinCtx, cancel := context.WithTimeout(ctx, m.opts.JoinTimeout)
	defer cancel()

	tracer := tracing.GetTracer("session")
	joinCtx, span := tracer.Start(joinCtx, "session.join")
	defer span.End()

	room, me, degraded, err := m.performJoin(joinCtx, roomID)
	if err != nil {
		m.mu.Lock()
		m.state = stateIdle
		m.setStatusLocked(domain.Disconnected)
		m.mu.Unlock()

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(joinCtx.Err(), context.DeadlineExceeded) {
			metrics.JoinAttempts.WithLabelValues("timeout").Inc()
			m.logger.Error(logging.Session, logging.Join, "join timed out", map[logging.ExtraKey]any{
				logging.RoomID: roomID,
			})
			return domain.ErrJoinTimeout
		}

		metrics.JoinAttempts.WithLabelValues("failure").Inc()
		m.logger.Error(logging.Session, logging.Join, "join failed", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	m.mu.Lock()
	m.state = stateJoined
	m.current = room
	m.me = me
	m.degraded = degraded
	m.muted = me.Muted
	m.activeSpeakers = nil
	if degraded {
		m.setStatusLocked(domain.Disconnected)
	} else {
		m.setStatusLocked(domain.Connected)
	}
	m.mu.Unlock()

	if degraded {
		metrics.JoinAttempts.WithLabelValues("degraded").Inc()
		m.logger.Warn(logging.Session, logging.Join, "joined without audio link", map[logging.ExtraKey]any{
			logging.RoomID: roomID,
			logging.UserID: m.identity.UserID,
		})
	} else {
		metrics.JoinAttempts.WithLabelValues("success").Inc()
		m.logger.Info(logging.Session, logging.Join, "joined room", map[logging.ExtraKey]any{
			logging.RoomID: roomID,
			logging.UserID: m.identity.UserID,
		})
	}
	return nil
}

func (m *Manager) performJoin(ctx context.Context, roomID string) (*domain.Room, *domain.Participant, bool, error) {
	var room *domain.Room
	err := m.opts.Retry.Do(ctx, func() error {
		var opErr error
		room, opErr = m.rooms.GetByID(ctx, roomID)
		if errors.Is(opErr, domain.ErrRoomNotFound) {
			return Permanent(opErr)
		}
		return opErr
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, nil, false, err
		}
		return nil, nil, false, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	m.upsertOwnProfile(ctx)

	candidate := domain.NewParticipant(roomID, m.identity.UserID, room.IsCreator(m.identity.UserID))
	var me *domain.Participant
	err = m.opts.Retry.Do(ctx, func() error {
		var opErr error
		me, opErr = m.participants.Upsert(ctx, candidate)
		return opErr
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	m.publishChange(ctx, changefeed.TableParticipants, changefeed.OpInsert, me)

	degraded := false
	if err := m.transport.Join(ctx, roomID, m.identity.UserID, m.identity.DisplayName, m.identity.AvatarRef, me.IsModerator, me.IsSpeaking); err != nil {
		degraded = true
		m.logger.Warn(logging.Voice, logging.Join, "audio transport join failed, continuing degraded", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
	}

	if err := m.slot.Store(ctx, roomID); err != nil {
		m.logger.Warn(logging.Redis, logging.Join, "last-room slot write failed", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
	}

	return room, me, degraded, nil
}

// Leave tears the session down. Idempotent: leaving while nothing is
// joined succeeds without side effects.
func (m *Manager) Leave(ctx context.Context) error {
	m.mu.Lock()
	if m.state != stateJoined || m.current == nil {
		m.mu.Unlock()
		return nil
	}
	m.state = stateLeaving
	m.setStatusLocked(domain.Disconnecting)
	roomID := m.current.ID
	m.mu.Unlock()

	tracer := tracing.GetTracer("session")
	ctx, span := tracer.Start(ctx, "session.leave")
	defer span.End()

	if err := m.transport.Leave(ctx); err != nil {
		m.logger.Warn(logging.Voice, logging.Leave, "audio transport leave failed", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
	}

	var storeErr error
	err := m.opts.Retry.Do(ctx, func() error {
		return m.participants.Delete(ctx, roomID, m.identity.UserID)
	})
	if err != nil && !errors.Is(err, domain.ErrParticipantNotFound) {
		storeErr = fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	} else {
		m.publishChange(ctx, changefeed.TableParticipants, changefeed.OpDelete, map[string]string{
			"room_id": roomID,
			"user_id": m.identity.UserID,
		})
	}

	if err := m.slot.Clear(ctx); err != nil {
		m.logger.Warn(logging.Redis, logging.Leave, "last-room slot clear failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	m.mu.Lock()
	m.state = stateIdle
	m.current = nil
	m.me = nil
	m.degraded = false
	m.muted = false
	m.activeSpeakers = nil
	m.setStatusLocked(domain.Disconnected)
	m.mu.Unlock()

	m.moderation.reset()

	m.logger.Info(logging.Session, logging.Leave, "left room", map[logging.ExtraKey]any{
		logging.RoomID: roomID,
		logging.UserID: m.identity.UserID,
	})
	return storeErr
}

// AutoRejoin restores the room persisted by the previous process run.
// It runs at most once per process lifetime; a restore failure clears
// the slot so a crash loop cannot pin the user to a broken room.
func (m *Manager) AutoRejoin(ctx context.Context) {
	m.mu.Lock()
	if m.rejoined {
		m.mu.Unlock()
		return
	}
	m.rejoined = true
	m.mu.Unlock()

	roomID, err := m.slot.Load(ctx)
	if err != nil {
		m.logger.Warn(logging.Redis, logging.Rejoin, "last-room slot read failed, skipping auto-rejoin", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}
	if roomID == "" {
		return
	}

	m.logger.Info(logging.Session, logging.Rejoin, "restoring previous room", map[logging.ExtraKey]any{
		logging.RoomID: roomID,
	})

	if err := m.Join(ctx, roomID); err != nil {
		m.logger.Warn(logging.Session, logging.Rejoin, "auto-rejoin failed", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
		if clearErr := m.slot.Clear(ctx); clearErr != nil {
			m.logger.Warn(logging.Redis, logging.Rejoin, "slot clear after failed rejoin", map[logging.ExtraKey]any{
				logging.ErrorMessage: clearErr.Error(),
			})
		}
	}
}

// Shutdown fires a leave signal without waiting for the result. The
// slot is left intact so the next run can auto-rejoin.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	joined := m.state == stateJoined
	m.mu.Unlock()

	if joined {
		m.transport.FireLeave()
	}
}

// CreateRoom inserts the room, seats the creator as moderator+speaker
// and, for live rooms, performs a normal join. Scheduled rooms are only
// announced.
func (m *Manager) CreateRoom(ctx context.Context, name, topic, theme string, scheduledAt *time.Time) (*domain.Room, error) {
	if err := validateRoomName(name); err != nil {
		return nil, err
	}

	var room *domain.Room
	if scheduledAt != nil {
		var err error
		room, err = domain.NewScheduledRoom(name, topic, theme, m.identity.UserID, *scheduledAt)
		if err != nil {
			return nil, err
		}
	} else {
		room = domain.NewRoom(name, topic, theme, m.identity.UserID)
	}

	err := m.opts.Retry.Do(ctx, func() error {
		insertErr := m.rooms.Insert(ctx, room)
		if errors.Is(insertErr, domain.ErrRoomAlreadyExists) {
			return Permanent(insertErr)
		}
		return insertErr
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoomAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	m.publishChange(ctx, changefeed.TableRooms, changefeed.OpInsert, room)

	if room.IsLive() {
		if err := m.Join(ctx, room.ID); err != nil {
			m.logger.Warn(logging.Session, logging.Join, "join after create failed", map[logging.ExtraKey]any{
				logging.RoomID:       room.ID,
				logging.ErrorMessage: err.Error(),
			})
		}
	}
	return room, nil
}

// DeleteRoom removes a room the local user created. If it is the
// current room the session leaves first.
func (m *Manager) DeleteRoom(ctx context.Context, roomID string) error {
	room, err := m.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if !room.IsCreator(m.identity.UserID) {
		return domain.ErrNotRoomCreator
	}

	m.mu.Lock()
	inRoom := m.state == stateJoined && m.current != nil && m.current.ID == roomID
	m.mu.Unlock()
	if inRoom {
		if err := m.Leave(ctx); err != nil {
			return err
		}
	}

	err = m.opts.Retry.Do(ctx, func() error {
		deleteErr := m.rooms.Delete(ctx, roomID)
		if errors.Is(deleteErr, domain.ErrRoomNotFound) {
			return Permanent(deleteErr)
		}
		return deleteErr
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if err := m.participants.DeleteByRoom(ctx, roomID); err != nil {
		m.logger.Warn(logging.Mongo, logging.Leave, "participant cleanup after room delete failed", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
	}

	m.publishChange(ctx, changefeed.TableRooms, changefeed.OpDelete, map[string]string{"id": roomID})
	return nil
}

// ToggleMute flips the local live mute. The transport is ground truth
// for the resulting state; nothing is persisted.
func (m *Manager) ToggleMute(ctx context.Context, force *bool) (bool, error) {
	m.mu.Lock()
	if m.state != stateJoined {
		m.mu.Unlock()
		return false, domain.ErrNotInRoom
	}
	m.mu.Unlock()

	muted, err := m.transport.ToggleMute(ctx, force)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	m.muted = muted
	m.mu.Unlock()
	return muted, nil
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Role:     "none",
		Status:   m.status,
		Degraded: m.degraded,
		Muted:    m.muted,
	}
	if m.current != nil {
		room := *m.current
		snap.Room = &room
	}
	if m.me != nil {
		snap.Role = m.me.Role().String()
	}
	if len(m.activeSpeakers) > 0 {
		snap.ActiveSpeakers = append([]string(nil), m.activeSpeakers...)
	}
	if m.me != nil && m.me.IsModerator {
		snap.SpeakRequests = m.moderation.Queue()
	}
	return snap
}

func (m *Manager) Status() domain.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// HandleActiveSpeakers is invoked from the transport read pump.
func (m *Manager) HandleActiveSpeakers(userIDs []string) {
	m.mu.Lock()
	m.activeSpeakers = append([]string(nil), userIDs...)
	m.mu.Unlock()
}

func (m *Manager) HandleSpeakRequest(req domain.SpeakRequest) {
	m.mu.Lock()
	relevant := m.current != nil && m.current.ID == req.RoomID
	m.mu.Unlock()
	if !relevant {
		return
	}
	m.moderation.enqueue(req)
}

func (m *Manager) HandleMemberJoined(roomID, userID, displayName string) {
	if !m.inRoom(roomID) || userID == m.identity.UserID {
		return
	}
	m.feed.Publish(domain.NewNotification(domain.NotifyUserJoined, userID, displayName))
}

func (m *Manager) HandleMemberLeft(roomID, userID, displayName string) {
	if !m.inRoom(roomID) {
		return
	}
	m.moderation.removeUser(userID)
	if userID != m.identity.UserID {
		m.feed.Publish(domain.NewNotification(domain.NotifyUserLeft, userID, displayName))
	}
}

// HandleDisconnect marks the audio link down. Data membership is kept:
// the user stays in the room, degraded, until an explicit leave.
func (m *Manager) HandleDisconnect(err error) {
	m.mu.Lock()
	joined := m.state == stateJoined
	if joined {
		m.degraded = true
		m.setStatusLocked(domain.Disconnected)
	}
	m.mu.Unlock()

	m.moderation.reset()

	if joined && err != nil {
		m.logger.Warn(logging.Voice, logging.ExternalService, "audio transport disconnected", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}

// OnChange reconciles the local participant row from change feed
// events. The store is ground truth for role flags; live mute stays
// with the transport.
func (m *Manager) OnChange(ev changefeed.Event) {
	if ev.Table != changefeed.TableParticipants || ev.Op == changefeed.OpDelete {
		return
	}

	var row domain.Participant
	if err := ev.Decode(&row); err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateJoined || m.current == nil || m.current.ID != row.RoomID || row.UserID != m.identity.UserID {
		return
	}
	if m.me != nil {
		m.me.IsModerator = row.IsModerator
		m.me.IsSpeaking = row.IsSpeaking
		m.me.Muted = row.Muted
	}
}

func (m *Manager) inRoom(roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == stateJoined && m.current != nil && m.current.ID == roomID
}

func (m *Manager) upsertOwnProfile(ctx context.Context) {
	profile, err := domain.NewProfile(m.identity.UserID, m.identity.DisplayName, m.identity.AvatarRef)
	if err != nil {
		m.logger.Warn(logging.Session, logging.Join, "invalid local profile, skipping upsert", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}
	if err := m.profiles.Upsert(ctx, profile); err != nil {
		m.logger.Warn(logging.Mongo, logging.Join, "profile upsert failed", map[logging.ExtraKey]any{
			logging.UserID:       m.identity.UserID,
			logging.ErrorMessage: err.Error(),
		})
	}
}

func (m *Manager) publishChange(ctx context.Context, table changefeed.Table, op changefeed.Op, row any) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishChange(ctx, table, op, row); err != nil {
		m.logger.Warn(logging.ChangeFeed, logging.ExternalService, "change publish failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}

// setStatusLocked requires m.mu to be held.
func (m *Manager) setStatusLocked(status domain.ConnectionStatus) {
	m.status = status
	metrics.ConnectionStatus.Set(statusGaugeValue(status))
}

func statusGaugeValue(status domain.ConnectionStatus) float64 {
	switch status {
	case domain.Connecting:
		return 1
	case domain.Connected:
		return 2
	case domain.Disconnecting:
		return 3
	default:
		return 0
	}
}

func validateRoomName(name string) error {
	check := validate.Field("name",
		validate.Required(),
		validate.LengthBetween(3, 64),
	)
	if err := check(name); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRoomName, err)
	}
	return nil
}
