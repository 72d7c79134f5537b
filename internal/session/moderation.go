package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hearthlabs/hearth/internal/domain"
	"github.com/hearthlabs/hearth/internal/infrastructure/changefeed"
	"github.com/hearthlabs/hearth/internal/infrastructure/logging"
	"github.com/hearthlabs/hearth/internal/infrastructure/metrics"
)

// Moderation runs the speak-request queue and the role transitions on
// top of the current session. Role flags are written to both the store
// and the transport; when one write fails the other still goes through
// and the next catalog refresh reconciles from the store, which is
// ground truth for role flags. The transport stays ground truth for
// live mute.
type Moderation struct {
	mgr *Manager

	mu    sync.Mutex
	queue []domain.SpeakRequest
}

// RequestToSpeak asks for the floor. A speaker calling it steps back to
// listener instead; a moderator is promoted immediately, bypassing the
// queue.
func (mod *Moderation) RequestToSpeak(ctx context.Context) error {
	m := mod.mgr

	m.mu.Lock()
	if m.state != stateJoined || m.current == nil || m.me == nil {
		m.mu.Unlock()
		return domain.ErrNotInRoom
	}
	roomID := m.current.ID
	me := *m.me
	m.mu.Unlock()

	metrics.ModerationActions.WithLabelValues("request").Inc()

	if me.IsSpeaking && !me.IsModerator {
		return mod.stepBackToListener(ctx, roomID, me.UserID)
	}

	if me.IsModerator {
		return mod.promote(ctx, roomID, me.UserID)
	}

	participants, err := m.participants.GetByRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	hasModerator := false
	for _, p := range participants {
		if p.IsModerator {
			hasModerator = true
			break
		}
	}
	if !hasModerator {
		return domain.ErrNoModerator
	}

	mod.mu.Lock()
	for _, req := range mod.queue {
		if req.UserID == me.UserID {
			mod.mu.Unlock()
			return domain.ErrDuplicateRequest
		}
	}
	mod.queue = append(mod.queue, domain.SpeakRequest{
		RoomID:      roomID,
		UserID:      me.UserID,
		DisplayName: m.identity.DisplayName,
	})
	mod.mu.Unlock()

	if err := m.transport.RequestToSpeak(ctx, me.UserID); err != nil {
		m.logger.Warn(logging.Voice, logging.RoleSync, "speak request signal failed", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
	}

	mod.writeAudit(ctx, domain.EventSpeakRequested, roomID, me.UserID, me.UserID)
	return nil
}

// Approve grants the floor to targetID and removes their queue entry.
func (mod *Moderation) Approve(ctx context.Context, targetID string) error {
	m := mod.mgr

	roomID, err := mod.requireModerator()
	if err != nil {
		return err
	}

	metrics.ModerationActions.WithLabelValues("approve").Inc()

	row, storeErr := mod.setFlags(ctx, roomID, targetID, func(f domain.RoleFlags) domain.RoleFlags {
		f.IsSpeaking = true
		return f
	})
	transportErr := m.transport.ApproveSpeaker(ctx, targetID)
	if err := mod.afterDualWrite(roomID, targetID, "approve", storeErr, transportErr); err != nil {
		return err
	}

	name := mod.removeUser(targetID)
	if name == "" {
		name = mod.displayName(ctx, targetID)
	}
	m.feed.Publish(domain.NewNotification(domain.NotifySpeakerAdded, targetID, name))

	mod.publishRow(ctx, row)
	mod.writeAudit(ctx, domain.EventSpeakerApproved, roomID, m.identity.UserID, targetID)
	return nil
}

// Reject drops targetID's queue entry without touching their role.
func (mod *Moderation) Reject(ctx context.Context, targetID string) error {
	m := mod.mgr

	roomID, err := mod.requireModerator()
	if err != nil {
		return err
	}

	metrics.ModerationActions.WithLabelValues("reject").Inc()

	if err := m.transport.RejectSpeaker(ctx, targetID); err != nil {
		m.logger.Warn(logging.Voice, logging.RoleSync, "reject signal failed", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.UserID:       targetID,
			logging.ErrorMessage: err.Error(),
		})
	}

	name := mod.removeUser(targetID)
	if name == "" {
		name = mod.displayName(ctx, targetID)
	}
	m.feed.Publish(domain.NewModeratorActionNotification(targetID, name, "declined"))

	mod.writeAudit(ctx, domain.EventSpeakerRejected, roomID, m.identity.UserID, targetID)
	return nil
}

// Block mutes targetID durably and takes the floor away.
func (mod *Moderation) Block(ctx context.Context, targetID string) error {
	m := mod.mgr

	roomID, err := mod.requireModerator()
	if err != nil {
		return err
	}

	metrics.ModerationActions.WithLabelValues("block").Inc()

	row, storeErr := mod.setFlags(ctx, roomID, targetID, func(f domain.RoleFlags) domain.RoleFlags {
		f.Muted = true
		f.IsSpeaking = false
		return f
	})
	transportErr := m.transport.BlockSpeaker(ctx, targetID)
	if err := mod.afterDualWrite(roomID, targetID, "block", storeErr, transportErr); err != nil {
		return err
	}

	name := mod.removeUser(targetID)
	if name == "" {
		name = mod.displayName(ctx, targetID)
	}
	m.feed.Publish(domain.NewModeratorActionNotification(targetID, name, "blocked"))

	mod.publishRow(ctx, row)
	mod.writeAudit(ctx, domain.EventSpeakerBlocked, roomID, m.identity.UserID, targetID)
	return nil
}

// Unblock clears the durable mute. Speaking rights come back only for
// moderators; ordinary speakers must request the floor again.
func (mod *Moderation) Unblock(ctx context.Context, targetID string) error {
	m := mod.mgr

	roomID, err := mod.requireModerator()
	if err != nil {
		return err
	}

	metrics.ModerationActions.WithLabelValues("unblock").Inc()

	target, err := m.participants.GetByRoomAndUser(ctx, roomID, targetID)
	if err != nil {
		if errors.Is(err, domain.ErrParticipantNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	row, storeErr := mod.setFlags(ctx, roomID, targetID, func(f domain.RoleFlags) domain.RoleFlags {
		f.Muted = false
		f.IsSpeaking = f.IsModerator
		return f
	})

	var transportErr error
	if target.IsModerator {
		transportErr = m.transport.ApproveSpeaker(ctx, targetID)
	}
	if err := mod.afterDualWrite(roomID, targetID, "unblock", storeErr, transportErr); err != nil {
		return err
	}

	m.feed.Publish(domain.NewModeratorActionNotification(targetID, mod.displayName(ctx, targetID), "unblocked"))

	mod.publishRow(ctx, row)
	mod.writeAudit(ctx, domain.EventSpeakerUnblocked, roomID, m.identity.UserID, targetID)
	return nil
}

// Queue returns a copy of the pending speak requests, oldest first.
func (mod *Moderation) Queue() []domain.SpeakRequest {
	mod.mu.Lock()
	defer mod.mu.Unlock()
	return append([]domain.SpeakRequest(nil), mod.queue...)
}

func (mod *Moderation) stepBackToListener(ctx context.Context, roomID, userID string) error {
	m := mod.mgr

	row, storeErr := mod.setFlags(ctx, roomID, userID, func(f domain.RoleFlags) domain.RoleFlags {
		f.IsSpeaking = false
		return f
	})
	transportErr := m.transport.RejectSpeaker(ctx, userID)
	if err := mod.afterDualWrite(roomID, userID, "step back", storeErr, transportErr); err != nil {
		return err
	}

	mod.publishRow(ctx, row)
	mod.syncSelf(row)
	return nil
}

func (mod *Moderation) promote(ctx context.Context, roomID, userID string) error {
	m := mod.mgr

	row, storeErr := mod.setFlags(ctx, roomID, userID, func(f domain.RoleFlags) domain.RoleFlags {
		f.IsSpeaking = true
		return f
	})
	transportErr := m.transport.ApproveSpeaker(ctx, userID)
	if err := mod.afterDualWrite(roomID, userID, "promote", storeErr, transportErr); err != nil {
		return err
	}

	mod.publishRow(ctx, row)
	mod.syncSelf(row)
	return nil
}

func (mod *Moderation) requireModerator() (string, error) {
	m := mod.mgr
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateJoined || m.current == nil || m.me == nil {
		return "", domain.ErrNotInRoom
	}
	if !m.me.IsModerator {
		return "", domain.ErrPermissionDenied
	}
	return m.current.ID, nil
}

func (mod *Moderation) setFlags(ctx context.Context, roomID, targetID string, mutate func(domain.RoleFlags) domain.RoleFlags) (*domain.Participant, error) {
	m := mod.mgr

	target, err := m.participants.GetByRoomAndUser(ctx, roomID, targetID)
	if err != nil {
		return nil, err
	}
	return m.participants.SetRoleFlags(ctx, roomID, targetID, mutate(target.Flags()))
}

// afterDualWrite settles the store+transport write pair: both failed is
// an error, one failed is a warning and the operation stands.
func (mod *Moderation) afterDualWrite(roomID, targetID, action string, storeErr, transportErr error) error {
	m := mod.mgr

	if storeErr != nil && transportErr != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, storeErr)
	}
	if storeErr != nil {
		if errors.Is(storeErr, domain.ErrParticipantNotFound) {
			return storeErr
		}
		m.logger.Warn(logging.Moderation, logging.RoleSync, action+": store write failed, transport applied", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.UserID:       targetID,
			logging.ErrorMessage: storeErr.Error(),
		})
	}
	if transportErr != nil {
		m.logger.Warn(logging.Moderation, logging.RoleSync, action+": transport signal failed, store applied", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.UserID:       targetID,
			logging.ErrorMessage: transportErr.Error(),
		})
	}
	return nil
}

func (mod *Moderation) publishRow(ctx context.Context, row *domain.Participant) {
	if row == nil {
		return
	}
	mod.mgr.publishChange(ctx, changefeed.TableParticipants, changefeed.OpUpdate, row)
}

// syncSelf mirrors a flags write on the local user into the session
// snapshot without waiting for the change feed round trip.
func (mod *Moderation) syncSelf(row *domain.Participant) {
	if row == nil {
		return
	}
	m := mod.mgr
	m.mu.Lock()
	if m.me != nil && m.me.UserID == row.UserID {
		m.me.IsModerator = row.IsModerator
		m.me.IsSpeaking = row.IsSpeaking
		m.me.Muted = row.Muted
	}
	m.mu.Unlock()
}

func (mod *Moderation) displayName(ctx context.Context, userID string) string {
	profile, err := mod.mgr.profiles.GetByID(ctx, userID)
	if err != nil || profile == nil {
		return userID
	}
	return profile.DisplayName
}

func (mod *Moderation) enqueue(req domain.SpeakRequest) {
	mod.mu.Lock()
	defer mod.mu.Unlock()

	for _, existing := range mod.queue {
		if existing.UserID == req.UserID {
			return
		}
	}
	mod.queue = append(mod.queue, req)
}

// removeUser drops the queue entry for userID and returns its display
// name, or "" when no entry existed.
func (mod *Moderation) removeUser(userID string) string {
	mod.mu.Lock()
	defer mod.mu.Unlock()

	for i, req := range mod.queue {
		if req.UserID == userID {
			mod.queue = append(mod.queue[:i], mod.queue[i+1:]...)
			return req.DisplayName
		}
	}
	return ""
}

// reset clears the queue. Called on leave and on transport disconnect.
func (mod *Moderation) reset() {
	mod.mu.Lock()
	mod.queue = nil
	mod.mu.Unlock()
}

func (mod *Moderation) writeAudit(ctx context.Context, kind domain.ModerationEventType, roomID, actorID, targetID string) {
	m := mod.mgr
	if m.audit == nil {
		return
	}
	if err := m.audit.Log(ctx, domain.NewModerationLog(kind, roomID, actorID, targetID)); err != nil {
		m.logger.Warn(logging.Moderation, logging.ExternalService, "audit write failed", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
	}
}
