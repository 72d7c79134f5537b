package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hearthlabs/hearth/internal/domain"
	"github.com/hearthlabs/hearth/internal/infrastructure/changefeed"
	"github.com/hearthlabs/hearth/internal/infrastructure/logging"
	"github.com/hearthlabs/hearth/internal/infrastructure/metrics"
)

// Snapshot is an immutable view of the room catalog. Readers get the
// whole snapshot by pointer; refreshes build a new one and swap it in.
type Snapshot struct {
	Live        []domain.RoomView
	Upcoming    []domain.RoomView
	RefreshedAt time.Time
	Fallback    bool
}

type Options struct {
	RefreshThrottle  time.Duration
	PlaceholderCount int
}

// Sync keeps the room catalog current. Refreshes are throttled and
// serialized; concurrent callers get the cached snapshot instead of
// stacking queries against the store.
type Sync struct {
	rooms        domain.RoomRepository
	participants domain.ParticipantRepository
	profiles     domain.ProfileRepository
	logger       logging.Logger
	prefetcher   *avatarPrefetcher

	throttle         time.Duration
	placeholderCount int

	snapshot atomic.Pointer[Snapshot]

	mu          sync.Mutex
	lastRefresh time.Time
	inFlight    bool
}

func New(
	rooms domain.RoomRepository,
	participants domain.ParticipantRepository,
	profiles domain.ProfileRepository,
	logger logging.Logger,
	opts Options,
) *Sync {
	if opts.RefreshThrottle <= 0 {
		opts.RefreshThrottle = 3 * time.Second
	}

	return &Sync{
		rooms:            rooms,
		participants:     participants,
		profiles:         profiles,
		logger:           logger,
		prefetcher:       newAvatarPrefetcher(),
		throttle:         opts.RefreshThrottle,
		placeholderCount: opts.PlaceholderCount,
	}
}

// Current returns the latest snapshot without touching the store.
// Before the first successful refresh it returns placeholder rooms.
func (s *Sync) Current() *Snapshot {
	if snap := s.snapshot.Load(); snap != nil {
		return snap
	}
	return &Snapshot{
		Live:        placeholderRooms(s.placeholderCount),
		Upcoming:    []domain.RoomView{},
		RefreshedAt: time.Now(),
		Fallback:    true,
	}
}

// Refresh rebuilds the catalog from the store. Calls arriving within
// the throttle window of the previous completed refresh, or while a
// refresh is already running, return the cached snapshot.
func (s *Sync) Refresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	if s.inFlight || time.Since(s.lastRefresh) < s.throttle {
		s.mu.Unlock()
		metrics.CatalogRefreshes.WithLabelValues("throttled").Inc()
		return s.Current(), nil
	}
	s.inFlight = true
	s.mu.Unlock()

	snap := s.rebuild(ctx)
	s.snapshot.Store(snap)

	s.mu.Lock()
	s.inFlight = false
	s.lastRefresh = time.Now()
	s.mu.Unlock()

	if snap.Fallback {
		metrics.CatalogRefreshes.WithLabelValues("fallback").Inc()
	} else {
		metrics.CatalogRefreshes.WithLabelValues("success").Inc()
	}
	return snap, nil
}

// OnChange is wired as the change feed handler. It schedules an async
// refresh so the feed consumer never blocks on store queries.
func (s *Sync) OnChange(ev changefeed.Event) {
	s.logger.Debug(logging.Catalog, logging.Refresh, "change feed event", map[logging.ExtraKey]interface{}{
		"table": string(ev.Table),
		"op":    string(ev.Op),
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Warn(logging.Catalog, logging.Refresh, "refresh after change event failed", map[logging.ExtraKey]interface{}{
				logging.ErrorMessage: err.Error(),
			})
		}
	}()
}

func (s *Sync) rebuild(ctx context.Context) *Snapshot {
	liveRooms, liveErr := s.rooms.GetLive(ctx)
	scheduled, schedErr := s.rooms.GetScheduledAfter(ctx, time.Now())

	if liveErr != nil && schedErr != nil {
		s.logger.Error(logging.Catalog, logging.Refresh, "catalog refresh failed, serving placeholders", map[logging.ExtraKey]interface{}{
			logging.ErrorMessage: liveErr.Error(),
		})
		return &Snapshot{
			Live:        placeholderRooms(s.placeholderCount),
			Upcoming:    []domain.RoomView{},
			RefreshedAt: time.Now(),
			Fallback:    true,
		}
	}
	if liveErr != nil {
		s.logger.Warn(logging.Catalog, logging.Refresh, "live room query failed", map[logging.ExtraKey]interface{}{
			logging.ErrorMessage: liveErr.Error(),
		})
		liveRooms = nil
	}
	if schedErr != nil {
		s.logger.Warn(logging.Catalog, logging.Refresh, "scheduled room query failed", map[logging.ExtraKey]interface{}{
			logging.ErrorMessage: schedErr.Error(),
		})
		scheduled = nil
	}

	live := make([]domain.RoomView, 0, len(liveRooms))
	for _, room := range liveRooms {
		view, err := s.buildView(ctx, room)
		if err != nil {
			// One broken room must not sink the whole catalog.
			s.logger.Warn(logging.Catalog, logging.Refresh, "skipping room", map[logging.ExtraKey]interface{}{
				logging.RoomID:       room.ID,
				logging.ErrorMessage: err.Error(),
			})
			continue
		}
		live = append(live, view)
	}

	upcoming := make([]domain.RoomView, 0, len(scheduled))
	for _, room := range scheduled {
		upcoming = append(upcoming, domain.RoomView{
			Room:     room,
			Speakers: []domain.Speaker{},
		})
	}

	return &Snapshot{
		Live:        live,
		Upcoming:    upcoming,
		RefreshedAt: time.Now(),
	}
}

func (s *Sync) buildView(ctx context.Context, room domain.Room) (domain.RoomView, error) {
	participants, err := s.participants.GetByRoom(ctx, room.ID)
	if err != nil {
		return domain.RoomView{}, err
	}

	speakerIDs := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.IsSpeaking || p.IsModerator {
			speakerIDs = append(speakerIDs, p.UserID)
		}
	}

	profiles, err := s.profiles.GetByIDs(ctx, speakerIDs)
	if err != nil {
		s.logger.Warn(logging.Catalog, logging.Refresh, "profile lookup failed", map[logging.ExtraKey]interface{}{
			logging.RoomID:       room.ID,
			logging.ErrorMessage: err.Error(),
		})
		profiles = map[string]domain.Profile{}
	}

	speakers := make([]domain.Speaker, 0, len(speakerIDs))
	for _, p := range participants {
		if !p.IsSpeaking && !p.IsModerator {
			continue
		}

		speaker := domain.Speaker{
			UserID:      p.UserID,
			IsModerator: p.IsModerator,
			Muted:       p.Muted,
		}
		if profile, ok := profiles[p.UserID]; ok {
			speaker.DisplayName = profile.DisplayName
			speaker.AvatarRef = profile.AvatarRef
			s.prefetcher.Prefetch(profile.AvatarRef)
		}
		speakers = append(speakers, speaker)
	}

	return domain.RoomView{
		Room:             room,
		Speakers:         speakers,
		ParticipantCount: len(participants),
	}, nil
}
