package session

import (
	"context"
	"sync"
	"time"

	"github.com/hearthlabs/hearth/internal/domain"
	"github.com/hearthlabs/hearth/internal/infrastructure/logging"
)

type nopLogger struct{}

func (nopLogger) Init()                                                                  {}
func (nopLogger) Debug(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Debugf(string, ...any)                                                  {}
func (nopLogger) Info(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any)  {}
func (nopLogger) Infof(string, ...any)                                                   {}
func (nopLogger) Warn(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any)  {}
func (nopLogger) Warnf(string, ...any)                                                   {}
func (nopLogger) Error(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Errorf(string, ...any)                                                  {}
func (nopLogger) Fatal(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Fatalf(string, ...any)                                                  {}

type fakeRoomRepo struct {
	mu       sync.Mutex
	rooms    map[string]domain.Room
	blockCtx bool
}

func newFakeRoomRepo(rooms ...domain.Room) *fakeRoomRepo {
	repo := &fakeRoomRepo{rooms: make(map[string]domain.Room)}
	for _, room := range rooms {
		repo.rooms[room.ID] = room
	}
	return repo
}

func (f *fakeRoomRepo) Insert(ctx context.Context, room *domain.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[room.ID]; ok {
		return domain.ErrRoomAlreadyExists
	}
	f.rooms[room.ID] = *room
	return nil
}

func (f *fakeRoomRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	if f.blockCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return &room, nil
}

func (f *fakeRoomRepo) GetLive(ctx context.Context) ([]domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Room
	for _, room := range f.rooms {
		if room.IsLive() {
			out = append(out, room)
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) GetScheduledAfter(ctx context.Context, after time.Time) ([]domain.Room, error) {
	return nil, nil
}

func (f *fakeRoomRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[id]; !ok {
		return domain.ErrRoomNotFound
	}
	delete(f.rooms, id)
	return nil
}

func (f *fakeRoomRepo) EnsureIndexes(ctx context.Context) error { return nil }

type fakeParticipantRepo struct {
	mu      sync.Mutex
	rows    map[string]domain.Participant
	upserts int
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{rows: make(map[string]domain.Participant)}
}

func participantKey(roomID, userID string) string { return roomID + "/" + userID }

func (f *fakeParticipantRepo) put(p domain.Participant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[participantKey(p.RoomID, p.UserID)] = p
}

func (f *fakeParticipantRepo) get(roomID, userID string) (domain.Participant, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[participantKey(roomID, userID)]
	return p, ok
}

func (f *fakeParticipantRepo) Upsert(ctx context.Context, p *domain.Participant) (*domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	key := participantKey(p.RoomID, p.UserID)
	if existing, ok := f.rows[key]; ok {
		return &existing, nil
	}
	f.rows[key] = *p
	row := *p
	return &row, nil
}

func (f *fakeParticipantRepo) GetByRoom(ctx context.Context, roomID string) ([]domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Participant
	for _, row := range f.rows {
		if row.RoomID == roomID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeParticipantRepo) GetByRoomAndUser(ctx context.Context, roomID, userID string) (*domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[participantKey(roomID, userID)]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	return &row, nil
}

func (f *fakeParticipantRepo) SetRoleFlags(ctx context.Context, roomID, userID string, flags domain.RoleFlags) (*domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := participantKey(roomID, userID)
	row, ok := f.rows[key]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	row.IsModerator = flags.IsModerator
	row.IsSpeaking = flags.IsSpeaking
	row.Muted = flags.Muted
	f.rows[key] = row
	return &row, nil
}

func (f *fakeParticipantRepo) Delete(ctx context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, participantKey(roomID, userID))
	return nil
}

func (f *fakeParticipantRepo) DeleteByRoom(ctx context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, row := range f.rows {
		if row.RoomID == roomID {
			delete(f.rows, key)
		}
	}
	return nil
}

func (f *fakeParticipantRepo) EnsureIndexes(ctx context.Context) error { return nil }

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]domain.Profile)}
}

func (f *fakeProfileRepo) Upsert(ctx context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.UserID] = *profile
	return nil
}

func (f *fakeProfileRepo) GetByID(ctx context.Context, userID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

func (f *fakeProfileRepo) GetByIDs(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]domain.Profile)
	for _, id := range userIDs {
		if profile, ok := f.profiles[id]; ok {
			out[id] = profile
		}
	}
	return out, nil
}

type fakeTransport struct {
	mu          sync.Mutex
	joinCalls   int
	joinErr     error
	joinStarted chan struct{}
	joinRelease chan struct{}
	leaveCalls  int
	fireCalls   int
	requested   []string
	approved    []string
	rejected    []string
	blocked     []string
	muted       bool
}

func (f *fakeTransport) Join(ctx context.Context, roomID, userID, displayName, avatarRef string, isModerator, isSpeaker bool) error {
	f.mu.Lock()
	f.joinCalls++
	started := f.joinStarted
	release := f.joinRelease
	err := f.joinErr
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return err
}

func (f *fakeTransport) Leave(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaveCalls++
	return nil
}

func (f *fakeTransport) FireLeave() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fireCalls++
}

func (f *fakeTransport) ToggleMute(ctx context.Context, force *bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if force != nil {
		f.muted = *force
	} else {
		f.muted = !f.muted
	}
	return f.muted, nil
}

func (f *fakeTransport) RequestToSpeak(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, userID)
	return nil
}

func (f *fakeTransport) ApproveSpeaker(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved = append(f.approved, userID)
	return nil
}

func (f *fakeTransport) RejectSpeaker(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, userID)
	return nil
}

func (f *fakeTransport) BlockSpeaker(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked = append(f.blocked, userID)
	return nil
}

func (f *fakeTransport) joins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joinCalls
}

type fakeSlot struct {
	mu      sync.Mutex
	value   string
	loadErr error
	stores  int
	clears  int
}

func (f *fakeSlot) Load(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.loadErr
}

func (f *fakeSlot) Store(ctx context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = roomID
	f.stores++
	return nil
}

func (f *fakeSlot) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = ""
	f.clears++
	return nil
}
