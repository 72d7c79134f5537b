package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hearthlabs/hearth/internal/domain"
	"github.com/hearthlabs/hearth/internal/infrastructure/changefeed"
)

func joinAs(t *testing.T, env *testEnv, roomID string) {
	t.Helper()
	if err := env.manager.Join(context.Background(), roomID); err != nil {
		t.Fatalf("join: %v", err)
	}
}

func TestRequestToSpeakNeedsRoom(t *testing.T) {
	env := newTestEnv(t, Identity{UserID: "u1"}, Options{}, liveRoom("r1", "u1"))

	err := env.manager.Moderation().RequestToSpeak(context.Background())
	if !errors.Is(err, domain.ErrNotInRoom) {
		t.Fatalf("err = %v, want ErrNotInRoom", err)
	}
}

func TestRequestToSpeakWithoutModerator(t *testing.T) {
	env := newTestEnv(t, Identity{UserID: "listener"}, Options{}, liveRoom("r1", "absent-creator"))
	joinAs(t, env, "r1")

	mod := env.manager.Moderation()
	err := mod.RequestToSpeak(context.Background())
	if !errors.Is(err, domain.ErrNoModerator) {
		t.Fatalf("err = %v, want ErrNoModerator", err)
	}
	if queue := mod.Queue(); len(queue) != 0 {
		t.Fatalf("queue changed on failure: %v", queue)
	}
}

func TestRequestToSpeakDuplicate(t *testing.T) {
	env := newTestEnv(t, Identity{UserID: "listener", DisplayName: "Bob"}, Options{}, liveRoom("r1", "mod"))
	env.participants.put(domain.Participant{
		RoomID: "r1", UserID: "mod", IsModerator: true, IsSpeaking: true, JoinedAt: time.Now(),
	})
	joinAs(t, env, "r1")

	mod := env.manager.Moderation()
	if err := mod.RequestToSpeak(context.Background()); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if queue := mod.Queue(); len(queue) != 1 || queue[0].UserID != "listener" {
		t.Fatalf("queue = %v, want one entry for listener", queue)
	}

	err := mod.RequestToSpeak(context.Background())
	if !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Fatalf("err = %v, want ErrDuplicateRequest", err)
	}
	if queue := mod.Queue(); len(queue) != 1 {
		t.Fatalf("queue grew on duplicate: %v", queue)
	}
}

func TestRequestToSpeakModeratorFastPath(t *testing.T) {
	env := newTestEnv(t, Identity{UserID: "mod"}, Options{}, liveRoom("r1", "mod"))
	joinAs(t, env, "r1")

	mod := env.manager.Moderation()
	if err := mod.RequestToSpeak(context.Background()); err != nil {
		t.Fatalf("moderator request: %v", err)
	}
	if queue := mod.Queue(); len(queue) != 0 {
		t.Fatalf("moderator went through the queue: %v", queue)
	}

	row, _ := env.participants.get("r1", "mod")
	if !row.IsSpeaking {
		t.Fatal("moderator not speaking after fast path")
	}
}

func TestSpeakerTogglesBackToListener(t *testing.T) {
	env := newTestEnv(t, Identity{UserID: "speaker"}, Options{}, liveRoom("r1", "someone"))
	joinAs(t, env, "r1")

	// The moderator grants the floor elsewhere; the change feed carries
	// the updated row back to this client.
	granted := domain.Participant{RoomID: "r1", UserID: "speaker", IsSpeaking: true, JoinedAt: time.Now()}
	env.participants.put(granted)
	raw, err := json.Marshal(granted)
	if err != nil {
		t.Fatal(err)
	}
	env.manager.OnChange(changefeed.Event{
		Table: changefeed.TableParticipants,
		Op:    changefeed.OpUpdate,
		Row:   raw,
	})

	mod := env.manager.Moderation()
	if err := mod.RequestToSpeak(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	row, _ := env.participants.get("r1", "speaker")
	if row.IsSpeaking {
		t.Fatal("speaker still speaking after toggle")
	}
}

func TestApproveRequiresModerator(t *testing.T) {
	env := newTestEnv(t, Identity{UserID: "listener"}, Options{}, liveRoom("r1", "other"))
	joinAs(t, env, "r1")

	err := env.manager.Moderation().Approve(context.Background(), "anyone")
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestApproveRemovesQueueEntryAndGrantsFloor(t *testing.T) {
	env := newTestEnv(t, Identity{UserID: "mod", DisplayName: "Mo"}, Options{}, liveRoom("r1", "mod"))
	joinAs(t, env, "r1")

	env.participants.put(domain.Participant{RoomID: "r1", UserID: "b", JoinedAt: time.Now()})
	env.participants.put(domain.Participant{RoomID: "r1", UserID: "c", JoinedAt: time.Now()})

	mod := env.manager.Moderation()
	env.manager.HandleSpeakRequest(domain.SpeakRequest{RoomID: "r1", UserID: "b", DisplayName: "Bea"})
	env.manager.HandleSpeakRequest(domain.SpeakRequest{RoomID: "r1", UserID: "c", DisplayName: "Cal"})

	if err := mod.Approve(context.Background(), "b"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	queue := mod.Queue()
	if len(queue) != 1 || queue[0].UserID != "c" {
		t.Fatalf("queue = %v, want only c", queue)
	}

	rowB, _ := env.participants.get("r1", "b")
	if !rowB.IsSpeaking {
		t.Fatal("approved user not speaking")
	}
	rowC, _ := env.participants.get("r1", "c")
	if rowC.IsSpeaking {
		t.Fatal("approve touched another user's flags")
	}

	if len(env.transport.approved) != 1 || env.transport.approved[0] != "b" {
		t.Fatalf("transport approvals = %v, want [b]", env.transport.approved)
	}
}

func TestRejectLeavesRoleUntouched(t *testing.T) {
	env := newTestEnv(t, Identity{UserID: "mod"}, Options{}, liveRoom("r1", "mod"))
	joinAs(t, env, "r1")

	env.participants.put(domain.Participant{RoomID: "r1", UserID: "b", JoinedAt: time.Now()})
	env.manager.HandleSpeakRequest(domain.SpeakRequest{RoomID: "r1", UserID: "b", DisplayName: "Bea"})

	mod := env.manager.Moderation()
	if err := mod.Reject(context.Background(), "b"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if queue := mod.Queue(); len(queue) != 0 {
		t.Fatalf("queue = %v, want empty", queue)
	}
	row, _ := env.participants.get("r1", "b")
	if row.IsSpeaking {
		t.Fatal("reject changed the target's role")
	}
}

func TestBlockUnblockAsymmetry(t *testing.T) {
	env := newTestEnv(t, Identity{UserID: "mod"}, Options{}, liveRoom("r1", "mod"))
	joinAs(t, env, "r1")

	env.participants.put(domain.Participant{
		RoomID: "r1", UserID: "b", IsSpeaking: true, JoinedAt: time.Now(),
	})

	mod := env.manager.Moderation()
	if err := mod.Block(context.Background(), "b"); err != nil {
		t.Fatalf("block: %v", err)
	}
	row, _ := env.participants.get("r1", "b")
	if row.IsSpeaking || !row.Muted {
		t.Fatalf("after block flags = %+v, want muted non-speaker", row)
	}

	if err := mod.Unblock(context.Background(), "b"); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	row, _ = env.participants.get("r1", "b")
	if row.Muted {
		t.Fatal("still muted after unblock")
	}
	if row.IsSpeaking {
		t.Fatal("unblock restored speaking for a non-moderator")
	}
}

func TestUnblockRestoresModeratorFloor(t *testing.T) {
	env := newTestEnv(t, Identity{UserID: "mod"}, Options{}, liveRoom("r1", "mod"))
	joinAs(t, env, "r1")

	env.participants.put(domain.Participant{
		RoomID: "r1", UserID: "m2", IsModerator: true, IsSpeaking: true, JoinedAt: time.Now(),
	})

	mod := env.manager.Moderation()
	if err := mod.Block(context.Background(), "m2"); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := mod.Unblock(context.Background(), "m2"); err != nil {
		t.Fatalf("unblock: %v", err)
	}

	row, _ := env.participants.get("r1", "m2")
	if !row.IsSpeaking || row.Muted {
		t.Fatalf("after unblock flags = %+v, want speaking unmuted moderator", row)
	}
}

func TestQueueClearedOnDisconnect(t *testing.T) {
	env := newTestEnv(t, Identity{UserID: "mod"}, Options{}, liveRoom("r1", "mod"))
	joinAs(t, env, "r1")

	env.manager.HandleSpeakRequest(domain.SpeakRequest{RoomID: "r1", UserID: "b", DisplayName: "Bea"})
	if len(env.manager.Moderation().Queue()) != 1 {
		t.Fatal("request not queued")
	}

	env.manager.HandleDisconnect(errors.New("link lost"))
	if queue := env.manager.Moderation().Queue(); len(queue) != 0 {
		t.Fatalf("queue survived disconnect: %v", queue)
	}
	if snap := env.manager.Snapshot(); !snap.Degraded {
		t.Fatal("session not degraded after disconnect")
	}
}

// Full lifecycle: A creates a room, B joins as listener, requests the
// floor, A approves.
func TestCreateRequestApproveScenario(t *testing.T) {
	ctx := context.Background()

	envA := newTestEnv(t, Identity{UserID: "a", DisplayName: "Ana"}, Options{})
	room, err := envA.manager.CreateRoom(ctx, "fireside", "", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rowA, _ := envA.participants.get(room.ID, "a")
	if !rowA.IsModerator || !rowA.IsSpeaking {
		t.Fatalf("creator flags = %+v", rowA)
	}

	// B shares the same store in this scenario.
	envB := &testEnv{
		rooms:        envA.rooms,
		participants: envA.participants,
		profiles:     envA.profiles,
		transport:    &fakeTransport{},
		slot:         &fakeSlot{},
		feed:         envA.feed,
	}
	envB.manager = NewManager(
		Identity{UserID: "b", DisplayName: "Bo"},
		envB.rooms, envB.participants, envB.profiles, nil,
		envB.transport, envB.slot, nil, envB.feed, nopLogger{},
		Options{JoinCooldown: time.Nanosecond, Retry: RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond}},
	)

	if err := envB.manager.Join(ctx, room.ID); err != nil {
		t.Fatalf("b join: %v", err)
	}
	rowB, _ := envB.participants.get(room.ID, "b")
	if rowB.IsSpeaking || rowB.IsModerator {
		t.Fatalf("b joined as %+v, want plain listener", rowB)
	}

	if err := envB.manager.Moderation().RequestToSpeak(ctx); err != nil {
		t.Fatalf("b request: %v", err)
	}

	// The request reaches A's client through the transport side channel.
	envA.manager.HandleSpeakRequest(domain.SpeakRequest{RoomID: room.ID, UserID: "b", DisplayName: "Bo"})
	if queue := envA.manager.Moderation().Queue(); len(queue) != 1 || queue[0].UserID != "b" {
		t.Fatalf("a's queue = %v, want one entry for b", queue)
	}

	if err := envA.manager.Moderation().Approve(ctx, "b"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	rowB, _ = envB.participants.get(room.ID, "b")
	if !rowB.IsSpeaking {
		t.Fatal("b not speaking after approval")
	}
	if queue := envA.manager.Moderation().Queue(); len(queue) != 0 {
		t.Fatalf("a's queue = %v, want empty", queue)
	}

	found := false
	for _, n := range envA.feed.Visible(10) {
		if n.Type == domain.NotifySpeakerAdded && n.UserID == "b" {
			found = true
		}
	}
	if !found {
		t.Fatal("no speakerAdded notification for b")
	}
}
