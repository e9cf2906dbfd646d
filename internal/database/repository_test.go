package database

import (
	"context"
	"os"
	"testing"
)

// Repository tests run against a real Postgres when TEST_PG_DSN is set and
// are skipped otherwise. Each test starts from an empty voice_sessions table.
func testRepository(t *testing.T, afkChannelID int64) *Repository {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres repository test")
	}
	db, err := New(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.conn.Exec(`DELETE FROM voice_sessions`); err != nil {
		t.Fatalf("reset: %v", err)
	}
	return NewRepository(db, afkChannelID)
}

func TestJoinSwitchLeaveScenario(t *testing.T) {
	r := testRepository(t, 0)
	ctx := context.Background()
	const user, chanA, chanB = int64(1), int64(10), int64(20)

	// join channel A at t=0, switch to B at t=3600, leave at t=7200
	if err := r.InsertSession(ctx, user, chanA, 0); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	if err := r.SwitchChannel(ctx, user, chanB, 3600); err != nil {
		t.Fatalf("SwitchChannel: %v", err)
	}
	closed, err := r.CloseOpenSession(ctx, user, 7200)
	if err != nil {
		t.Fatalf("CloseOpenSession: %v", err)
	}
	if !closed {
		t.Fatal("CloseOpenSession = false, want an open session to close")
	}

	total, err := r.UserTotal(ctx, user, 7200)
	if err != nil {
		t.Fatalf("UserTotal: %v", err)
	}
	if total != 7200 {
		t.Errorf("UserTotal = %d, want 7200", total)
	}

	open, err := r.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("OpenSessions: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("OpenSessions = %d rows, want 0", len(open))
	}

	sessions, err := r.OverlappingSessions(ctx, 0, 7200)
	if err != nil {
		t.Fatalf("OverlappingSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("OverlappingSessions = %d rows, want 2", len(sessions))
	}
	if sessions[0].JoinedTS != 0 || sessions[0].Duration(7200) != 3600 {
		t.Errorf("first session = joined %d dur %d, want joined 0 dur 3600",
			sessions[0].JoinedTS, sessions[0].Duration(7200))
	}
	if sessions[1].JoinedTS != 3600 || sessions[1].Duration(7200) != 3600 {
		t.Errorf("second session = joined %d dur %d, want joined 3600 dur 3600",
			sessions[1].JoinedTS, sessions[1].Duration(7200))
	}
}

func TestAtMostOneOpenSessionPerUser(t *testing.T) {
	r := testRepository(t, 0)
	ctx := context.Background()
	const user = int64(1)

	if err := r.InsertSession(ctx, user, 10, 100); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	if err := r.SwitchChannel(ctx, user, 20, 200); err != nil {
		t.Fatalf("SwitchChannel: %v", err)
	}
	if err := r.SwitchChannel(ctx, user, 30, 300); err != nil {
		t.Fatalf("SwitchChannel: %v", err)
	}

	n, err := r.OpenSessionCount(ctx)
	if err != nil {
		t.Fatalf("OpenSessionCount: %v", err)
	}
	if n != 1 {
		t.Errorf("OpenSessionCount = %d, want 1 after join and two switches", n)
	}

	open, err := r.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("OpenSessions: %v", err)
	}
	if len(open) != 1 || open[0].ChannelID != 30 || open[0].JoinedTS != 300 {
		t.Errorf("open session = %+v, want channel 30 joined at 300", open)
	}
}

func TestCloseWithoutOpenSession(t *testing.T) {
	r := testRepository(t, 0)
	ctx := context.Background()

	closed, err := r.CloseOpenSession(ctx, 42, 100)
	if err != nil {
		t.Fatalf("CloseOpenSession: %v", err)
	}
	if closed {
		t.Error("CloseOpenSession = true, want false with no open session")
	}
}

func TestOpenSessionCountsElapsedTime(t *testing.T) {
	r := testRepository(t, 0)
	ctx := context.Background()
	const user = int64(1)

	if err := r.InsertSession(ctx, user, 10, 1000); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	total, err := r.UserTotal(ctx, user, 1600)
	if err != nil {
		t.Fatalf("UserTotal: %v", err)
	}
	if total != 600 {
		t.Errorf("UserTotal = %d, want 600 for the open session's elapsed time", total)
	}

	windowed, err := r.UserWindowTotal(ctx, user, 0, 1600)
	if err != nil {
		t.Fatalf("UserWindowTotal: %v", err)
	}
	if windowed != 600 {
		t.Errorf("UserWindowTotal = %d, want 600", windowed)
	}
}

func TestTopUsersOrderingAndTies(t *testing.T) {
	r := testRepository(t, 0)
	ctx := context.Background()
	const userA, userB, userC = int64(1), int64(2), int64(3)

	// A: 3600s, B: 7200s, C: 3600s (ties with A, higher id)
	seed := []struct {
		user, joined, left int64
	}{
		{userA, 0, 3600},
		{userB, 0, 7200},
		{userC, 100, 3700},
	}
	for _, s := range seed {
		if err := r.InsertSession(ctx, s.user, 10, s.joined); err != nil {
			t.Fatalf("InsertSession: %v", err)
		}
		if _, err := r.CloseOpenSession(ctx, s.user, s.left); err != nil {
			t.Fatalf("CloseOpenSession: %v", err)
		}
	}

	top, err := r.TopUsers(ctx, 0, 10000, 10)
	if err != nil {
		t.Fatalf("TopUsers: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("TopUsers = %d rows, want 3", len(top))
	}
	if top[0].UserID != userB || top[0].TotalSeconds != 7200 {
		t.Errorf("top[0] = %+v, want user %d with 7200", top[0], userB)
	}
	if top[1].UserID != userA || top[2].UserID != userC {
		t.Errorf("tie order = [%d %d], want [%d %d] (ascending id)",
			top[1].UserID, top[2].UserID, userA, userC)
	}
}

func TestAFKChannelExcludedFromReads(t *testing.T) {
	const afk = int64(99)
	r := testRepository(t, afk)
	ctx := context.Background()
	const user = int64(1)

	// a tracked session and a legacy AFK row from before the channel was configured
	if err := r.InsertSession(ctx, user, 10, 0); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	if _, err := r.CloseOpenSession(ctx, user, 3600); err != nil {
		t.Fatalf("CloseOpenSession: %v", err)
	}
	if err := r.InsertSession(ctx, user, afk, 4000); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	total, err := r.UserTotal(ctx, user, 5000)
	if err != nil {
		t.Fatalf("UserTotal: %v", err)
	}
	if total != 3600 {
		t.Errorf("UserTotal = %d, want 3600 with AFK time excluded", total)
	}

	open, err := r.OpenSessions(ctx)
	if err != nil {
		t.Fatalf("OpenSessions: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("OpenSessions = %d rows, want 0 (open row is in the AFK channel)", len(open))
	}

	channels, err := r.TopChannels(ctx, 0, 5000, 10)
	if err != nil {
		t.Fatalf("TopChannels: %v", err)
	}
	if len(channels) != 1 || channels[0].ChannelID != 10 {
		t.Errorf("TopChannels = %+v, want only channel 10", channels)
	}

	sessions, err := r.OverlappingSessions(ctx, 0, 5000)
	if err != nil {
		t.Fatalf("OverlappingSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ChannelID != 10 {
		t.Errorf("OverlappingSessions = %+v, want only the tracked session", sessions)
	}

	history, err := r.UserSessions(ctx, user, 10)
	if err != nil {
		t.Fatalf("UserSessions: %v", err)
	}
	if len(history) != 1 || history[0].ChannelID != 10 {
		t.Errorf("UserSessions = %+v, want only the tracked session", history)
	}
}

func TestUserSessionsNewestFirst(t *testing.T) {
	r := testRepository(t, 0)
	ctx := context.Background()
	const user = int64(1)

	for i := int64(0); i < 3; i++ {
		if err := r.InsertSession(ctx, user, 10, i*1000); err != nil {
			t.Fatalf("InsertSession: %v", err)
		}
		if _, err := r.CloseOpenSession(ctx, user, i*1000+500); err != nil {
			t.Fatalf("CloseOpenSession: %v", err)
		}
	}

	sessions, err := r.UserSessions(ctx, user, 2)
	if err != nil {
		t.Fatalf("UserSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("UserSessions = %d rows, want 2 (limit)", len(sessions))
	}
	if sessions[0].JoinedTS != 2000 || sessions[1].JoinedTS != 1000 {
		t.Errorf("order = [%d %d], want [2000 1000]", sessions[0].JoinedTS, sessions[1].JoinedTS)
	}
	if sessions[0].Open() {
		t.Error("closed session reported as open")
	}
}
