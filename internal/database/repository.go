package database

import (
	"context"
	"database/sql"
	"fmt"

	"voicestats/internal/models"
)

// Repository handles all voice_sessions access. Every write runs in its own
// transaction so the one-open-session-per-user invariant holds under
// concurrent event delivery. When afkChannelID is non-zero, every report
// query excludes that channel; rows for it may still exist from before the
// channel was configured and stay filtered out.
type Repository struct {
	db           *DB
	afkChannelID int64
}

// NewRepository creates a new repository.
func NewRepository(db *DB, afkChannelID int64) *Repository {
	return &Repository{db: db, afkChannelID: afkChannelID}
}

// InsertSession opens a new session for a user joining a voice channel.
func (r *Repository) InsertSession(ctx context.Context, userID, channelID, joinedTS int64) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO voice_sessions (user_id, channel_id, joined_ts)
		VALUES ($1, $2, $3)`,
		userID, channelID, joinedTS)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// CloseOpenSession sets left_ts on the user's open session. It returns false
// when no open session existed, which the caller treats as a missed join.
func (r *Repository) CloseOpenSession(ctx context.Context, userID, leftTS int64) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx, `
		UPDATE voice_sessions SET left_ts = $1
		WHERE user_id = $2 AND left_ts IS NULL`,
		leftTS, userID)
	if err != nil {
		return false, fmt.Errorf("failed to close session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// SwitchChannel closes the user's open session and opens a new one in a
// single transaction, both at the same timestamp.
func (r *Repository) SwitchChannel(ctx context.Context, userID, newChannelID, ts int64) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin switch transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE voice_sessions SET left_ts = $1
		WHERE user_id = $2 AND left_ts IS NULL`,
		ts, userID); err != nil {
		return fmt.Errorf("failed to close session on switch: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO voice_sessions (user_id, channel_id, joined_ts)
		VALUES ($1, $2, $3)`,
		userID, newChannelID, ts); err != nil {
		return fmt.Errorf("failed to open session on switch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit switch: %w", err)
	}
	return nil
}

// UserWindowTotal sums effective duration for a user's sessions joined at or
// after since. Open sessions count their elapsed portion up to now.
func (r *Repository) UserWindowTotal(ctx context.Context, userID, since, now int64) (int64, error) {
	var total sql.NullInt64
	err := r.db.conn.QueryRowContext(ctx, `
		SELECT SUM(COALESCE(left_ts, $3) - joined_ts)
		FROM voice_sessions
		WHERE user_id = $1 AND joined_ts >= $2
		  AND ($4 = 0 OR channel_id <> $4)`,
		userID, since, now, r.afkChannelID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to get windowed total: %w", err)
	}
	return total.Int64, nil
}

// UserTotal sums effective duration over a user's entire history.
func (r *Repository) UserTotal(ctx context.Context, userID, now int64) (int64, error) {
	var total sql.NullInt64
	err := r.db.conn.QueryRowContext(ctx, `
		SELECT SUM(COALESCE(left_ts, $2) - joined_ts)
		FROM voice_sessions
		WHERE user_id = $1
		  AND ($3 = 0 OR channel_id <> $3)`,
		userID, now, r.afkChannelID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to get lifetime total: %w", err)
	}
	return total.Int64, nil
}

// OpenSessions returns all currently open sessions ordered by channel then
// join time.
func (r *Repository) OpenSessions(ctx context.Context) ([]models.VoiceSession, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, user_id, channel_id, joined_ts
		FROM voice_sessions
		WHERE left_ts IS NULL
		  AND ($1 = 0 OR channel_id <> $1)
		ORDER BY channel_id ASC, joined_ts ASC`,
		r.afkChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get open sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.VoiceSession
	for rows.Next() {
		var s models.VoiceSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.ChannelID, &s.JoinedTS); err != nil {
			return nil, fmt.Errorf("failed to scan open session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// OpenSessionCount returns the number of currently open sessions.
func (r *Repository) OpenSessionCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM voice_sessions WHERE left_ts IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count open sessions: %w", err)
	}
	return n, nil
}

// TopUsers returns the top users by effective duration for sessions joined
// at or after since. Ties are broken by ascending user id so the ordering is
// deterministic.
func (r *Repository) TopUsers(ctx context.Context, since, now int64, limit int) ([]models.UserTotal, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT user_id, SUM(COALESCE(left_ts, $2) - joined_ts) AS total
		FROM voice_sessions
		WHERE joined_ts >= $1
		  AND ($3 = 0 OR channel_id <> $3)
		GROUP BY user_id
		ORDER BY total DESC, user_id ASC
		LIMIT $4`,
		since, now, r.afkChannelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	return scanUserTotals(rows)
}

// TopUsersInChannel returns the top users by effective duration within one
// channel for sessions joined at or after since.
func (r *Repository) TopUsersInChannel(ctx context.Context, channelID, since, now int64, limit int) ([]models.UserTotal, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT user_id, SUM(COALESCE(left_ts, $3) - joined_ts) AS total
		FROM voice_sessions
		WHERE channel_id = $1 AND joined_ts >= $2
		GROUP BY user_id
		ORDER BY total DESC, user_id ASC
		LIMIT $4`,
		channelID, since, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel top users: %w", err)
	}
	defer rows.Close()

	return scanUserTotals(rows)
}

// TopChannels returns the top channels by total effective duration for
// sessions joined at or after since.
func (r *Repository) TopChannels(ctx context.Context, since, now int64, limit int) ([]models.ChannelTotal, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT channel_id, SUM(COALESCE(left_ts, $2) - joined_ts) AS total
		FROM voice_sessions
		WHERE joined_ts >= $1
		  AND ($3 = 0 OR channel_id <> $3)
		GROUP BY channel_id
		ORDER BY total DESC, channel_id ASC
		LIMIT $4`,
		since, now, r.afkChannelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top channels: %w", err)
	}
	defer rows.Close()

	var totals []models.ChannelTotal
	for rows.Next() {
		var t models.ChannelTotal
		if err := rows.Scan(&t.ChannelID, &t.TotalSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan channel total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// OverlappingSessions returns every session with any overlap of [since, now],
// open sessions included. Callers clip the intervals to the window.
func (r *Repository) OverlappingSessions(ctx context.Context, since, now int64) ([]models.VoiceSession, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, user_id, channel_id, joined_ts, left_ts
		FROM voice_sessions
		WHERE joined_ts < $2 AND COALESCE(left_ts, $2) > $1
		  AND ($3 = 0 OR channel_id <> $3)
		ORDER BY joined_ts ASC`,
		since, now, r.afkChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get overlapping sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// UserSessions returns a user's most recent sessions, newest first.
func (r *Repository) UserSessions(ctx context.Context, userID int64, limit int) ([]models.VoiceSession, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, user_id, channel_id, joined_ts, left_ts
		FROM voice_sessions
		WHERE user_id = $1
		  AND ($3 = 0 OR channel_id <> $3)
		ORDER BY joined_ts DESC
		LIMIT $2`,
		userID, limit, r.afkChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]models.VoiceSession, error) {
	var sessions []models.VoiceSession
	for rows.Next() {
		var s models.VoiceSession
		var left sql.NullInt64
		if err := rows.Scan(&s.ID, &s.UserID, &s.ChannelID, &s.JoinedTS, &left); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if left.Valid {
			v := left.Int64
			s.LeftTS = &v
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanUserTotals(rows *sql.Rows) ([]models.UserTotal, error) {
	var totals []models.UserTotal
	for rows.Next() {
		var t models.UserTotal
		if err := rows.Scan(&t.UserID, &t.TotalSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan user total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
