package models

// VoiceSession is one row of voice_sessions: a user's continuous presence in
// one voice channel. LeftTS is nil while the session is still open, matching
// the NULL left_ts column.
type VoiceSession struct {
	ID        int64
	UserID    int64
	ChannelID int64
	JoinedTS  int64
	LeftTS    *int64
}

// Open reports whether the session has no recorded end time.
func (s VoiceSession) Open() bool {
	return s.LeftTS == nil
}

// Duration returns the session's elapsed seconds, using now for open sessions.
func (s VoiceSession) Duration(now int64) int64 {
	if s.LeftTS == nil {
		return now - s.JoinedTS
	}
	return *s.LeftTS - s.JoinedTS
}

// UserTotal is an aggregated per-user duration row.
type UserTotal struct {
	UserID       int64
	TotalSeconds int64
}

// ChannelTotal is an aggregated per-channel duration row.
type ChannelTotal struct {
	ChannelID    int64
	TotalSeconds int64
}
