package models

import "testing"

func TestVoiceSessionOpen(t *testing.T) {
	open := VoiceSession{UserID: 1, ChannelID: 10, JoinedTS: 100}
	if !open.Open() {
		t.Error("session with nil LeftTS reported closed")
	}

	// a session closed at its own join time is still closed, not open
	left := int64(100)
	closed := VoiceSession{UserID: 1, ChannelID: 10, JoinedTS: 100, LeftTS: &left}
	if closed.Open() {
		t.Error("session with LeftTS set reported open")
	}
	if got := closed.Duration(9999); got != 0 {
		t.Errorf("Duration = %d, want 0 for a zero-length closed session", got)
	}

	// left_ts = 0 is a real end time (epoch), not the open marker
	zero := int64(0)
	atEpoch := VoiceSession{UserID: 1, ChannelID: 10, JoinedTS: 0, LeftTS: &zero}
	if atEpoch.Open() {
		t.Error("session closed at epoch zero reported open")
	}
}

func TestVoiceSessionDuration(t *testing.T) {
	left := int64(700)
	tests := []struct {
		name string
		s    VoiceSession
		now  int64
		want int64
	}{
		{"closed", VoiceSession{JoinedTS: 100, LeftTS: &left}, 9999, 600},
		{"open uses now", VoiceSession{JoinedTS: 100}, 400, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Duration(tt.now); got != tt.want {
				t.Errorf("Duration(%d) = %d, want %d", tt.now, got, tt.want)
			}
		})
	}
}
