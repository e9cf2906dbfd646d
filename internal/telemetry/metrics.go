// Package telemetry provides Prometheus metrics and the metrics/health HTTP
// server.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	EventsJoined    prometheus.Counter
	EventsLeft      prometheus.Counter
	EventsSwitched  prometheus.Counter
	EventsIgnored   prometheus.Counter
	CommandsHandled prometheus.Counter
	CommandErrors   prometheus.Counter

	// Gauges
	OpenSessionsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		EventsJoined = promauto.NewCounter(prometheus.CounterOpts{Name: "voicestats_events_joined_total", Help: "Voice join events recorded"})
		EventsLeft = promauto.NewCounter(prometheus.CounterOpts{Name: "voicestats_events_left_total", Help: "Voice leave events recorded"})
		EventsSwitched = promauto.NewCounter(prometheus.CounterOpts{Name: "voicestats_events_switched_total", Help: "Voice channel switch events recorded"})
		EventsIgnored = promauto.NewCounter(prometheus.CounterOpts{Name: "voicestats_events_ignored_total", Help: "Voice state updates that changed no session (mute/deafen, missed joins, AFK)"})
		CommandsHandled = promauto.NewCounter(prometheus.CounterOpts{Name: "voicestats_commands_handled_total", Help: "Slash command invocations answered"})
		CommandErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "voicestats_command_errors_total", Help: "Slash command invocations that failed on store access"})
		OpenSessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "voicestats_open_sessions", Help: "Currently open voice sessions"})
	})
}

// SetOpenSessions records the current open session count.
func SetOpenSessions(n int64) {
	if OpenSessionsGauge != nil {
		OpenSessionsGauge.Set(float64(n))
	}
}
