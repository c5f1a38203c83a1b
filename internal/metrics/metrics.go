// Package metrics exposes prometheus collectors for alarm lifecycle and
// playback events. The admin web server serves them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlarmsCreated counts alarms created through chat, by schedule kind.
	AlarmsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alarmbot_alarms_created_total",
		Help: "Alarms created, partitioned by schedule kind.",
	}, []string{"kind"})

	// AlarmsRemoved counts alarms removed through chat.
	AlarmsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmbot_alarms_removed_total",
		Help: "Alarms removed.",
	})

	// AlarmsToggled counts enable/disable actions.
	AlarmsToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alarmbot_alarms_toggled_total",
		Help: "Alarm enable/disable actions, partitioned by action.",
	}, []string{"action"})

	// PlaybacksStarted counts test playbacks launched from chat.
	PlaybacksStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmbot_playbacks_started_total",
		Help: "Playback processes launched from chat.",
	})

	// StopSignalsSent counts interrupt signals delivered by stop fan-out.
	StopSignalsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmbot_stop_signals_sent_total",
		Help: "Interrupt signals delivered to playback processes.",
	})
)
