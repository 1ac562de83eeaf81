package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var detectionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "banguard_detections_total",
	Help: "Number of detections by kind",
}, []string{"kind"})

var punishmentCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "banguard_punishments_total",
	Help: "Number of punishment attempts",
}, []string{"punishment", "result"})

var notificationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "banguard_notifications_total",
	Help: "Detection log outcomes",
}, []string{"result"})

var commandCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "banguard_commands_total",
	Help: "Slash commands handled",
}, []string{"command"})

var sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "banguard_sweep_duration_sec",
	Help:    "Duration of one periodic sweep tick",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
})

var sweepMembersScanned = promauto.NewCounter(prometheus.CounterOpts{
	Name: "banguard_sweep_members_scanned_total",
	Help: "Members examined by the periodic sweep",
})

var sweepGuildErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "banguard_sweep_guild_errors_total",
	Help: "Guild sweeps that failed, by error kind",
}, []string{"kind"})
