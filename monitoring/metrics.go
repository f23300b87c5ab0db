package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// SettlementClaims counts claim attempts by outcome: won or lost.
	SettlementClaims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tournament_settlement_claims_total",
			Help: "Settlement claim attempts by outcome",
		},
		[]string{"outcome"},
	)

	PrizesPaid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tournament_prizes_paid_coins_total",
			Help: "Coins credited as tournament prizes",
		},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Best-effort notifications that could not be delivered",
		},
	)

	UnpaidFinishedTournaments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tournament_unpaid_finished",
			Help: "FINISHED tournaments past the grace period with no recorded payout",
		},
	)

	RoundsFinished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "game_rounds_finished_total",
			Help: "Rounds that passed validation and were rewarded",
		},
	)

	// CheatDetections counts users blocked, labelled by the rule that fired.
	CheatDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_cheat_detections_total",
			Help: "Anti-cheat rejections that blocked the user",
		},
		[]string{"rule"},
	)
)
