package verify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"zkgate/go-backend/pkg/models"
)

var (
	verdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zkgate",
		Name:      "verifications_total",
		Help:      "Verification verdicts by outcome and reject reason.",
	}, []string{"outcome", "reason"})

	verificationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "zkgate",
		Name:      "verification_duration_seconds",
		Help:      "End-to-end verification latency.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	})
)

func observeVerdict(resp models.VerificationResponse, elapsed time.Duration) {
	verdictsTotal.WithLabelValues(string(resp.Outcome), string(resp.Reason)).Inc()
	verificationSeconds.Observe(elapsed.Seconds())
}
