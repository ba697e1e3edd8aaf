package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	OTPIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_otp_issued_total",
		Help: "Approval OTPs issued",
	})

	// result: approved, invalid, limited
	OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_otp_verifications_total",
		Help: "OTP verification attempts by outcome",
	}, []string{"result"})

	// event: started, completed
	Sessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_sessions_total",
		Help: "Counting session transitions",
	}, []string{"event"})

	BinsCounted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_bins_counted_total",
		Help: "Bin count records appended",
	})
)
