package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	MFAVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_mfa_verifications_total",
			Help: "Total number of MFA code verifications.",
		},
		[]string{"method", "result"},
	)

	BackupCodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_backup_codes_total",
			Help: "Backup code generations and verifications.",
		},
		[]string{"operation", "result"},
	)

	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of opaque tokens issued.",
		},
		[]string{"type"},
	)

	TokenVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_verifications_total",
			Help: "Total number of opaque token verifications.",
		},
		[]string{"type", "result"},
	)

	EvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_evictions_total",
			Help: "Devices and sessions evicted by per-user limits.",
		},
		[]string{"kind"},
	)

	GeoLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_geo_lookups_total",
			Help: "IP geolocation lookups by outcome.",
		},
		[]string{"result"},
	)

	OAuthRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_oauth_requests_total",
			Help: "Outbound OAuth provider requests.",
		},
		[]string{"provider", "operation", "result"},
	)

	CleanupRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_cleanup_rows_total",
			Help: "Rows removed by background cleanup.",
		},
		[]string{"table"},
	)

	IntegrityFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_integrity_failures_total",
			Help: "Rows whose signature did not verify.",
		},
		[]string{"table"},
	)
)

// MustRegister registers every collector on the default registry with a
// constant service label.
func MustRegister(serviceName string) {
	reg := prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, prometheus.DefaultRegisterer)
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		MFAVerificationsTotal,
		BackupCodesTotal,
		TokensIssuedTotal,
		TokenVerificationsTotal,
		EvictionsTotal,
		GeoLookupsTotal,
		OAuthRequestsTotal,
		CleanupRowsTotal,
		IntegrityFailuresTotal,
	)
}

// Result maps a boolean outcome to a label value
func Result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
