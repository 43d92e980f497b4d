package internaldefs

import (
	authsession "github.com/adminkit/authsession"
)

// CounterDef binds a [authsession.MetricID] to its exported name and help.
type CounterDef struct {
	ID   authsession.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram [authsession.MetricID] to its exported
// name and help.
type HistogramDef struct {
	ID   authsession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authsession.MetricLoginSuccess, Name: "authsession_login_success_total", Help: "Sessions adopted from credential logins."},
	{ID: authsession.MetricLoginFailure, Name: "authsession_login_failure_total", Help: "Rejected or failed credential logins."},
	{ID: authsession.MetricTwoFactorRequired, Name: "authsession_two_factor_required_total", Help: "Logins answered with a two-factor challenge."},
	{ID: authsession.MetricTwoFactorSuccess, Name: "authsession_two_factor_success_total", Help: "Completed two-factor verifications."},
	{ID: authsession.MetricTwoFactorFailure, Name: "authsession_two_factor_failure_total", Help: "Rejected two-factor codes."},
	{ID: authsession.MetricRefreshSuccess, Name: "authsession_refresh_success_total", Help: "Successful token refreshes."},
	{ID: authsession.MetricRefreshFailure, Name: "authsession_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: authsession.MetricLogout, Name: "authsession_logout_total", Help: "Explicit logouts."},
	{ID: authsession.MetricSessionRecovered, Name: "authsession_session_recovered_total", Help: "Sessions restored from persisted state."},
	{ID: authsession.MetricSessionRecoveryFailed, Name: "authsession_session_recovery_failed_total", Help: "Startups that could not restore persisted state."},
	{ID: authsession.MetricSilentRedirect, Name: "authsession_silent_redirect_total", Help: "Invalid-session redirect hook firings."},
	{ID: authsession.MetricPermissionCacheHit, Name: "authsession_permission_cache_hit_total", Help: "Authorization reads served from cache."},
	{ID: authsession.MetricPermissionCacheMiss, Name: "authsession_permission_cache_miss_total", Help: "Authorization reads that failed closed."},
	{ID: authsession.MetricPermissionRefreshSuccess, Name: "authsession_permission_refresh_success_total", Help: "Permission fetches that replaced the cache entry."},
	{ID: authsession.MetricPermissionRefreshFailure, Name: "authsession_permission_refresh_failure_total", Help: "Failed permission fetches."},
	{ID: authsession.MetricFallbackServed, Name: "authsession_fallback_served_total", Help: "Permission resolutions served from the role table."},
	{ID: authsession.MetricSnapshotCorrupt, Name: "authsession_snapshot_corrupt_total", Help: "Purged corrupt persisted records."},
}

// HistogramDefs lists every exported histogram in a stable order.
var HistogramDefs = []HistogramDef{
	{ID: authsession.MetricPermissionRefreshLatency, Name: "authsession_permission_refresh_latency_seconds", Help: "Permission refresh latency histogram."},
}

// HistogramBounds are the upper bounds of the fixed core buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds in identifier-safe form.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// both exporters expose.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
