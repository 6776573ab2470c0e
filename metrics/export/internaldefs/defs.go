package internaldefs

import (
	"strconv"

	goPairAuth "github.com/MrEthical07/goPairAuth"
)

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   goPairAuth.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   goPairAuth.MetricID
	Name string
	Help string
}

const AuditDroppedName = "pairauth_audit_dropped_total"

const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

var CounterDefs = []CounterDef{
	{ID: goPairAuth.MetricRegisterSuccess, Name: "pairauth_register_success_total", Help: "Successful registrations."},
	{ID: goPairAuth.MetricRegisterDuplicate, Name: "pairauth_register_duplicate_total", Help: "Registrations rejected because the username exists."},
	{ID: goPairAuth.MetricRegisterFailure, Name: "pairauth_register_failure_total", Help: "Registrations that failed for other reasons."},
	{ID: goPairAuth.MetricLoginSuccess, Name: "pairauth_login_success_total", Help: "Successful logins."},
	{ID: goPairAuth.MetricLoginFailure, Name: "pairauth_login_failure_total", Help: "Failed logins."},
	{ID: goPairAuth.MetricLoginRateLimited, Name: "pairauth_login_rate_limited_total", Help: "Logins rejected during cooldown."},
	{ID: goPairAuth.MetricRefreshSuccess, Name: "pairauth_refresh_success_total", Help: "Refresh tokens redeemed for a new pair."},
	{ID: goPairAuth.MetricRefreshFailure, Name: "pairauth_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: goPairAuth.MetricRefreshReplayDetected, Name: "pairauth_refresh_replay_detected_total", Help: "Verified refresh tokens presented after redemption or revocation."},
	{ID: goPairAuth.MetricValidateSuccess, Name: "pairauth_validate_success_total", Help: "Accepted access tokens."},
	{ID: goPairAuth.MetricValidateFailure, Name: "pairauth_validate_failure_total", Help: "Rejected access tokens."},
	{ID: goPairAuth.MetricLogout, Name: "pairauth_logout_total", Help: "Current-device logouts."},
	{ID: goPairAuth.MetricLogoutAll, Name: "pairauth_logout_all_total", Help: "All-device logouts."},
	{ID: goPairAuth.MetricPasswordChangeSuccess, Name: "pairauth_password_change_success_total", Help: "Successful password changes."},
	{ID: goPairAuth.MetricPasswordChangeInvalidOld, Name: "pairauth_password_change_invalid_old_total", Help: "Password changes with a wrong current password."},
	{ID: goPairAuth.MetricPasswordChangeReuseRejected, Name: "pairauth_password_change_reuse_rejected_total", Help: "Password changes rejected for reusing the current password."},
	{ID: goPairAuth.MetricPasswordRehashed, Name: "pairauth_password_rehashed_total", Help: "Stored hashes upgraded on login."},
	{ID: goPairAuth.MetricSessionCreated, Name: "pairauth_session_created_total", Help: "Token ids added to the session registry."},
	{ID: goPairAuth.MetricSessionRevoked, Name: "pairauth_session_revoked_total", Help: "Token ids removed from the session registry."},
	{ID: goPairAuth.MetricRegistryUnavailable, Name: "pairauth_registry_unavailable_total", Help: "Session registry transport failures."},
}

var HistogramDefs = []HistogramDef{
	{ID: goPairAuth.MetricValidateLatency, Name: "pairauth_validate_latency_seconds", Help: "Access token validation latency."},
	{ID: goPairAuth.MetricRefreshLatency, Name: "pairauth_refresh_latency_seconds", Help: "Refresh round trip latency."},
}

// BucketCount is the number of histogram buckets including +Inf.
const BucketCount = len(goPairAuth.HistogramBucketBounds) + 1

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	out := make([]float64, len(goPairAuth.HistogramBucketBounds))
	for i, d := range goPairAuth.HistogramBucketBounds {
		out[i] = d.Seconds()
	}
	return out
}

// BoundLabels returns the "le" label of each bucket, ending with "+Inf".
func BoundLabels() []string {
	out := make([]string, 0, BucketCount)
	for _, b := range UpperBounds() {
		out = append(out, strconv.FormatFloat(b, 'f', -1, 64))
	}
	return append(out, "+Inf")
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range raw {
		running += raw[i]
		out[i] = running
	}
	return out
}
