package goPairAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goPairAuth/internal/audit"
	"github.com/MrEthical07/goPairAuth/internal/flows"
	"github.com/MrEthical07/goPairAuth/internal/rate"
	"github.com/MrEthical07/goPairAuth/jwt"
	"github.com/MrEthical07/goPairAuth/password"
	"github.com/MrEthical07/goPairAuth/session"
)

// Engine issues, rotates, and revokes access/refresh pairs.
//
// Engine methods are safe for concurrent use. The Engine holds no locks; the
// exactly-once redemption of a refresh token is decided by the session registry.
type Engine struct {
	config    Config
	codec     *jwt.Codec
	registry  *session.Registry
	userStore UserStore
	hasher    PasswordHasher
	throttle  *rate.Limiter
	clock     Clock
	logger    *slog.Logger
	audit     *audit.Dispatcher
	metrics   *Metrics
	flows     flows.Deps
}

// Close flushes pending audit events. The Redis client and user store belong
// to the caller and are left open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Register creates an account with the configured default roles and returns
// its first pair.
//
// A taken username yields ErrAlreadyExists, including when a concurrent
// registration wins the store's unique constraint. If the pair cannot be
// recorded in the registry the account still exists and the error wraps
// ErrRegistryUnavailable; the caller can log in later.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (TokenPair, error) {
	if e == nil || e.codec == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	res := flows.RunRegister(ctx, flows.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, e.flows.Register)

	var err error
	switch res.Failure {
	case flows.RegisterFailureNone:
		e.metricInc(MetricRegisterSuccess)
		e.metricInc(MetricSessionCreated)
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventRegisterSuccess,
			success:   true,
			username:  res.Account.Username,
			userID:    res.Account.UserID,
			tokenID:   res.Pair.TokenID,
		})
		return toTokenPair(res.Pair), nil
	case flows.RegisterFailureInvalid:
		err = ErrInvalidRequest
	case flows.RegisterFailureExists:
		e.metricInc(MetricRegisterDuplicate)
		err = ErrAlreadyExists
	case flows.RegisterFailureHash:
		err = e.mapHashError(res.Err)
	case flows.RegisterFailureLookup, flows.RegisterFailureCreate:
		err = e.storeUnavailable("register", res.Err)
	case flows.RegisterFailureIssue:
		err = fmt.Errorf("issue token pair: %w", res.Err)
	case flows.RegisterFailureRegistry:
		err = e.registryUnavailable("register", res.Err)
	default:
		err = ErrEngineNotReady
	}

	if res.Failure != flows.RegisterFailureExists {
		e.metricInc(MetricRegisterFailure)
	}
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventRegisterFailure,
		username:  req.Username,
		userID:    res.Account.UserID,
		err:       err,
	})
	return TokenPair{}, err
}

// Login verifies username and password and returns a new pair. Each call opens
// an independent session; earlier pairs stay valid.
func (e *Engine) Login(ctx context.Context, username, rawPassword string) (TokenPair, error) {
	if e == nil || e.codec == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	res := flows.RunLogin(ctx, username, rawPassword, e.flows.Login)

	var err error
	switch res.Failure {
	case flows.LoginFailureNone:
		e.metricInc(MetricLoginSuccess)
		e.metricInc(MetricSessionCreated)
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventLoginSuccess,
			success:   true,
			username:  res.Account.Username,
			userID:    res.Account.UserID,
			tokenID:   res.Pair.TokenID,
		})
		return toTokenPair(res.Pair), nil
	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditRecord{eventType: auditEventLoginRateLimited, username: username, err: ErrLoginRateLimited})
		return TokenPair{}, ErrLoginRateLimited
	case flows.LoginFailureThrottleUnavailable:
		err = e.registryUnavailable("login throttle", res.Err)
	case flows.LoginFailureNotFound:
		err = ErrNotFound
	case flows.LoginFailureBadCredentials:
		err = ErrBadCredentials
	case flows.LoginFailureVerify:
		if !errors.Is(res.Err, password.ErrPasswordTooLong) {
			e.logger.WarnContext(ctx, "stored password hash unusable", "username", username, "error", res.Err)
		}
		err = ErrBadCredentials
	case flows.LoginFailureLookup:
		err = e.storeUnavailable("login", res.Err)
	case flows.LoginFailureIssue:
		err = fmt.Errorf("issue token pair: %w", res.Err)
	case flows.LoginFailureRegistry:
		err = e.registryUnavailable("login", res.Err)
	default:
		err = ErrEngineNotReady
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventLoginFailure,
		username:  username,
		userID:    res.Account.UserID,
		err:       err,
	})
	return TokenPair{}, err
}

// Refresh redeems refreshToken and returns a new pair with a new token id.
//
// A refresh token can be redeemed once. When several requests present the same
// token concurrently exactly one succeeds; the rest, and every later attempt,
// get ErrInvalidToken. If the user was deleted in the meantime the result is
// ErrNotFound and the old session is gone.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || e.codec == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricRefreshLatency, time.Since(start)) }()
	}

	res := flows.RunRefresh(ctx, refreshToken, e.flows.Refresh)
	switch res.Failure {
	case flows.RefreshFailureInvalidToken, flows.RefreshFailureRedeemed, flows.RefreshFailureRevoke:
	default:
		// The old id left the registry, whatever happened afterwards.
		e.metricInc(MetricSessionRevoked)
	}

	var err error
	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.metricInc(MetricSessionCreated)
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventRefreshSuccess,
			success:   true,
			username:  res.Username,
			userID:    res.Account.UserID,
			tokenID:   res.Pair.TokenID,
			metadata:  map[string]string{"previous_token_id": res.OldID},
		})
		return toTokenPair(res.Pair), nil
	case flows.RefreshFailureInvalidToken, flows.RefreshFailureRedeemed:
		err = ErrInvalidToken
	case flows.RefreshFailureRevoke:
		err = e.registryUnavailable("refresh revoke", res.Err)
	case flows.RefreshFailureNotFound:
		err = ErrNotFound
	case flows.RefreshFailureLookup:
		err = e.storeUnavailable("refresh", res.Err)
	case flows.RefreshFailureIssue:
		err = fmt.Errorf("issue token pair: %w", res.Err)
	case flows.RefreshFailureRegistry:
		err = e.registryUnavailable("refresh", res.Err)
	default:
		err = ErrEngineNotReady
	}

	e.metricInc(MetricRefreshFailure)
	if res.Failure != flows.RefreshFailureRedeemed {
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventRefreshInvalid,
			username:  res.Username,
			tokenID:   res.OldID,
			err:       err,
		})
	}
	return TokenPair{}, err
}

// LogoutCurrentDevice revokes the session accessToken belongs to. Logging out
// an already revoked session succeeds. The access token itself remains valid
// for inbound authentication until it expires; its refresh partner does not.
func (e *Engine) LogoutCurrentDevice(ctx context.Context, accessToken string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}

	res := flows.RunLogoutCurrent(ctx, accessToken, e.flows.Logout)
	switch res.Failure {
	case flows.LogoutFailureNone:
		e.metricInc(MetricLogout)
		if res.Removed {
			e.metricInc(MetricSessionRevoked)
		}
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventLogoutSession,
			success:   true,
			username:  res.Username,
			tokenID:   res.TokenID,
		})
		return nil
	case flows.LogoutFailureInvalidToken:
		return ErrInvalidToken
	case flows.LogoutFailureRegistry:
		return e.registryUnavailable("logout", res.Err)
	default:
		return ErrEngineNotReady
	}
}

// LogoutAllDevices revokes every session of the access token's user.
func (e *Engine) LogoutAllDevices(ctx context.Context, accessToken string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}

	res := flows.RunLogoutAll(ctx, accessToken, e.flows.Logout)
	switch res.Failure {
	case flows.LogoutFailureNone:
		e.metricInc(MetricLogoutAll)
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventLogoutAll,
			success:   true,
			username:  res.Username,
			tokenID:   res.TokenID,
		})
		return nil
	case flows.LogoutFailureInvalidToken:
		return ErrInvalidToken
	case flows.LogoutFailureRegistry:
		return e.registryUnavailable("logout all", res.Err)
	default:
		return ErrEngineNotReady
	}
}

// ListSessions returns the live token ids of the access token's user in the
// order they were created.
func (e *Engine) ListSessions(ctx context.Context, accessToken string) ([]string, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.codec.Validate(accessToken, jwt.TokenAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}

	ids, err := e.registry.List(ctx, claims.Subject)
	if err != nil {
		return nil, e.registryUnavailable("list sessions", err)
	}
	return ids, nil
}

// ChangePassword replaces the password of the access token's user after
// checking oldPassword, then revokes every session including the current one.
func (e *Engine) ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}

	res := flows.RunChangePassword(ctx, accessToken, oldPassword, newPassword, e.flows.ChangePassword)

	var err error
	switch res.Failure {
	case flows.ChangePasswordFailureNone:
		e.metricInc(MetricPasswordChangeSuccess)
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventPasswordChangeSuccess,
			success:   true,
			username:  res.Username,
		})
		return nil
	case flows.ChangePasswordFailureInvalidToken:
		return ErrInvalidToken
	case flows.ChangePasswordFailureNotFound:
		err = ErrNotFound
	case flows.ChangePasswordFailureBadCredentials:
		e.metricInc(MetricPasswordChangeInvalidOld)
		err = ErrBadCredentials
	case flows.ChangePasswordFailureVerify:
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.logger.WarnContext(ctx, "stored password hash unusable", "username", res.Username, "error", res.Err)
		err = ErrBadCredentials
	case flows.ChangePasswordFailureReuse:
		e.metricInc(MetricPasswordChangeReuseRejected)
		err = ErrPasswordReuse
	case flows.ChangePasswordFailureHash:
		err = e.mapHashError(res.Err)
	case flows.ChangePasswordFailureLookup, flows.ChangePasswordFailureUpdate:
		err = e.storeUnavailable("change password", res.Err)
	case flows.ChangePasswordFailureRegistry:
		// The new password is already stored.
		err = e.registryUnavailable("change password revoke", res.Err)
	default:
		err = ErrEngineNotReady
	}

	e.emitAudit(ctx, auditRecord{
		eventType: auditEventPasswordChangeFailure,
		username:  res.Username,
		err:       err,
	})
	return err
}

// ValidateAccess verifies an access token without consulting the registry.
// Every failure is ErrInvalidToken.
func (e *Engine) ValidateAccess(token string) (*jwt.Claims, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	claims, err := e.codec.Validate(token, jwt.TokenAccess)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, ErrInvalidToken
	}
	e.metricInc(MetricValidateSuccess)
	return claims, nil
}

// ResolveIdentity loads the current user for validated access claims. Roles
// come from the store, so role changes apply before the token expires.
func (e *Engine) ResolveIdentity(ctx context.Context, claims *jwt.Claims) (Identity, error) {
	if e == nil || e.userStore == nil {
		return Identity{}, ErrEngineNotReady
	}
	if claims == nil || claims.Type != jwt.TokenAccess {
		return Identity{}, ErrInvalidToken
	}

	user, err := e.userStore.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, e.storeUnavailable("resolve identity", err)
	}

	return Identity{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    append([]string(nil), user.Roles...),
		TokenID:  claims.TokenID,
	}, nil
}

// Authenticate validates an access token and resolves its user in one call.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (Identity, error) {
	claims, err := e.ValidateAccess(accessToken)
	if err != nil {
		return Identity{}, err
	}
	return e.ResolveIdentity(ctx, claims)
}

// Ping checks the session registry round trip.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.registry == nil {
		return 0, ErrEngineNotReady
	}
	return e.registry.Ping(ctx)
}

func (e *Engine) registryUnavailable(op string, err error) error {
	e.metricInc(MetricRegistryUnavailable)
	e.logger.Warn("session registry unavailable", "op", op, "error", err)
	if errors.Is(err, ErrRegistryUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
}

func (e *Engine) storeUnavailable(op string, err error) error {
	e.logger.Warn("user store unavailable", "op", op, "error", err)
	if errors.Is(err, ErrUserStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
}

func (e *Engine) mapHashError(err error) error {
	if errors.Is(err, password.ErrEmptyPassword) || errors.Is(err, password.ErrPasswordTooLong) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return fmt.Errorf("hash password: %w", err)
}

func toTokenPair(p jwt.Pair) TokenPair {
	return TokenPair{Access: p.Access, Refresh: p.Refresh}
}
