package goPairAuth

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/goPairAuth/internal/flows"
	"github.com/MrEthical07/goPairAuth/internal/idx"
	"github.com/MrEthical07/goPairAuth/internal/rate"
	"github.com/MrEthical07/goPairAuth/jwt"
)

func (e *Engine) buildFlowDeps() flows.Deps {
	validateAccess := func(tok string) (*jwt.Claims, error) {
		return e.codec.Validate(tok, jwt.TokenAccess)
	}
	isNotFound := func(err error) bool { return errors.Is(err, ErrNotFound) }

	login := flows.LoginDeps{
		ClientIP:       clientIPFromContext,
		IsRateLimited:  func(err error) bool { return errors.Is(err, rate.ErrThrottled) },
		FindAccount:    e.findAccount,
		IsNotFound:     isNotFound,
		VerifyPassword: e.hasher.Verify,
		IssuePair:      e.codec.IssuePair,
		Registry:       e.registry,
		Warn:           e.logger.Warn,
	}
	if e.throttle != nil {
		login.Throttle = e.throttle
	}
	if e.config.Password.UpgradeOnLogin {
		if _, ok := e.hasher.(upgradeChecker); ok {
			login.Rehash = e.rehash
		}
	}

	return flows.Deps{
		Register: flows.RegisterDeps{
			ExistsByUsername: e.userStore.ExistsByUsername,
			HashPassword:     e.hasher.Hash,
			CreateAccount:    e.createAccount,
			IsConflict:       func(err error) bool { return errors.Is(err, ErrAlreadyExists) },
			DefaultRoles:     e.config.Account.DefaultRoles,
			IssuePair:        e.codec.IssuePair,
			Registry:         e.registry,
		},
		Login: login,
		Refresh: flows.RefreshDeps{
			ValidateRefresh: func(tok string) (*jwt.Claims, error) {
				return e.codec.Validate(tok, jwt.TokenRefresh)
			},
			Registry:    e.registry,
			FindAccount: e.findAccount,
			IsNotFound:  isNotFound,
			IssuePair:   e.codec.IssuePair,
			OnReplay:    e.onRefreshReplay,
		},
		Logout: flows.LogoutDeps{
			ValidateAccess: validateAccess,
			Registry:       e.registry,
		},
		ChangePassword: flows.ChangePasswordDeps{
			ValidateAccess:     validateAccess,
			FindAccount:        e.findAccount,
			IsNotFound:         isNotFound,
			VerifyPassword:     e.hasher.Verify,
			HashPassword:       e.hasher.Hash,
			UpdatePasswordHash: e.updatePasswordHash,
			Registry:           e.registry,
		},
	}
}

func (e *Engine) findAccount(ctx context.Context, username string) (flows.Account, error) {
	u, err := e.userStore.FindByUsername(ctx, username)
	if err != nil {
		return flows.Account{}, err
	}
	return toAccount(u), nil
}

func (e *Engine) createAccount(ctx context.Context, in flows.RegisterInput, hash string, roles []string) (flows.Account, error) {
	now := e.clock.Now().UTC()
	saved, err := e.userStore.Save(ctx, User{
		ID:           idx.NewAt(now),
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return flows.Account{}, err
	}
	return toAccount(saved), nil
}

func (e *Engine) updatePasswordHash(ctx context.Context, username, hash string) error {
	u, err := e.userStore.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = e.clock.Now().UTC()
	_, err = e.userStore.Save(ctx, u)
	return err
}

// rehash replaces a stale stored hash after a successful login. Failures only
// log; the login itself has already succeeded.
func (e *Engine) rehash(ctx context.Context, account flows.Account, raw string) bool {
	checker := e.hasher.(upgradeChecker)
	stale, err := checker.NeedsUpgrade(account.PasswordHash)
	if err != nil || !stale {
		return false
	}

	hash, err := e.hasher.Hash(raw)
	if err != nil {
		e.logger.WarnContext(ctx, "password rehash failed", "username", account.Username, "error", err)
		return false
	}
	if err := e.updatePasswordHash(ctx, account.Username, hash); err != nil {
		e.logger.WarnContext(ctx, "password rehash not stored", "username", account.Username, "error", err)
		return false
	}

	e.metricInc(MetricPasswordRehashed)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventPasswordRehashed,
		success:   true,
		username:  account.Username,
		userID:    account.UserID,
	})
	return true
}

// onRefreshReplay records a verified refresh token whose id was no longer
// registered. The per-user replay count lives in Redis for one refresh TTL.
func (e *Engine) onRefreshReplay(ctx context.Context, username, tokenID string) {
	e.metricInc(MetricRefreshReplayDetected)

	meta := map[string]string{}
	count, err := e.registry.TrackReplay(ctx, username, e.config.JWT.RefreshTTL)
	if err != nil {
		e.logger.WarnContext(ctx, "replay tracking failed", "username", username, "error", err)
	} else {
		meta["replay_count"] = strconv.FormatInt(count, 10)
	}

	e.emitAudit(ctx, auditRecord{
		eventType: auditEventRefreshReplay,
		username:  username,
		tokenID:   tokenID,
		err:       ErrInvalidToken,
		metadata:  meta,
	})
}

func toAccount(u User) flows.Account {
	return flows.Account{
		UserID:       u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Roles:        append([]string(nil), u.Roles...),
	}
}
