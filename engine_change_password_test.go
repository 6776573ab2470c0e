package goPairAuth

import (
	"context"
	"errors"
	"testing"
)

func TestChangePasswordRevokesAllSessions(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	p1 := env.register(t, "alice", "old-password")
	p2 := mustLogin(t, env, "alice", "old-password")

	if err := env.engine.ChangePassword(ctx, p1.Access, "old-password", "new-password"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if got := env.sessions(t, "alice"); len(got) != 0 {
		t.Fatalf("expected all sessions revoked, got %v", got)
	}
	if _, err := env.engine.Refresh(ctx, p2.Refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected other device refresh to fail, got %v", err)
	}
	if _, err := env.engine.Login(ctx, "alice", "old-password"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	mustLogin(t, env, "alice", "new-password")

	if got := env.engine.MetricsSnapshot().Counters[MetricPasswordChangeSuccess]; got != 1 {
		t.Fatalf("expected success metric 1, got %d", got)
	}
}

func TestChangePasswordRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	pair := env.register(t, "alice", "old-password")
	before := env.store.hashOf("alice")

	cases := []struct {
		name    string
		token   string
		oldPass string
		newPass string
		want    error
	}{
		{"wrong old password", pair.Access, "nope", "new-password", ErrBadCredentials},
		{"reuse", pair.Access, "old-password", "old-password", ErrPasswordReuse},
		{"refresh token", pair.Refresh, "old-password", "new-password", ErrInvalidToken},
		{"empty new password", pair.Access, "old-password", "", ErrInvalidRequest},
	}
	for _, tc := range cases {
		err := env.engine.ChangePassword(ctx, tc.token, tc.oldPass, tc.newPass)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if env.store.hashOf("alice") != before {
		t.Fatal("rejected changes must not touch the stored hash")
	}
	if got := env.sessions(t, "alice"); len(got) != 1 {
		t.Fatalf("rejected changes must not revoke sessions, got %v", got)
	}
	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricPasswordChangeInvalidOld] != 1 || snap.Counters[MetricPasswordChangeReuseRejected] != 1 {
		t.Fatalf("unexpected metrics: %+v", snap.Counters)
	}
}
