package user

import (
	"context"
	"testing"
	"time"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	tokensvc "github.com/kokokojo2/desk2-virtual-university-backend/services/token"
)

func TestMakeCheckToken(t *testing.T) {
	gen := NewTokenGenerator(tokensvc.NewInmemStore())
	ctx := context.Background()

	validToken, err := gen.Make(ctx, TwoFAToken, "1")
	if err != nil {
		t.Fatalf("Make() failed: %v", err)
	}

	tests := []struct {
		name    string
		purpose TokenPurpose
		key     string
		token   string
		want    bool
	}{
		{name: "no token", purpose: TwoFAToken, key: "1"},
		{name: "invalid token", purpose: TwoFAToken, key: "1", token: "LMAOOOL"},
		{name: "wrong key", purpose: TwoFAToken, key: "2", token: validToken},
		{name: "wrong purpose", purpose: PasswordResetToken, key: "1", token: validToken},
		{name: "valid token", purpose: TwoFAToken, key: "1", token: validToken, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gen.Check(ctx, tt.purpose, tt.key, tt.token, false)
			if err != nil {
				t.Fatalf("Check() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckToken_consume(t *testing.T) {
	gen := NewTokenGenerator(tokensvc.NewInmemStore())
	ctx := context.Background()

	token, err := gen.Make(ctx, PasswordResetToken, "7")
	if err != nil {
		t.Fatalf("Make() failed: %v", err)
	}

	ok, err := gen.Check(ctx, PasswordResetToken, "7", token, true)
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true")
	}

	// consumed, cannot be replayed
	ok, err = gen.Check(ctx, PasswordResetToken, "7", token, true)
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if ok {
		t.Error("Check() = true after consumption, want false")
	}
}

func TestCheckToken_expired(t *testing.T) {
	origTimeout := core.Conf.TwoFATokenTimeout
	core.Conf.TwoFATokenTimeout = -time.Second // already expired on write
	defer func() { core.Conf.TwoFATokenTimeout = origTimeout }()

	gen := NewTokenGenerator(tokensvc.NewInmemStore())
	ctx := context.Background()

	token, err := gen.Make(ctx, TwoFAToken, "1")
	if err != nil {
		t.Fatalf("Make() failed: %v", err)
	}

	ok, err := gen.Check(ctx, TwoFAToken, "1", token, false)
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if ok {
		t.Error("Check() = true for expired token, want false")
	}
}

func TestMakeToken_lastWriteWins(t *testing.T) {
	gen := NewTokenGenerator(tokensvc.NewInmemStore())
	ctx := context.Background()

	now := time.Now()
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	first, err := gen.Make(ctx, TwoFAToken, "1")
	if err != nil {
		t.Fatalf("Make() failed: %v", err)
	}

	// a later code from another 5min bucket replaces the first
	NowFunc = func() time.Time { return now.Add(10 * time.Minute) }
	second, err := gen.Make(ctx, TwoFAToken, "1")
	if err != nil {
		t.Fatalf("Make() failed: %v", err)
	}
	if first == second {
		t.Fatal("Make() generated the same token for different time buckets")
	}

	if ok, _ := gen.Check(ctx, TwoFAToken, "1", first, false); ok {
		t.Error("Check() = true for overwritten token, want false")
	}
	if ok, _ := gen.Check(ctx, TwoFAToken, "1", second, false); !ok {
		t.Error("Check() = false for latest token, want true")
	}
}
