package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := Tokens{Secret: []byte("s3cret"), Issuer: "staybook"}
	raw, err := tokens.Issue("user-1", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	actor, err := tokens.Actor(raw)
	if err != nil {
		t.Fatalf("Actor: %v", err)
	}
	if actor.ID != "user-1" || !actor.Admin || actor.System {
		t.Fatalf("unexpected actor %+v", actor)
	}

	raw, _ = tokens.Issue("user-2", RoleTenant, time.Hour)
	actor, err = tokens.Actor(raw)
	if err != nil || actor.Admin || actor.Landlord {
		t.Fatalf("tenant must not be admin or landlord: %+v %v", actor, err)
	}

	raw, _ = tokens.Issue("host-1", RoleLandlord, time.Hour)
	actor, err = tokens.Actor(raw)
	if err != nil || !actor.Landlord || actor.Admin {
		t.Fatalf("landlord role not carried: %+v %v", actor, err)
	}
}

func TestTokensRejectInvalid(t *testing.T) {
	tokens := Tokens{Secret: []byte("s3cret")}
	expired := Tokens{Secret: []byte("s3cret"), Now: func() time.Time { return time.Now().Add(-2 * time.Hour) }}
	old, _ := expired.Issue("user-1", RoleTenant, time.Hour)
	forged, _ := Tokens{Secret: []byte("other")}.Issue("user-1", RoleAdmin, time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	noSubject, _ := tokens.Issue("", RoleTenant, time.Hour)

	cases := map[string]string{
		"expired":    old,
		"forged":     forged,
		"alg none":   none,
		"no subject": noSubject,
		"garbage":    "not-a-token",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := tokens.Actor(raw); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
	if _, err := tokens.Actor(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	if got := BearerToken("Bearer abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := BearerToken("bearer  abc "); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := BearerToken("Basic abc"); got != "" {
		t.Fatalf("got %q", got)
	}
}
