// Package identity resolves the signed session token presented at connect
// time into a durable user identity. Resolution never fails a connection:
// anything short of a valid token yields the anonymous identity, because
// observing an auction does not require signing in.
package identity

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	model "github.com/revisaosegura/copartbr-sub000/internal/models"
	"github.com/revisaosegura/copartbr-sub000/internal/repository"
	"github.com/revisaosegura/copartbr-sub000/utils"
)

// Identity is the resolved owner of a connection. The zero value is the
// anonymous identity.
type Identity struct {
	UserID      string
	DisplayName string
}

// Anonymous reports whether the identity carries no signed-in user.
func (id Identity) Anonymous() bool {
	return id.UserID == ""
}

// Resolver verifies HS256 session tokens and looks up display names in the
// user directory.
type Resolver struct {
	secret []byte
	store  repository.LotStore
}

// NewResolver creates a Resolver signing-verified against secret.
func NewResolver(secret string, store repository.LotStore) *Resolver {
	return &Resolver{secret: []byte(secret), store: store}
}

// Resolve turns a raw session token into an Identity. Every failure mode
// (empty token, bad signature, wrong algorithm, expired, missing subject)
// degrades to anonymous; verification errors are logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, rawToken string) Identity {
	if rawToken == "" {
		return Identity{}
	}

	tok, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		utils.Warn("session token rejected, treating connection as anonymous", map[string]any{
			"error": errString(err),
		})
		return Identity{}
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}
	}

	id := Identity{UserID: sub}
	if name, _ := claims["name"].(string); name != "" {
		id.DisplayName = name
		return id
	}

	// token carried no display name; one directory read fills it in
	lookupCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if u, err := r.store.GetUser(lookupCtx, sub); err == nil {
		id.DisplayName = u.DisplayName
	}
	return id
}

// SignSession mints a session token for a user. Used by the login path and
// by tests; TTL of zero means no expiry claim.
func (r *Resolver) SignSession(user model.User, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.UserID,
		"name": user.DisplayName,
		"iat":  time.Now().UTC().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().UTC().Add(ttl).Unix()
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(r.secret)
}

func errString(err error) string {
	if err == nil {
		return "token invalid"
	}
	return err.Error()
}
