// Package auth verifies bearer credentials and carries the resulting caller
// identity through request contexts. It never mints credentials.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fintrack/internal/core"
)

// Identity is the verified caller. UserID scopes every store read and write.
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

// Config holds the shared-secret verification settings.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
	Now      func() time.Time
}

// Verifier checks HMAC-signed JWT bearer tokens. It is stateless and makes no
// network or storage calls.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// claims accepts the user id either as the "id" claim issued by the login
// service or as the standard "sub".
type claims struct {
	UserID string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}
	return &Verifier{
		secret: cfg.Secret,
		parser: jwt.NewParser(opts...),
	}, nil
}

// Verify validates credential and returns the embedded identity.
//
// An empty credential fails with core.ErrUnauthenticated without any decode
// attempt. Anything structurally invalid, badly signed or expired fails with
// core.ErrInvalidCredential.
func (v *Verifier) Verify(credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, core.ErrUnauthenticated
	}

	var c claims
	_, err := v.parser.ParseWithClaims(credential, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %s", core.ErrInvalidCredential, describeJWTError(err))
	}

	userID := strings.TrimSpace(c.UserID)
	if userID == "" {
		userID = strings.TrimSpace(c.Subject)
	}
	if userID == "" {
		return Identity{}, fmt.Errorf("%w: token carries no user id", core.ErrInvalidCredential)
	}

	id := Identity{UserID: userID}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return id, nil
}

// VerifyHeader extracts the bearer token from an Authorization header value
// and verifies it. A bare token without the scheme is accepted.
func (v *Verifier) VerifyHeader(header string) (Identity, error) {
	token, err := BearerToken(header)
	if err != nil {
		return Identity{}, err
	}
	return v.Verify(token)
}

// BearerToken returns the credential part of an Authorization header.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", core.ErrUnauthenticated
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found {
		return header, nil
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: unsupported authorization scheme %q", core.ErrInvalidCredential, scheme)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", core.ErrUnauthenticated
	}
	return token, nil
}

// describeJWTError maps jwt library errors to a short reason that is safe to
// log. The token itself is never included.
func describeJWTError(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token is expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "token is not valid yet"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "token is malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "token signature is invalid"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "token algorithm is not accepted"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "token is missing a required claim"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "token issuer mismatch"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "token audience mismatch"
	default:
		return "token is invalid"
	}
}
