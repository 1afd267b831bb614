package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
)

var signingMethod = jwt.SigningMethodHS256

var (
	ErrSecretRequired = errors.New("jwt secret is required")
	ErrMalformedToken = errors.New("malformed access token claims")
)

// Verifier checks HS256 access tokens issued by the identity service against
// the shared secret. Mint exists for tooling and tests holding the same secret.
type Verifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &Verifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.Expiration(),
		parser: jwt.NewParser(opts...),
	}
}

func (v *Verifier) Verify(raw string) (*AccessTokenClaims, error) {
	if len(v.secret) == 0 {
		return nil, ErrSecretRequired
	}
	claims := &AccessTokenClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return v.secret, nil }); err != nil {
		return nil, err
	}
	if err := claims.validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *Verifier) Mint(now time.Time, payload AccessTokenPayload) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrSecretRequired
	}
	if v.issuer == "" {
		return "", errors.New("jwt issuer is required")
	}
	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		UserID:         payload.UserID,
		OrganizationID: payload.OrganizationID,
		Roles:          payload.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
			ID:        jti,
		},
	}
	if err := claims.validate(); err != nil {
		return "", err
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}
