package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const subjectKey contextKey = "auth_subject"

// DevUserHeader names the user id to act as when ENV=development and no
// bearer token is sent.
const DevUserHeader = "X-Dev-User"

// Claims carried by access tokens. The subject is the user id; roles are
// looked up in the registry, never trusted from the token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

type Config struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey selects HS256 verification and takes precedence over JWKS.
	SigningKey []byte
}

// Verifier validates bearer tokens either with a shared HMAC key or with
// the RSA keys of an OIDC provider.
type Verifier struct {
	issuer     string
	audience   string
	signingKey []byte
	jwks       *JWKSCache
}

// NewVerifier resolves the JWKS endpoint through OIDC discovery when only
// an issuer is configured. A Verifier with neither key source rejects
// every token.
func NewVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	v := &Verifier{issuer: cfg.Issuer, audience: cfg.Audience, signingKey: cfg.SigningKey}
	if len(cfg.SigningKey) > 0 {
		return v, nil
	}

	url := cfg.JWKSURL
	if url == "" && cfg.Issuer != "" {
		discovered, err := DiscoverJWKSURL(ctx, cfg.Issuer)
		if err != nil {
			return nil, err
		}
		url = discovered
	}
	if url != "" {
		v.jwks = NewJWKSCache(url, defaultJWKSCacheTTL)
	}
	return v, nil
}

var errNoKeySource = errors.New("token verification is not configured")

func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	var opts []jwt.ParserOption
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var keyfunc jwt.Keyfunc
	switch {
	case len(v.signingKey) > 0:
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		keyfunc = func(*jwt.Token) (interface{}, error) { return v.signingKey, nil }
	case v.jwks != nil:
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
		keyfunc = v.jwks.Keyfunc(ctx)
	default:
		return nil, errNoKeySource
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, keyfunc, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// Middleware authenticates every request not matched by skipper and stores
// the token subject in the request context. With dev set, requests without
// an Authorization header authenticate as the user named in X-Dev-User.
func Middleware(v *Verifier, dev bool, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			req := c.Request()
			header := req.Header.Get("Authorization")
			if header == "" {
				if dev {
					if sub := strings.TrimSpace(req.Header.Get(DevUserHeader)); sub != "" {
						c.SetRequest(req.WithContext(WithSubject(req.Context(), sub)))
						return next(c)
					}
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			scheme, raw, ok := strings.Cut(header, " ")
			raw = strings.TrimSpace(raw)
			if !ok || !strings.EqualFold(scheme, "bearer") || raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := v.Verify(req.Context(), raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.SetRequest(req.WithContext(WithSubject(req.Context(), claims.Subject)))
			return next(c)
		}
	}
}

func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFromContext returns the authenticated user id, or "".
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey).(string)
	return sub
}
