package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"describe-service/internal/conf"
	describeErrors "describe-service/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Identity 调用方身份
type Identity struct {
	UserID string
	Role   string
}

// TokenVerifier 校验外部认证服务签发的 HS256 令牌
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a verifier from the auth config.
func NewTokenVerifier(c *conf.Bootstrap) *TokenVerifier {
	v := &TokenVerifier{}
	if c != nil && c.Auth != nil {
		v.secret = []byte(c.Auth.JwtSecret)
		v.issuer = c.Auth.JwtIssuer
	}
	return v
}

// Generate issues a signed token. The service itself never logs users in;
// this exists for tooling and tests.
func (v *TokenVerifier) Generate(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if v.issuer != "" {
		claims["iss"] = v.issuer
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify parses and validates a token string.
func (v *TokenVerifier) Verify(tokenString string) (*Identity, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("jwt secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return nil, err
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	role, _ := claims["role"].(string)
	return &Identity{UserID: sub, Role: role}, nil
}

// FromRequest 从 Authorization: Bearer 头中解析身份，失败统一返回 UNAUTHORIZED
func (v *TokenVerifier) FromRequest(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return nil, describeErrors.ErrUnauthorized()
	}
	id, err := v.Verify(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return nil, describeErrors.ErrUnauthorized().WithCause(err)
	}
	return id, nil
}
