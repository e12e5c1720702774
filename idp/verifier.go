package idp

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// VerifyIDToken validates a presented idToken: signature against the
// provider's JWKS, expiry and not-before, issuer, audience, and the tenant
// claim when a tenant is configured. Failures are classified so the resolver
// can pick the right recovery path: [ErrTokenExpired] triggers a refresh,
// [ErrTokenInvalid] ends in invalid credentials, and [ErrProviderUnavailable]
// is a system error rather than a user one.
//
// VerifyIDToken may return an error when input validation, dependency calls, or security checks fail.
// VerifyIDToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) VerifyIDToken(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods(c.config.ValidMethods),
		jwt.WithExpirationRequired(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, jwt.WithAudience(c.config.Audience))
	}

	parser := jwt.NewParser(options...)
	mapClaims := jwt.MapClaims{}
	parsed, err := parser.ParseWithClaims(token, mapClaims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return c.verifyKey(kid)
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		case errors.Is(err, ErrProviderUnavailable):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	claims, err := claimsFromMap(mapClaims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if c.config.TenantID != "" && claims.TenantID != c.config.TenantID {
		return nil, fmt.Errorf("%w: tenant mismatch", ErrTokenInvalid)
	}

	return claims, nil
}

func claimsFromMap(mapClaims jwt.MapClaims) (*Claims, error) {
	subject, err := mapClaims.GetSubject()
	if err != nil || subject == "" {
		return nil, errors.New("missing sub claim")
	}

	claims := &Claims{
		Subject: subject,
		Custom:  make(map[string]any, len(mapClaims)),
	}

	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Unix()
	}

	exp, err := mapClaims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.New("missing exp claim")
	}
	claims.ExpiresAt = exp.Unix()

	if tenant, ok := mapClaims["tenant_id"].(string); ok {
		claims.TenantID = tenant
	}

	for name, value := range mapClaims {
		claims.Custom[name] = value
	}

	return claims, nil
}
