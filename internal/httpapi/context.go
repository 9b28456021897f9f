package httpapi

import "context"

type contextKey string

const claimsContextKey contextKey = "claims"

// Claims is the subset of an upstream-verified identity this system trusts:
// a tenant and a subject id, matching the `custom:tenantId`/`custom:tenant_id`
// and `sub` claims spec.md §6 describes. Production deployments sit behind
// an API-gateway authenticator that verifies a JWT and populates these
// (see DevClaimsMiddleware for the local stand-in).
type Claims struct {
	TenantID  string
	SubjectID string
}

// ContextWithClaims returns a derived context carrying claims.
func ContextWithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext extracts claims previously attached to ctx.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(Claims)
	return claims, ok
}
