package httpapi

import "net/http"

// tenantID applies spec.md §6's precedence: verified claim, then the
// X-Tenant-Id header, then a query parameter.
func tenantID(r *http.Request) string {
	if claims, ok := ClaimsFromContext(r.Context()); ok && claims.TenantID != "" {
		return claims.TenantID
	}
	if h := r.Header.Get("X-Tenant-Id"); h != "" {
		return h
	}
	return r.URL.Query().Get("tenantId")
}

// subjectID applies spec.md §6's precedence: verified claim, then the
// X-Subject-Id header, then bodySubjectID (the request body's subjectId
// field, when the caller has one to offer).
func subjectID(r *http.Request, bodySubjectID string) string {
	if claims, ok := ClaimsFromContext(r.Context()); ok && claims.SubjectID != "" {
		return claims.SubjectID
	}
	if h := r.Header.Get("X-Subject-Id"); h != "" {
		return h
	}
	return bodySubjectID
}
