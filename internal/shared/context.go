package shared

import "context"

type sessionContextKey struct{}

type companyContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithCompany stores the resolved tenant id in context.
func ContextWithCompany(ctx context.Context, companyID int64) context.Context {
	return context.WithValue(ctx, companyContextKey{}, companyID)
}

// CompanyFromContext extracts the tenant id, zero when absent.
func CompanyFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(companyContextKey{}).(int64)
	return id
}
