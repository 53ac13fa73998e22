package interceptors

import "context"

type contextKey struct{ name string }

var (
	subjectKey = contextKey{"subject"}
	entityKey  = contextKey{"entity"}
)

// WithReporter returns a context carrying the authenticated reporter's subject and entity.
// Handlers read them via GetSubject and GetEntity.
func WithReporter(ctx context.Context, subject, entity string) context.Context {
	ctx = context.WithValue(ctx, subjectKey, subject)
	ctx = context.WithValue(ctx, entityKey, entity)
	return ctx
}

// GetSubject returns the token subject from context and true if set; otherwise "", false.
func GetSubject(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey).(string)
	return v, ok
}

// GetEntity returns the entity the reporter token is scoped to. An empty entity with
// ok=true means the token may report for any entity.
func GetEntity(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(entityKey).(string)
	return v, ok
}
