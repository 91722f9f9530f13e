package auth

import "context"

type gateContextKey struct{}

func WithGate(ctx context.Context, gate *Gate) context.Context {
	return context.WithValue(ctx, gateContextKey{}, gate)
}

func FromContext(ctx context.Context) (*Gate, bool) {
	value := ctx.Value(gateContextKey{})
	if value == nil {
		return nil, false
	}
	gate, ok := value.(*Gate)
	return gate, ok && gate != nil
}

// LogoutFromContext is the API client's unauthorized hook: it forces the
// caller's gate to logged out.
func LogoutFromContext(ctx context.Context) {
	gate, ok := FromContext(ctx)
	if !ok {
		return
	}
	_ = gate.Logout(context.WithoutCancel(ctx))
}
