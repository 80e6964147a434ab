package config

import "context"

type pathKey struct{}

// WithPath stores the config file path in the context.
func WithPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, pathKey{}, path)
}

// PathFrom returns the config file path from the context, if set.
func PathFrom(ctx context.Context) (string, bool) {
	v := ctx.Value(pathKey{})
	s, ok := v.(string)
	return s, ok
}

// MustPathFrom returns the config path from the context, or panics if not set.
func MustPathFrom(ctx context.Context) string {
	if p, ok := PathFrom(ctx); ok && p != "" {
		return p
	}
	panic("config path missing from context")
}
