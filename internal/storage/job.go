package storage

import "context"

type jobKey struct{}

// WithJob tags ctx with the name of the resource being loaded, so backends
// can label logs and metrics without widening Repository.
func WithJob(ctx context.Context, job string) context.Context {
	return context.WithValue(ctx, jobKey{}, job)
}

// JobFrom returns the job set by WithJob, or fallback.
func JobFrom(ctx context.Context, fallback string) string {
	if j, ok := ctx.Value(jobKey{}).(string); ok && j != "" {
		return j
	}
	return fallback
}
