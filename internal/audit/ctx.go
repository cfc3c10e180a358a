package audit

import "context"

type ctxKey int

const trailCtxKey ctxKey = 1

func WithTrail(ctx context.Context, t *Trail) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trailCtxKey, t)
}

func TrailFromContext(ctx context.Context) *Trail {
	if ctx == nil {
		return nil
	}
	v := ctx.Value(trailCtxKey)
	t, _ := v.(*Trail)
	return t
}
