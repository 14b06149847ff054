package handlers_test

import (
	"context"

	"github.com/go-chi/chi/v5"
)

// Helper to set chi URL param in context
func setChiURLParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}
