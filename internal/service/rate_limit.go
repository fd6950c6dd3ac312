package service

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/cloo-solutions/resumatch/internal/domain"
)

// RateLimitedModel spaces out structured model calls with a token bucket.
type RateLimitedModel struct {
	next    StructuredModel
	limiter *rate.Limiter
}

// NewRateLimitedModel allows perSecond sustained calls with the given burst.
// A non-positive perSecond returns next unchanged.
func NewRateLimitedModel(next StructuredModel, perSecond float64, burst int) StructuredModel {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedModel{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (m *RateLimitedModel) GenerateStructured(ctx context.Context, req domain.StructuredRequest, out any) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", req.Name, err)
	}
	return m.next.GenerateStructured(ctx, req, out)
}
