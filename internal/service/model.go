package service

import (
	"context"

	"github.com/cloo-solutions/resumatch/internal/domain"
)

// StructuredModel asks a hosted language model for an answer shaped like out.
// out must be a non-nil pointer to a struct; it is filled only when err is nil.
type StructuredModel interface {
	GenerateStructured(ctx context.Context, req domain.StructuredRequest, out any) error
}
