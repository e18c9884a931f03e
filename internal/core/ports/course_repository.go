package ports

import (
	"context"

	"github.com/studyon/billing/internal/core/domain"
)

// CourseRepository defines catalog persistence.
type CourseRepository interface {
	// List returns all courses ordered by code.
	List(ctx context.Context) ([]*domain.Course, error)
	FindByCode(ctx context.Context, code string) (*domain.Course, error)
	Create(ctx context.Context, course *domain.Course) error
	// Update replaces title, type and cost of the course identified by course.ID.
	// The code may change as long as it stays unique.
	Update(ctx context.Context, course *domain.Course) error
}
