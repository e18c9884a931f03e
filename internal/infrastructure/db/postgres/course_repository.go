package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/studyon/billing/internal/core/domain"
)

const courseColumns = `id, code, title, type, cost`

type CourseRepository struct {
	db querier
}

func (r *CourseRepository) List(ctx context.Context) ([]*domain.Course, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	courses := make([]*domain.Course, 0)
	for rows.Next() {
		var c domain.Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Title, &c.Type, &c.Cost); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, &c)
	}
	return courses, rows.Err()
}

func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*domain.Course, error) {
	var c domain.Course
	err := r.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE code = $1`, code).
		Scan(&c.ID, &c.Code, &c.Title, &c.Type, &c.Cost)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &c, nil
}

func (r *CourseRepository) Create(ctx context.Context, c *domain.Course) error {
	const q = `INSERT INTO courses (` + courseColumns + `) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, q, c.ID, c.Code, c.Title, string(c.Type), c.Cost); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCourseExists
		}
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

func (r *CourseRepository) Update(ctx context.Context, c *domain.Course) error {
	const q = `UPDATE courses SET code = $2, title = $3, type = $4, cost = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, c.ID, c.Code, c.Title, string(c.Type), c.Cost)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCourseExists
		}
		return fmt.Errorf("update course: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}
