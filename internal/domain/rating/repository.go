package rating

import (
	"context"
)

// Repository defines operations on the persisted rating baseline. The
// baseline holds at most one row per (student, subject name) pair and is
// mutated only by the reconciliation loop, except for the full reset a
// semester change performs.
type Repository interface {
	// MapByStudent returns the student's baseline keyed by subject name.
	// An empty map (not an error) means no baseline has been recorded yet.
	MapByStudent(ctx context.Context, studentID int64) (map[string]Subject, error)
	// ListByStudent returns the baseline in stable subject-name order,
	// for rendering in chat.
	ListByStudent(ctx context.Context, studentID int64) ([]Subject, error)
	Insert(ctx context.Context, studentID int64, s Subject) error
	// Update overwrites all four components of the named subject's row.
	Update(ctx context.Context, studentID int64, s Subject) error
	// DeleteByStudent clears the whole baseline, used on semester change.
	DeleteByStudent(ctx context.Context, studentID int64) error
}
