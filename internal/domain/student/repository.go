package student

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Student entities.
type Repository interface {
	Create(ctx context.Context, s *Student) error
	GetByChatID(ctx context.Context, chatID int64) (*Student, error)
	Update(ctx context.Context, s *Student) error // Persists Username, Password and Semester
	// ListEligible returns students with non-empty username and password and a
	// selected semester — the set the reconciliation loop polls.
	ListEligible(ctx context.Context) ([]*Student, error)
}
