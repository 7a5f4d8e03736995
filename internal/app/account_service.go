package app

import (
	"context"
	"errors"
	"fmt"

	"rea_rating_bot/internal/domain/rating"
	"rea_rating_bot/internal/domain/student"
	idb "rea_rating_bot/internal/infra/database"
)

// Custom application-level errors for the account service
var ErrInvalidSemester = fmt.Errorf("semester must be between 1 and 8")

// AccountService backs the chat-bot command surface: registration,
// credential entry and semester selection.
type AccountService struct {
	studentRepo student.Repository
	ratingRepo  rating.Repository
}

func NewAccountService(sr student.Repository, rr rating.Repository) *AccountService {
	return &AccountService{studentRepo: sr, ratingRepo: rr}
}

// GetOrCreate returns the student talking from the given chat, creating an
// empty record on first contact.
func (s *AccountService) GetOrCreate(ctx context.Context, chatID int64) (*student.Student, error) {
	st, err := s.studentRepo.GetByChatID(ctx, chatID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, idb.ErrStudentNotFound) {
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}

	st = &student.Student{ChatID: chatID}
	if err := s.studentRepo.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	return st, nil
}

// Lookup returns the student talking from the given chat without creating
// one. Inline queries arrive from users who may never have started the
// bot, and those must not leave empty records behind.
func (s *AccountService) Lookup(ctx context.Context, chatID int64) (*student.Student, error) {
	st, err := s.studentRepo.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}
	return st, nil
}

// SetCredentials stores the portal login the student will be polled with.
func (s *AccountService) SetCredentials(ctx context.Context, chatID int64, username, password string) error {
	st, err := s.GetOrCreate(ctx, chatID)
	if err != nil {
		return err
	}
	st.Username = username
	st.Password = password
	if err := s.studentRepo.Update(ctx, st); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// SetSemester selects the semester to poll and clears the rating baseline,
// so the next reconciliation cycle rebuilds it and confirms in chat.
func (s *AccountService) SetSemester(ctx context.Context, chatID int64, semester int) error {
	if semester < 1 || semester > 8 {
		return ErrInvalidSemester
	}

	st, err := s.GetOrCreate(ctx, chatID)
	if err != nil {
		return err
	}
	st.Semester = semester
	if err := s.studentRepo.Update(ctx, st); err != nil {
		return fmt.Errorf("failed to store semester: %w", err)
	}
	if err := s.ratingRepo.DeleteByStudent(ctx, st.ID); err != nil {
		return fmt.Errorf("failed to reset rating baseline: %w", err)
	}
	return nil
}

// CurrentRating returns the stored baseline for rendering in chat.
func (s *AccountService) CurrentRating(ctx context.Context, studentID int64) ([]rating.Subject, error) {
	subjects, err := s.ratingRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating: %w", err)
	}
	return subjects, nil
}
