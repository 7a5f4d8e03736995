package database

import (
	"context"
	"database/sql"
	"fmt"

	"rea_rating_bot/internal/domain/student"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrStudentNotFound = fmt.Errorf("student not found")

type PostgresStudentRepository struct {
	db *sql.DB
}

func NewPostgresStudentRepository(db *sql.DB) *PostgresStudentRepository {
	return &PostgresStudentRepository{db: db}
}

func (r *PostgresStudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `INSERT INTO students (chat_id, username, password, semester)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, s.ChatID, s.Username, s.Password, s.Semester).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating student: %w", err)
	}
	return nil
}

func (r *PostgresStudentRepository) GetByChatID(ctx context.Context, chatID int64) (*student.Student, error) {
	query := `SELECT id, chat_id, username, password, semester, created_at, updated_at
               FROM students WHERE chat_id = $1`
	s := &student.Student{}
	err := r.db.QueryRowContext(ctx, query, chatID).
		Scan(&s.ID, &s.ChatID, &s.Username, &s.Password, &s.Semester, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error getting student by chat ID: %w", err)
	}
	return s, nil
}

func (r *PostgresStudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `UPDATE students
               SET username = $1, password = $2, semester = $3, updated_at = NOW()
               WHERE id = $4
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, s.Username, s.Password, s.Semester, s.ID).Scan(&s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrStudentNotFound
		}
		return fmt.Errorf("error updating student: %w", err)
	}
	return nil
}

func (r *PostgresStudentRepository) ListEligible(ctx context.Context) ([]*student.Student, error) {
	query := `SELECT id, chat_id, username, password, semester, created_at, updated_at
               FROM students
               WHERE username <> '' AND password <> '' AND semester <> 0
               ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing eligible students: %w", err)
	}
	defer rows.Close()

	students := make([]*student.Student, 0)
	for rows.Next() {
		s := &student.Student{}
		if err := rows.Scan(&s.ID, &s.ChatID, &s.Username, &s.Password, &s.Semester, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning eligible student: %w", err)
		}
		students = append(students, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating eligible students: %w", err)
	}
	return students, nil
}
