package database

import (
	"context"
	"database/sql"
	"fmt"

	"rea_rating_bot/internal/domain/rating"
)

type PostgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) *PostgresRatingRepository {
	return &PostgresRatingRepository{db: db}
}

func (r *PostgresRatingRepository) MapByStudent(ctx context.Context, studentID int64) (map[string]rating.Subject, error) {
	query := `SELECT subject_name, attendance, control, creative, test
               FROM ratings WHERE student_id = $1`

	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("error loading rating baseline: %w", err)
	}
	defer rows.Close()

	baseline := make(map[string]rating.Subject)
	for rows.Next() {
		var s rating.Subject
		if err := rows.Scan(&s.Name, &s.Attendance, &s.Control, &s.Creative, &s.Test); err != nil {
			return nil, fmt.Errorf("error scanning rating baseline row: %w", err)
		}
		baseline[s.Name] = s
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rating baseline: %w", err)
	}
	return baseline, nil
}

func (r *PostgresRatingRepository) ListByStudent(ctx context.Context, studentID int64) ([]rating.Subject, error) {
	query := `SELECT subject_name, attendance, control, creative, test
               FROM ratings WHERE student_id = $1 ORDER BY subject_name`

	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("error listing rating baseline: %w", err)
	}
	defer rows.Close()

	subjects := make([]rating.Subject, 0)
	for rows.Next() {
		var s rating.Subject
		if err := rows.Scan(&s.Name, &s.Attendance, &s.Control, &s.Creative, &s.Test); err != nil {
			return nil, fmt.Errorf("error scanning rating baseline row: %w", err)
		}
		subjects = append(subjects, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rating baseline: %w", err)
	}
	return subjects, nil
}

func (r *PostgresRatingRepository) Insert(ctx context.Context, studentID int64, s rating.Subject) error {
	query := `INSERT INTO ratings (student_id, subject_name, attendance, control, creative, test)
               VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query, studentID, s.Name, s.Attendance, s.Control, s.Creative, s.Test)
	if err != nil {
		return fmt.Errorf("error inserting rating for subject %q: %w", s.Name, err)
	}
	return nil
}

func (r *PostgresRatingRepository) Update(ctx context.Context, studentID int64, s rating.Subject) error {
	query := `UPDATE ratings
               SET attendance = $1, control = $2, creative = $3, test = $4
               WHERE student_id = $5 AND subject_name = $6`

	_, err := r.db.ExecContext(ctx, query, s.Attendance, s.Control, s.Creative, s.Test, studentID, s.Name)
	if err != nil {
		return fmt.Errorf("error updating rating for subject %q: %w", s.Name, err)
	}
	return nil
}

func (r *PostgresRatingRepository) DeleteByStudent(ctx context.Context, studentID int64) error {
	query := `DELETE FROM ratings WHERE student_id = $1`

	if _, err := r.db.ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("error deleting rating baseline: %w", err)
	}
	return nil
}
