package student

import (
	"time"
)

// Student represents one registered user of the bot. A row is created on
// first contact with empty credentials; the reconciliation loop only picks
// the student up once the credentials are complete.
type Student struct {
	ID        int64
	ChatID    int64 // Telegram chat the student talks to the bot from
	Username  string
	Password  string
	Semester  int // 1..8, 0 means "not selected yet"
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential is the portal login material for one student.
type Credential struct {
	Username string
	Password string
	Semester int
}

// Credential extracts the portal login material of the student.
func (s *Student) Credential() Credential {
	return Credential{
		Username: s.Username,
		Password: s.Password,
		Semester: s.Semester,
	}
}

// Eligible reports whether the student has complete credentials and may be
// polled by the reconciliation loop.
func (s *Student) Eligible() bool {
	return s.Username != "" && s.Password != "" && s.Semester != 0
}
