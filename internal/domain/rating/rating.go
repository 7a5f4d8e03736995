package rating

import (
	"fmt"
	"strconv"
	"strings"

	"rea_rating_bot/internal/domain/student"
)

// Subject holds the four rating components of one academic subject for one
// student at one point in time. Name is the natural key within a student.
type Subject struct {
	Name       string
	Attendance float64
	Control    float64
	Creative   float64
	Test       float64
}

// Total is the derived overall score. It is never persisted.
func (s Subject) Total() float64 {
	return s.Attendance + s.Control + s.Creative + s.Test
}

// String renders the subject the way the bot shows it in chat.
func (s Subject) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString(":\n")
	fmt.Fprintf(&b, "Посещаемость: %s\n", FormatScore(s.Attendance))
	fmt.Fprintf(&b, "Творческий: %s\n", FormatScore(s.Creative))
	fmt.Fprintf(&b, "Контрольный: %s\n", FormatScore(s.Control))
	fmt.Fprintf(&b, "Экз/зачет: %s\n", FormatScore(s.Test))
	fmt.Fprintf(&b, "Всего: %s", FormatScore(s.Total()))
	return b.String()
}

// FormatScore renders a score without trailing zeros ("12", "7.5").
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Snapshot is the result of one successful scrape of one student's rating
// page. It lives for a single reconciliation cycle.
type Snapshot struct {
	Student  *student.Student
	Subjects []Subject
}
