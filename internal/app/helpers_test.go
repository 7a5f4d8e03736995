package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"rea_rating_bot/internal/domain/rating"
	"rea_rating_bot/internal/domain/student"
	idb "rea_rating_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// fakeStudentRepo is an in-memory student.Repository.
type fakeStudentRepo struct {
	mu       sync.Mutex
	students []*student.Student
	nextID   int64
	listErr  error
}

func (r *fakeStudentRepo) Create(_ context.Context, s *student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	r.students = append(r.students, s)
	return nil
}

func (r *fakeStudentRepo) GetByChatID(_ context.Context, chatID int64) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.ChatID == chatID {
			return s, nil
		}
	}
	return nil, idb.ErrStudentNotFound
}

func (r *fakeStudentRepo) Update(_ context.Context, s *student.Student) error {
	return nil // Entities are shared pointers in this fake.
}

func (r *fakeStudentRepo) ListEligible(_ context.Context) ([]*student.Student, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	eligible := make([]*student.Student, 0)
	for _, s := range r.students {
		if s.Eligible() {
			eligible = append(eligible, s)
		}
	}
	return eligible, nil
}

// fakeRatingRepo is an in-memory rating.Repository that records writes.
type fakeRatingRepo struct {
	mu        sync.Mutex
	baselines map[int64]map[string]rating.Subject
	inserted  []string // "<studentID>/<subject>" in call order
	updated   []string
	deleted   []int64
	insertErr error
	updateErr error
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{baselines: make(map[int64]map[string]rating.Subject)}
}

func (r *fakeRatingRepo) setBaseline(studentID int64, subjects ...rating.Subject) {
	m := make(map[string]rating.Subject, len(subjects))
	for _, s := range subjects {
		m[s.Name] = s
	}
	r.baselines[studentID] = m
}

func (r *fakeRatingRepo) MapByStudent(_ context.Context, studentID int64) (map[string]rating.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]rating.Subject, len(r.baselines[studentID]))
	for k, v := range r.baselines[studentID] {
		out[k] = v
	}
	return out, nil
}

func (r *fakeRatingRepo) ListByStudent(_ context.Context, studentID int64) ([]rating.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]rating.Subject, 0, len(r.baselines[studentID]))
	for _, v := range r.baselines[studentID] {
		out = append(out, v)
	}
	return out, nil
}

func (r *fakeRatingRepo) Insert(_ context.Context, studentID int64, s rating.Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	if r.baselines[studentID] == nil {
		r.baselines[studentID] = make(map[string]rating.Subject)
	}
	r.baselines[studentID][s.Name] = s
	r.inserted = append(r.inserted, fmt.Sprintf("%d/%s", studentID, s.Name))
	return nil
}

func (r *fakeRatingRepo) Update(_ context.Context, studentID int64, s rating.Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.baselines[studentID][s.Name] = s
	r.updated = append(r.updated, fmt.Sprintf("%d/%s", studentID, s.Name))
	return nil
}

func (r *fakeRatingRepo) DeleteByStudent(_ context.Context, studentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.baselines, studentID)
	r.deleted = append(r.deleted, studentID)
	return nil
}

// fakePortal serves canned subjects (or errors) keyed by username.
type fakePortal struct {
	mu       sync.Mutex
	subjects map[string][]rating.Subject
	errs     map[string]error
	calls    int
}

func (p *fakePortal) Fetch(_ context.Context, cred student.Credential) ([]rating.Subject, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if err := p.errs[cred.Username]; err != nil {
		return nil, err
	}
	return p.subjects[cred.Username], nil
}

type sentMessage struct {
	chatID int64
	text   string
	opts   *telebot.SendOptions
}

// fakeTelegram records outbound messages and can fail per recipient.
type fakeTelegram struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[int64]error
}

func (c *fakeTelegram) SendMessage(chatID int64, text string, opts *telebot.SendOptions) error {
	if err := c.fail[chatID]; err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{chatID: chatID, text: text, opts: opts})
	return nil
}

func (c *fakeTelegram) messagesFor(chatID int64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.sent {
		if m.chatID == chatID {
			out = append(out, m.text)
		}
	}
	return out
}

// newTestService wires a ReconcileService over the given fakes.
func newTestService(sr *fakeStudentRepo, rr *fakeRatingRepo, portal *fakePortal, tg *fakeTelegram) *ReconcileService {
	logger := testLogger()
	fetcher := NewFetcher(portal, 4, logger)
	dispatcher := NewDispatcher(tg, 4, logger)
	return NewReconcileService(sr, rr, fetcher, dispatcher, logger)
}

func eligibleStudent(id, chatID int64, username string) *student.Student {
	return &student.Student{ID: id, ChatID: chatID, Username: username, Password: "secret", Semester: 5}
}
