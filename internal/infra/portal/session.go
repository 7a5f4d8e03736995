package portal

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"rea_rating_bot/internal/domain/rating"
	"rea_rating_bot/internal/domain/student"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// Sentinel errors for the two non-transport failure modes of a fetch.
// Transport failures are returned wrapped as-is.
var (
	// ErrAuthenticationFailed covers both wrong credentials and an
	// unrecognized post-login page; the portal makes the two
	// indistinguishable.
	ErrAuthenticationFailed = errors.New("portal authentication failed")
	ErrParse                = errors.New("unexpected portal markup")
)

// authenticatedTitle is the exact <title> text of the student profile page
// the portal serves after a successful login.
const authenticatedTitle = "Информация об обучающемся"

// Session performs one-shot authenticated scrapes of the rating page.
// Each Fetch call builds its own HTTP client with an isolated cookie jar,
// so concurrent fetches for different students never share session state.
type Session struct {
	baseURL string
	timeout time.Duration
}

func NewSession(baseURL string, timeout time.Duration) *Session {
	return &Session{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// Fetch logs in with the given credentials and parses the rating page into
// subject records. A page is either fully parsed or rejected; partial
// subject lists are never returned.
func (s *Session) Fetch(ctx context.Context, cred student.Credential) ([]rating.Subject, error) {
	client, err := s.newClient()
	if err != nil {
		return nil, fmt.Errorf("building portal client: %w", err)
	}

	// The portal addresses semesters by a human-readable label.
	semester := fmt.Sprintf("%d-й семестр", cred.Semester)

	authResp, err := client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"AUTH_FORM":     "Y",
			"TYPE":          "AUTH",
			"backurl":       "/index.php",
			"USER_LOGIN":    cred.Username,
			"USER_PASSWORD": cred.Password,
			"Login":         "Войти",
			"login":         "yes",
		}).
		SetQueryParam("semester", semester).
		Post("/index.php")
	if err != nil {
		return nil, fmt.Errorf("portal auth request: %w", err)
	}

	authDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(authResp.Body()))
	if err != nil {
		return nil, fmt.Errorf("%w: reading auth page: %v", ErrParse, err)
	}
	title := authDoc.Find("title")
	if title.Length() != 1 || title.Text() != authenticatedTitle {
		return nil, ErrAuthenticationFailed
	}

	ratingResp, err := client.R().
		SetContext(ctx).
		SetQueryParam("semester", semester).
		Get("/rating/index.php")
	if err != nil {
		return nil, fmt.Errorf("portal rating request: %w", err)
	}

	ratingDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(ratingResp.Body()))
	if err != nil {
		return nil, fmt.Errorf("%w: reading rating page: %v", ErrParse, err)
	}
	return parseRatingPage(ratingDoc)
}

func (s *Session) newClient() (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(s.baseURL)
	client.SetCookieJar(jar)
	client.SetTimeout(s.timeout)
	// The portal's certificate chain is known to be non-standard.
	client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	return client, nil
}

func parseRatingPage(doc *goquery.Document) ([]rating.Subject, error) {
	subjects := []rating.Subject{}
	var parseErr error

	doc.Find("div.es-rating__line-parent").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		var subject rating.Subject
		subject, parseErr = parseSubjectRow(row)
		if parseErr != nil {
			return false
		}
		subjects = append(subjects, subject)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return subjects, nil
}

func parseSubjectRow(row *goquery.Selection) (rating.Subject, error) {
	name := row.Find("div.es-rating__discipline")
	if name.Length() != 1 {
		return rating.Subject{}, fmt.Errorf("%w: want one subject name element, got %d", ErrParse, name.Length())
	}

	subject := rating.Subject{Name: strings.TrimSpace(name.Text())}

	var err error
	if subject.Attendance, err = linkedScore(row, "div.es-rating__attendance"); err != nil {
		return rating.Subject{}, err
	}
	if subject.Control, err = linkedScore(row, "div.es-rating__control"); err != nil {
		return rating.Subject{}, err
	}
	if subject.Creative, err = linkedScore(row, "div.es-rating__creative"); err != nil {
		return rating.Subject{}, err
	}
	if subject.Test, err = directScore(row, "div.es-rating__form"); err != nil {
		return rating.Subject{}, err
	}
	return subject, nil
}

// linkedScore extracts a score rendered as the text of the single link
// inside the wrapper element. Attendance, control and creative columns all
// use this shape.
func linkedScore(row *goquery.Selection, selector string) (float64, error) {
	wrapper := row.Find(selector)
	if wrapper.Length() != 1 {
		return 0, fmt.Errorf("%w: want one %s element, got %d", ErrParse, selector, wrapper.Length())
	}
	link := wrapper.Find("a")
	if link.Length() != 1 {
		return 0, fmt.Errorf("%w: want one link inside %s, got %d", ErrParse, selector, link.Length())
	}
	return parseScore(link.Text(), selector)
}

// directScore extracts a score from the wrapper element's own text. The
// portal renders the exam/test column without a link, unlike the other
// three; keep the rule separate rather than unifying the two shapes.
func directScore(row *goquery.Selection, selector string) (float64, error) {
	wrapper := row.Find(selector)
	if wrapper.Length() != 1 {
		return 0, fmt.Errorf("%w: want one %s element, got %d", ErrParse, selector, wrapper.Length())
	}
	return parseScore(wrapper.Text(), selector)
}

func parseScore(text, selector string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s value %q is not a number", ErrParse, selector, strings.TrimSpace(text))
	}
	return value, nil
}
