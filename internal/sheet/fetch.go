package sheet

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/dsadash/dsadash/internal/schema"
)

const (
	// DefaultBaseURL is the host serving sheet exports.
	DefaultBaseURL = "https://docs.google.com"

	// DefaultDocumentID is the built-in sample sheet used when no sheet URL
	// is configured or the configured one has no recognizable id.
	DefaultDocumentID = "1v1LaGp7clblCR8IzRDiFHfglV7B-I4sx3perKvCL5IE"

	// UserAgent is sent with every export request.
	UserAgent = "Mozilla/5.0 (compatible; DSA-Dashboard/1.0)"

	maxBodyBytes = 10 << 20
)

var documentIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// DocumentID extracts the sheet id from a full sheet URL.
func DocumentID(sheetURL string) (string, bool) {
	m := documentIDPattern.FindStringSubmatch(sheetURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ResolveDocumentID returns the id in sheetURL, or DefaultDocumentID when
// there is none.
func ResolveDocumentID(sheetURL string) string {
	if id, ok := DocumentID(sheetURL); ok {
		return id
	}
	return DefaultDocumentID
}

// Config configures a Fetcher.
type Config struct {
	// BaseURL replaces DefaultBaseURL (tests point it at httptest).
	BaseURL string

	// Client is the HTTP client (default: one with Timeout).
	Client *http.Client

	// Timeout bounds each candidate request (default: 15s).
	Timeout time.Duration

	// Logger for fetch activity (default: stderr logger)
	Logger *log.Logger
}

// Fetcher retrieves a sheet's CSV export, trying each candidate URL in order.
type Fetcher struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// NewFetcher creates a Fetcher. A nil config uses all defaults.
func NewFetcher(cfg *Config) *Fetcher {
	if cfg == nil {
		cfg = &Config{}
	}
	f := &Fetcher{
		baseURL: cfg.BaseURL,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
	if f.baseURL == "" {
		f.baseURL = DefaultBaseURL
	}
	if f.client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		f.client = &http.Client{Timeout: timeout}
	}
	if f.logger == nil {
		f.logger = log.New(os.Stderr, "[sheet] ", log.LstdFlags)
	}
	return f
}

// CandidateURLs lists the equivalent export endpoints for one document in
// the order they are tried. Several exist because the export behaves
// differently for multi-sheet documents and for sheets whose first tab is
// not gid 0.
func (f *Fetcher) CandidateURLs(documentID string) []string {
	base := f.baseURL + "/spreadsheets/d/" + url.PathEscape(documentID)
	return []string{
		base + "/export?format=csv",
		base + "/gviz/tq?tqx=out:csv",
		base + "/export?format=csv&gid=0",
	}
}

// Fetch returns the raw CSV text of the first candidate that answers with a
// 2xx status and a non-empty body. It returns *FetchError when every
// candidate fails; it never synthesizes data.
func (f *Fetcher) Fetch(ctx context.Context, documentID string) (string, error) {
	fetchErr := &FetchError{DocumentID: documentID}

	for _, candidate := range f.CandidateURLs(documentID) {
		if err := ctx.Err(); err != nil {
			fetchErr.Attempts = append(fetchErr.Attempts, Attempt{URL: candidate, Err: err})
			return "", fetchErr
		}

		f.logger.Printf("Trying %s", candidate)
		body, attempt := f.try(ctx, candidate)
		if attempt.Err == nil {
			f.logger.Printf("Fetched %d bytes from %s", len(body), candidate)
			return body, nil
		}

		f.logger.Printf("Candidate failed: %s: %v", candidate, attempt.Err)
		fetchErr.Attempts = append(fetchErr.Attempts, attempt)
	}

	return "", fetchErr
}

// FetchQuestions fetches and parses a document in one step.
func (f *Fetcher) FetchQuestions(ctx context.Context, documentID string) ([]schema.Question, error) {
	text, err := f.Fetch(ctx, documentID)
	if err != nil {
		return nil, err
	}
	questions, err := ParseQuestions(text)
	if err != nil {
		return nil, err
	}
	f.logger.Printf("Parsed %d questions", len(questions))
	return questions, nil
}

func (f *Fetcher) try(ctx context.Context, candidate string) (string, Attempt) {
	attempt := Attempt{URL: candidate}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate, nil)
	if err != nil {
		attempt.Err = fmt.Errorf("failed to build request: %w", err)
		return "", attempt
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		attempt.Err = err
		return "", attempt
	}
	defer resp.Body.Close()

	attempt.Status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		attempt.Err = fmt.Errorf("%w: HTTP %d: %s", ErrBadStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
		return "", attempt
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		attempt.Err = fmt.Errorf("failed to read body: %w", err)
		return "", attempt
	}
	if len(data) == 0 {
		attempt.Err = ErrEmptyBody
		return "", attempt
	}

	return string(data), attempt
}
