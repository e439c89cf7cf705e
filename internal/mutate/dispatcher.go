// Package mutate sends sheet mutations to an optional webhook endpoint and
// reports whether the change reached the remote sheet or stayed local.
package mutate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dsadash/dsadash/internal/schema"
	"github.com/dsadash/dsadash/internal/shape"
)

const maxResponseBytes = 1 << 20

// Outcome is how the remote leg of a dispatch ended.
type Outcome int

const (
	// RemoteSkipped means no endpoint is configured.
	RemoteSkipped Outcome = iota
	RemoteSuccess
	RemoteFailed
)

func (o Outcome) String() string {
	switch o {
	case RemoteSuccess:
		return "remote_success"
	case RemoteFailed:
		return "remote_failed"
	default:
		return "remote_skipped"
	}
}

// Method values reported to clients.
const (
	MethodRemote = "remote"
	MethodLocal  = "local"
)

// SetupInstructions explains how to enable remote sheet updates.
type SetupInstructions struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Alternative string   `json:"alternative"`
}

// ManualUpdate tells the user which cell to edit by hand.
type ManualUpdate struct {
	SheetID      string `json:"sheetId"`
	QuestionName string `json:"questionName"`
	Column       string `json:"column"`
	Value        string `json:"value"`
	Instructions string `json:"instructions"`
}

// Result describes a completed dispatch. Success is always true: a change
// that could not reach the endpoint is still accepted locally.
type Result struct {
	Action            Action             `json:"action"`
	Method            string             `json:"method"`
	Success           bool               `json:"success"`
	Outcome           Outcome            `json:"-"`
	Message           string             `json:"message"`
	Row               int                `json:"row,omitempty"`
	Note              string             `json:"note,omitempty"`
	SetupInstructions *SetupInstructions `json:"setupInstructions,omitempty"`
	ManualUpdate      *ManualUpdate      `json:"manualUpdate,omitempty"`
	// Err is the cause when Outcome is RemoteFailed.
	Err error `json:"-"`
}

// Journal records every dispatch.
type Journal interface {
	AppendMutation(ctx context.Context, m schema.Mutation) error
}

// Config holds dispatcher settings.
type Config struct {
	// Endpoint is the webhook URL. Empty disables remote updates.
	Endpoint string
	// SheetID is quoted in manual update hints.
	SheetID string
	Client  *http.Client
	Timeout time.Duration
	Journal Journal
	Logger  *log.Logger
}

// DefaultConfig returns a dispatcher configuration with no endpoint.
func DefaultConfig() *Config {
	return &Config{Timeout: 10 * time.Second}
}

// Dispatcher is a generic mutation sender for every Action.
type Dispatcher struct {
	endpoint string
	sheetID  string
	client   *http.Client
	journal  Journal
	logger   *log.Logger
	now      func() time.Time
}

// responseShape is what a well-behaved endpoint returns.
var responseShape = shape.Object{
	{Name: "success", Kind: shape.Bool, Required: true},
	{Name: "message", Kind: shape.String, Nullable: true},
	{Name: "row", Kind: shape.Number, Nullable: true},
	{Name: "error", Kind: shape.String, Nullable: true},
}

// NewDispatcher creates a dispatcher. A nil config disables remote updates.
func NewDispatcher(cfg *Config) *Dispatcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[mutate] ", log.LstdFlags)
	}

	return &Dispatcher{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		sheetID:  cfg.SheetID,
		client:   client,
		journal:  cfg.Journal,
		logger:   logger,
		now:      time.Now,
	}
}

// Configured reports whether an endpoint is set.
func (d *Dispatcher) Configured() bool {
	return d.endpoint != ""
}

// Dispatch sends p to the endpoint at most once and never returns an error:
// failures are reported through Result.Outcome and Result.Err.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payload) Result {
	var res Result

	if !d.Configured() {
		res = d.local(p, RemoteSkipped, nil)
	} else if row, msg, err := d.post(ctx, p); err != nil {
		d.logger.Printf("Mutation %s for %q failed remotely: %v", p.Action(), p.Subject(), err)
		res = d.local(p, RemoteFailed, err)
	} else {
		if msg == "" {
			msg = successMessage(p)
		}
		res = Result{
			Action:  p.Action(),
			Method:  MethodRemote,
			Success: true,
			Outcome: RemoteSuccess,
			Message: msg,
			Row:     row,
		}
	}

	d.record(ctx, p, res)
	return res
}

func (d *Dispatcher) post(ctx context.Context, p Payload) (int, string, error) {
	envelope := p.Fields()
	envelope["action"] = string(p.Action())

	body, err := json.Marshal(envelope)
	if err != nil {
		return 0, "", fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, "", fmt.Errorf("%w: HTTP %d", ErrRemoteStatus, resp.StatusCode)
	}

	m, err := shape.Decode(data)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := responseShape.Validate(m); err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if !shape.Flag(m, "success", false) {
		reason := shape.Str(m, "error", "no reason given")
		return 0, "", fmt.Errorf("%w: %s", ErrRemoteRejected, reason)
	}

	row, _ := shape.Int(m, "row")
	return row, shape.Str(m, "message", ""), nil
}

func (d *Dispatcher) local(p Payload, outcome Outcome, cause error) Result {
	res := Result{
		Action:            p.Action(),
		Method:            MethodLocal,
		Success:           true,
		Outcome:           outcome,
		Message:           localMessage(p),
		Err:               cause,
		SetupInstructions: setupFor(p.Action()),
	}

	if p.Action() == ActionAddQuestion {
		res.Note = "Question added locally. To sync with Google Sheet, set up Apps Script."
		return res
	}

	res.Note = "Changes are saved locally. To enable automatic sheet updates, set up Google Apps Script."
	col := column(p.Action())
	res.ManualUpdate = &ManualUpdate{
		SheetID:      d.sheetID,
		QuestionName: p.Subject(),
		Column:       col,
		Value:        p.Value(),
		Instructions: fmt.Sprintf("Manual update: In your sheet, find %q and set column %s to %s", p.Subject(), col, p.Value()),
	}
	return res
}

func setupFor(a Action) *SetupInstructions {
	steps := []string{
		"1. Open your Google Sheet",
		"2. Go to Extensions > Apps Script",
		"3. Paste the webhook script and save",
		"4. Deploy the script as a web app",
	}

	switch a {
	case ActionAddQuestion:
		return &SetupInstructions{
			Title:       "Enable Automatic Sheet Updates",
			Description: "To automatically add questions to your Google Sheet:",
			Steps:       append(steps, "5. Questions will be added automatically!"),
			Alternative: "Or manually add this question to your Google Sheet",
		}
	case ActionUpdatePinned:
		return &SetupInstructions{
			Title:       "Enable Automatic Sheet Updates",
			Description: "To enable automatic updates to your Google Sheet:",
			Steps:       append(steps, "5. Your sheet will update automatically!"),
			Alternative: "Or manually update column F in your sheet with the pinned status",
		}
	default:
		return &SetupInstructions{
			Title:       "Enable Automatic Sheet Updates",
			Description: "To enable automatic updates to your Google Sheet:",
			Steps:       append(steps, "5. Your sheet will update automatically!"),
			Alternative: "Or manually update column E in your sheet with the status",
		}
	}
}

func (d *Dispatcher) record(ctx context.Context, p Payload, res Result) {
	if d.journal == nil {
		return
	}

	m := schema.Mutation{
		Action:    string(p.Action()),
		Name:      p.Subject(),
		Value:     p.Value(),
		Method:    res.Method,
		Outcome:   res.Outcome.String(),
		Message:   res.Message,
		CreatedAt: d.now().UTC(),
	}
	if res.Err != nil {
		m.Message = res.Err.Error()
	}

	if err := d.journal.AppendMutation(ctx, m); err != nil {
		d.logger.Printf("Failed to journal mutation %s for %q: %v", p.Action(), p.Subject(), err)
	}
}
