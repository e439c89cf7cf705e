package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/dsadash/dsadash/internal/config"
	"github.com/dsadash/dsadash/internal/extract"
	"github.com/dsadash/dsadash/internal/mutate"
	"github.com/dsadash/dsadash/internal/reconcile"
	"github.com/dsadash/dsadash/internal/schema"
)

const maxBodyBytes = 1 << 20

// Backend is what the API routes operate on.
type Backend struct {
	Store     *reconcile.Store
	Extractor *extract.Extractor
	Settings  config.SettingStore

	// Config returns the active configuration for GET /api/config.
	Config func() config.Config

	// Reload re-reads configuration after POST /api/config saved new URLs
	// and points the store at the new document.
	Reload func(ctx context.Context) error

	Logger *log.Logger
}

// API serves the /api/ routes.
type API struct {
	b      Backend
	mux    *http.ServeMux
	logger *log.Logger
}

// NewAPI builds the API handler.
func NewAPI(b Backend) *API {
	logger := b.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[api] ", log.LstdFlags)
	}
	if b.Extractor == nil {
		b.Extractor = extract.New(nil, logger)
	}

	a := &API{b: b, mux: http.NewServeMux(), logger: logger}
	a.mux.HandleFunc("GET /api/sheets", a.handleSheets)
	a.mux.HandleFunc("POST /api/toggle-status", a.handleToggle(reconcile.FieldStatus))
	a.mux.HandleFunc("POST /api/toggle-pinned", a.handleToggle(reconcile.FieldPinned))
	a.mux.HandleFunc("POST /api/add-question", a.handleAddQuestion)
	a.mux.HandleFunc("POST /api/random", a.handleRandom)
	a.mux.HandleFunc("POST /api/search-questions", a.handleSearch)
	a.mux.HandleFunc("POST /api/get-solution", a.handleSolution)
	a.mux.HandleFunc("GET /api/config", a.handleGetConfig)
	a.mux.HandleFunc("POST /api/config", a.handleSaveConfig)
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// GET /api/sheets?filter=all|solved|pending[&cached=1]
//
// The list is re-fetched unless cached is set and a list is already loaded.
func (a *API) handleSheets(w http.ResponseWriter, r *http.Request) {
	filter, err := schema.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	cached, _ := strconv.ParseBool(r.URL.Query().Get("cached"))
	if !cached || a.b.Store.FetchedAt().IsZero() {
		if err := a.b.Store.Refresh(r.Context()); err != nil && !errors.Is(err, reconcile.ErrSuperseded) {
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Failed to fetch data",
				Details: err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"questions": a.b.Store.Questions(filter),
	})
}

type toggleRequest struct {
	QuestionName string `json:"questionName"`
}

type toggleResponse struct {
	mutate.Result
	Question schema.Question `json:"question"`
}

type rollbackResponse struct {
	Error    string          `json:"error"`
	Details  string          `json:"details,omitempty"`
	Question schema.Question `json:"question"`
}

// POST /api/toggle-status and /api/toggle-pinned {questionName}
func (a *API) handleToggle(field reconcile.Field) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req toggleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		name := strings.TrimSpace(req.QuestionName)
		if name == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Question name is required"})
			return
		}

		toggle := a.b.Store.ToggleStatus
		if field == reconcile.FieldPinned {
			toggle = a.b.Store.TogglePinned
		}

		res, err := toggle(r.Context(), name)
		q, _ := a.b.Store.Question(name)

		var rbErr *reconcile.RollbackError
		switch {
		case errors.Is(err, reconcile.ErrUnknownQuestion):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		case errors.As(err, &rbErr):
			resp := rollbackResponse{Error: fmt.Sprintf("Failed to update %s", field), Question: q}
			if rbErr.Cause != nil {
				resp.Details = rbErr.Cause.Error()
			}
			writeJSON(w, http.StatusBadGateway, resp)
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusOK, toggleResponse{Result: res, Question: q})
		}
	}
}

type addRequest struct {
	QuestionInput string `json:"questionInput"`
}

type addResponse struct {
	schema.Question
	Description string `json:"description"`
	mutate.Result
}

// POST /api/add-question {questionInput}
func (a *API) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input := strings.TrimSpace(req.QuestionInput)
	if input == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Question input is required"})
		return
	}

	draft := a.b.Extractor.Extract(r.Context(), input)
	q, res, err := a.b.Store.AddQuestion(r.Context(), draft.Question())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Failed to generate question data", Details: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, addResponse{Question: q, Description: draft.Description, Result: res})
}

// POST /api/random
func (a *API) handleRandom(w http.ResponseWriter, r *http.Request) {
	q, ok := a.b.Store.PickRandomPending()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "No pending questions"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"question": q})
}

type searchRequest struct {
	Query string `json:"query"`
}

// POST /api/search-questions {query}
//
// Searches the loaded list; the client no longer sends the questions.
func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request. Please provide a query."})
		return
	}

	result := a.b.Extractor.Search(r.Context(), query, a.b.Store.Questions(schema.FilterAll))
	writeJSON(w, http.StatusOK, result)
}

type solutionRequest struct {
	QuestionName string `json:"questionName"`
	QuestionLink string `json:"questionLink"`
	Platform     string `json:"platform"`
}

// POST /api/get-solution {questionName, questionLink?, platform?}
func (a *API) handleSolution(w http.ResponseWriter, r *http.Request) {
	var req solutionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.QuestionName)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Question name is required"})
		return
	}

	q, ok := a.b.Store.Question(name)
	if !ok {
		q = schema.Question{Name: name, Link: req.QuestionLink, Platform: req.Platform}
		q.SetDefaults()
	}
	writeJSON(w, http.StatusOK, a.b.Extractor.Solve(r.Context(), q))
}

type configResponse struct {
	SheetURL         string `json:"sheetUrl"`
	SheetURLSource   string `json:"sheetUrlSource"`
	DocumentID       string `json:"documentId"`
	AppsScriptURL    string `json:"appsScriptUrl"`
	WebhookURLSource string `json:"appsScriptUrlSource"`
}

type configRequest struct {
	SheetURL      string `json:"sheetUrl"`
	AppsScriptURL string `json:"appsScriptUrl"`
}

// GET /api/config
func (a *API) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if a.b.Config == nil {
		writeJSON(w, http.StatusOK, configResponse{DocumentID: a.b.Store.DocumentID()})
		return
	}
	cfg := a.b.Config()
	writeJSON(w, http.StatusOK, configResponse{
		SheetURL:         cfg.SheetURL,
		SheetURLSource:   cfg.SheetURLSource,
		DocumentID:       cfg.DocumentID(),
		AppsScriptURL:    cfg.WebhookURL,
		WebhookURLSource: cfg.WebhookURLSource,
	})
}

// POST /api/config {sheetUrl, appsScriptUrl}
func (a *API) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if a.b.Settings == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Settings storage is not available"})
		return
	}

	if err := config.Save(r.Context(), a.b.Settings, req.SheetURL, req.AppsScriptURL); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, config.ErrEmptySheetURL) || errors.Is(err, config.ErrInvalidSheetURL) ||
			errors.Is(err, config.ErrInvalidWebhookURL) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	if a.b.Reload != nil {
		if err := a.b.Reload(r.Context()); err != nil {
			a.logger.Printf("Reload after saving settings failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Saved, but reload failed", Details: err.Error()})
			return
		}
	}

	a.logger.Printf("Saved sheet configuration")
	a.handleGetConfig(w, r)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Details: err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
