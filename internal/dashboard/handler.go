package dashboard

import (
	"encoding/json"
	"log"
	"time"

	"github.com/dsadash/dsadash/internal/reconcile"
	"github.com/dsadash/dsadash/internal/schema"
)

// QuestionLister is the part of the store the handler reads for stats.
type QuestionLister interface {
	Questions(filter schema.Filter) []schema.Question
}

// StatsData summarises the effective list.
type StatsData struct {
	Total   int `json:"total"`
	Solved  int `json:"solved"`
	Pending int `json:"pending"`
	Pinned  int `json:"pinned"`
}

// RefreshData is the payload of a refresh message.
type RefreshData struct {
	OK      bool   `json:"ok"`
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

// QuestionUpdateData is the payload of question_update, rollback,
// question_added and highlight messages.
type QuestionUpdateData struct {
	QuestionName string           `json:"questionName"`
	Field        string           `json:"field,omitempty"`
	Message      string           `json:"message,omitempty"`
	Question     *schema.Question `json:"question,omitempty"`
}

// ConfigData is the payload of a config message.
type ConfigData struct {
	DocumentID string `json:"documentId"`
	Webhook    bool   `json:"webhookConfigured"`
}

// Handler turns store notices into dashboard messages.
type Handler struct {
	server *Server
	store  QuestionLister
	logger *log.Logger
}

// NewHandler creates a handler broadcasting on server. Pass OnNotice as the
// store's notice callback. Notices arriving before a server is set are
// dropped.
func NewHandler(server *Server, store QuestionLister, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{server: server, store: store, logger: logger}
}

// SetStore sets the store read for stats. The store is usually built after
// the handler because the handler is its notice callback.
func (h *Handler) SetStore(store QuestionLister) {
	h.store = store
}

// SetServer sets the server messages are broadcast on.
func (h *Handler) SetServer(server *Server) {
	h.server = server
}

// OnNotice broadcasts n and, for changes to the list, fresh stats.
func (h *Handler) OnNotice(n reconcile.Notice) {
	var (
		typ  MessageType
		data any
	)

	switch n.Kind {
	case reconcile.NoticeRefreshed:
		typ = MessageTypeRefresh
		data = RefreshData{OK: true, Count: n.Count}
	case reconcile.NoticeRefreshFailed:
		typ = MessageTypeRefresh
		data = RefreshData{OK: false, Message: n.Message}
	case reconcile.NoticeCommitted:
		typ = MessageTypeQuestionUpdate
		data = QuestionUpdateData{QuestionName: n.Name, Field: string(n.Field), Message: n.Message}
	case reconcile.NoticeRolledBack:
		typ = MessageTypeRollback
		data = QuestionUpdateData{QuestionName: n.Name, Field: string(n.Field), Message: n.Message}
	case reconcile.NoticeAdded:
		typ = MessageTypeQuestionAdded
		data = QuestionUpdateData{QuestionName: n.Name, Message: n.Message, Question: n.Question}
	case reconcile.NoticeHighlight:
		typ = MessageTypeHighlight
		data = QuestionUpdateData{QuestionName: n.Name, Question: n.Question}
	default:
		h.logger.Printf("Ignoring unknown notice %q", n.Kind)
		return
	}

	h.broadcast(typ, n.Time, data)
	if n.Kind != reconcile.NoticeHighlight {
		h.broadcastStats()
	}
}

// OnConfigChanged announces a new source document.
func (h *Handler) OnConfigChanged(documentID string, webhook bool) {
	h.logger.Printf("Configuration changed: document %s", documentID)
	h.broadcast(MessageTypeConfig, time.Now(), ConfigData{DocumentID: documentID, Webhook: webhook})
}

// Stats counts the effective list.
func (h *Handler) Stats() StatsData {
	var stats StatsData
	if h.store == nil {
		return stats
	}
	for _, q := range h.store.Questions(schema.FilterAll) {
		stats.Total++
		switch {
		case q.IsSolved():
			stats.Solved++
		case q.IsPending():
			stats.Pending++
		}
		if q.Pinned {
			stats.Pinned++
		}
	}
	return stats
}

// StatsMessage builds a stats message; it is the server's welcome message.
func (h *Handler) StatsMessage() Message {
	data, err := json.Marshal(h.Stats())
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
	}
	return Message{Type: MessageTypeStats, Timestamp: time.Now(), Data: data}
}

func (h *Handler) broadcastStats() {
	if h.server == nil {
		return
	}
	h.server.Broadcast(h.StatsMessage())
}

func (h *Handler) broadcast(typ MessageType, at time.Time, data any) {
	if h.server == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	h.server.Broadcast(Message{Type: typ, Timestamp: at, Data: raw})
}
