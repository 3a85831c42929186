package faults

import (
	"log/slog"
	"sync"
	"time"
)

// maxLogSize bounds the rolling error log; the oldest entry is evicted when
// the limit is reached.
const maxLogSize = 100

// Listener receives every classified error as it is handled.
type Listener func(ClassifiedError)

// Handler classifies faults and keeps a bounded rolling log of them for
// diagnostic surfaces. Construct one per session with NewHandler; it is safe
// for concurrent use.
type Handler struct {
	mu        sync.Mutex
	log       []ClassifiedError
	listeners map[int]Listener
	nextID    int
	logger    *slog.Logger
}

// NewHandler creates a Handler that logs classified faults to logger.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// Handle classifies err, records it in the rolling log, notifies listeners and
// returns the classified form. context names the operation that failed
// (e.g. "preparePayment").
func (h *Handler) Handle(err error, context string) ClassifiedError {
	kind := Classify(err)

	classified := ClassifiedError{
		Context:          context,
		UserMessage:      UserMessage(err),
		TechnicalMessage: err.Error(),
		Kind:             kind,
		Severity:         SeverityFor(kind),
		Timestamp:        time.Now(),
	}

	h.mu.Lock()
	// newest first, oldest evicted
	h.log = append([]ClassifiedError{classified}, h.log...)
	if len(h.log) > maxLogSize {
		h.log = h.log[:maxLogSize]
	}
	listeners := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		listeners = append(listeners, l)
	}
	h.mu.Unlock()

	h.logger.Error("fault handled",
		slog.String("context", context),
		slog.String("kind", string(kind)),
		slog.String("severity", string(classified.Severity)),
		slog.String("error", err.Error()),
	)

	for _, l := range listeners {
		l(classified)
	}

	return classified
}

// AddListener registers a listener and returns a function that removes it.
func (h *Handler) AddListener(l Listener) (remove func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = l
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// ErrorLog returns up to limit entries from the rolling log, newest first.
func (h *Handler) ErrorLog(limit int) []ClassifiedError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > len(h.log) {
		limit = len(h.log)
	}
	out := make([]ClassifiedError, limit)
	copy(out, h.log[:limit])
	return out
}

// ClearErrorLog empties the rolling log.
func (h *Handler) ClearErrorLog() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log = nil
}

// Statistics summarises the rolling log.
type Statistics struct {
	Total      int              `json:"total"`
	ByKind     map[Kind]int     `json:"byKind"`
	BySeverity map[Severity]int `json:"bySeverity"`
}

// Stats returns counts by kind and severity for the current log contents.
func (h *Handler) Stats() Statistics {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := Statistics{
		Total:      len(h.log),
		ByKind:     make(map[Kind]int),
		BySeverity: make(map[Severity]int),
	}
	for _, e := range h.log {
		stats.ByKind[e.Kind]++
		stats.BySeverity[e.Severity]++
	}
	return stats
}
