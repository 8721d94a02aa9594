package controllers

import (
	"errors"
	"io"
	"net/http"

	recordsvc "github.com/rzbill/pubrt/internal/services/records"
	logpkg "github.com/rzbill/pubrt/pkg/log"
)

// RecordsController serves ingest and the event stream.
type RecordsController struct {
	svc    *recordsvc.Service
	logger logpkg.Logger
}

func NewRecordsController(svc *recordsvc.Service, logger logpkg.Logger) *RecordsController {
	return &RecordsController{svc: svc, logger: logger}
}

// RegisterRoutes registers /ingest and /stream.
func (c *RecordsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ingest", c.handleIngest)
	mux.HandleFunc("/stream", c.handleStream)
}

// handleIngest appends one JSON object and returns the running total.
func (c *RecordsController) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var body io.Reader = r.Body
	if limit := c.svc.MaxRecordBytes(); limit > 0 {
		// One extra byte lets the service see and reject oversize bodies.
		body = io.LimitReader(r.Body, limit+1)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := c.svc.Ingest(r.Context(), raw)
	switch {
	case err == nil:
		writeJSON(w, ingestResp{Message: "Data received", TotalRecords: res.Total})
	case errors.Is(err, recordsvc.ErrNotObject):
		writeError(w, http.StatusUnprocessableEntity, "Record must be a JSON object")
	case errors.Is(err, recordsvc.ErrInvalidBody):
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
	case errors.Is(err, recordsvc.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "Record too large")
	default:
		c.logger.WithContext(r.Context()).Error("ingest failed", logpkg.Err(err))
		writeError(w, http.StatusServiceUnavailable, "Failed to store record")
	}
}

// handleStream replays the buffer from position 0 and then tails it as
// Server-Sent Events until the client goes away.
//
// Query params: filter (CEL expression), limit (stop after N events).
func (c *RecordsController) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	q := r.URL.Query()
	sess, err := c.svc.Open(recordsvc.StreamOptions{
		Filter: q.Get("filter"),
		Limit:  parseLimit(q.Get("limit")),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := w.(http.Flusher); !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Stream-Session", sess.ID().String())
	w.WriteHeader(http.StatusOK)
	sink := sseSink{w: w, r: r}
	_ = sink.Flush()

	if err := sess.Run(sink); err != nil {
		c.logger.WithContext(r.Context()).Debug("stream ended",
			logpkg.Str("session", sess.ID().String()), logpkg.Err(err))
	}
}
