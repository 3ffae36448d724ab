package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"codeberg.org/opensuse/docbuildd/internal/metrics"
	"codeberg.org/opensuse/docbuildd/internal/scheduler"
)

const defaultHistoryLimit = 50

// handleListInstructions backs GET / and GET /build_instructions/: a JSON
// array of every instruction record, scheduled, active, and past.
func (s *Server) handleListInstructions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.AllInstructions())
}

// handleListDeliverables backs GET /deliverables/: a JSON object mapping
// deliverable id to deliverable record, for every currently-active
// instruction.
func (s *Server) handleListDeliverables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.ActiveDeliverables())
}

// handleHistory backs GET /build_instructions/history?target=...&limit=...:
// a JSON array of archived finished instructions for one target, newest
// first. 400 when target is missing, 404 when no history archive is
// configured.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history archive not configured", http.StatusNotFound)
		return
	}

	target := r.URL.Query().Get("target")
	if target == "" {
		http.Error(w, "target query parameter is required", http.StatusBadRequest)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := s.history.ForTarget(r.Context(), target, limit)
	if err != nil {
		slog.Error("history lookup failed", slog.String("target", target), slog.String("error", err.Error()))
		s.recorder.IncIssue("history_lookup_failed", "history", "error", true)
		http.Error(w, "history lookup failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// handleSubmit backs POST /: a JSON array of instruction descriptors. Only
// the top-level array shape is validated strictly — malformed JSON is a 400.
// An element with a non-string field is skipped with a warning, but the
// request as a whole still succeeds, per the submission endpoint's
// best-effort semantics.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var raw []map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.recorder.IncIssue("malformed_submission", "submit", "error", false)
		http.Error(w, "malformed JSON body", http.StatusBadRequest)
		return
	}

	accepted := 0
	for i, element := range raw {
		d, ok := decodeDescriptor(element)
		if !ok {
			slog.Warn("skipping submission element with non-string field", slog.Int("index", i))
			s.recorder.IncIssue("invalid_submission_field", "submit", "warning", true)
			continue
		}
		s.sched.Submit(d)
		accepted++
	}

	slog.Info("instruction submission processed", slog.Int("accepted", accepted), slog.Int("total", len(raw)))
	s.recorder.IncStageResult("submit", metrics.ResultSuccess)
	w.WriteHeader(http.StatusOK)
}

func decodeDescriptor(element map[string]json.RawMessage) (scheduler.Descriptor, bool) {
	var d scheduler.Descriptor
	fields := map[string]*string{
		"target":  &d.Target,
		"docset":  &d.Docset,
		"lang":    &d.Lang,
		"product": &d.Product,
	}
	for key, dst := range fields {
		raw, present := element[key]
		if !present {
			return scheduler.Descriptor{}, false
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return scheduler.Descriptor{}, false
		}
		*dst = value
	}
	return d, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
