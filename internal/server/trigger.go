package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotetl/internal/shared"
)

// maxEventBytes bounds the opaque trigger event read from a request body.
const maxEventBytes = 1 << 20

// StageFunc runs one pipeline stage and returns a JSON-encodable summary.
type StageFunc func(ctx context.Context) (any, error)

type stage struct {
	name string
	run  StageFunc
	mu   sync.Mutex
}

// TriggerHandler starts pipeline stages on POST /<stage>.
//
// Each stage runs at most once at a time; a request arriving while the stage is running gets 409 Conflict.
// The request body is the triggering event and is discarded. Runs are detached from the request context, so a
// client disconnect does not abort a stage halfway through.
type TriggerHandler struct {
	stages map[string]*stage
	logger *log.Logger
}

// NewTriggerHandler creates a [TriggerHandler] serving one route per entry of stages.
func NewTriggerHandler(stages map[string]StageFunc, logger *log.Logger) *TriggerHandler {
	h := &TriggerHandler{stages: make(map[string]*stage, len(stages)), logger: logger}
	for name, run := range stages {
		h.stages["/"+name] = &stage{name: name, run: run}
	}
	return h
}

// Routes implements [Handler].
func (h *TriggerHandler) Routes() []string {
	routes := make([]string, 0, len(h.stages))
	for route := range h.stages {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes
}

type triggerResponse struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ServeHTTP implements [http.Handler].
func (h *TriggerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st, ok := h.stages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, err := io.Copy(io.Discard, io.LimitReader(r.Body, maxEventBytes)); err != nil {
		http.Error(w, "Failed to read event", http.StatusBadRequest)
		return
	}

	if !st.mu.TryLock() {
		writeJSON(w, http.StatusConflict, triggerResponse{
			Stage:  st.name,
			Status: "rejected",
			Error:  fmt.Errorf("%w: %s", shared.ErrRunInProgress, st.name).Error(),
		})
		return
	}
	defer st.mu.Unlock()

	h.logger.Info("stage triggered", "stage", st.name, "remote", r.RemoteAddr)

	result, err := st.run(context.WithoutCancel(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, triggerResponse{Stage: st.name, Status: "failed", Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, triggerResponse{Stage: st.name, Status: "succeeded", Result: result})
}

// HealthHandler reports liveness on GET /health.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
