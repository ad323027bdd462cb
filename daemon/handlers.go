package daemon

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/hive/types"
)

// routes builds the API mux. Each mutating route maps to one lifecycle
// operation; status and cell listings are read-only.
func (d *Daemon) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /enable", d.handleEnable)
	mux.HandleFunc("PUT /disable", d.handleDisable)
	mux.HandleFunc("POST /cells", d.handleCreateCell)
	mux.HandleFunc("DELETE /cells/{name}", d.handleDestroyCell)
	mux.HandleFunc("GET /cells", d.handleListCells)
	mux.HandleFunc("GET /status", d.handleStatus)
	return withRequestID(mux)
}

type ctxKey int

const requestIDKey ctxKey = 0

// withRequestID tags every request with an id, echoed in the response header
// and in the handlers' log lines.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestID returns the id attached by withRequestID, or "".
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (d *Daemon) handleEnable(w http.ResponseWriter, r *http.Request) {
	var sys types.SystemDescriptor
	if !decode(w, r, &sys) {
		return
	}
	if err := d.life.Enable(r.Context(), &sys); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *Daemon) handleDisable(w http.ResponseWriter, r *http.Request) {
	if err := d.life.Disable(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *Daemon) handleCreateCell(w http.ResponseWriter, r *http.Request) {
	var req CreateCellRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := d.life.CreateCell(r.Context(), &req.Descriptor, req.Images)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateCellResponse{ID: id})
}

func (d *Daemon) handleDestroyCell(w http.ResponseWriter, r *http.Request) {
	if err := d.life.DestroyCell(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *Daemon) handleListCells(w http.ResponseWriter, r *http.Request) {
	cells, err := d.life.Cells(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cells)
}

func (d *Daemon) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Enabled: d.life.Enabled()}
	if cells, err := d.life.Cells(r.Context()); err == nil {
		resp.Cells = cells
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body; on failure it answers 400 and returns false.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Kind:  KindInvalidArgument,
			Error: "malformed request body: " + err.Error(),
		})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp, status := classify(err)
	log.WithFunc("daemon.api").Warnf(r.Context(), "[%s] %s %s: %s",
		requestID(r.Context()), r.Method, r.URL.Path, err)
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
