package lesson

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/geotutor/geotutor/backend-go/internal/auth"
	"github.com/geotutor/geotutor/backend-go/internal/collab"
	"github.com/geotutor/geotutor/backend-go/internal/construction"
	"github.com/geotutor/geotutor/backend-go/internal/document"
	"github.com/geotutor/geotutor/backend-go/internal/engine"
	"github.com/geotutor/geotutor/backend-go/internal/regions"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Mount registers the session routes on api. Viewer and driver routes check
// the bearer token against the {id} in the path.
func (h *Handler) Mount(api *mux.Router, authService *auth.Service) {
	viewer := authService.RequireRole(auth.RoleViewer)
	driver := authService.RequireRole(auth.RoleDriver)

	api.HandleFunc("/families", h.Families).Methods("GET")
	api.HandleFunc("/sessions", h.Create).Methods("POST")
	api.HandleFunc("/sessions/{id}/qr.png", h.QRCode).Methods("GET")

	api.Handle("/sessions/{id}", viewer(http.HandlerFunc(h.Get))).Methods("GET")
	api.Handle("/sessions/{id}/render", viewer(http.HandlerFunc(h.Render))).Methods("GET")
	api.Handle("/sessions/{id}/problem", viewer(http.HandlerFunc(h.Problem))).Methods("GET")

	api.Handle("/sessions/{id}", driver(http.HandlerFunc(h.Delete))).Methods("DELETE")
	api.Handle("/sessions/{id}/events", driver(http.HandlerFunc(h.Events))).Methods("POST")
	api.Handle("/sessions/{id}/reset", driver(http.HandlerFunc(h.Reset))).Methods("POST")
}

type eventResponse struct {
	Seq   int64           `json:"seq"`
	Scene engine.Snapshot `json:"scene"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	session, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := h.service.Get(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Events applies one gesture operation, the REST twin of op.submit.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	sessionID := mux.Vars(r)["id"]

	var op collab.Operation
	if err := json.NewDecoder(r.Body).Decode(&op); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	seq, snap, err := h.service.Apply(r.Context(), sessionID, claims.ParticipantID(), op)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{Seq: seq, Scene: snap})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	seq, snap, err := h.service.Reset(r.Context(), sessionID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{Seq: seq, Scene: snap})
}

func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	commands, err := h.service.Render(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(commands))
}

// Problem exports the current configuration so it can be reloaded later.
func (h *Handler) Problem(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	p, err := h.service.Problem(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	png, err := h.service.QRCode(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := h.service.Delete(r.Context(), sessionID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Families(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Families())
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrLimitReached):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "too many open sessions"})
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, document.ErrInvalidProblem),
		errors.Is(err, construction.ErrUnknownFamily),
		errors.Is(err, construction.ErrAnchorCount),
		errors.Is(err, construction.ErrHeldCount),
		errors.Is(err, construction.ErrInvalidCoordinate),
		errors.Is(err, regions.ErrUnknownRegion),
		errors.Is(err, collab.ErrUnknownOperation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrDragInProgress),
		errors.Is(err, engine.ErrNotDraggable),
		errors.Is(err, collab.ErrNoActiveDrag):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "reason": collab.NackReason(err)})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
