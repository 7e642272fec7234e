package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/vectradex/internal/auth"
	"github.com/BradenHooton/vectradex/internal/models"
	"github.com/BradenHooton/vectradex/internal/services"
	pkghttp "github.com/BradenHooton/vectradex/pkg/http"
	"github.com/go-chi/chi/v5"
)

// MachineServiceInterface defines the machine and event operations used by the handlers
type MachineServiceInterface interface {
	CreateMachine(ctx context.Context, name string, location *string, actorID string) (*models.Machine, error)
	ListMachines(ctx context.Context) ([]*models.Machine, error)
	DeleteMachine(ctx context.Context, id int64, actorID string) error
	AppendEvent(ctx context.Context, input services.EventInput, actorID string) (*models.ProductionEvent, error)
	RegisterStop(ctx context.Context, machineID int64, reason string, actorID string) (*models.ProductionEvent, error)
	History(ctx context.Context, machineID int64, start, end *time.Time) ([]*models.ProductionEvent, error)
	Status(ctx context.Context, machineID int64) (*models.MachineStatus, error)
	Statuses(ctx context.Context) ([]models.MachineStatus, error)
}

type MachineHandler struct {
	service MachineServiceInterface
}

func NewMachineHandler(service MachineServiceInterface) *MachineHandler {
	return &MachineHandler{service: service}
}

type CreateMachineRequest struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Location *string `json:"location" validate:"omitempty,max=120"`
}

type CreateEventRequest struct {
	MachineID  int64   `json:"machine_id" validate:"required,gt=0"`
	StartedAt  string  `json:"started_at" validate:"required"`
	EndedAt    *string `json:"ended_at"`
	Status     string  `json:"status" validate:"required,event_status"`
	StopReason *string `json:"stop_reason" validate:"omitempty,stop_reason"`
	Quantity   int64   `json:"quantity" validate:"gte=0"`
}

type MachineResponse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Location *string `json:"location"`
}

type EventResponse struct {
	ID         int64   `json:"id"`
	MachineID  int64   `json:"machine_id"`
	StartedAt  string  `json:"started_at"`
	EndedAt    *string `json:"ended_at"`
	Status     string  `json:"status"`
	StopReason *string `json:"stop_reason"`
	Quantity   int64   `json:"quantity"`
}

func toMachineResponse(m *models.Machine) MachineResponse {
	return MachineResponse{ID: m.ID, Name: m.Name, Location: m.Location}
}

func toEventResponse(e *models.ProductionEvent) EventResponse {
	resp := EventResponse{
		ID:        e.ID,
		MachineID: e.MachineID,
		StartedAt: e.StartedAt.UTC().Format(time.RFC3339),
		Status:    e.Status,
		Quantity:  e.Quantity,
	}
	if e.EndedAt != nil {
		ended := e.EndedAt.UTC().Format(time.RFC3339)
		resp.EndedAt = &ended
	}
	if e.StopReason != nil {
		reason := string(*e.StopReason)
		resp.StopReason = &reason
	}
	return resp
}

// actorID returns the authenticated user's id, or "" for anonymous callers
func actorID(r *http.Request) string {
	if claims := auth.GetUserFromContext(r); claims != nil {
		return claims.UserID
	}
	return ""
}

// machineIDParam parses the {id} URL parameter
func machineIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: machine id must be a positive integer", models.ErrValidation)
	}
	return id, nil
}

// List returns all machines ordered by name
func (h *MachineHandler) List(w http.ResponseWriter, r *http.Request) {
	machines, err := h.service.ListMachines(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]MachineResponse, 0, len(machines))
	for _, m := range machines {
		resp = append(resp, toMachineResponse(m))
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *MachineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMachineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	machine, err := h.service.CreateMachine(r.Context(), req.Name, req.Location, actorID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, toMachineResponse(machine))
}

func (h *MachineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := machineIDParam(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.service.DeleteMachine(r.Context(), id, actorID(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Statuses returns the live status snapshot of every machine
func (h *MachineHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.Statuses(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if statuses == nil {
		statuses = []models.MachineStatus{}
	}
	pkghttp.WriteJSON(w, http.StatusOK, statuses)
}

func (h *MachineHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := machineIDParam(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status, err := h.service.Status(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, status)
}

// CreateEvent appends an explicitly described production event
func (h *MachineHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	startedAt, err := parseTimestamp("started_at", req.StartedAt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var endedAt *time.Time
	if req.EndedAt != nil {
		if endedAt, err = parseOptionalTimestamp("ended_at", *req.EndedAt); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	event, err := h.service.AppendEvent(r.Context(), services.EventInput{
		MachineID:  req.MachineID,
		StartedAt:  startedAt,
		EndedAt:    endedAt,
		Status:     req.Status,
		StopReason: req.StopReason,
		Quantity:   req.Quantity,
	}, actorID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, toEventResponse(event))
}

// RegisterStop opens a stopped event for the machine starting now
func (h *MachineHandler) RegisterStop(w http.ResponseWriter, r *http.Request) {
	id, err := machineIDParam(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	event, err := h.service.RegisterStop(r.Context(), id, r.URL.Query().Get("reason"), actorID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, toEventResponse(event))
}

// History returns the machine's events, newest first
func (h *MachineHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := machineIDParam(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	query := r.URL.Query()
	start, err := parseOptionalTimestamp("start", query.Get("start"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	end, err := parseOptionalTimestamp("end", query.Get("end"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	events, err := h.service.History(r.Context(), id, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, toEventResponse(e))
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
