package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rl1809/apartment-sales/internal/core/service"
)

const idempotencyKeyHeader = "Idempotency-Key"

type HTTPHandler struct {
	inventory  *service.InventoryService
	apartments *service.ApartmentService
	clients    *service.ClientService
	auth       *service.AuthService
}

func NewHTTPHandler(inventory *service.InventoryService, apartments *service.ApartmentService, clients *service.ClientService, auth *service.AuthService) *HTTPHandler {
	return &HTTPHandler{
		inventory:  inventory,
		apartments: apartments,
		clients:    clients,
		auth:       auth,
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// claim rejects a replayed Idempotency-Key before the command runs.
func (h *HTTPHandler) claim(w http.ResponseWriter, r *http.Request) bool {
	if err := h.inventory.ClaimRequest(r.Context(), r.Header.Get(idempotencyKeyHeader)); err != nil {
		writeServiceError(w, r, err)
		return false
	}
	return true
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{AccessToken: token, TokenType: "Bearer"})
}

// Apartments

func (h *HTTPHandler) ListApartments(w http.ResponseWriter, r *http.Request) {
	apartments, err := h.apartments.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]ApartmentResponse, 0, len(apartments))
	for _, a := range apartments {
		resp = append(resp, toApartmentResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) GetApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	apartment, err := h.apartments.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApartmentResponse(*apartment))
}

func (h *HTTPHandler) CreateApartment(w http.ResponseWriter, r *http.Request) {
	var req ApartmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	apartment, err := h.apartments.Create(r.Context(), req.toDetails())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApartmentResponse(*apartment))
}

func (h *HTTPHandler) UpdateApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ApartmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	apartment, err := h.apartments.Update(r.Context(), id, req.toDetails())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApartmentResponse(*apartment))
}

func (h *HTTPHandler) DeleteApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.apartments.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clients

func (h *HTTPHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, toClientResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	client, err := h.clients.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(*client))
}

func (h *HTTPHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if !decodeBody(w, r, &req) {
		return
	}

	client, err := h.clients.Create(r.Context(), req.toDetails())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientResponse(*client))
}

func (h *HTTPHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ClientRequest
	if !decodeBody(w, r, &req) {
		return
	}

	client, err := h.clients.Update(r.Context(), id, req.toDetails())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(*client))
}

func (h *HTTPHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.clients.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reservations

func (h *HTTPHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.inventory.ListReservations(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]ReservationResponse, 0, len(reservations))
	for _, res := range reservations {
		resp = append(resp, toReservationResponse(res))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	reservation, err := h.inventory.GetReservation(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(*reservation))
}

func (h *HTTPHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req ReservationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.claim(w, r) {
		return
	}

	id, err := h.inventory.CreateReservation(r.Context(), req.ClientID, req.ApartmentID, req.ExpiresHours)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

func (h *HTTPHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !h.claim(w, r) {
		return
	}

	if err := h.inventory.CancelReservation(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sales

func (h *HTTPHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.inventory.ListSales(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]SaleResponse, 0, len(sales))
	for _, s := range sales {
		resp = append(resp, toSaleResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	sale, err := h.inventory.GetSale(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleResponse(*sale))
}

func (h *HTTPHandler) ConfirmSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.claim(w, r) {
		return
	}

	id, err := h.inventory.ConfirmSale(r.Context(), req.toDomain())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}
