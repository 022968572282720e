package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	"github.com/pxa264/e-shop-sub001/internal/platform/auth"
	"github.com/pxa264/e-shop-sub001/internal/platform/httpx"
	"github.com/pxa264/e-shop-sub001/internal/services"
)

const maxAddressBodySize = 32 * 1024

type addressRequest struct {
	Label      string  `json:"label"`
	Recipient  string  `json:"recipient"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2"`
	City       string  `json:"city"`
	State      *string `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone"`
	IsDefault  bool    `json:"is_default"`
}

func (h *MeHandlers) addressRoutes(r chi.Router) {
	r.Get("/", h.listAddresses)
	r.Post("/", h.createAddress)
	r.Put("/{addressID}", h.updateAddress)
	r.Delete("/{addressID}", h.deleteAddress)
	r.Post("/{addressID}/default", h.setDefaultAddress)
}

func (h *MeHandlers) listAddresses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	addresses, err := h.users.ListAddresses(ctx, identity.UID)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	items := make([]addressPayload, 0, len(addresses))
	for _, addr := range addresses {
		items = append(items, buildAddressPayload(addr))
	}
	httpx.WriteData(w, http.StatusOK, addressListResponse{Items: items})
}

func (h *MeHandlers) createAddress(w http.ResponseWriter, r *http.Request) {
	h.upsertAddress(w, r, nil)
}

func (h *MeHandlers) updateAddress(w http.ResponseWriter, r *http.Request) {
	addressID := strings.TrimSpace(chi.URLParam(r, "addressID"))
	if addressID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "address id is required", http.StatusBadRequest))
		return
	}
	h.upsertAddress(w, r, &addressID)
}

func (h *MeHandlers) upsertAddress(w http.ResponseWriter, r *http.Request, addressID *string) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	var req addressRequest
	if !decodeJSONBody(ctx, w, r, maxAddressBodySize, &req) {
		return
	}

	saved, err := h.users.UpsertAddress(ctx, services.UpsertAddressCommand{
		UserID:    identity.UID,
		AddressID: addressID,
		Address: domain.Address{
			Label:      strings.TrimSpace(req.Label),
			Recipient:  strings.TrimSpace(req.Recipient),
			Line1:      strings.TrimSpace(req.Line1),
			Line2:      req.Line2,
			City:       strings.TrimSpace(req.City),
			State:      req.State,
			PostalCode: strings.TrimSpace(req.PostalCode),
			Country:    strings.ToUpper(strings.TrimSpace(req.Country)),
			Phone:      req.Phone,
			IsDefault:  req.IsDefault,
		},
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if addressID == nil {
		status = http.StatusCreated
	}
	httpx.WriteData(w, status, addressResponse{Address: buildAddressPayload(saved)})
}

func (h *MeHandlers) deleteAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	addressID := strings.TrimSpace(chi.URLParam(r, "addressID"))
	if addressID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "address id is required", http.StatusBadRequest))
		return
	}

	if err := h.users.DeleteAddress(ctx, identity.UID, addressID); err != nil {
		writeUserError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MeHandlers) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	addressID := strings.TrimSpace(chi.URLParam(r, "addressID"))
	if addressID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "address id is required", http.StatusBadRequest))
		return
	}

	addr, err := h.users.SetDefaultAddress(ctx, identity.UID, addressID)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, addressResponse{Address: buildAddressPayload(addr)})
}

type addressListResponse struct {
	Items []addressPayload `json:"items"`
}

type addressResponse struct {
	Address addressPayload `json:"address"`
}

type addressPayload struct {
	ID         string  `json:"id"`
	Label      string  `json:"label,omitempty"`
	Recipient  string  `json:"recipient"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city,omitempty"`
	State      *string `json:"state,omitempty"`
	PostalCode string  `json:"postal_code,omitempty"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
	IsDefault  bool    `json:"is_default"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

func buildAddressPayload(addr domain.Address) addressPayload {
	return addressPayload{
		ID:         addr.ID,
		Label:      addr.Label,
		Recipient:  addr.Recipient,
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Phone:      addr.Phone,
		IsDefault:  addr.IsDefault,
		CreatedAt:  formatTime(addr.CreatedAt),
		UpdatedAt:  formatTime(addr.UpdatedAt),
	}
}
