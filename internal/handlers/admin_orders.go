package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	"github.com/pxa264/e-shop-sub001/internal/platform/auth"
	"github.com/pxa264/e-shop-sub001/internal/platform/httpx"
	"github.com/pxa264/e-shop-sub001/internal/services"
)

const (
	maxStatusUpdateBodySize = 16 * 1024
	maxBulkUpdateBodySize   = 256 * 1024
	maxBulkUpdateOrders     = 200
)

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type bulkUpdateStatusRequest struct {
	OrderIDs []string `json:"order_ids"`
	Status   string   `json:"status"`
	Note     string   `json:"note"`
}

// AdminOrderHandlers exposes the staff-side order management endpoints.
type AdminOrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewAdminOrderHandlers constructs a new AdminOrderHandlers instance.
func NewAdminOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *AdminOrderHandlers {
	return &AdminOrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /admin/orders endpoints behind the admin role gate.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth(auth.RoleAdmin))
	}
	r.Get("/statistics", h.statistics)
	r.Post("/bulk/status", h.bulkUpdateStatus)
	r.Post("/{orderID}/status", h.updateStatus)
	r.Get("/{orderID}/history", h.history)
	r.Delete("/{orderID}", h.deleteOrder)
}

func (h *AdminOrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req updateStatusRequest
	if !decodeJSONBody(ctx, w, r, maxStatusUpdateBodySize, &req) {
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.UpdateOrderStatusCommand{
		OrderID: orderID,
		Status:  domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Note:    strings.TrimSpace(req.Note),
		ActorID: actorID(ctx),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminOrderHandlers) bulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req bulkUpdateStatusRequest
	if !decodeJSONBody(ctx, w, r, maxBulkUpdateBodySize, &req) {
		return
	}
	if len(req.OrderIDs) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order_ids is required", http.StatusBadRequest))
		return
	}
	if len(req.OrderIDs) > maxBulkUpdateOrders {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "too many order ids in one request", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is required", http.StatusBadRequest))
		return
	}

	results, err := h.orders.BulkUpdateStatus(ctx, services.BulkUpdateOrderStatusCommand{
		OrderIDs: req.OrderIDs,
		Status:   domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Note:     strings.TrimSpace(req.Note),
		ActorID:  actorID(ctx),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]bulkResultPayload, 0, len(results))
	for _, result := range results {
		items = append(items, bulkResultPayload{
			OrderID: result.OrderID,
			Result:  result.Result,
			Message: result.Message,
		})
	}
	httpx.WriteData(w, http.StatusOK, bulkUpdateResponse{Results: items})
}

func (h *AdminOrderHandlers) history(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	entries, err := h.orders.History(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]historyEntryPayload, 0, len(entries))
	for _, entry := range entries {
		items = append(items, buildHistoryEntry(entry))
	}
	httpx.WriteData(w, http.StatusOK, historyResponse{Entries: items})
}

func (h *AdminOrderHandlers) statistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	stats, err := h.orders.Statistics(ctx)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	byStatus := make([]statusCountPayload, 0, len(stats.ByStatus))
	for _, count := range stats.ByStatus {
		byStatus = append(byStatus, statusCountPayload{
			Status: string(count.Status),
			Count:  count.Count,
		})
	}
	httpx.WriteData(w, http.StatusOK, statisticsResponse{
		Total:    stats.Total,
		ByStatus: byStatus,
	})
}

func (h *AdminOrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	if err := h.orders.Delete(ctx, services.DeleteOrderCommand{
		OrderID: orderID,
		ActorID: actorID(ctx),
	}); err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type bulkUpdateResponse struct {
	Results []bulkResultPayload `json:"results"`
}

type bulkResultPayload struct {
	OrderID string `json:"order_id"`
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

type historyResponse struct {
	Entries []historyEntryPayload `json:"entries"`
}

type statisticsResponse struct {
	Total    int64                `json:"total"`
	ByStatus []statusCountPayload `json:"by_status"`
}

type statusCountPayload struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// decodeJSONBody reads and unmarshals a required JSON body, writing the error
// response itself when the payload is unusable.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	body, err := readLimitedBody(r, limit)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		case errors.Is(err, errEmptyBody):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

// actorID resolves the authenticated UID for audit and history attribution.
func actorID(ctx context.Context) string {
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		return strings.TrimSpace(identity.UID)
	}
	return ""
}
