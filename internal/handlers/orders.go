package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	"github.com/pxa264/e-shop-sub001/internal/platform/auth"
	"github.com/pxa264/e-shop-sub001/internal/platform/httpx"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
	"github.com/pxa264/e-shop-sub001/internal/services"
)

const (
	defaultOrderPageSize   = 20
	maxOrderPageSize       = 100
	maxOrderCancelBodySize = 4 * 1024
)

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderHandlers exposes the customer-facing order endpoints.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /orders endpoints. The status configuration is public;
// everything else requires an authenticated owner.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/status-config", h.statusConfig)
	r.Group(func(g chi.Router) {
		if h.authn != nil {
			g.Use(h.authn.RequireAuth())
		}
		g.Get("/", h.listMyOrders)
		g.Post("/{orderNumber}/cancel", h.cancelOrder)
		g.Get("/{orderNumber}/detail", h.getOrderDetail)
	})
}

func (h *OrderHandlers) statusConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	infos := h.orders.StatusConfig()
	items := make([]statusInfoPayload, 0, len(infos))
	for _, info := range infos {
		items = append(items, statusInfoPayload{
			Status:      string(info.Status),
			Label:       info.Label,
			Color:       info.Color,
			Cancellable: info.Cancellable,
		})
	}
	httpx.WriteData(w, http.StatusOK, statusConfigResponse{Statuses: items})
}

func (h *OrderHandlers) listMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	query := r.URL.Query()

	pageSize, err := parsePageSize(query.Get("page_size"), defaultOrderPageSize, maxOrderPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
		return
	}

	filter := services.MyOrdersFilter{
		Status: statusFilterValues(query["status"]),
		Pagination: domain.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	}

	page, err := h.orders.ListByUser(ctx, identity.UID, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}
	httpx.WriteData(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	if orderNumber == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order number is required", http.StatusBadRequest))
		return
	}

	// The cancellation body is optional; only a reason may be supplied.
	var req cancelOrderRequest
	body, err := readLimitedBody(r, maxOrderCancelBodySize)
	switch {
	case err == nil:
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	case errors.Is(err, errEmptyBody):
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderNumber: orderNumber,
		UserID:      identity.UID,
		Reason:      strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) getOrderDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	if orderNumber == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order number is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetByNumber(ctx, identity.UID, orderNumber)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type statusConfigResponse struct {
	Statuses []statusInfoPayload `json:"statuses"`
}

type statusInfoPayload struct {
	Status      string `json:"status"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	Cancellable bool   `json:"cancellable"`
}

type orderListResponse struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type orderSummaryPayload struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	Currency    string `json:"currency,omitempty"`
	Total       int64  `json:"total"`
	CreatedAt   string `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID          string                `json:"id"`
	OrderNumber string                `json:"order_number"`
	UserID      string                `json:"user_id"`
	Status      string                `json:"status"`
	Currency    string                `json:"currency,omitempty"`
	Total       int64                 `json:"total"`
	Items       []orderItemPayload    `json:"items"`
	Metadata    map[string]any        `json:"metadata,omitempty"`
	History     []historyEntryPayload `json:"history,omitempty"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at,omitempty"`
	CancelledAt string                `json:"cancelled_at,omitempty"`
}

type orderItemPayload struct {
	ProductRef string `json:"product_ref"`
	SKU        string `json:"sku,omitempty"`
	Name       string `json:"name,omitempty"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	Total      int64  `json:"total"`
}

type historyEntryPayload struct {
	ID         string  `json:"id"`
	FromStatus *string `json:"from_status"`
	ToStatus   string  `json:"to_status"`
	ChangedBy  *string `json:"changed_by,omitempty"`
	Note       string  `json:"note,omitempty"`
	ChangedAt  string  `json:"changed_at"`
}

func buildOrderSummary(order domain.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:          strings.TrimSpace(order.ID),
		OrderNumber: strings.TrimSpace(order.OrderNumber),
		Status:      string(order.Status),
		Currency:    strings.ToUpper(strings.TrimSpace(order.Currency)),
		Total:       order.Total,
		CreatedAt:   formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:          strings.TrimSpace(order.ID),
		OrderNumber: strings.TrimSpace(order.OrderNumber),
		UserID:      strings.TrimSpace(order.UserID),
		Status:      string(order.Status),
		Currency:    strings.ToUpper(strings.TrimSpace(order.Currency)),
		Total:       order.Total,
		Items:       make([]orderItemPayload, 0, len(order.Items)),
		Metadata:    cloneMap(order.Metadata),
		CreatedAt:   formatTime(order.CreatedAt),
		UpdatedAt:   formatTime(order.UpdatedAt),
		CancelledAt: formatTime(pointerTime(order.CancelledAt)),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ProductRef: item.ProductRef,
			SKU:        item.SKU,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Total:      item.Total,
		})
	}
	for _, entry := range order.History {
		payload.History = append(payload.History, buildHistoryEntry(entry))
	}
	return payload
}

func buildHistoryEntry(entry domain.OrderHistoryEntry) historyEntryPayload {
	payload := historyEntryPayload{
		ID:        entry.ID,
		ToStatus:  string(entry.ToStatus),
		Note:      entry.Note,
		ChangedAt: formatTime(entry.ChangedAt),
	}
	if entry.FromStatus != nil {
		from := string(*entry.FromStatus)
		payload.FromStatus = &from
	}
	if entry.ChangedBy != nil {
		changedBy := *entry.ChangedBy
		payload.ChangedBy = &changedBy
	}
	return payload
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		return
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "order belongs to another user", http.StatusForbidden))
		return
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", "order status does not permit this operation", http.StatusConflict))
		return
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", "order was modified concurrently", http.StatusConflict))
		return
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "order storage unavailable", http.StatusServiceUnavailable))
		return
	}

	httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
}

func statusFilterValues(values []string) []domain.OrderStatus {
	raw := parseFilterValues(values)
	if len(raw) == 0 {
		return nil
	}
	statuses := make([]domain.OrderStatus, 0, len(raw))
	for _, value := range raw {
		statuses = append(statuses, domain.OrderStatus(strings.ToLower(value)))
	}
	return statuses
}

func parseFilterValues(values []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

func parsePageSize(raw string, fallback, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	switch {
	case size <= 0:
		return fallback, nil
	case size > max:
		return max, nil
	default:
		return size, nil
	}
}

func parseTimeParam(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(value))
}
