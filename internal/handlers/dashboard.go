package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	"github.com/pxa264/e-shop-sub001/internal/platform/auth"
	"github.com/pxa264/e-shop-sub001/internal/platform/httpx"
	"github.com/pxa264/e-shop-sub001/internal/services"
)

// DashboardHandlers serves the back-office surface gated by the JWKS-verified
// staff token.
type DashboardHandlers struct {
	authz  *auth.DashboardAuthenticator
	orders services.OrderService
	audit  services.AuditLogService
}

// NewDashboardHandlers constructs a new DashboardHandlers instance.
func NewDashboardHandlers(authz *auth.DashboardAuthenticator, orders services.OrderService, audit services.AuditLogService) *DashboardHandlers {
	return &DashboardHandlers{
		authz:  authz,
		orders: orders,
		audit:  audit,
	}
}

// Routes registers the /dashboard endpoints.
func (h *DashboardHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authz != nil {
		r.Use(h.authz.Require())
	}
	r.Get("/audit-logs", h.listAuditLogs)
	r.Get("/orders", h.listOrders)
}

func (h *DashboardHandlers) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.audit == nil {
		httpx.WriteError(ctx, w, httpx.NewError("audit_service_unavailable", "audit log service unavailable", http.StatusServiceUnavailable))
		return
	}

	if _, ok := auth.StaffIdentityFromContext(ctx); !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "staff authentication required", http.StatusUnauthorized))
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultOrderPageSize, maxOrderPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
		return
	}

	dateRange, ok := parseDateRange(ctx, w, query.Get("created_after"), query.Get("created_before"))
	if !ok {
		return
	}

	page, err := h.audit.List(ctx, services.AuditLogFilter{
		TargetRef: strings.TrimSpace(query.Get("target_ref")),
		Actor:     strings.TrimSpace(query.Get("actor")),
		Action:    strings.TrimSpace(query.Get("action")),
		DateRange: dateRange,
		Pagination: domain.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to list audit logs", http.StatusInternalServerError))
		return
	}

	items := make([]auditLogPayload, 0, len(page.Items))
	for _, entry := range page.Items {
		items = append(items, buildAuditLogPayload(entry))
	}
	httpx.WriteData(w, http.StatusOK, auditLogListResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *DashboardHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	if _, ok := auth.StaffIdentityFromContext(ctx); !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "staff authentication required", http.StatusUnauthorized))
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultOrderPageSize, maxOrderPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
		return
	}

	dateRange, ok := parseDateRange(ctx, w, query.Get("created_after"), query.Get("created_before"))
	if !ok {
		return
	}

	page, err := h.orders.Search(ctx, services.SearchOrdersFilter{
		UserID:    strings.TrimSpace(query.Get("user_id")),
		Status:    statusFilterValues(query["status"]),
		DateRange: dateRange,
		Pagination: domain.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	})
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

type auditLogListResponse struct {
	Items         []auditLogPayload `json:"items"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

type auditLogPayload struct {
	Actor     string         `json:"actor"`
	ActorType string         `json:"actor_type"`
	Action    string         `json:"action"`
	TargetRef string         `json:"target_ref"`
	Severity  string         `json:"severity"`
	RequestID string         `json:"request_id,omitempty"`
	IPHash    string         `json:"ip_hash,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
}

func buildAuditLogPayload(entry domain.AuditLogEntry) auditLogPayload {
	return auditLogPayload{
		Actor:     entry.Actor,
		ActorType: entry.ActorType,
		Action:    entry.Action,
		TargetRef: entry.TargetRef,
		Severity:  entry.Severity,
		RequestID: entry.RequestID,
		IPHash:    entry.IPHash,
		Metadata:  cloneMap(entry.Metadata),
		CreatedAt: formatTime(entry.CreatedAt),
	}
}

func parseDateRange(ctx context.Context, w http.ResponseWriter, afterRaw, beforeRaw string) (domain.RangeQuery[time.Time], bool) {
	var dateRange domain.RangeQuery[time.Time]
	if raw := strings.TrimSpace(afterRaw); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return dateRange, false
		}
		dateRange.From = &ts
	}
	if raw := strings.TrimSpace(beforeRaw); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return dateRange, false
		}
		dateRange.To = &ts
	}
	return dateRange, true
}
