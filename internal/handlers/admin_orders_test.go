package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	"github.com/pxa264/e-shop-sub001/internal/services"
)

func newAdminOrderRouter(svc services.OrderService) http.Handler {
	router := chi.NewRouter()
	router.Route("/", NewAdminOrderHandlers(nil, svc).Routes)
	return router
}

func TestAdminOrderHandlersUpdateStatus(t *testing.T) {
	var captured services.UpdateOrderStatusCommand
	router := newAdminOrderRouter(&stubOrderService{
		updateStatusFn: func(_ context.Context, cmd services.UpdateOrderStatusCommand) (domain.Order, error) {
			captured = cmd
			return domain.Order{
				ID:     cmd.OrderID,
				Status: cmd.Status,
			}, nil
		},
	})

	body := strings.NewReader(`{"status":"Shipped","note":" left warehouse "}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/ord-1/status", body), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord-1" || captured.Status != domain.OrderStatusShipped {
		t.Fatalf("unexpected command %+v", captured)
	}
	if captured.Note != "left warehouse" {
		t.Fatalf("expected trimmed note, got %q", captured.Note)
	}
	if captured.ActorID != "admin-1" {
		t.Fatalf("expected actor admin-1, got %q", captured.ActorID)
	}
	var payload orderResponse
	decodeEnvelope(t, rr, &payload)
	if payload.Order.Status != "shipped" {
		t.Fatalf("unexpected status %q", payload.Order.Status)
	}
}

func TestAdminOrderHandlersUpdateStatusRequiresBody(t *testing.T) {
	router := newAdminOrderRouter(&stubOrderService{})

	req := withUser(httptest.NewRequest(http.MethodPost, "/ord-1/status", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if envelope := decodeError(t, rr); envelope.Error.Code != "invalid_request" {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestAdminOrderHandlersUpdateStatusMapsNotFound(t *testing.T) {
	router := newAdminOrderRouter(&stubOrderService{
		updateStatusFn: func(context.Context, services.UpdateOrderStatusCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrOrderNotFound
		},
	})

	body := strings.NewReader(`{"status":"shipped"}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/ord-missing/status", body), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if envelope := decodeError(t, rr); envelope.Error.Code != "order_not_found" {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestAdminOrderHandlersBulkUpdateReportsResults(t *testing.T) {
	router := newAdminOrderRouter(&stubOrderService{
		bulkUpdateFn: func(_ context.Context, cmd services.BulkUpdateOrderStatusCommand) ([]services.BulkUpdateResult, error) {
			results := make([]services.BulkUpdateResult, 0, len(cmd.OrderIDs))
			for _, id := range cmd.OrderIDs {
				result := services.BulkResultOK
				if id == "ord-missing" {
					result = services.BulkResultNotFound
				}
				results = append(results, services.BulkUpdateResult{OrderID: id, Result: result})
			}
			return results, nil
		},
	})

	body := strings.NewReader(`{"order_ids":["ord-1","ord-missing"],"status":"processing"}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/bulk/status", body), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload bulkUpdateResponse
	decodeEnvelope(t, rr, &payload)
	if len(payload.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(payload.Results))
	}
	if payload.Results[0].Result != "ok" || payload.Results[1].Result != "not_found" {
		t.Fatalf("unexpected results %+v", payload.Results)
	}
}

func TestAdminOrderHandlersBulkUpdateRejectsEmptyBatch(t *testing.T) {
	router := newAdminOrderRouter(&stubOrderService{})

	body := strings.NewReader(`{"order_ids":[],"status":"processing"}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/bulk/status", body), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAdminOrderHandlersStatistics(t *testing.T) {
	router := newAdminOrderRouter(&stubOrderService{
		statisticsFn: func(context.Context) (services.OrderStatistics, error) {
			return services.OrderStatistics{
				Total: 15,
				ByStatus: []domain.OrderStatusCount{
					{Status: domain.OrderStatusPending, Count: 5},
					{Status: domain.OrderStatusProcessing, Count: 4},
					{Status: domain.OrderStatusShipped, Count: 3},
					{Status: domain.OrderStatusCompleted, Count: 2},
					{Status: domain.OrderStatusCancelled, Count: 1},
				},
			}, nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodGet, "/statistics", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload statisticsResponse
	decodeEnvelope(t, rr, &payload)
	if payload.Total != 15 || len(payload.ByStatus) != 5 {
		t.Fatalf("unexpected statistics %+v", payload)
	}
	if payload.ByStatus[0].Status != "pending" || payload.ByStatus[0].Count != 5 {
		t.Fatalf("unexpected first bucket %+v", payload.ByStatus[0])
	}
}

func TestAdminOrderHandlersHistory(t *testing.T) {
	router := newAdminOrderRouter(&stubOrderService{
		historyFn: func(_ context.Context, orderID string) ([]domain.OrderHistoryEntry, error) {
			if orderID != "ord-1" {
				return nil, services.ErrOrderNotFound
			}
			return []domain.OrderHistoryEntry{
				{ID: "h-1", ToStatus: domain.OrderStatusPending},
			}, nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodGet, "/ord-1/history", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload historyResponse
	decodeEnvelope(t, rr, &payload)
	if len(payload.Entries) != 1 || payload.Entries[0].ToStatus != "pending" {
		t.Fatalf("unexpected history %+v", payload.Entries)
	}
}

func TestAdminOrderHandlersHistoryMapsNotFound(t *testing.T) {
	router := newAdminOrderRouter(&stubOrderService{
		historyFn: func(context.Context, string) ([]domain.OrderHistoryEntry, error) {
			return nil, services.ErrOrderNotFound
		},
	})

	req := withUser(httptest.NewRequest(http.MethodGet, "/ord-missing/history", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAdminOrderHandlersDeleteReturnsNoContent(t *testing.T) {
	var captured services.DeleteOrderCommand
	router := newAdminOrderRouter(&stubOrderService{
		deleteFn: func(_ context.Context, cmd services.DeleteOrderCommand) error {
			captured = cmd
			return nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodDelete, "/ord-1", nil), "admin-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord-1" || captured.ActorID != "admin-1" {
		t.Fatalf("unexpected command %+v", captured)
	}
}
