package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
)

type stubOrderRepo struct {
	insertFn       func(context.Context, domain.Order) error
	updateFn       func(context.Context, domain.Order) error
	findFn         func(context.Context, string) (domain.Order, error)
	findByNumberFn func(context.Context, string) (domain.Order, error)
	listFn         func(context.Context, repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	countFn        func(context.Context, domain.OrderStatus) (int64, error)
	deleteFn       func(context.Context, string) error
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) FindByNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	if s.findByNumberFn != nil {
		return s.findByNumberFn(ctx, orderNumber)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

func (s *stubOrderRepo) CountByStatus(ctx context.Context, status domain.OrderStatus) (int64, error) {
	if s.countFn != nil {
		return s.countFn(ctx, status)
	}
	return 0, nil
}

func (s *stubOrderRepo) Delete(ctx context.Context, orderID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, orderID)
	}
	return nil
}

type stubHistoryRepo struct {
	appendFn func(context.Context, domain.OrderHistoryEntry) error
	listFn   func(context.Context, string) ([]domain.OrderHistoryEntry, error)
}

func (s *stubHistoryRepo) Append(ctx context.Context, entry domain.OrderHistoryEntry) error {
	if s.appendFn != nil {
		return s.appendFn(ctx, entry)
	}
	return nil
}

func (s *stubHistoryRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderHistoryEntry, error) {
	if s.listFn != nil {
		return s.listFn(ctx, orderID)
	}
	return nil, nil
}

type stubCounterRepo struct {
	nextFn func(context.Context, string, int64) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return 1, nil
}

type captureEvents struct {
	messages []OrderEventMessage
	err      error
}

func (c *captureEvents) PublishOrderEvent(_ context.Context, message OrderEventMessage) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.messages = append(c.messages, message)
	return "msg-1", nil
}

type captureAudit struct {
	records []AuditLogRecord
}

func (c *captureAudit) Record(_ context.Context, record AuditLogRecord) {
	c.records = append(c.records, record)
}

func (c *captureAudit) List(context.Context, AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	return domain.CursorPage[domain.AuditLogEntry]{}, errors.New("not implemented")
}

type trackingUnitOfWork struct {
	calls int
}

func (u *trackingUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	u.calls++
	return fn(ctx)
}

// retryingUnitOfWork reruns the closure once after a successful first pass,
// the way Firestore reruns a transaction after a contention abort.
type retryingUnitOfWork struct {
	attempts int
}

func (u *retryingUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	u.attempts++
	if err := fn(ctx); err != nil {
		return err
	}
	u.attempts++
	return fn(ctx)
}

type repoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e repoError) Error() string       { return "repo error" }
func (e repoError) IsNotFound() bool    { return e.notFound }
func (e repoError) IsConflict() bool    { return e.conflict }
func (e repoError) IsUnavailable() bool { return e.unavailable }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%04d", prefix, n)
	}
}

func newTestOrderService(t *testing.T, deps OrderServiceDeps) OrderService {
	t.Helper()
	if deps.Orders == nil {
		deps.Orders = &stubOrderRepo{}
	}
	if deps.History == nil {
		deps.History = &stubHistoryRepo{}
	}
	if deps.Counters == nil {
		deps.Counters = &stubCounterRepo{}
	}
	if deps.Clock == nil {
		deps.Clock = fixedClock(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = sequentialIDs("TEST")
	}
	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return svc
}

func TestOrderServiceCreateGeneratesNumberAndHistory(t *testing.T) {
	var inserted domain.Order
	var appended []domain.OrderHistoryEntry
	events := &captureEvents{}

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			insertFn: func(_ context.Context, order domain.Order) error {
				inserted = order
				return nil
			},
		},
		History: &stubHistoryRepo{
			appendFn: func(_ context.Context, entry domain.OrderHistoryEntry) error {
				appended = append(appended, entry)
				return nil
			},
		},
		Counters: &stubCounterRepo{
			nextFn: func(_ context.Context, counterID string, step int64) (int64, error) {
				if counterID != "orders" {
					t.Fatalf("unexpected counter id %q", counterID)
				}
				if step != 1 {
					t.Fatalf("unexpected counter step %d", step)
				}
				return 42, nil
			},
		},
		Events: events,
	})

	order, err := svc.Create(context.Background(), CreateOrderCommand{
		UserID:   "user-1",
		Currency: "JPY",
		Items: []domain.OrderLineItem{
			{ProductRef: "/products/p1", Quantity: 2, UnitPrice: 500, Total: 1000},
		},
		ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if order.OrderNumber != "ORD-2026-000042" {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status, got %q", order.Status)
	}
	if order.Total != 1000 {
		t.Fatalf("expected total 1000, got %d", order.Total)
	}
	if inserted.ID == "" || inserted.ID != order.ID {
		t.Fatalf("expected inserted order to match, got %q", inserted.ID)
	}

	if len(appended) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(appended))
	}
	if appended[0].FromStatus != nil {
		t.Fatalf("creation history must not carry a from status")
	}
	if appended[0].ToStatus != domain.OrderStatusPending {
		t.Fatalf("unexpected to status %q", appended[0].ToStatus)
	}

	if len(events.messages) != 1 || events.messages[0].Event != "order.created" {
		t.Fatalf("expected order.created event, got %+v", events.messages)
	}
}

func TestOrderServiceCreateSurvivesHistoryFailure(t *testing.T) {
	var logged []string
	svc := newTestOrderService(t, OrderServiceDeps{
		History: &stubHistoryRepo{
			appendFn: func(context.Context, domain.OrderHistoryEntry) error {
				return errors.New("write denied")
			},
		},
		Logger: func(_ context.Context, event string, _ map[string]any) {
			logged = append(logged, event)
		},
	})

	_, err := svc.Create(context.Background(), CreateOrderCommand{
		UserID: "user-1",
		Items:  []domain.OrderLineItem{{ProductRef: "/products/p1", Quantity: 1, Total: 100}},
	})
	if err != nil {
		t.Fatalf("creation must not fail on history errors: %v", err)
	}
	if len(logged) != 1 || logged[0] != "order.history.append.failed" {
		t.Fatalf("expected history failure to be logged, got %v", logged)
	}
}

func TestOrderServiceUpdateStatusAppendsHistoryTransactionally(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	existing := domain.Order{ID: "ord-1", OrderNumber: "ORD-2026-000001", UserID: "user-1", Status: domain.OrderStatusPending}

	var updated domain.Order
	var entry domain.OrderHistoryEntry
	uow := &trackingUnitOfWork{}
	events := &captureEvents{}

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(_ context.Context, orderID string) (domain.Order, error) {
				if orderID != "ord-1" {
					return domain.Order{}, repoError{notFound: true}
				}
				return existing, nil
			},
			updateFn: func(_ context.Context, order domain.Order) error {
				updated = order
				return nil
			},
		},
		History: &stubHistoryRepo{
			appendFn: func(_ context.Context, e domain.OrderHistoryEntry) error {
				entry = e
				return nil
			},
		},
		UnitOfWork: uow,
		Events:     events,
		Clock:      fixedClock(now),
	})

	order, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{
		OrderID: "ord-1",
		Status:  domain.OrderStatusProcessing,
		Note:    "picked",
		ActorID: "admin-1",
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if uow.calls != 1 {
		t.Fatalf("expected one transaction, got %d", uow.calls)
	}
	if order.Status != domain.OrderStatusProcessing || updated.Status != domain.OrderStatusProcessing {
		t.Fatalf("status not updated: %q / %q", order.Status, updated.Status)
	}
	if entry.FromStatus == nil || *entry.FromStatus != domain.OrderStatusPending {
		t.Fatalf("expected from status pending, got %v", entry.FromStatus)
	}
	if entry.ToStatus != domain.OrderStatusProcessing {
		t.Fatalf("unexpected to status %q", entry.ToStatus)
	}
	if entry.ChangedBy == nil || *entry.ChangedBy != "admin-1" {
		t.Fatalf("expected changed_by admin-1, got %v", entry.ChangedBy)
	}
	if len(events.messages) != 1 || events.messages[0].Event != "order.status.changed" {
		t.Fatalf("expected order.status.changed event, got %+v", events.messages)
	}
	if events.messages[0].PreviousStatus != string(domain.OrderStatusPending) {
		t.Fatalf("unexpected previous status %q", events.messages[0].PreviousStatus)
	}
}

func TestOrderServiceUpdateStatusSameStatusIsNoop(t *testing.T) {
	existing := domain.Order{ID: "ord-1", Status: domain.OrderStatusShipped}
	events := &captureEvents{}

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(context.Context, string) (domain.Order, error) {
				return existing, nil
			},
			updateFn: func(context.Context, domain.Order) error {
				t.Fatal("update must not run for a no-op transition")
				return nil
			},
		},
		History: &stubHistoryRepo{
			appendFn: func(context.Context, domain.OrderHistoryEntry) error {
				t.Fatal("history must not grow for a no-op transition")
				return nil
			},
		},
		Events: events,
	})

	order, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{
		OrderID: "ord-1",
		Status:  domain.OrderStatusShipped,
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if order.Status != domain.OrderStatusShipped {
		t.Fatalf("unexpected status %q", order.Status)
	}
	if len(events.messages) != 0 {
		t.Fatalf("no event expected for a no-op transition, got %+v", events.messages)
	}
}

func TestOrderServiceUpdateStatusRetryDoesNotPublishStaleEvent(t *testing.T) {
	// First attempt sees pending; by the rerun a concurrent writer has already
	// applied processing, so the rerun is a no-op and nothing may publish.
	uow := &retryingUnitOfWork{}
	events := &captureEvents{}
	reads := 0

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(context.Context, string) (domain.Order, error) {
				reads++
				if reads == 1 {
					return domain.Order{ID: "ord-1", Status: domain.OrderStatusPending}, nil
				}
				return domain.Order{ID: "ord-1", Status: domain.OrderStatusProcessing}, nil
			},
		},
		UnitOfWork: uow,
		Events:     events,
	})

	order, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{
		OrderID: "ord-1",
		Status:  domain.OrderStatusProcessing,
		ActorID: "admin-1",
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if uow.attempts != 2 {
		t.Fatalf("expected the closure to run twice, ran %d times", uow.attempts)
	}
	if order.Status != domain.OrderStatusProcessing {
		t.Fatalf("unexpected status %q", order.Status)
	}
	if len(events.messages) != 0 {
		t.Fatalf("no event expected when the rerun is a no-op, got %+v", events.messages)
	}
}

func TestOrderServiceUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestOrderService(t, OrderServiceDeps{})

	_, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{
		OrderID: "ord-1",
		Status:  "archived",
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestOrderServiceUpdateStatusSetsCancelledAt(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	var updated domain.Order

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{ID: "ord-1", Status: domain.OrderStatusPending}, nil
			},
			updateFn: func(_ context.Context, order domain.Order) error {
				updated = order
				return nil
			},
		},
		Clock: fixedClock(now),
	})

	if _, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{
		OrderID: "ord-1",
		Status:  domain.OrderStatusCancelled,
	}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.CancelledAt == nil || !updated.CancelledAt.Equal(now) {
		t.Fatalf("expected cancelledAt %v, got %v", now, updated.CancelledAt)
	}
}

func TestOrderServiceBulkUpdateReportsPerOrderResults(t *testing.T) {
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(_ context.Context, orderID string) (domain.Order, error) {
				switch orderID {
				case "ord-ok":
					return domain.Order{ID: orderID, Status: domain.OrderStatusPending}, nil
				case "ord-missing":
					return domain.Order{}, repoError{notFound: true}
				default:
					return domain.Order{}, repoError{unavailable: true}
				}
			},
		},
	})

	results, err := svc.BulkUpdateStatus(context.Background(), BulkUpdateOrderStatusCommand{
		OrderIDs: []string{"ord-ok", "ord-missing", "ord-broken"},
		Status:   domain.OrderStatusProcessing,
	})
	if err != nil {
		t.Fatalf("BulkUpdateStatus: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	expected := map[string]string{
		"ord-ok":      BulkResultOK,
		"ord-missing": BulkResultNotFound,
		"ord-broken":  BulkResultFailed,
	}
	for _, result := range results {
		if expected[result.OrderID] != result.Result {
			t.Fatalf("order %s: expected %s, got %s", result.OrderID, expected[result.OrderID], result.Result)
		}
	}
}

func TestOrderServiceBulkUpdateRejectsEmptyBatch(t *testing.T) {
	svc := newTestOrderService(t, OrderServiceDeps{})
	if _, err := svc.BulkUpdateStatus(context.Background(), BulkUpdateOrderStatusCommand{
		Status: domain.OrderStatusProcessing,
	}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestOrderServiceCancelEnforcesOwnership(t *testing.T) {
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findByNumberFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{ID: "ord-1", UserID: "someone-else", Status: domain.OrderStatusPending}, nil
			},
		},
	})

	_, err := svc.Cancel(context.Background(), CancelOrderCommand{
		OrderNumber: "ORD-2026-000001",
		UserID:      "user-1",
	})
	if !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("expected ErrOrderForbidden, got %v", err)
	}
}

func TestOrderServiceCancelRejectsShippedOrder(t *testing.T) {
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findByNumberFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusShipped}, nil
			},
		},
	})

	_, err := svc.Cancel(context.Background(), CancelOrderCommand{
		OrderNumber: "ORD-2026-000001",
		UserID:      "user-1",
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState, got %v", err)
	}
}

func TestOrderServiceCancelWritesHistoryAndEvent(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	existing := domain.Order{ID: "ord-1", OrderNumber: "ORD-2026-000001", UserID: "user-1", Status: domain.OrderStatusProcessing}

	var entry domain.OrderHistoryEntry
	events := &captureEvents{}

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findByNumberFn: func(context.Context, string) (domain.Order, error) {
				return existing, nil
			},
			findFn: func(context.Context, string) (domain.Order, error) {
				return existing, nil
			},
		},
		History: &stubHistoryRepo{
			appendFn: func(_ context.Context, e domain.OrderHistoryEntry) error {
				entry = e
				return nil
			},
		},
		Events: events,
		Clock:  fixedClock(now),
	})

	order, err := svc.Cancel(context.Background(), CancelOrderCommand{
		OrderNumber: "ORD-2026-000001",
		UserID:      "user-1",
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled status, got %q", order.Status)
	}
	if order.CancelledAt == nil || !order.CancelledAt.Equal(now) {
		t.Fatalf("expected cancelledAt %v, got %v", now, order.CancelledAt)
	}
	if entry.Note != "cancelled by customer" {
		t.Fatalf("unexpected history note %q", entry.Note)
	}
	if entry.FromStatus == nil || *entry.FromStatus != domain.OrderStatusProcessing {
		t.Fatalf("unexpected from status %v", entry.FromStatus)
	}
	if len(events.messages) != 1 || events.messages[0].Event != "order.cancelled" {
		t.Fatalf("expected order.cancelled event, got %+v", events.messages)
	}
}

func TestOrderServiceGetByNumberReportsForbiddenNotHidden(t *testing.T) {
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findByNumberFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{ID: "ord-1", UserID: "owner", Status: domain.OrderStatusPending}, nil
			},
		},
	})

	_, err := svc.GetByNumber(context.Background(), "intruder", "ORD-2026-000001")
	if !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("expected ErrOrderForbidden, got %v", err)
	}
	if errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("ownership failure must not be reported as not found")
	}
}

func TestOrderServiceGetByNumberIncludesHistory(t *testing.T) {
	from := domain.OrderStatusPending
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findByNumberFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusProcessing}, nil
			},
		},
		History: &stubHistoryRepo{
			listFn: func(context.Context, string) ([]domain.OrderHistoryEntry, error) {
				return []domain.OrderHistoryEntry{
					{ID: "oh-1", ToStatus: domain.OrderStatusPending},
					{ID: "oh-2", FromStatus: &from, ToStatus: domain.OrderStatusProcessing},
				}, nil
			},
		},
	})

	order, err := svc.GetByNumber(context.Background(), "user-1", "ORD-2026-000001")
	if err != nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	if len(order.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(order.History))
	}
}

func TestOrderServiceStatisticsSumsIndependentCounts(t *testing.T) {
	counts := map[domain.OrderStatus]int64{
		domain.OrderStatusPending:    3,
		domain.OrderStatusProcessing: 2,
		domain.OrderStatusShipped:    1,
		domain.OrderStatusCompleted:  5,
		domain.OrderStatusCancelled:  4,
	}

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			countFn: func(_ context.Context, status domain.OrderStatus) (int64, error) {
				return counts[status], nil
			},
		},
	})

	stats, err := svc.Statistics(context.Background())
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.Total != 15 {
		t.Fatalf("expected total 15, got %d", stats.Total)
	}
	if len(stats.ByStatus) != 5 {
		t.Fatalf("expected 5 status buckets, got %d", len(stats.ByStatus))
	}
}

func TestOrderServiceDeleteRecordsAuditAndEvent(t *testing.T) {
	audit := &captureAudit{}
	events := &captureEvents{}
	deleted := ""

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			findFn: func(context.Context, string) (domain.Order, error) {
				return domain.Order{ID: "ord-1", OrderNumber: "ORD-2026-000001", Status: domain.OrderStatusCancelled}, nil
			},
			deleteFn: func(_ context.Context, orderID string) error {
				deleted = orderID
				return nil
			},
		},
		Audit:  audit,
		Events: events,
	})

	if err := svc.Delete(context.Background(), DeleteOrderCommand{OrderID: "ord-1", ActorID: "admin-1"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted != "ord-1" {
		t.Fatalf("expected delete of ord-1, got %q", deleted)
	}
	if len(audit.records) != 1 || audit.records[0].Action != "order.delete" {
		t.Fatalf("expected order.delete audit record, got %+v", audit.records)
	}
	if audit.records[0].TargetRef != "/orders/ord-1" {
		t.Fatalf("unexpected target ref %q", audit.records[0].TargetRef)
	}
	if len(events.messages) != 1 || events.messages[0].Event != "order.deleted" {
		t.Fatalf("expected order.deleted event, got %+v", events.messages)
	}
}

func TestOrderServiceListByUserValidatesAndClamps(t *testing.T) {
	var captured repositories.OrderListFilter
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders: &stubOrderRepo{
			listFn: func(_ context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
				captured = filter
				return domain.CursorPage[domain.Order]{}, nil
			},
		},
	})

	if _, err := svc.ListByUser(context.Background(), "user-1", MyOrdersFilter{
		Status:     []domain.OrderStatus{"bogus"},
		Pagination: domain.Pagination{PageSize: 10},
	}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput for bogus status, got %v", err)
	}

	if _, err := svc.ListByUser(context.Background(), "user-1", MyOrdersFilter{
		Pagination: domain.Pagination{PageSize: 10_000},
	}); err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if captured.Pagination.PageSize != maxListPageSize {
		t.Fatalf("expected clamped page size %d, got %d", maxListPageSize, captured.Pagination.PageSize)
	}
	if captured.UserID != "user-1" {
		t.Fatalf("unexpected user filter %q", captured.UserID)
	}
}

func TestOrderServiceEventPublishFailureIsLogged(t *testing.T) {
	var logged []string
	svc := newTestOrderService(t, OrderServiceDeps{
		Events: &captureEvents{err: errors.New("topic gone")},
		Logger: func(_ context.Context, event string, _ map[string]any) {
			logged = append(logged, event)
		},
	})

	if _, err := svc.Create(context.Background(), CreateOrderCommand{
		UserID: "user-1",
		Items:  []domain.OrderLineItem{{ProductRef: "/products/p1", Quantity: 1, Total: 100}},
	}); err != nil {
		t.Fatalf("publish failures must stay best-effort: %v", err)
	}

	found := false
	for _, event := range logged {
		if event == "order.event.publish.failed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected publish failure log, got %v", logged)
	}
}
