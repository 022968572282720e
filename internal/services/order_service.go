package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
)

const (
	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"
	orderEventCancelled     = "order.cancelled"
	orderEventDeleted       = "order.deleted"

	orderIDPrefix       = "ord_"
	orderHistoryPrefix  = "oh_"
	orderNumberCounter  = "orders"
	orderHistoryCreated = "created"

	defaultListPageSize = 20
	maxListPageSize     = 100
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderForbidden indicates the caller does not own the order.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderInvalidState indicates the order status does not permit the operation.
	ErrOrderInvalidState = errors.New("order: invalid state")
	// ErrOrderConflict indicates concurrent modification or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
)

// statusConfig is the fixed display metadata per status token. The
// cancellable flag doubles as the owner-cancel gate.
var statusConfig = []domain.OrderStatusInfo{
	{Status: domain.OrderStatusPending, Label: "Pending", Color: "orange", Cancellable: true},
	{Status: domain.OrderStatusProcessing, Label: "Processing", Color: "blue", Cancellable: true},
	{Status: domain.OrderStatusShipped, Label: "Shipped", Color: "purple", Cancellable: false},
	{Status: domain.OrderStatusCompleted, Label: "Completed", Color: "green", Cancellable: false},
	{Status: domain.OrderStatusCancelled, Label: "Cancelled", Color: "red", Cancellable: false},
}

func isCancellable(status domain.OrderStatus) bool {
	for _, info := range statusConfig {
		if info.Status == status {
			return info.Cancellable
		}
	}
	return false
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	History     repositories.OrderHistoryRepository
	Counters    repositories.CounterRepository
	UnitOfWork  repositories.UnitOfWork
	Audit       AuditLogService
	Events      OrderEventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	history    repositories.OrderHistoryRepository
	counters   repositories.CounterRepository
	unitOfWork repositories.UnitOfWork
	audit      AuditLogService
	events     OrderEventPublisher
	clock      func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.History == nil {
		return nil, errors.New("order service: history repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:     deps.Orders,
		history:    deps.History,
		counters:   deps.Counters,
		unitOfWork: unit,
		audit:      deps.Audit,
		events:     deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domain.Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: order must contain at least one item", ErrOrderInvalidInput)
	}

	status := cmd.Status
	if status == "" {
		status = domain.OrderStatusPending
	}
	if !domain.IsValidOrderStatus(status) {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
	}

	now := s.now()
	var total int64
	for _, item := range cmd.Items {
		total += item.Total
	}

	order := domain.Order{
		ID:        orderIDPrefix + s.newID(),
		UserID:    userID,
		Status:    status,
		Currency:  strings.TrimSpace(cmd.Currency),
		Total:     total,
		Items:     append([]domain.OrderLineItem(nil), cmd.Items...),
		Metadata:  maps.Clone(cmd.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}

	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	order.OrderNumber = number

	if err := s.orders.Insert(ctx, order); err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	// The creation record is best-effort: a history failure never unwinds a
	// committed order.
	entry := domain.OrderHistoryEntry{
		ID:        orderHistoryPrefix + s.newID(),
		OrderID:   order.ID,
		ToStatus:  order.Status,
		Note:      orderHistoryCreated,
		ChangedAt: now,
	}
	if actor := strings.TrimSpace(cmd.ActorID); actor != "" {
		entry.ChangedBy = &actor
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger(ctx, "order.history.append.failed", map[string]any{
			"order": order.ID,
			"error": err.Error(),
		})
	}

	s.publishEvent(ctx, OrderEventMessage{
		Event:       orderEventCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		ActorID:     cmd.ActorID,
		OccurredAt:  now,
		Metadata:    maps.Clone(order.Metadata),
	})

	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !domain.IsValidOrderStatus(cmd.Status) {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}

	now := s.now()
	var order domain.Order
	var prevStatus domain.OrderStatus
	changed := false

	// Status write and history append commit together or not at all.
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		// The unit of work may rerun this closure after a contention abort;
		// every attempt starts from the freshly read state.
		changed = false

		current, err := s.orders.FindByID(txCtx, orderID)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		prevStatus = current.Status

		if current.Status == cmd.Status {
			order = current
			return nil
		}

		current.Status = cmd.Status
		current.UpdatedAt = now
		if cmd.Status == domain.OrderStatusCancelled && current.CancelledAt == nil {
			current.CancelledAt = &now
		}

		if err := s.orders.Update(txCtx, current); err != nil {
			return s.mapRepositoryError(err)
		}
		if err := s.history.Append(txCtx, s.transitionEntry(current.ID, prevStatus, cmd.Status, cmd.ActorID, cmd.Note, now)); err != nil {
			return s.mapRepositoryError(err)
		}

		order = current
		changed = true
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if changed {
		s.publishEvent(ctx, OrderEventMessage{
			Event:          orderEventStatusChanged,
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			Status:         string(order.Status),
			PreviousStatus: string(prevStatus),
			ActorID:        cmd.ActorID,
			OccurredAt:     now,
		})
	}

	return order, nil
}

func (s *orderService) BulkUpdateStatus(ctx context.Context, cmd BulkUpdateOrderStatusCommand) ([]BulkUpdateResult, error) {
	if len(cmd.OrderIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one order id is required", ErrOrderInvalidInput)
	}
	if !domain.IsValidOrderStatus(cmd.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}

	// Each order is updated independently; one failure never aborts the batch.
	results := make([]BulkUpdateResult, 0, len(cmd.OrderIDs))
	for _, orderID := range cmd.OrderIDs {
		_, err := s.UpdateStatus(ctx, UpdateOrderStatusCommand{
			OrderID: orderID,
			Status:  cmd.Status,
			Note:    cmd.Note,
			ActorID: cmd.ActorID,
		})
		result := BulkUpdateResult{OrderID: strings.TrimSpace(orderID), Result: BulkResultOK}
		switch {
		case err == nil:
		case errors.Is(err, ErrOrderNotFound):
			result.Result = BulkResultNotFound
			result.Message = "order not found"
		case errors.Is(err, ErrOrderInvalidInput):
			result.Result = BulkResultInvalidStatus
			result.Message = err.Error()
		default:
			result.Result = BulkResultFailed
			result.Message = err.Error()
			s.logger(ctx, "order.bulk.update.failed", map[string]any{
				"order": orderID,
				"error": err.Error(),
			})
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *orderService) History(ctx context.Context, orderID string) ([]domain.OrderHistoryEntry, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return nil, s.mapRepositoryError(err)
	}

	entries, err := s.history.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return entries, nil
}

func (s *orderService) Statistics(ctx context.Context) (OrderStatistics, error) {
	stats := OrderStatistics{ByStatus: make([]domain.OrderStatusCount, 0, len(statusConfig))}

	// Counts are gathered with one aggregate query per status; the totals are
	// not a single consistent snapshot.
	for _, status := range domain.OrderStatuses() {
		count, err := s.orders.CountByStatus(ctx, status)
		if err != nil {
			return OrderStatistics{}, s.mapRepositoryError(err)
		}
		stats.ByStatus = append(stats.ByStatus, domain.OrderStatusCount{Status: status, Count: count})
		stats.Total += count
	}
	return stats, nil
}

func (s *orderService) StatusConfig() []domain.OrderStatusInfo {
	return append([]domain.OrderStatusInfo(nil), statusConfig...)
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	number := strings.TrimSpace(cmd.OrderNumber)
	if number == "" {
		return domain.Order{}, fmt.Errorf("%w: order number is required", ErrOrderInvalidInput)
	}
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domain.Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}

	located, err := s.orders.FindByNumber(ctx, number)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	if located.UserID != userID {
		return domain.Order{}, fmt.Errorf("%w: order %s belongs to another user", ErrOrderForbidden, number)
	}
	if !isCancellable(located.Status) {
		return domain.Order{}, fmt.Errorf("%w: status %q cannot be cancelled", ErrOrderInvalidState, located.Status)
	}

	now := s.now()
	var order domain.Order
	var prevStatus domain.OrderStatus

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		current, err := s.orders.FindByID(txCtx, located.ID)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if !isCancellable(current.Status) {
			return fmt.Errorf("%w: status %q cannot be cancelled", ErrOrderInvalidState, current.Status)
		}
		prevStatus = current.Status

		current.Status = domain.OrderStatusCancelled
		current.UpdatedAt = now
		current.CancelledAt = &now

		if err := s.orders.Update(txCtx, current); err != nil {
			return s.mapRepositoryError(err)
		}
		note := strings.TrimSpace(cmd.Reason)
		if note == "" {
			note = "cancelled by customer"
		}
		if err := s.history.Append(txCtx, s.transitionEntry(current.ID, prevStatus, domain.OrderStatusCancelled, userID, note, now)); err != nil {
			return s.mapRepositoryError(err)
		}

		order = current
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.publishEvent(ctx, OrderEventMessage{
		Event:          orderEventCancelled,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Status:         string(order.Status),
		PreviousStatus: string(prevStatus),
		ActorID:        userID,
		OccurredAt:     now,
	})

	return order, nil
}

func (s *orderService) GetByNumber(ctx context.Context, userID string, orderNumber string) (domain.Order, error) {
	number := strings.TrimSpace(orderNumber)
	if number == "" {
		return domain.Order{}, fmt.Errorf("%w: order number is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByNumber(ctx, number)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	if order.UserID != strings.TrimSpace(userID) {
		// Ownership failures are reported as forbidden rather than hidden
		// behind a not-found.
		return domain.Order{}, fmt.Errorf("%w: order %s belongs to another user", ErrOrderForbidden, number)
	}

	entries, err := s.history.ListByOrder(ctx, order.ID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	order.History = entries
	return order, nil
}

func (s *orderService) Delete(ctx context.Context, cmd DeleteOrderCommand) error {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return s.mapRepositoryError(err)
	}

	// Cascade removal of the history subcollection happens inside the
	// repository transaction.
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return s.mapRepositoryError(err)
	}

	now := s.now()
	if s.audit != nil {
		s.audit.Record(ctx, AuditLogRecord{
			Actor:     cmd.ActorID,
			ActorType: "staff",
			Action:    "order.delete",
			TargetRef: "/orders/" + orderID,
			Metadata: map[string]any{
				"orderNumber": order.OrderNumber,
				"status":      string(order.Status),
			},
			OccurredAt: now,
		})
	}

	s.publishEvent(ctx, OrderEventMessage{
		Event:       orderEventDeleted,
		OrderID:     orderID,
		OrderNumber: order.OrderNumber,
		ActorID:     cmd.ActorID,
		OccurredAt:  now,
	})

	return nil
}

func (s *orderService) ListByUser(ctx context.Context, userID string, filter MyOrdersFilter) (domain.CursorPage[domain.Order], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[domain.Order]{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	for _, status := range filter.Status {
		if !domain.IsValidOrderStatus(status) {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
		}
	}

	pager := filter.Pagination
	if pager.PageSize <= 0 {
		pager.PageSize = defaultListPageSize
	}
	if pager.PageSize > maxListPageSize {
		pager.PageSize = maxListPageSize
	}

	page, err := s.orders.List(ctx, repositories.OrderListFilter{
		UserID:     userID,
		Status:     filter.Status,
		Pagination: pager,
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) Search(ctx context.Context, filter SearchOrdersFilter) (domain.CursorPage[domain.Order], error) {
	for _, status := range filter.Status {
		if !domain.IsValidOrderStatus(status) {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
		}
	}

	pager := filter.Pagination
	if pager.PageSize <= 0 {
		pager.PageSize = defaultListPageSize
	}
	if pager.PageSize > maxListPageSize {
		pager.PageSize = maxListPageSize
	}

	page, err := s.orders.List(ctx, repositories.OrderListFilter{
		UserID:     strings.TrimSpace(filter.UserID),
		Status:     filter.Status,
		DateRange:  filter.DateRange,
		Pagination: pager,
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) transitionEntry(orderID string, from, to domain.OrderStatus, actorID, note string, now time.Time) domain.OrderHistoryEntry {
	entry := domain.OrderHistoryEntry{
		ID:         orderHistoryPrefix + s.newID(),
		OrderID:    orderID,
		FromStatus: &from,
		ToStatus:   to,
		Note:       strings.TrimSpace(note),
		ChangedAt:  now,
	}
	if actor := strings.TrimSpace(actorID); actor != "" {
		entry.ChangedBy = &actor
	}
	return entry
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}
	return err
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, orderNumberCounter, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%04d-%06d", now.Year(), seq), nil
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) publishEvent(ctx context.Context, message OrderEventMessage) {
	if s.events == nil {
		return
	}
	if message.Metadata != nil {
		message.Metadata = maps.Clone(message.Metadata)
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"event": message.Event,
			"order": message.OrderID,
			"error": err.Error(),
		})
	}
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
