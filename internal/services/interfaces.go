package services

import (
	"context"
	"time"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
)

// OrderEventMessage is the payload emitted for order lifecycle events.
type OrderEventMessage struct {
	Event          string         `json:"event"`
	OrderID        string         `json:"orderId"`
	OrderNumber    string         `json:"orderNumber,omitempty"`
	Status         string         `json:"status,omitempty"`
	PreviousStatus string         `json:"previousStatus,omitempty"`
	ActorID        string         `json:"actorId,omitempty"`
	OccurredAt     time.Time      `json:"occurredAt"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// CreateOrderCommand creates a new order on behalf of checkout collaborators.
type CreateOrderCommand struct {
	UserID   string
	Currency string
	Items    []domain.OrderLineItem
	Status   domain.OrderStatus
	Metadata map[string]any
	ActorID  string
}

// UpdateOrderStatusCommand moves one order to a new status.
type UpdateOrderStatusCommand struct {
	OrderID string
	Status  domain.OrderStatus
	Note    string
	ActorID string
}

// BulkUpdateOrderStatusCommand applies the same target status to many orders.
type BulkUpdateOrderStatusCommand struct {
	OrderIDs []string
	Status   domain.OrderStatus
	Note     string
	ActorID  string
}

// Bulk update outcome tokens.
const (
	BulkResultOK            = "ok"
	BulkResultNotFound      = "not_found"
	BulkResultInvalidStatus = "invalid_status"
	BulkResultFailed        = "failed"
)

// BulkUpdateResult reports the per-order outcome of a bulk status update.
type BulkUpdateResult struct {
	OrderID string
	Result  string
	Message string
}

// OrderStatistics aggregates per-status order counts. Counts come from
// independent queries, not a single snapshot.
type OrderStatistics struct {
	Total    int64
	ByStatus []domain.OrderStatusCount
}

// CancelOrderCommand cancels an order on behalf of its owner.
type CancelOrderCommand struct {
	OrderNumber string
	UserID      string
	Reason      string
}

// DeleteOrderCommand removes an order and its history.
type DeleteOrderCommand struct {
	OrderID string
	ActorID string
}

// MyOrdersFilter narrows the owner-scoped order listing.
type MyOrdersFilter struct {
	Status     []domain.OrderStatus
	Pagination domain.Pagination
}

// SearchOrdersFilter narrows the staff-side order listing. An empty UserID
// searches across all customers.
type SearchOrdersFilter struct {
	UserID     string
	Status     []domain.OrderStatus
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

// OrderService coordinates the order status workflow and its history.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (domain.Order, error)
	BulkUpdateStatus(ctx context.Context, cmd BulkUpdateOrderStatusCommand) ([]BulkUpdateResult, error)
	History(ctx context.Context, orderID string) ([]domain.OrderHistoryEntry, error)
	Statistics(ctx context.Context) (OrderStatistics, error)
	StatusConfig() []domain.OrderStatusInfo
	Cancel(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error)
	GetByNumber(ctx context.Context, userID string, orderNumber string) (domain.Order, error)
	Delete(ctx context.Context, cmd DeleteOrderCommand) error
	ListByUser(ctx context.Context, userID string, filter MyOrdersFilter) (domain.CursorPage[domain.Order], error)
	Search(ctx context.Context, filter SearchOrdersFilter) (domain.CursorPage[domain.Order], error)
}

// UpdateProfileCommand mutates the storefront-visible profile fields.
type UpdateProfileCommand struct {
	UserID      string
	DisplayName string
	Locale      string
}

// UpsertAddressCommand creates or updates a shipping address.
type UpsertAddressCommand struct {
	UserID    string
	AddressID *string
	Address   domain.Address
}

// UserService serves the /me surface: profile, addresses, and wishlist.
type UserService interface {
	GetProfile(ctx context.Context, userID string) (domain.UserProfile, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (domain.UserProfile, error)

	ListAddresses(ctx context.Context, userID string) ([]domain.Address, error)
	UpsertAddress(ctx context.Context, cmd UpsertAddressCommand) (domain.Address, error)
	DeleteAddress(ctx context.Context, userID string, addressID string) error
	SetDefaultAddress(ctx context.Context, userID string, addressID string) (domain.Address, error)

	ListWishlist(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.WishlistItem], error)
	AddWishlistItem(ctx context.Context, userID string, productID string) (domain.WishlistItem, error)
	RemoveWishlistItem(ctx context.Context, userID string, productID string) error
}

// AuditLogRecord captures one audit event before sanitisation.
type AuditLogRecord struct {
	Actor      string
	ActorType  string
	Action     string
	TargetRef  string
	Severity   string
	RequestID  string
	IPAddress  string
	Metadata   map[string]any
	OccurredAt time.Time
}

// AuditLogFilter narrows audit log listings.
type AuditLogFilter struct {
	TargetRef  string
	Actor      string
	Action     string
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

// AuditLogService records and serves the immutable audit trail.
type AuditLogService interface {
	// Record is best-effort: persistence failures are logged, never returned.
	Record(ctx context.Context, record AuditLogRecord)
	List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error)
}
