package repositories

import (
	"context"
	"time"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	OrderHistory() OrderHistoryRepository
	Users() UserRepository
	Addresses() AddressRepository
	Wishlist() WishlistRepository
	AuditLogs() AuditLogRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork groups repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists order headers and provides query helpers for users and admins.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	CountByStatus(ctx context.Context, status domain.OrderStatus) (int64, error)
	// Delete removes the order together with its history subcollection in one
	// transaction. Cascade semantics are explicit here rather than delegated
	// to storage-level relation behaviour.
	Delete(ctx context.Context, orderID string) error
}

// OrderHistoryRepository stores the append-only status timeline for an order.
// No update operation exists; entries are removed only by the parent order's
// cascading delete.
type OrderHistoryRepository interface {
	Append(ctx context.Context, entry domain.OrderHistoryEntry) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.OrderHistoryEntry, error)
}

// UserRepository stores storefront user profiles.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.UserProfile, error)
	UpdateProfile(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error)
}

// AddressRepository stores shipping addresses per user. SetDefault must clear
// the flag on every other address of the same user atomically.
type AddressRepository interface {
	List(ctx context.Context, userID string) ([]domain.Address, error)
	Get(ctx context.Context, userID string, addressID string) (domain.Address, error)
	Upsert(ctx context.Context, userID string, addressID *string, addr domain.Address) (domain.Address, error)
	Delete(ctx context.Context, userID string, addressID string) error
	SetDefault(ctx context.Context, userID string, addressID string) (domain.Address, error)
}

// WishlistRepository tracks saved products per user with (user, product)
// uniqueness enforced transactionally.
type WishlistRepository interface {
	List(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.WishlistItem], error)
	// Put stores the item and reports whether it was created; false means the
	// product was already on the list.
	Put(ctx context.Context, userID string, productID string, addedAt time.Time) (bool, error)
	Delete(ctx context.Context, userID string, productID string) error
}

// AuditLogRepository persists immutable audit trail entries.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Ping(ctx context.Context) error
}

// OrderListFilter narrows order listings for both user and staff surfaces.
type OrderListFilter struct {
	UserID     string
	Status     []domain.OrderStatus
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

// AuditLogFilter narrows audit log listings for the dashboard surface.
type AuditLogFilter struct {
	TargetRef  string
	Actor      string
	Action     string
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}
