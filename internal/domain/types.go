package domain

import "time"

// Pagination carries cursor-based paging inputs shared by repositories.
type Pagination struct {
	PageSize  int
	PageToken string
}

// RangeQuery bounds a filter between optional From/To values.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending marks a freshly placed order awaiting handling.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing marks an order being prepared for shipment.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped marks an order handed to the carrier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusCompleted marks a delivered and closed order.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled marks an order cancelled by its owner or staff.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every valid status token in display order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusCompleted,
		OrderStatusCancelled,
	}
}

// IsValidOrderStatus reports whether the token belongs to the enumerated set.
func IsValidOrderStatus(status OrderStatus) bool {
	switch status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is the persisted order header with its line items.
type Order struct {
	ID          string
	OrderNumber string
	UserID      string
	Status      OrderStatus
	Currency    string
	Total       int64
	Items       []OrderLineItem
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CancelledAt *time.Time

	// History is populated on detail reads only; the authoritative copy lives
	// in the order's history subcollection.
	History []OrderHistoryEntry
}

// OrderLineItem captures one purchased product at checkout time.
type OrderLineItem struct {
	ProductRef string
	SKU        string
	Name       string
	Quantity   int
	UnitPrice  int64
	Total      int64
}

// OrderHistoryEntry documents one status transition. Entries are append-only:
// FromStatus is nil only for the creation record, and the ascending sequence
// of entries reconstructs the order's status timeline exactly.
type OrderHistoryEntry struct {
	ID         string
	OrderID    string
	FromStatus *OrderStatus
	ToStatus   OrderStatus
	ChangedBy  *string
	Note       string
	ChangedAt  time.Time
}

// OrderStatusCount pairs a status token with the number of orders holding it.
type OrderStatusCount struct {
	Status OrderStatus
	Count  int64
}

// OrderStatusInfo describes display metadata for one status token.
type OrderStatusInfo struct {
	Status      OrderStatus
	Label       string
	Color       string
	Cancellable bool
}

// Address is a per-user shipping address. At most one address per user may
// carry IsDefault=true.
type Address struct {
	ID         string
	Label      string
	Recipient  string
	Line1      string
	Line2      *string
	City       string
	State      *string
	PostalCode string
	Country    string
	Phone      *string
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// WishlistItem marks a product saved by a user. Items are unique per
// (user, product).
type WishlistItem struct {
	ProductID string
	AddedAt   time.Time
}

// UserProfile stores the storefront-visible profile for a user.
type UserProfile struct {
	ID          string
	DisplayName string
	Email       string
	Locale      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AuditLogEntry is an immutable audit trail row.
type AuditLogEntry struct {
	Actor     string
	ActorType string
	Action    string
	TargetRef string
	Severity  string
	RequestID string
	IPHash    string
	Metadata  map[string]any
	CreatedAt time.Time
}
