package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	pfirestore "github.com/pxa264/e-shop-sub001/internal/platform/firestore"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
)

// Registry wires every Firestore repository behind the repositories.Registry interface.
type Registry struct {
	provider *pfirestore.Provider

	orders    *OrderRepository
	history   *OrderHistoryRepository
	users     *UserRepository
	addresses *AddressRepository
	wishlist  *WishlistRepository
	auditLogs *AuditLogRepository
	counters  *CounterRepository
	health    *healthRepository
}

// NewRegistry constructs the registry and all repositories on a shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	history, err := NewOrderHistoryRepository(provider)
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, err
	}
	addresses, err := NewAddressRepository(provider)
	if err != nil {
		return nil, err
	}
	wishlist, err := NewWishlistRepository(provider)
	if err != nil {
		return nil, err
	}
	auditLogs, err := NewAuditLogRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:  provider,
		orders:    orders,
		history:   history,
		users:     users,
		addresses: addresses,
		wishlist:  wishlist,
		auditLogs: auditLogs,
		counters:  counters,
		health:    &healthRepository{provider: provider},
	}, nil
}

// Close releases the shared Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// RunInTx executes fn inside one Firestore transaction. Repository reads and
// writes issued through the callback context join the transaction.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry not initialised")
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(pfirestore.WithTx(ctx, tx))
	})
}

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// OrderHistory returns the order history repository.
func (r *Registry) OrderHistory() repositories.OrderHistoryRepository { return r.history }

// Users returns the user repository.
func (r *Registry) Users() repositories.UserRepository { return r.users }

// Addresses returns the address repository.
func (r *Registry) Addresses() repositories.AddressRepository { return r.addresses }

// Wishlist returns the wishlist repository.
func (r *Registry) Wishlist() repositories.WishlistRepository { return r.wishlist }

// AuditLogs returns the audit log repository.
func (r *Registry) AuditLogs() repositories.AuditLogRepository { return r.auditLogs }

// Counters returns the counter repository.
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

// Health returns the health repository.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

type healthRepository struct {
	provider *pfirestore.Provider
}

// Ping issues a minimal read to verify Firestore connectivity.
func (h *healthRepository) Ping(ctx context.Context) error {
	if h == nil || h.provider == nil {
		return errors.New("health repository not initialised")
	}
	client, err := h.provider.Client(ctx)
	if err != nil {
		return err
	}

	iter := client.Collection(countersCollection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return pfirestore.WrapError("health.ping", err)
	}
	return nil
}

// Ensure interface compliance.
var _ repositories.Registry = (*Registry)(nil)
