package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	pfirestore "github.com/pxa264/e-shop-sub001/internal/platform/firestore"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
)

// OrderHistoryRepository stores status timeline entries under each order.
// The collection is append-only; removal happens only through the parent
// order's cascading delete.
type OrderHistoryRepository struct {
	provider *pfirestore.Provider
}

// NewOrderHistoryRepository constructs a Firestore-backed history repository.
func NewOrderHistoryRepository(provider *pfirestore.Provider) (*OrderHistoryRepository, error) {
	if provider == nil {
		return nil, errors.New("order history repository requires firestore provider")
	}
	return &OrderHistoryRepository{provider: provider}, nil
}

// Append writes one timeline entry. Inside a unit of work the write joins the
// ambient transaction so a status change and its record commit together.
func (r *OrderHistoryRepository) Append(ctx context.Context, entry domain.OrderHistoryEntry) error {
	coll, err := r.collection(ctx, entry.OrderID)
	if err != nil {
		return err
	}

	var ref *firestore.DocumentRef
	if id := strings.TrimSpace(entry.ID); id != "" {
		ref = coll.Doc(id)
	} else {
		ref = coll.NewDoc()
	}

	doc := orderHistoryDocument{
		ToStatus:  string(entry.ToStatus),
		Note:      entry.Note,
		ChangedAt: entry.ChangedAt.UTC(),
	}
	if entry.FromStatus != nil {
		from := string(*entry.FromStatus)
		doc.FromStatus = &from
	}
	if entry.ChangedBy != nil {
		changedBy := strings.TrimSpace(*entry.ChangedBy)
		if changedBy != "" {
			doc.ChangedBy = &changedBy
		}
	}

	if tx, ok := pfirestore.TxFromContext(ctx); ok {
		return pfirestore.WrapError("orderHistory.append", tx.Create(ref, doc))
	}
	_, err = ref.Create(ctx, doc)
	return pfirestore.WrapError("orderHistory.append", err)
}

// ListByOrder returns the timeline in ascending changedAt order.
func (r *OrderHistoryRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderHistoryEntry, error) {
	coll, err := r.collection(ctx, orderID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy("changedAt", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var entries []domain.OrderHistoryEntry
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("orderHistory.list", err)
		}

		var doc orderHistoryDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode order history %s: %w", snap.Ref.ID, err)
		}

		entry := domain.OrderHistoryEntry{
			ID:        snap.Ref.ID,
			OrderID:   orderID,
			ToStatus:  domain.OrderStatus(doc.ToStatus),
			Note:      doc.Note,
			ChangedAt: doc.ChangedAt,
		}
		if doc.FromStatus != nil {
			from := domain.OrderStatus(*doc.FromStatus)
			entry.FromStatus = &from
		}
		if doc.ChangedBy != nil {
			changedBy := *doc.ChangedBy
			entry.ChangedBy = &changedBy
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *OrderHistoryRepository) collection(ctx context.Context, orderID string) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("order history repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, errors.New("order history repository: order id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(ordersCollection).Doc(id).Collection(orderHistorySubcol), nil
}

type orderHistoryDocument struct {
	FromStatus *string   `firestore:"fromStatus,omitempty"`
	ToStatus   string    `firestore:"toStatus"`
	ChangedBy  *string   `firestore:"changedBy,omitempty"`
	Note       string    `firestore:"note,omitempty"`
	ChangedAt  time.Time `firestore:"changedAt"`
}

// Ensure interface compliance.
var _ repositories.OrderHistoryRepository = (*OrderHistoryRepository)(nil)
