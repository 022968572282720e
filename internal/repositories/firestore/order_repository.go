package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"

	domain "github.com/pxa264/e-shop-sub001/internal/domain"
	pfirestore "github.com/pxa264/e-shop-sub001/internal/platform/firestore"
	"github.com/pxa264/e-shop-sub001/internal/repositories"
)

const (
	ordersCollection         = "orders"
	orderHistorySubcol       = "history"
	orderCascadeDeleteBatch  = 300
	orderNumberField         = "orderNumber"
	orderStatusField         = "status"
	orderUserField           = "userId"
	orderCreatedAtField      = "createdAt"
	orderAggregationCountKey = "count"
)

// OrderRepository persists order headers in the orders collection.
type OrderRepository struct {
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{provider: provider}, nil
}

// Insert creates the order document; an existing ID yields a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	ref, err := r.doc(ctx, order.ID)
	if err != nil {
		return err
	}
	doc := encodeOrderDocument(order)
	if tx, ok := pfirestore.TxFromContext(ctx); ok {
		return pfirestore.WrapError("orders.insert", tx.Create(ref, doc))
	}
	_, err = ref.Create(ctx, doc)
	return pfirestore.WrapError("orders.insert", err)
}

// Update overwrites the order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	ref, err := r.doc(ctx, order.ID)
	if err != nil {
		return err
	}
	doc := encodeOrderDocument(order)
	if tx, ok := pfirestore.TxFromContext(ctx); ok {
		return pfirestore.WrapError("orders.update", tx.Set(ref, doc))
	}
	_, err = ref.Set(ctx, doc)
	return pfirestore.WrapError("orders.update", err)
}

// FindByID loads a single order; inside a unit of work the read joins the transaction.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	ref, err := r.doc(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	var snap *firestore.DocumentSnapshot
	if tx, ok := pfirestore.TxFromContext(ctx); ok {
		snap, err = tx.Get(ref)
	} else {
		snap, err = ref.Get(ctx)
	}
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.findById", err)
	}
	return decodeOrderDocument(snap)
}

// FindByNumber resolves an order by its human-readable number.
func (r *OrderRepository) FindByNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	number := strings.TrimSpace(orderNumber)
	if number == "" {
		return domain.Order{}, errors.New("order repository: order number is required")
	}

	iter := coll.Where(orderNumberField, "==", number).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.Order{}, pfirestore.NotFoundError("orders.findByNumber", fmt.Errorf("order %s not found", number))
	}
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.findByNumber", err)
	}
	return decodeOrderDocument(snap)
}

// List returns orders matching the filter, newest first, with cursor paging.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	query := coll.Query
	if uid := strings.TrimSpace(filter.UserID); uid != "" {
		query = query.Where(orderUserField, "==", uid)
	}
	if len(filter.Status) > 0 {
		tokens := make([]string, 0, len(filter.Status))
		for _, st := range filter.Status {
			tokens = append(tokens, string(st))
		}
		query = query.Where(orderStatusField, "in", tokens)
	}
	if filter.DateRange.From != nil {
		query = query.Where(orderCreatedAtField, ">=", filter.DateRange.From.UTC())
	}
	if filter.DateRange.To != nil {
		query = query.Where(orderCreatedAtField, "<", filter.DateRange.To.UTC())
	}

	query = query.OrderBy(orderCreatedAtField, firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	var fetchLimit int
	if limit > 0 {
		fetchLimit = limit + 1
		query = query.Limit(fetchLimit)
	}

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeOrderToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("orders.list: invalid page token: %w", err)
		}
		query = query.StartAfter(tokenTime, tokenID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var items []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		order, err := decodeOrderDocument(snap)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		items = append(items, order)
	}

	nextToken := ""
	if limit > 0 && len(items) == fetchLimit {
		last := items[len(items)-1]
		nextToken = encodeOrderToken(last.CreatedAt, last.ID)
		items = items[:len(items)-1]
	}

	return domain.CursorPage[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

// CountByStatus runs an aggregate count query for a single status token.
func (r *OrderRepository) CountByStatus(ctx context.Context, status domain.OrderStatus) (int64, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return 0, err
	}

	query := coll.Where(orderStatusField, "==", string(status))
	results, err := query.NewAggregationQuery().WithCount(orderAggregationCountKey).Get(ctx)
	if err != nil {
		return 0, pfirestore.WrapError("orders.countByStatus", err)
	}

	raw, ok := results[orderAggregationCountKey]
	if !ok {
		return 0, errors.New("orders.countByStatus: aggregation result missing")
	}
	value, ok := raw.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("orders.countByStatus: unexpected aggregation type %T", raw)
	}
	return value.GetIntegerValue(), nil
}

// Delete removes the order and every history entry in one transaction.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	ref, err := r.doc(ctx, orderID)
	if err != nil {
		return err
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}

		// Transactions require all reads before writes, so the history
		// subcollection is paged to exhaustion first and deleted afterwards.
		var historyRefs []*firestore.DocumentRef
		historyQuery := ref.Collection(orderHistorySubcol).
			OrderBy(firestore.DocumentID, firestore.Asc).
			Limit(orderCascadeDeleteBatch)
		cursor := ""
		for {
			query := historyQuery
			if cursor != "" {
				query = query.StartAfter(cursor)
			}
			snaps, err := tx.Documents(query).GetAll()
			if err != nil {
				return err
			}
			for _, snap := range snaps {
				historyRefs = append(historyRefs, snap.Ref)
			}
			if len(snaps) < orderCascadeDeleteBatch {
				break
			}
			cursor = snaps[len(snaps)-1].Ref.ID
		}

		for _, historyRef := range historyRefs {
			if err := tx.Delete(historyRef); err != nil {
				return err
			}
		}
		return tx.Delete(ref)
	})
	return pfirestore.WrapError("orders.delete", err)
}

func (r *OrderRepository) collection(ctx context.Context) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("order repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(ordersCollection), nil
}

func (r *OrderRepository) doc(ctx context.Context, orderID string) (*firestore.DocumentRef, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, errors.New("order repository: order id is required")
	}
	return coll.Doc(id), nil
}

type orderDocument struct {
	OrderNumber string                  `firestore:"orderNumber"`
	UserID      string                  `firestore:"userId"`
	Status      string                  `firestore:"status"`
	Currency    string                  `firestore:"currency,omitempty"`
	Total       int64                   `firestore:"total"`
	Items       []orderLineItemDocument `firestore:"items,omitempty"`
	Metadata    map[string]any          `firestore:"metadata,omitempty"`
	CreatedAt   time.Time               `firestore:"createdAt"`
	UpdatedAt   time.Time               `firestore:"updatedAt"`
	CancelledAt *time.Time              `firestore:"cancelledAt,omitempty"`
}

type orderLineItemDocument struct {
	ProductRef string `firestore:"productRef"`
	SKU        string `firestore:"sku,omitempty"`
	Name       string `firestore:"name"`
	Quantity   int    `firestore:"quantity"`
	UnitPrice  int64  `firestore:"unitPrice"`
	Total      int64  `firestore:"total"`
}

func encodeOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		Currency:    order.Currency,
		Total:       order.Total,
		Metadata:    order.Metadata,
		CreatedAt:   order.CreatedAt.UTC(),
		UpdatedAt:   order.UpdatedAt.UTC(),
	}
	if order.CancelledAt != nil {
		cancelled := order.CancelledAt.UTC()
		doc.CancelledAt = &cancelled
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderLineItemDocument{
			ProductRef: item.ProductRef,
			SKU:        item.SKU,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Total:      item.Total,
		})
	}
	return doc
}

func decodeOrderDocument(snap *firestore.DocumentSnapshot) (domain.Order, error) {
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
	}

	order := domain.Order{
		ID:          snap.Ref.ID,
		OrderNumber: doc.OrderNumber,
		UserID:      doc.UserID,
		Status:      domain.OrderStatus(doc.Status),
		Currency:    doc.Currency,
		Total:       doc.Total,
		Metadata:    doc.Metadata,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		CancelledAt: doc.CancelledAt,
	}
	for _, item := range doc.Items {
		order.Items = append(order.Items, domain.OrderLineItem{
			ProductRef: item.ProductRef,
			SKU:        item.SKU,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Total:      item.Total,
		})
	}
	return order, nil
}

func encodeOrderToken(createdAt time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", createdAt.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeOrderToken(token string) (time.Time, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("invalid token format")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return ts, parts[1], nil
}

// Ensure interface compliance.
var _ repositories.OrderRepository = (*OrderRepository)(nil)
