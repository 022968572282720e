package firestore

import (
	"context"
	"encoding/base64"
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

const auditLogsCollection = "auditLogs"

// AuditLogRepository persists immutable audit trail entries.
type AuditLogRepository struct {
	provider *pfirestore.Provider
}

// NewAuditLogRepository constructs a Firestore-backed audit log repository.
func NewAuditLogRepository(provider *pfirestore.Provider) (*AuditLogRepository, error) {
	if provider == nil {
		return nil, errors.New("audit log repository requires firestore provider")
	}
	return &AuditLogRepository{provider: provider}, nil
}

// Append writes one audit entry. Entries are never updated or deleted.
func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	doc := auditLogDocument{
		Actor:     entry.Actor,
		ActorType: entry.ActorType,
		Action:    entry.Action,
		TargetRef: entry.TargetRef,
		Severity:  entry.Severity,
		RequestID: entry.RequestID,
		IPHash:    entry.IPHash,
		Metadata:  entry.Metadata,
		CreatedAt: entry.CreatedAt.UTC(),
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if _, err := coll.NewDoc().Create(ctx, doc); err != nil {
		return pfirestore.WrapError("auditLogs.append", err)
	}
	return nil
}

// List returns audit entries matching the filter, newest first.
func (r *AuditLogRepository) List(ctx context.Context, filter repositories.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.CursorPage[domain.AuditLogEntry]{}, err
	}

	query := coll.Query
	if target := strings.TrimSpace(filter.TargetRef); target != "" {
		query = query.Where("targetRef", "==", target)
	}
	if actor := strings.TrimSpace(filter.Actor); actor != "" {
		query = query.Where("actor", "==", actor)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		query = query.Where("action", "==", action)
	}
	if filter.DateRange.From != nil {
		query = query.Where("createdAt", ">=", filter.DateRange.From.UTC())
	}
	if filter.DateRange.To != nil {
		query = query.Where("createdAt", "<", filter.DateRange.To.UTC())
	}

	query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)

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
		tokenTime, tokenID, err := decodeAuditLogToken(token)
		if err != nil {
			return domain.CursorPage[domain.AuditLogEntry]{}, fmt.Errorf("auditLogs.list: invalid page token: %w", err)
		}
		query = query.StartAfter(tokenTime, tokenID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	type auditRow struct {
		entry domain.AuditLogEntry
		docID string
	}

	var rows []auditRow
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.AuditLogEntry]{}, pfirestore.WrapError("auditLogs.list", err)
		}
		var doc auditLogDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.AuditLogEntry]{}, fmt.Errorf("decode audit log %s: %w", snap.Ref.ID, err)
		}
		rows = append(rows, auditRow{entry: doc.toDomain(), docID: snap.Ref.ID})
	}

	nextToken := ""
	if limit > 0 && len(rows) == fetchLimit {
		last := rows[len(rows)-1]
		nextToken = encodeAuditLogToken(last.entry.CreatedAt, last.docID)
		rows = rows[:len(rows)-1]
	}

	items := make([]domain.AuditLogEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.entry)
	}

	return domain.CursorPage[domain.AuditLogEntry]{Items: items, NextPageToken: nextToken}, nil
}

func (r *AuditLogRepository) collection(ctx context.Context) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("audit log repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(auditLogsCollection), nil
}

type auditLogDocument struct {
	Actor     string         `firestore:"actor"`
	ActorType string         `firestore:"actorType,omitempty"`
	Action    string         `firestore:"action"`
	TargetRef string         `firestore:"targetRef,omitempty"`
	Severity  string         `firestore:"severity,omitempty"`
	RequestID string         `firestore:"requestId,omitempty"`
	IPHash    string         `firestore:"ipHash,omitempty"`
	Metadata  map[string]any `firestore:"metadata,omitempty"`
	CreatedAt time.Time      `firestore:"createdAt"`
}

func (d auditLogDocument) toDomain() domain.AuditLogEntry {
	return domain.AuditLogEntry{
		Actor:     d.Actor,
		ActorType: d.ActorType,
		Action:    d.Action,
		TargetRef: d.TargetRef,
		Severity:  d.Severity,
		RequestID: d.RequestID,
		IPHash:    d.IPHash,
		Metadata:  d.Metadata,
		CreatedAt: d.CreatedAt,
	}
}

func encodeAuditLogToken(createdAt time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", createdAt.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeAuditLogToken(token string) (time.Time, string, error) {
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
var _ repositories.AuditLogRepository = (*AuditLogRepository)(nil)
