package store

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jun/gophtodo/internal/apperr"
)

// MemoryStore implements ItemStore in process memory. Items are kept in
// their marshalled DynamoDB form so the attribute semantics match
// DynamoStore exactly. Used by tests and STORE_IN_MEMORY local runs.
type MemoryStore[T any] struct {
	schema Schema

	mu     sync.RWMutex
	owners map[string]map[string]map[string]types.AttributeValue
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore[T any](schema Schema) *MemoryStore[T] {
	return &MemoryStore[T]{
		schema: schema,
		owners: make(map[string]map[string]map[string]types.AttributeValue),
	}
}

func (m *MemoryStore[T]) ListByOwner(_ context.Context, userID string) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := m.owners[userID]
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	// DynamoDB returns a partition in sort key order.
	sort.Strings(ids)

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		var item T
		if err := attributevalue.UnmarshalMap(items[id], &item); err != nil {
			return nil, fmt.Errorf("%w: failed to unmarshal item: %w", apperr.ErrStore, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func (m *MemoryStore[T]) Get(_ context.Context, userID, itemID string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var item T
	av, ok := m.owners[userID][itemID]
	if !ok {
		return item, fmt.Errorf("get %s %q: %w", m.schema.Table, itemID, apperr.ErrNotFound)
	}
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return item, fmt.Errorf("%w: failed to unmarshal item: %w", apperr.ErrStore, err)
	}
	return item, nil
}

func (m *MemoryStore[T]) Create(_ context.Context, item T) (T, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return item, fmt.Errorf("failed to marshal item: %w", err)
	}
	userID, itemID, err := m.schema.keyOf(av)
	if err != nil {
		return item, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.owners[userID] == nil {
		m.owners[userID] = make(map[string]map[string]types.AttributeValue)
	}
	m.owners[userID][itemID] = av
	return item, nil
}

func (m *MemoryStore[T]) Update(_ context.Context, userID, itemID string, patch any) error {
	set, remove, err := m.schema.patchAttributes(patch)
	if err != nil {
		return err
	}
	return m.conditionalUpdate("update", userID, itemID, set, remove)
}

func (m *MemoryStore[T]) SetAttachmentURL(_ context.Context, userID, itemID, url string) error {
	set := map[string]types.AttributeValue{
		AttachmentURLAttribute: &types.AttributeValueMemberS{Value: url},
	}
	return m.conditionalUpdate("set attachment", userID, itemID, set, nil)
}

func (m *MemoryStore[T]) Delete(_ context.Context, userID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.owners[userID][itemID]; !ok {
		return fmt.Errorf("delete %s: %w", m.schema.Table, apperr.ErrNotFound)
	}
	delete(m.owners[userID], itemID)
	return nil
}

func (m *MemoryStore[T]) conditionalUpdate(op, userID, itemID string, set map[string]types.AttributeValue, remove []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.owners[userID][itemID]
	if !ok {
		return fmt.Errorf("%s %s: %w", op, m.schema.Table, apperr.ErrNotFound)
	}

	updated := maps.Clone(existing)
	maps.Copy(updated, set)
	for _, name := range remove {
		delete(updated, name)
	}
	m.owners[userID][itemID] = updated
	return nil
}
