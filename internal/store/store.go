// Package store persists one item family in a table keyed by
// (partition key = owner id, sort key = item id).
package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jun/gophtodo/internal/apperr"
)

// AttachmentURLAttribute is the attribute stamped by SetAttachmentURL.
const AttachmentURLAttribute = "attachmentUrl"

// Schema describes the table layout of an item family.
type Schema struct {
	Table        string
	PartitionKey string
	SortKey      string
	// Mutable lists the attributes Update may overwrite. Everything else
	// (keys, createdAt, attachmentUrl) is left untouched by Update.
	Mutable []string
}

// ItemStore is keyed persistence for one item family. Every method is scoped
// by userID so one owner can never observe or modify another owner's items.
type ItemStore[T any] interface {
	// ListByOwner returns all items of userID in store order; never nil.
	ListByOwner(ctx context.Context, userID string) ([]T, error)

	// Get returns a single item or an error wrapping apperr.ErrNotFound.
	Get(ctx context.Context, userID, itemID string) (T, error)

	// Create inserts item unconditionally and returns it unchanged.
	Create(ctx context.Context, item T) (T, error)

	// Update overwrites the schema's mutable attributes from patch, only if
	// the item exists. patch must marshal to mutable attributes only.
	Update(ctx context.Context, userID, itemID string, patch any) error

	// Delete removes an existing item; a missing item is apperr.ErrNotFound.
	Delete(ctx context.Context, userID, itemID string) error

	// SetAttachmentURL stamps attachmentUrl on an existing item.
	SetAttachmentURL(ctx context.Context, userID, itemID, url string) error
}

func (s Schema) key(userID, itemID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		s.PartitionKey: &types.AttributeValueMemberS{Value: userID},
		s.SortKey:      &types.AttributeValueMemberS{Value: itemID},
	}
}

func (s Schema) isMutable(name string) bool {
	for _, m := range s.Mutable {
		if m == name {
			return true
		}
	}
	return false
}

// keyOf extracts (userID, itemID) from a marshalled item.
func (s Schema) keyOf(av map[string]types.AttributeValue) (string, string, error) {
	userID := stringAttr(av, s.PartitionKey)
	itemID := stringAttr(av, s.SortKey)
	if userID == "" || itemID == "" {
		return "", "", fmt.Errorf("%w: item is missing %s or %s", apperr.ErrValidation, s.PartitionKey, s.SortKey)
	}
	return userID, itemID, nil
}

// patchAttributes splits a patch into the mutable attributes to SET and the
// mutable attributes absent from the patch, which are REMOVEd.
func (s Schema) patchAttributes(patch any) (map[string]types.AttributeValue, []string, error) {
	av, err := attributevalue.MarshalMap(patch)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal patch: %w", err)
	}
	for name := range av {
		if !s.isMutable(name) {
			return nil, nil, fmt.Errorf("%w: attribute %q is not mutable", apperr.ErrValidation, name)
		}
	}

	set := make(map[string]types.AttributeValue, len(av))
	var remove []string
	for _, name := range s.Mutable {
		if v, ok := av[name]; ok {
			set[name] = v
		} else {
			remove = append(remove, name)
		}
	}
	if len(set) == 0 && len(remove) == 0 {
		return nil, nil, fmt.Errorf("%w: empty patch", apperr.ErrValidation)
	}
	return set, remove, nil
}

func stringAttr(av map[string]types.AttributeValue, name string) string {
	if s, ok := av[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}
