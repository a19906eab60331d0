// Package service implements the item operations shared by every family:
// resolve the caller, then perform one owner-scoped store call.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jun/gophtodo/internal/apperr"
	"github.com/jun/gophtodo/internal/store"
	"github.com/jun/gophtodo/internal/validate"
)

// OwnerResolver maps a bearer token to the id of the user who owns it.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, token string) (string, error)
}

// Linker issues upload slots and derives retrieval URLs for attachments.
type Linker interface {
	IssueUploadSlot(ctx context.Context, itemID string) (string, error)
	RetrievalURL(itemID string) string
	Exists(ctx context.Context, itemID string) (bool, error)
}

// AttachmentMode selects when attachmentUrl is stamped on an item.
type AttachmentMode string

const (
	// AttachOptimistic stamps attachmentUrl as soon as the upload slot is
	// issued, before any upload has happened. The URL is a reservation until
	// the client completes the upload.
	AttachOptimistic AttachmentMode = "optimistic"
	// AttachConfirm stamps attachmentUrl only from ConfirmAttachment, after
	// the uploaded blob has been observed.
	AttachConfirm AttachmentMode = "confirm"
)

type settings struct {
	now   func() time.Time
	newID func() string
	mode  AttachmentMode
}

// Option configures an ItemService.
type Option func(*settings)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithIDGenerator overrides item id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *settings) { s.newID = newID }
}

// WithAttachmentMode selects the attachment stamping mode.
func WithAttachmentMode(mode AttachmentMode) Option {
	return func(s *settings) { s.mode = mode }
}

// ItemService implements create, list, get, update, delete and attachment
// slots for one item family.
type ItemService[T, C, U any] struct {
	family Family[T, C, U]
	owners OwnerResolver
	items  store.ItemStore[T]
	linker Linker
	logger *slog.Logger
	settings
}

// New creates an ItemService for family.
func New[T, C, U any](family Family[T, C, U], owners OwnerResolver, items store.ItemStore[T], linker Linker, logger *slog.Logger, opts ...Option) *ItemService[T, C, U] {
	s := settings{
		now:   time.Now,
		newID: uuid.NewString,
		mode:  AttachOptimistic,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &ItemService[T, C, U]{
		family:   family,
		owners:   owners,
		items:    items,
		linker:   linker,
		logger:   logger.With("family", family.Name),
		settings: s,
	}
}

// Family returns the descriptor the service was built with.
func (s *ItemService[T, C, U]) Family() Family[T, C, U] {
	return s.family
}

// Create stores a new item built from req. The id, owner and createdAt are
// always assigned here and never taken from the client.
func (s *ItemService[T, C, U]) Create(ctx context.Context, token string, req C) (T, error) {
	var zero T
	userID, err := s.owners.ResolveOwner(ctx, token)
	if err != nil {
		return zero, err
	}
	if err := validate.Struct(req); err != nil {
		return zero, err
	}

	itemID := s.newID()
	createdAt := s.now().UTC().Format(time.RFC3339Nano)
	item, err := s.items.Create(ctx, s.family.Build(req, itemID, userID, createdAt))
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", s.family.Name, err)
	}

	s.logger.InfoContext(ctx, "item created", "userId", userID, "itemId", itemID)
	return item, nil
}

// List returns every item owned by the caller.
func (s *ItemService[T, C, U]) List(ctx context.Context, token string) ([]T, error) {
	userID, err := s.owners.ResolveOwner(ctx, token)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.family.Name, err)
	}
	return items, nil
}

// Get returns one item owned by the caller.
func (s *ItemService[T, C, U]) Get(ctx context.Context, token, itemID string) (T, error) {
	var zero T
	userID, err := s.owners.ResolveOwner(ctx, token)
	if err != nil {
		return zero, err
	}
	if err := requireID(itemID); err != nil {
		return zero, err
	}
	item, err := s.items.Get(ctx, userID, itemID)
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", s.family.Name, err)
	}
	return item, nil
}

// Update overwrites the mutable fields of an existing item.
func (s *ItemService[T, C, U]) Update(ctx context.Context, token, itemID string, req U) error {
	userID, err := s.owners.ResolveOwner(ctx, token)
	if err != nil {
		return err
	}
	if err := requireID(itemID); err != nil {
		return err
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	if err := s.items.Update(ctx, userID, itemID, req); err != nil {
		return fmt.Errorf("update %s: %w", s.family.Name, err)
	}

	s.logger.InfoContext(ctx, "item updated", "userId", userID, "itemId", itemID)
	return nil
}

// Delete removes an existing item. Deleting a missing item fails with
// apperr.ErrNotFound.
func (s *ItemService[T, C, U]) Delete(ctx context.Context, token, itemID string) error {
	userID, err := s.owners.ResolveOwner(ctx, token)
	if err != nil {
		return err
	}
	if err := requireID(itemID); err != nil {
		return err
	}
	if err := s.items.Delete(ctx, userID, itemID); err != nil {
		return fmt.Errorf("delete %s: %w", s.family.Name, err)
	}

	s.logger.InfoContext(ctx, "item deleted", "userId", userID, "itemId", itemID)
	return nil
}

// RequestAttachmentSlot issues an upload URL for the item's attachment.
//
// In AttachOptimistic mode the retrieval URL is stamped on the item right
// away, so attachmentUrl is set before any upload happens. If stamping
// fails the issued slot stays unlinked and the store error is returned.
// In AttachConfirm mode the caller must own the item before a slot is issued.
func (s *ItemService[T, C, U]) RequestAttachmentSlot(ctx context.Context, token, itemID string) (string, error) {
	userID, err := s.owners.ResolveOwner(ctx, token)
	if err != nil {
		return "", err
	}
	if err := requireID(itemID); err != nil {
		return "", err
	}
	if s.mode == AttachConfirm {
		if _, err := s.items.Get(ctx, userID, itemID); err != nil {
			return "", fmt.Errorf("attach %s: %w", s.family.Name, err)
		}
	}

	uploadURL, err := s.linker.IssueUploadSlot(ctx, itemID)
	if err != nil {
		return "", fmt.Errorf("attach %s: %w", s.family.Name, err)
	}
	if s.mode != AttachConfirm {
		if err := s.items.SetAttachmentURL(ctx, userID, itemID, s.linker.RetrievalURL(itemID)); err != nil {
			return "", fmt.Errorf("attach %s: %w", s.family.Name, err)
		}
	}

	s.logger.InfoContext(ctx, "attachment slot issued", "userId", userID, "itemId", itemID, "mode", s.mode)
	return uploadURL, nil
}

// ConfirmAttachment is the strict alternative to optimistic stamping: it
// stamps attachmentUrl only once the uploaded blob exists, and returns the
// stamped URL. A blob that was never uploaded is apperr.ErrNotFound.
func (s *ItemService[T, C, U]) ConfirmAttachment(ctx context.Context, token, itemID string) (string, error) {
	userID, err := s.owners.ResolveOwner(ctx, token)
	if err != nil {
		return "", err
	}
	if err := requireID(itemID); err != nil {
		return "", err
	}

	ok, err := s.linker.Exists(ctx, itemID)
	if err != nil {
		return "", fmt.Errorf("confirm %s attachment: %w", s.family.Name, err)
	}
	if !ok {
		return "", fmt.Errorf("confirm %s attachment: blob %q not uploaded: %w", s.family.Name, itemID, apperr.ErrNotFound)
	}

	url := s.linker.RetrievalURL(itemID)
	if err := s.items.SetAttachmentURL(ctx, userID, itemID, url); err != nil {
		return "", fmt.Errorf("confirm %s attachment: %w", s.family.Name, err)
	}

	s.logger.InfoContext(ctx, "attachment confirmed", "userId", userID, "itemId", itemID)
	return url, nil
}

func requireID(itemID string) error {
	if itemID == "" {
		return fmt.Errorf("%w: item id is required", apperr.ErrValidation)
	}
	return nil
}
