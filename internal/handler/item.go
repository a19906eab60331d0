package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// Items is the service surface an ItemHandler drives.
type Items[T, C, U any] interface {
	Create(ctx context.Context, token string, req C) (T, error)
	List(ctx context.Context, token string) ([]T, error)
	Get(ctx context.Context, token, itemID string) (T, error)
	Update(ctx context.Context, token, itemID string, req U) error
	Delete(ctx context.Context, token, itemID string) error
	RequestAttachmentSlot(ctx context.Context, token, itemID string) (string, error)
	ConfirmAttachment(ctx context.Context, token, itemID string) (string, error)
}

type itemResponse[T any] struct {
	Item T `json:"item"`
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

type uploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
}

type attachmentResponse struct {
	AttachmentURL string `json:"attachmentUrl"`
}

// ItemHandler serves the routes of one item family. The item id is read
// from PathParameters["id"], which the router fills in.
type ItemHandler[T, C, U any] struct {
	items Items[T, C, U]
	resp  Responder
}

// NewItemHandler creates an ItemHandler.
func NewItemHandler[T, C, U any](items Items[T, C, U], resp Responder) *ItemHandler[T, C, U] {
	return &ItemHandler[T, C, U]{items: items, resp: resp}
}

// Create handles POST /{family}.
func (h *ItemHandler[T, C, U]) Create(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := BearerToken(req)
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}
	var payload C
	if err := decodeBody(req, &payload); err != nil {
		return h.resp.Error(ctx, req, err), nil
	}

	item, err := h.items.Create(ctx, token, payload)
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}
	return jsonResponse(http.StatusCreated, itemResponse[T]{Item: item}), nil
}

// List handles GET /{family}.
func (h *ItemHandler[T, C, U]) List(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := BearerToken(req)
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}

	items, err := h.items.List(ctx, token)
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}
	if items == nil {
		items = []T{}
	}
	return jsonResponse(http.StatusOK, itemsResponse[T]{Items: items}), nil
}

// Get handles GET /{family}/{id}.
func (h *ItemHandler[T, C, U]) Get(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := BearerToken(req)
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}

	item, err := h.items.Get(ctx, token, req.PathParameters["id"])
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}
	return jsonResponse(http.StatusOK, itemResponse[T]{Item: item}), nil
}

// Update handles PUT and PATCH /{family}/{id}. Both replace every mutable
// field of the item.
func (h *ItemHandler[T, C, U]) Update(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := BearerToken(req)
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}
	var payload U
	if err := decodeBody(req, &payload); err != nil {
		return h.resp.Error(ctx, req, err), nil
	}

	if err := h.items.Update(ctx, token, req.PathParameters["id"], payload); err != nil {
		return h.resp.Error(ctx, req, err), nil
	}
	return jsonResponse(http.StatusOK, struct{}{}), nil
}

// Delete handles DELETE /{family}/{id}.
func (h *ItemHandler[T, C, U]) Delete(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := BearerToken(req)
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}

	if err := h.items.Delete(ctx, token, req.PathParameters["id"]); err != nil {
		return h.resp.Error(ctx, req, err), nil
	}
	return jsonResponse(http.StatusOK, struct{}{}), nil
}

// Attach handles POST /{family}/{id}/attachment.
func (h *ItemHandler[T, C, U]) Attach(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := BearerToken(req)
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}

	uploadURL, err := h.items.RequestAttachmentSlot(ctx, token, req.PathParameters["id"])
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}
	return jsonResponse(http.StatusOK, uploadURLResponse{UploadURL: uploadURL}), nil
}

// ConfirmAttachment handles POST /{family}/{id}/attachment/confirm.
func (h *ItemHandler[T, C, U]) ConfirmAttachment(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := BearerToken(req)
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}

	url, err := h.items.ConfirmAttachment(ctx, token, req.PathParameters["id"])
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}
	return jsonResponse(http.StatusOK, attachmentResponse{AttachmentURL: url}), nil
}
