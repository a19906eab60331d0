package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/gophtodo/internal/markdown"
	"github.com/jun/gophtodo/internal/model"
)

// NoteReader reads a single note on behalf of its owner.
type NoteReader interface {
	Get(ctx context.Context, token, itemID string) (model.Note, error)
}

type previewResponse struct {
	HTML string `json:"html"`
}

// PreviewHandler renders a note's description as HTML.
type PreviewHandler struct {
	notes    NoteReader
	renderer *markdown.Renderer
	resp     Responder
}

// NewPreviewHandler creates a PreviewHandler.
func NewPreviewHandler(notes NoteReader, renderer *markdown.Renderer, resp Responder) *PreviewHandler {
	return &PreviewHandler{notes: notes, renderer: renderer, resp: resp}
}

// Preview handles GET /notes/{id}/preview.
func (h *PreviewHandler) Preview(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := BearerToken(req)
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}

	note, err := h.notes.Get(ctx, token, req.PathParameters["id"])
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}
	html, err := h.renderer.Render(note.Description)
	if err != nil {
		return h.resp.Error(ctx, req, err), nil
	}
	return jsonResponse(http.StatusOK, previewResponse{HTML: html}), nil
}
