package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/gophtodo/internal/apperr"
	"github.com/jun/gophtodo/internal/config"
	"github.com/jun/gophtodo/internal/handler"
	"github.com/jun/gophtodo/internal/markdown"
	"github.com/jun/gophtodo/internal/model"
	"github.com/jun/gophtodo/internal/service"
	"github.com/jun/gophtodo/internal/store"
)

// stagePrefixes are stripped from the request path before routing
// (CloudFront /api proxying, API Gateway /dev stage).
var stagePrefixes = []string{"/api", "/dev"}

// Deps are the collaborators App is assembled from.
type Deps struct {
	Owners service.OwnerResolver
	Todos  store.ItemStore[model.Todo]
	Notes  store.ItemStore[model.Note]
	Linker service.Linker
}

// routes is the handler surface shared by every item family.
type routes interface {
	Create(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
	List(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
	Get(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
	Update(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
	Delete(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
	Attach(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
	ConfirmAttachment(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
}

// App holds the dependencies for the Lambda function.
type App struct {
	families   map[string]routes
	preview    *handler.PreviewHandler
	resp       handler.Responder
	corsOrigin string
	logger     *slog.Logger
}

// New assembles the application from already constructed collaborators.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *App {
	opts := []service.Option{service.WithAttachmentMode(service.AttachmentMode(cfg.AttachmentMode))}
	resp := handler.NewResponder(logger, !cfg.IsProduction())

	todoFamily := service.TodoFamily(cfg.TodosTable)
	todoService := service.New(todoFamily, deps.Owners, deps.Todos, deps.Linker, logger, opts...)

	noteFamily := service.NoteFamily(cfg.NotesTable)
	noteService := service.New(noteFamily, deps.Owners, deps.Notes, deps.Linker, logger, opts...)

	return &App{
		families: map[string]routes{
			"todos": handler.NewItemHandler[model.Todo, model.CreateTodoRequest, model.UpdateTodoRequest](todoService, resp),
			"notes": handler.NewItemHandler[model.Note, model.CreateNoteRequest, model.UpdateNoteRequest](noteService, resp),
		},
		preview:    handler.NewPreviewHandler(noteService, markdown.NewRenderer(), resp),
		resp:       resp,
		corsOrigin: cfg.CORSAllowOrigin,
		logger:     logger,
	}
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()

	var resp events.APIGatewayProxyResponse
	if req.HTTPMethod == http.MethodOptions {
		resp = events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}
	} else {
		resp = app.route(ctx, req)
	}

	app.logger.InfoContext(ctx, "request",
		"method", req.HTTPMethod,
		"path", req.Path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return app.corsResponse(resp), nil
}

func (app *App) route(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	path := stripStage(req.Path)
	parts := strings.Split(strings.Trim(path, "/"), "/")
	method := req.HTTPMethod

	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}

	h, ok := app.families[parts[0]]
	if ok {
		if len(parts) > 1 {
			req.PathParameters["id"] = parts[1]
		}

		switch {
		case len(parts) == 1 && method == http.MethodGet:
			return must(h.List(ctx, req))
		case len(parts) == 1 && method == http.MethodPost:
			return must(h.Create(ctx, req))
		case len(parts) == 2 && method == http.MethodGet:
			return must(h.Get(ctx, req))
		case len(parts) == 2 && (method == http.MethodPut || method == http.MethodPatch):
			return must(h.Update(ctx, req))
		case len(parts) == 2 && method == http.MethodDelete:
			return must(h.Delete(ctx, req))
		case len(parts) == 3 && parts[2] == "attachment" && method == http.MethodPost:
			return must(h.Attach(ctx, req))
		case len(parts) == 4 && parts[2] == "attachment" && parts[3] == "confirm" && method == http.MethodPost:
			return must(h.ConfirmAttachment(ctx, req))
		case len(parts) == 3 && parts[0] == "notes" && parts[2] == "preview" && method == http.MethodGet:
			return must(app.preview.Preview(ctx, req))
		}
	}

	return app.resp.Error(ctx, req, fmt.Errorf("%w: no route for %s %s", apperr.ErrNotFound, method, path))
}

// stripStage removes a leading stage prefix such as /api from path.
func stripStage(path string) string {
	for _, prefix := range stagePrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return strings.TrimPrefix(path, prefix)
		}
	}
	return path
}

// corsResponse adds CORS headers to an API Gateway response.
func (app *App) corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = app.corsOrigin
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response. Handlers report failures in the
// response itself, so an error here is unexpected.
func must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"error":"Internal Server Error"}`,
			Headers:    map[string]string{"Content-Type": "application/json"},
		}
	}
	return resp
}
