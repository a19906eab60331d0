package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jun/gophtodo/internal/config"
	"github.com/jun/gophtodo/internal/identity"
	"github.com/jun/gophtodo/internal/model"
	"github.com/jun/gophtodo/internal/service"
	"github.com/jun/gophtodo/internal/store"
)

const testSecret = "test-secret"

type fakeLinker struct{}

func (fakeLinker) IssueUploadSlot(_ context.Context, itemID string) (string, error) {
	return "https://b.s3.amazonaws.com/" + itemID + "?X-Amz-Signature=x", nil
}

func (fakeLinker) RetrievalURL(itemID string) string {
	return "https://b.s3.amazonaws.com/" + itemID
}

func (fakeLinker) Exists(context.Context, string) (bool, error) { return false, nil }

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		Environment:     config.EnvDevelopment,
		TodosTable:      "Todos",
		NotesTable:      "Notes",
		AttachmentMode:  config.AttachmentOptimistic,
		CORSAllowOrigin: "*",
	}
	deps := Deps{
		Owners: identity.NewHMACResolver([]byte(testSecret)),
		Todos:  store.NewMemoryStore[model.Todo](service.TodoFamily(cfg.TodosTable).Schema),
		Notes:  store.NewMemoryStore[model.Note](service.NoteFamily(cfg.NotesTable).Schema),
		Linker: fakeLinker{},
	}
	return New(cfg, deps, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func bearer(userID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(testSecret))
	return "Bearer " + signed
}

func call(t *testing.T, app *App, method, path, body string) events.APIGatewayProxyResponse {
	t.Helper()
	resp, err := app.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Body:       body,
		Headers:    map[string]string{"Authorization": bearer("U1")},
	})
	if err != nil {
		t.Fatalf("HandleRequest returned error: %v", err)
	}
	if resp.Headers["Access-Control-Allow-Origin"] != "*" || resp.Headers["Access-Control-Allow-Credentials"] != "true" {
		t.Errorf("%s %s: missing CORS headers: %v", method, path, resp.Headers)
	}
	return resp
}

func TestHandleRequest_Preflight(t *testing.T) {
	resp := call(t, newTestApp(t), http.MethodOptions, "/todos", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
}

func TestHandleRequest_TodoLifecycle(t *testing.T) {
	app := newTestApp(t)

	resp := call(t, app, http.MethodPost, "/api/todos", `{"name":"buy milk","dueDate":"2024-01-01"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", resp.StatusCode, resp.Body)
	}
	var created struct {
		Item model.Todo `json:"item"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	id := created.Item.TodoID

	resp = call(t, app, http.MethodPatch, "/dev/todos/"+id, `{"name":"buy milk","dueDate":"2024-01-02","done":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}

	resp = call(t, app, http.MethodPost, "/todos/"+id+"/attachment", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Body, "uploadUrl") {
		t.Fatalf("attach: expected 200 with uploadUrl, got %d: %s", resp.StatusCode, resp.Body)
	}

	resp = call(t, app, http.MethodGet, "/todos", "")
	var list struct {
		Items []model.Todo `json:"items"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(list.Items))
	}
	got := list.Items[0]
	if !got.Done || got.DueDate != "2024-01-02" || got.AttachmentURL != "https://b.s3.amazonaws.com/"+id {
		t.Errorf("unexpected todo: %+v", got)
	}

	resp = call(t, app, http.MethodPost, "/todos/"+id+"/attachment/confirm", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("confirm without upload: expected 404, got %d", resp.StatusCode)
	}

	if resp = call(t, app, http.MethodDelete, "/todos/"+id, ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	if resp = call(t, app, http.MethodDelete, "/todos/"+id, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestHandleRequest_NotePreview(t *testing.T) {
	app := newTestApp(t)

	resp := call(t, app, http.MethodPost, "/notes", `{"name":"plan","description":"**bold**"}`)
	var created struct {
		Item model.Note `json:"item"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	resp = call(t, app, http.MethodGet, "/notes/"+created.Item.NoteID+"/preview", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	var out struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(out.HTML, "<strong>bold</strong>") {
		t.Errorf("unexpected html %q", out.HTML)
	}

	if resp = call(t, app, http.MethodGet, "/todos/x/preview", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("todo preview: expected 404, got %d", resp.StatusCode)
	}
}

func TestHandleRequest_Unrouted(t *testing.T) {
	app := newTestApp(t)
	tests := []struct{ method, path string }{
		{http.MethodGet, "/"},
		{http.MethodGet, "/tasks"},
		{http.MethodPut, "/todos"},
		{http.MethodGet, "/todos/a/b/c/d"},
		{http.MethodGet, "/apitodos"},
	}
	for _, tc := range tests {
		resp := call(t, app, tc.method, tc.path, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, resp.StatusCode)
		}
		if resp.Headers["Content-Type"] != "application/json" {
			t.Errorf("%s %s: expected JSON error body", tc.method, tc.path)
		}
	}
}

func TestHandleRequest_Unauthorized(t *testing.T) {
	app := newTestApp(t)
	resp, _ := app.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/notes",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
	if resp.Headers["Access-Control-Allow-Origin"] != "*" {
		t.Error("error responses must carry CORS headers")
	}
}

func TestStripStage(t *testing.T) {
	tests := map[string]string{
		"/api/todos":   "/todos",
		"/dev/notes/1": "/notes/1",
		"/api":         "",
		"/todos":       "/todos",
		"/apitodos":    "/apitodos",
	}
	for in, want := range tests {
		if got := stripStage(in); got != want {
			t.Errorf("stripStage(%q) = %q, want %q", in, got, want)
		}
	}
}
