package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/gophtodo/internal/apperr"
)

// header looks up a request header case-insensitively.
func header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// BearerToken extracts the raw token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(req events.APIGatewayProxyRequest) (string, error) {
	authHeader := header(req, "Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("%w: no authorization token found", apperr.ErrUnauthorized)
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", fmt.Errorf("%w: authorization header is not a bearer token", apperr.ErrUnauthorized)
	}
	return token, nil
}

// decodeBody unmarshals the JSON request body into v. Fields v does not
// declare are ignored.
func decodeBody(req events.APIGatewayProxyRequest, v any) error {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return fmt.Errorf("%w: invalid base64 body", apperr.ErrValidation)
		}
		body = string(raw)
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: request body is required", apperr.ErrValidation)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", apperr.ErrValidation, err)
	}
	return nil
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal Server Error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}
