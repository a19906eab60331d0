package secret

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSMClient struct {
	params map[string]string
	calls  int
}

func (f *fakeSSMClient) GetParameter(_ context.Context, input *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	if !aws.ToBool(input.WithDecryption) {
		return nil, errors.New("SecureString read without decryption")
	}
	val, ok := f.params[*input.Name]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("parameter not found")}
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{Name: input.Name, Value: aws.String(val)},
	}, nil
}

func TestSSMResolver_GetSecret(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{
		"/gophtodo/jwt-secret": "super-secret-value",
		"/gophtodo/empty":      "",
	}}
	resolver := NewSSMResolver(client)
	ctx := context.Background()

	val, err := resolver.GetSecret(ctx, "/gophtodo/jwt-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "super-secret-value" {
		t.Fatalf("expected %q, got %q", "super-secret-value", val)
	}

	if _, err := resolver.GetSecret(ctx, "/gophtodo/nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing parameter: expected ErrNotFound, got %v", err)
	}
	if _, err := resolver.GetSecret(ctx, "/gophtodo/empty"); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty parameter: expected ErrNotFound, got %v", err)
	}
}

func TestEnvResolver_GetSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret-value")
	resolver := NewEnvResolver()

	val, err := resolver.GetSecret(context.Background(), "/gophtodo/jwt-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "env-secret-value" {
		t.Fatalf("expected %q, got %q", "env-secret-value", val)
	}

	if _, err := resolver.GetSecret(context.Background(), "/gophtodo/nonexistent-secret"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing env var, got %v", err)
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{"/gophtodo/jwt-secret": "from-ssm"}}
	t.Setenv("JWT_SECRET", "from-env")

	if v, _ := New(true, client).GetSecret(context.Background(), "/gophtodo/jwt-secret"); v != "from-env" {
		t.Errorf("local: expected env value, got %q", v)
	}
	if v, _ := New(false, client).GetSecret(context.Background(), "/gophtodo/jwt-secret"); v != "from-ssm" {
		t.Errorf("managed: expected SSM value, got %q", v)
	}
	if client.calls != 1 {
		t.Errorf("expected exactly one SSM call, got %d", client.calls)
	}
}

func TestParamNameToEnvVar(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/gophtodo/jwt-secret", "JWT_SECRET"},
		{"/gophtodo/prod/auth0-client-secret", "AUTH0_CLIENT_SECRET"},
		{"plain-name", "PLAIN_NAME"},
	}

	for _, tc := range tests {
		if got := paramNameToEnvVar(tc.input); got != tc.expected {
			t.Errorf("paramNameToEnvVar(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}
