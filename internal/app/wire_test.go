package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/jun/gophtodo/internal/config"
	"github.com/jun/gophtodo/internal/secret"
)

type stubSecrets struct {
	value string
	err   error
}

func (s stubSecrets) GetSecret(context.Context, string) (string, error) {
	return s.value, s.err
}

type nopSSM struct{}

func (nopSSM) GetParameter(context.Context, *ssm.GetParameterInput, ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	return nil, errors.New("unused")
}

func TestDefaultConfigReadsSecretFromSSM(t *testing.T) {
	cfg := &config.Config{Environment: config.EnvDevelopment}
	if _, ok := secret.New(cfg.Local(), nopSSM{}).(*secret.SSMResolver); !ok {
		t.Fatal("a deployed config must resolve the JWT secret from SSM")
	}
}

func TestSharedSecret(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	missing := stubSecrets{err: secret.ErrNotFound}

	tests := []struct {
		name    string
		cfg     config.Config
		secrets stubSecrets
		want    string
		wantErr bool
	}{
		{"configured", config.Config{}, stubSecrets{value: "s3cr3t"}, "s3cr3t", false},
		{"missing when deployed", config.Config{Environment: config.EnvDevelopment}, missing, "", true},
		{"missing in production", config.Config{Environment: config.EnvProduction}, missing, "", true},
		{"missing offline", config.Config{Offline: true}, missing, devSecret, false},
		{"missing in memory", config.Config{StoreInMemory: true}, missing, devSecret, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sharedSecret(context.Background(), &tc.cfg, tc.secrets, logger)
			if tc.wantErr {
				if !errors.Is(err, secret.ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %q, %v", got, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("got %q, %v; want %q", got, err, tc.want)
			}
		})
	}
}
