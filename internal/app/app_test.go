package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

func TestNewWithoutInfrastructureUsesMemoryStores(t *testing.T) {
	cfg := &config.Config{
		App:   config.AppConfig{Name: "helpdesk-test", Version: "test", RequestTimeoutSeconds: 2},
		Auth:  config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5, BcryptCost: 4},
		Cache: config.CacheConfig{StatsTTLSeconds: 30},
	}
	helpdesk, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer helpdesk.Close()

	if helpdesk.Postgres.Enabled() || helpdesk.Redis.Enabled() {
		t.Fatal("no infrastructure was configured")
	}

	resp, err := helpdesk.HTTP().Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ready, got %d", resp.StatusCode)
	}
}
