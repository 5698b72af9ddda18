package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/principalgrid/billing/internal/clock"
	usagedomain "github.com/principalgrid/billing/internal/usage/domain"
)

type usageServiceStub struct {
	spendAccount string
	spendNow     time.Time
}

func (u *usageServiceStub) RecordUsage(ctx context.Context, req usagedomain.RecordUsageRequest) error {
	return nil
}

func (u *usageServiceStub) List(ctx context.Context, req usagedomain.ListUsageRequest) ([]usagedomain.UsageRecord, error) {
	return nil, nil
}

func (u *usageServiceStub) MonthlySpend(ctx context.Context, accountID string, now time.Time) (int64, error) {
	u.spendAccount = accountID
	u.spendNow = now
	return 12_000_000, nil
}

func TestMonthlySpendUsesInjectedClock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	frozen := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	stub := &usageServiceStub{}
	srv := &Server{
		engine:   gin.New(),
		clock:    clock.NewFakeClock(frozen),
		usageSvc: stub,
	}
	srv.RegisterRoutes()

	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/usage/monthly-spend?account_id=100", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.spendAccount != "100" {
		t.Fatalf("wrong account %q", stub.spendAccount)
	}
	if !stub.spendNow.Equal(frozen) {
		t.Fatalf("expected the frozen clock time, got %v", stub.spendNow)
	}
}
