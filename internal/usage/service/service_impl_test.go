package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	fundingdomain "github.com/principalgrid/billing/internal/funding/domain"
	"github.com/principalgrid/billing/internal/ledger"
	usagedomain "github.com/principalgrid/billing/internal/usage/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type debitCall struct {
	account ledger.ID
	amount  int64
}

type ledgerStub struct {
	mu       sync.Mutex
	debits   []debitCall
	debitErr error
}

func (l *ledgerStub) CreateAccount(ctx context.Context, id ledger.ID) error { return nil }

func (l *ledgerStub) LookupAccount(ctx context.Context, id ledger.ID) (*ledger.Account, error) {
	return &ledger.Account{ID: id}, nil
}

func (l *ledgerStub) LookupAccounts(ctx context.Context, ids []ledger.ID) ([]ledger.Account, error) {
	return nil, nil
}

func (l *ledgerStub) Reserve(ctx context.Context, debitAccount ledger.ID, amount int64, timeoutSeconds int64, code ledger.Code) (ledger.ID, error) {
	return ledger.ID{}, nil
}

func (l *ledgerStub) Post(ctx context.Context, pendingID ledger.ID, amount int64) error { return nil }
func (l *ledgerStub) Void(ctx context.Context, pendingID ledger.ID) error               { return nil }

func (l *ledgerStub) Debit(ctx context.Context, account ledger.ID, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.debitErr != nil {
		return l.debitErr
	}
	l.debits = append(l.debits, debitCall{account: account, amount: amount})
	return nil
}

func (l *ledgerStub) Fund(ctx context.Context, account ledger.ID, amount int64) error { return nil }

func (l *ledgerStub) Transfer(ctx context.Context, from ledger.ID, to ledger.ID, amount int64) error {
	return nil
}

func (l *ledgerStub) Bootstrap(ctx context.Context) error { return nil }

func (l *ledgerStub) debitCalls() []debitCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]debitCall(nil), l.debits...)
}

type fundingStub struct {
	reloads chan string
}

func newFundingStub() *fundingStub {
	return &fundingStub{reloads: make(chan string, 8)}
}

func (f *fundingStub) EnsureFunded(ctx context.Context, accountID string) error { return nil }

func (f *fundingStub) AutoReload(ctx context.Context, accountID string) (bool, error) {
	f.reloads <- accountID
	return false, nil
}

func (f *fundingStub) UpsertConfig(ctx context.Context, cfg fundingdomain.BillingConfig) error {
	return nil
}

func setupService(t *testing.T, ledgerSvc ledger.Service, funding fundingdomain.Service) (usagedomain.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&usagedomain.UsageRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	svc := NewService(ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Ledger:  ledgerSvc,
		Funding: funding,
	})
	return svc, db
}

func countRecords(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&usagedomain.UsageRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

func TestRecordUsageZeroCostNoOp(t *testing.T) {
	stub := &ledgerStub{}
	funding := newFundingStub()
	svc, db := setupService(t, stub, funding)

	err := svc.RecordUsage(context.Background(), usagedomain.RecordUsageRequest{
		AccountID: "100",
		Resource:  "inference",
		Amount:    1200,
		Cost:      0,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if count := countRecords(t, db); count != 0 {
		t.Fatalf("expected no audit rows for free usage, got %d", count)
	}
	if len(stub.debitCalls()) != 0 {
		t.Fatal("expected no debit for free usage")
	}
}

func TestRecordUsageWritesAuditThenDebits(t *testing.T) {
	stub := &ledgerStub{}
	funding := newFundingStub()
	svc, db := setupService(t, stub, funding)

	hire := "hire-9"
	err := svc.RecordUsage(context.Background(), usagedomain.RecordUsageRequest{
		AccountID: "100",
		Resource:  "inference",
		Amount:    1200,
		Cost:      35_000,
		HireID:    &hire,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var record usagedomain.UsageRecord
	if err := db.First(&record).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.Cost != 35_000 || record.Resource != "inference" || record.HireID == nil || *record.HireID != hire {
		t.Fatalf("unexpected record %+v", record)
	}

	debits := stub.debitCalls()
	if len(debits) != 1 || debits[0].amount != 35_000 {
		t.Fatalf("unexpected debits %+v", debits)
	}

	select {
	case accountID := <-funding.reloads:
		if accountID != "100" {
			t.Fatalf("reload for wrong account %s", accountID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("auto-reload never triggered")
	}
}

func TestRecordUsageDebitFailureKeepsAuditRow(t *testing.T) {
	stub := &ledgerStub{debitErr: ledger.ErrRequestFailed}
	funding := newFundingStub()
	svc, db := setupService(t, stub, funding)

	err := svc.RecordUsage(context.Background(), usagedomain.RecordUsageRequest{
		AccountID: "100",
		Resource:  "email",
		Amount:    1,
		Cost:      5_000,
	})
	if err == nil {
		t.Fatal("expected debit error")
	}

	// The audit trail must still show the intended charge.
	if count := countRecords(t, db); count != 1 {
		t.Fatalf("expected audit row to survive debit failure, got %d rows", count)
	}
}

func TestRecordUsageInvalidAccount(t *testing.T) {
	svc, _ := setupService(t, &ledgerStub{}, newFundingStub())

	err := svc.RecordUsage(context.Background(), usagedomain.RecordUsageRequest{
		AccountID: "not-a-number",
		Resource:  "inference",
		Cost:      1_000,
	})
	if err != usagedomain.ErrInvalidAccount {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
}

func TestMonthlySpendCountsCurrentMonthOnly(t *testing.T) {
	svc, db := setupService(t, &ledgerStub{}, newFundingStub())
	now := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

	rows := []usagedomain.UsageRecord{
		{ID: 1, AccountID: "100", Resource: "inference", Amount: 1, Cost: 3_000_000, CreatedAt: now.Add(-24 * time.Hour)},
		{ID: 2, AccountID: "100", Resource: "inference", Amount: 1, Cost: 2_000_000, CreatedAt: now.Add(-time.Hour)},
		{ID: 3, AccountID: "100", Resource: "inference", Amount: 1, Cost: 9_000_000, CreatedAt: time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC)},
		{ID: 4, AccountID: "200", Resource: "inference", Amount: 1, Cost: 7_000_000, CreatedAt: now.Add(-time.Hour)},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed row %d: %v", i, err)
		}
	}

	spent, err := svc.MonthlySpend(context.Background(), "100", now)
	if err != nil {
		t.Fatalf("monthly spend: %v", err)
	}
	if spent != 5_000_000 {
		t.Fatalf("expected 5000000, got %d", spent)
	}
}

func TestListReturnsNewestFirst(t *testing.T) {
	stub := &ledgerStub{}
	svc, _ := setupService(t, stub, newFundingStub())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := svc.RecordUsage(ctx, usagedomain.RecordUsageRequest{
			AccountID: "100",
			Resource:  fmt.Sprintf("res-%d", i),
			Amount:    1,
			Cost:      1_000,
		})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	records, err := svc.List(ctx, usagedomain.ListUsageRequest{AccountID: "100", Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}
