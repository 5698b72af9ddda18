package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	fundingdomain "github.com/principalgrid/billing/internal/funding/domain"
	"github.com/principalgrid/billing/internal/ledger"
	obsmetrics "github.com/principalgrid/billing/internal/observability/metrics"
	usagedomain "github.com/principalgrid/billing/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Ledger  ledger.Service
	Funding fundingdomain.Service
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	ledger  ledger.Service
	funding fundingdomain.Service
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("usage.service"),
		genID:   p.GenID,
		ledger:  p.Ledger,
		funding: p.Funding,
		metrics: p.Metrics,
	}
}

// RecordUsage appends the audit row, debits the ledger, then kicks the
// auto-reload check in the background. The audit row is written before the
// debit on purpose: if the debit RPC fails, the trail still shows the
// intended charge for reconciliation.
func (s *Service) RecordUsage(ctx context.Context, req usagedomain.RecordUsageRequest) error {
	// Some upstream pricing sources report zero cost for free operations.
	if req.Cost <= 0 {
		return nil
	}

	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return usagedomain.ErrInvalidAccount
	}
	ledgerAccount, err := ledger.ParseID(accountID)
	if err != nil {
		return usagedomain.ErrInvalidAccount
	}
	if strings.TrimSpace(req.Resource) == "" {
		return usagedomain.ErrInvalidResource
	}

	record := &usagedomain.UsageRecord{
		ID:        s.genID.Generate(),
		AccountID: accountID,
		Resource:  req.Resource,
		Amount:    req.Amount,
		Cost:      req.Cost,
		HireID:    req.HireID,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordUsage(req.Resource)
	}

	if err := s.ledger.Debit(ctx, ledgerAccount, req.Cost); err != nil {
		s.log.Error("usage debit failed after audit row",
			zap.String("account_id", accountID),
			zap.String("resource", req.Resource),
			zap.Int64("cost", req.Cost),
			zap.Error(err),
		)
		return err
	}

	s.triggerAutoReload(accountID)
	return nil
}

// triggerAutoReload is fire-and-forget: the usage already happened and
// cannot be undone, so a failed reload must never fail the recording.
func (s *Service) triggerAutoReload(accountID string) {
	if s.funding == nil {
		return
	}
	go func() {
		if _, err := s.funding.AutoReload(context.Background(), accountID); err != nil {
			s.log.Warn("background auto-reload failed",
				zap.String("account_id", accountID),
				zap.Error(err),
			)
		}
	}()
}

func (s *Service) List(ctx context.Context, req usagedomain.ListUsageRequest) ([]usagedomain.UsageRecord, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, usagedomain.ErrInvalidAccount
	}
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var records []usagedomain.UsageRecord
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) MonthlySpend(ctx context.Context, accountID string, now time.Time) (int64, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return 0, usagedomain.ErrInvalidAccount
	}
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var spent int64
	err := s.db.WithContext(ctx).
		Model(&usagedomain.UsageRecord{}).
		Where("account_id = ? AND created_at >= ?", accountID, monthStart).
		Select("COALESCE(SUM(cost), 0)").
		Scan(&spent).Error
	if err != nil {
		return 0, err
	}
	return spent, nil
}
