package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/principalgrid/billing/internal/clock"
	"github.com/principalgrid/billing/internal/config"
	fundingdomain "github.com/principalgrid/billing/internal/funding/domain"
	"github.com/principalgrid/billing/internal/ledger"
	"github.com/principalgrid/billing/internal/money"
	obsmetrics "github.com/principalgrid/billing/internal/observability/metrics"
	paymentdomain "github.com/principalgrid/billing/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Cfg       config.Config
	Ledger    ledger.Service
	Processor paymentdomain.Processor
	Clock     clock.Clock
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	ledger    ledger.Service
	processor paymentdomain.Processor
	clock     clock.Clock
	metrics   *obsmetrics.Metrics

	minCharge int64
}

func NewService(p ServiceParam) fundingdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("funding.service"),
		ledger:    p.Ledger,
		processor: p.Processor,
		clock:     p.Clock,
		metrics:   p.Metrics,
		minCharge: p.Cfg.Reload.MinChargeMicro,
	}
}

// EnsureFunded gates billable work on available balance. The config and
// balance reads run concurrently; the slow path is a card charge round-trip,
// so callers must not hold locks across this call.
func (s *Service) EnsureFunded(ctx context.Context, accountID string) error {
	accountID = strings.TrimSpace(accountID)
	ledgerAccount, err := ledger.ParseID(accountID)
	if err != nil {
		return fundingdomain.ErrInvalidAccount
	}

	var (
		cfg       fundingdomain.BillingConfig
		available int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loaded, err := s.loadConfig(gctx, accountID)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	})
	g.Go(func() error {
		balance, err := s.availableBalance(gctx, ledgerAccount)
		if err != nil {
			return err
		}
		available = balance
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if available >= cfg.AutoReloadThreshold {
		return nil
	}

	reloaded, err := s.AutoReload(ctx, accountID)
	if err != nil {
		return err
	}
	if reloaded {
		return nil
	}

	// Reload did not land; the account can still proceed on whatever
	// balance remains, but an empty account is a hard stop.
	if available <= 0 {
		return fundingdomain.ErrInsufficientFunds
	}
	return nil
}

// AutoReload charges the saved payment method up to the configured target.
// It is called both synchronously from the gate and fire-and-forget from
// the usage recorder; the balance re-read at the top bounds duplicate
// charging when two invocations race.
func (s *Service) AutoReload(ctx context.Context, accountID string) (bool, error) {
	accountID = strings.TrimSpace(accountID)
	ledgerAccount, err := ledger.ParseID(accountID)
	if err != nil {
		return false, fundingdomain.ErrInvalidAccount
	}

	cfg, err := s.loadConfig(ctx, accountID)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(cfg.StripeCustomerID) == "" {
		s.recordOutcome("skipped")
		return false, nil
	}

	available, err := s.availableBalance(ctx, ledgerAccount)
	if err != nil {
		return false, err
	}
	if available >= cfg.AutoReloadThreshold {
		s.recordOutcome("skipped")
		return false, nil
	}

	// Hard monthly cap, independent of balance.
	spent, err := s.monthlySpend(ctx, accountID)
	if err != nil {
		return false, err
	}
	if spent >= cfg.MonthlySpendLimit {
		s.recordOutcome("skipped")
		return false, nil
	}

	charge := cfg.AutoReloadTarget - available
	if charge < s.minCharge {
		charge = s.minCharge
	}
	if remaining := cfg.MonthlySpendLimit - spent; charge > remaining {
		charge = remaining
	}
	if charge < s.minCharge {
		s.recordOutcome("skipped")
		return false, nil
	}

	cents := money.ToCents(charge)
	if cents <= 0 {
		s.recordOutcome("skipped")
		return false, nil
	}

	intentID, err := s.processor.ChargeOffSession(ctx, cfg.StripeCustomerID, cents, accountID)
	if err != nil {
		s.log.Warn("auto-reload charge failed",
			zap.String("account_id", accountID),
			zap.Int64("cents", cents),
			zap.Error(err),
		)
		s.recordOutcome("declined")
		return false, nil
	}

	// Credit the ledger inline; never wait for a payment webhook.
	credited := money.FromCents(cents)
	if err := s.ledger.Fund(ctx, ledgerAccount, credited); err != nil {
		// The card was charged but the ledger credit failed. Requires
		// out-of-band reconciliation; never silently dropped.
		s.log.Error("ledger fund failed after successful charge",
			zap.String("account_id", accountID),
			zap.String("payment_intent_id", intentID),
			zap.Int64("micro", credited),
			zap.Error(err),
		)
		s.recordOutcome("failed")
		return false, err
	}

	s.log.Info("auto-reload charged",
		zap.String("account_id", accountID),
		zap.String("payment_intent_id", intentID),
		zap.Int64("micro", credited),
	)
	s.recordOutcome("charged")
	return true, nil
}

func (s *Service) UpsertConfig(ctx context.Context, cfg fundingdomain.BillingConfig) error {
	cfg.AccountID = strings.TrimSpace(cfg.AccountID)
	if cfg.AccountID == "" {
		return fundingdomain.ErrInvalidAccount
	}
	cfg.UpdatedAt = s.clock.Now()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = cfg.UpdatedAt
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			UpdateAll: true,
		}).
		Create(&cfg).Error
}

// loadConfig treats a missing row as an all-zero config: no reload
// threshold, no saved payment method, no monthly budget.
func (s *Service) loadConfig(ctx context.Context, accountID string) (fundingdomain.BillingConfig, error) {
	var cfg fundingdomain.BillingConfig
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fundingdomain.BillingConfig{AccountID: accountID}, nil
		}
		return fundingdomain.BillingConfig{}, err
	}
	return cfg, nil
}

// availableBalance reads the authoritative balance; an account absent from
// the ledger has nothing to spend.
func (s *Service) availableBalance(ctx context.Context, account ledger.ID) (int64, error) {
	acct, err := s.ledger.LookupAccount(ctx, account)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return ledger.Available(*acct), nil
}

// monthlySpend sums usage cost for the current UTC calendar month.
func (s *Service) monthlySpend(ctx context.Context, accountID string) (int64, error) {
	now := s.clock.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var spent int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(cost), 0) FROM usage_records WHERE account_id = ? AND created_at >= ?`,
		accountID,
		monthStart,
	).Scan(&spent).Error
	if err != nil {
		return 0, err
	}
	return spent, nil
}

func (s *Service) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAutoReload(outcome)
	}
}
