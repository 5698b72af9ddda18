package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/principalgrid/billing/internal/clock"
	"github.com/principalgrid/billing/internal/config"
	"github.com/principalgrid/billing/internal/ledger"
	"github.com/principalgrid/billing/internal/money"
	obsmetrics "github.com/principalgrid/billing/internal/observability/metrics"
	paymentdomain "github.com/principalgrid/billing/internal/payment/domain"
	payoutdomain "github.com/principalgrid/billing/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// settlementWarning is surfaced when the external transfer succeeded but
// the ledger post failed; the money is already gone, so the saga reports
// success and flags the row for out-of-band reconciliation.
const settlementWarning = "external transfer sent; ledger settlement pending, requires reconciliation"

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Cfg       config.Config
	GenID     *snowflake.Node
	Ledger    ledger.Service
	Processor paymentdomain.Processor
	Clock     clock.Clock
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	ledger    ledger.Service
	processor paymentdomain.Processor
	clock     clock.Clock
	metrics   *obsmetrics.Metrics

	reserveTimeout int64
}

func NewService(p ServiceParam) payoutdomain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("payout.service"),
		genID:          p.GenID,
		ledger:         p.Ledger,
		processor:      p.Processor,
		clock:          p.Clock,
		metrics:        p.Metrics,
		reserveTimeout: p.Cfg.Ledger.PayoutReserveTimeout,
	}
}

// ProcessPayout runs the three-step saga: reserve funds in the ledger,
// transfer the net externally, finalize the ledger debit. Saga state is
// persisted before every external call so a mid-failure is diagnosable and
// never silently lost. Concurrent payouts for the same account are safe;
// over-withdrawal is prevented by the ledger's reservation semantics, not
// by local locking.
func (s *Service) ProcessPayout(ctx context.Context, req payoutdomain.ProcessPayoutRequest) (*payoutdomain.Result, error) {
	accountID := strings.TrimSpace(req.AccountID)
	ledgerAccount, err := ledger.ParseID(accountID)
	if err != nil {
		return nil, payoutdomain.ErrInvalidAccount
	}
	if strings.TrimSpace(req.DestinationID) == "" {
		return nil, payoutdomain.ErrInvalidDestination
	}
	if req.Amount <= 0 || req.Fee < 0 || req.Net <= 0 || req.Net != req.Amount-req.Fee {
		return nil, payoutdomain.ErrInvalidAmount
	}
	// The processor moves whole cents; a sub-cent net would floor to a zero
	// transfer after the funds were already reserved.
	if req.Net < money.MicroPerCent {
		return nil, payoutdomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	row := &payoutdomain.Payout{
		ID:        s.genID.Generate(),
		AccountID: accountID,
		Amount:    req.Amount,
		Fee:       req.Fee,
		Net:       req.Net,
		Status:    payoutdomain.StatusReserved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}

	// Step 1: reserve the full amount. The reservation auto-expires
	// server-side if this process dies before posting or voiding.
	pendingID, err := s.ledger.Reserve(ctx, ledgerAccount, req.Amount, s.reserveTimeout, ledger.CodePayout)
	if err != nil {
		s.markFailed(row)
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			return nil, payoutdomain.ErrInsufficientBalance
		}
		return nil, err
	}
	pending := pendingID.String()
	row.PendingTransferID = &pending
	s.update(row)

	// Step 2: send the net externally. The fee is retained simply by never
	// transferring it. The saga row ID keys idempotency so a retried call
	// cannot double-pay.
	transferID, err := s.processor.TransferToConnected(
		ctx,
		req.DestinationID,
		money.ToCents(req.Net),
		"payout:"+row.ID.String(),
	)
	if err != nil {
		// Compensating action: release the reservation.
		if voidErr := s.ledger.Void(ctx, pendingID); voidErr != nil {
			s.log.Error("payout void failed after transfer failure",
				zap.String("payout_id", row.ID.String()),
				zap.String("pending_transfer_id", pending),
				zap.Error(voidErr),
			)
		}
		s.markFailed(row)
		return nil, fmt.Errorf("%w: %v", payoutdomain.ErrTransferFailed, err)
	}
	row.StripeTransferID = &transferID
	row.Status = payoutdomain.StatusTransferred
	s.update(row)

	// Step 3: finalize the ledger debit for the full amount; the fee stays
	// with the platform because it was never transferred out.
	if err := s.ledger.Post(ctx, pendingID, req.Amount); err != nil {
		// The money has irreversibly left the platform but the ledger still
		// shows it pending. There is no claw-back, so this is a logical
		// success with a warning, never a rollback.
		s.log.Error("payout ledger post failed after external transfer",
			zap.String("payout_id", row.ID.String()),
			zap.String("account_id", accountID),
			zap.String("stripe_transfer_id", transferID),
			zap.Int64("amount", req.Amount),
			zap.Error(err),
		)
		s.recordStatus(payoutdomain.StatusTransferred)
		return &payoutdomain.Result{
			Amount:  req.Amount,
			Fee:     req.Fee,
			Net:     req.Net,
			Warning: settlementWarning,
		}, nil
	}

	row.Status = payoutdomain.StatusCompleted
	s.update(row)
	s.recordStatus(payoutdomain.StatusCompleted)

	return &payoutdomain.Result{
		Amount: req.Amount,
		Fee:    req.Fee,
		Net:    req.Net,
	}, nil
}

func (s *Service) List(ctx context.Context, accountID string, limit int) ([]payoutdomain.Payout, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, payoutdomain.ErrInvalidAccount
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var rows []payoutdomain.Payout
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) markFailed(row *payoutdomain.Payout) {
	row.Status = payoutdomain.StatusFailed
	s.update(row)
	s.recordStatus(payoutdomain.StatusFailed)
}

// update persists saga state with a background context: state transitions
// must land even when the caller's context is already cancelled.
func (s *Service) update(row *payoutdomain.Payout) {
	row.UpdatedAt = s.clock.Now()
	if err := s.db.WithContext(context.Background()).Save(row).Error; err != nil {
		s.log.Error("payout state update failed",
			zap.String("payout_id", row.ID.String()),
			zap.String("status", string(row.Status)),
			zap.Error(err),
		)
	}
}

func (s *Service) recordStatus(status payoutdomain.Status) {
	if s.metrics != nil {
		s.metrics.RecordPayout(string(status))
	}
}
