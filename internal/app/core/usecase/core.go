package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/observability"
)

// 操作結果，用於 metrics label
const (
	resultCommitted    = "committed"
	resultRejected     = "rejected"
	resultCompensated  = "compensated"
	resultBusy         = "busy"
	resultInconsistent = "inconsistent"
)

// CoreUseCase 是核心業務邏輯層
// 轉帳類操作 (deposit/withdraw/stake/unstake) 見 account_ops.go
// 本地操作 (borrow/repay) 見 credit_ops.go
type CoreUseCase struct {
	store     LedgerStore
	transfer  TransferClient
	publisher EventPublisher
	locker    *identityLocker
	// 帳本自己在外部轉帳服務上的帳戶
	ledgerAccount domain.TransferAccount
	metrics       *observability.Metrics
	logger        zerolog.Logger
	now           func() time.Time
}

// Option 定義了 CoreUseCase 的配置選項函數
type Option func(*CoreUseCase)

// WithPublisher 設定事件發布器
func WithPublisher(p EventPublisher) Option {
	return func(c *CoreUseCase) {
		c.publisher = p
	}
}

// WithMetrics 設定 Prometheus 指標
func WithMetrics(m *observability.Metrics) Option {
	return func(c *CoreUseCase) {
		c.metrics = m
	}
}

// WithLogger 設定 logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *CoreUseCase) {
		c.logger = logger
	}
}

// WithLedgerSubaccount 設定帳本在外部服務上使用的子帳戶
func WithLedgerSubaccount(sub *domain.Subaccount) Option {
	return func(c *CoreUseCase) {
		c.ledgerAccount.Subaccount = sub
	}
}

// NewCoreUseCase 建立核心業務邏輯
//
// 參數:
//
//	store: 帳本儲存
//	transfer: 外部轉帳服務
//	ledgerAccount: 帳本自己在外部轉帳服務上的身分
//	opts: 選項
func NewCoreUseCase(store LedgerStore, transfer TransferClient, ledgerAccount domain.Identity, opts ...Option) *CoreUseCase {
	c := &CoreUseCase{
		store:         store,
		transfer:      transfer,
		locker:        &identityLocker{},
		ledgerAccount: domain.TransferAccount{Owner: ledgerAccount},
		logger:        zerolog.Nop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAccount 查詢帳戶，不存在時回傳全零帳戶 (不會建立帳戶)
func (c *CoreUseCase) GetAccount(ctx context.Context, id domain.Identity) (domain.Account, error) {
	acc, err := c.store.GetAccount(ctx, id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.Account{}, nil
	}
	return acc, err
}

// GetTotals 查詢全域質押與借款總額
func (c *CoreUseCase) GetTotals(ctx context.Context) (domain.Totals, error) {
	return c.store.GetTotals(ctx)
}

func validateRequest(caller domain.Identity, amount uint64) error {
	if caller == "" {
		return domain.ErrInvalidIdentity
	}
	if amount == 0 {
		return domain.ErrInvalidAmount
	}
	return nil
}

// finish 記錄結果、更新指標、發布事件
func (c *CoreUseCase) finish(ctx context.Context, evt domain.LedgerEvent, result string, opErr error) {
	c.metrics.ObserveOperation(evt.Operation, result)
	switch result {
	case resultCommitted:
		evt.Status = domain.EventStatusCommitted
	case resultCompensated:
		evt.Status = domain.EventStatusCompensated
	default:
		evt.Status = domain.EventStatusRejected
	}
	if opErr != nil {
		evt.Reason = opErr.Error()
	}

	if result == resultCommitted || result == resultCompensated {
		if totals, err := c.store.GetTotals(ctx); err == nil {
			c.metrics.SetTotals(totals.Staked, totals.Borrowed)
		}
	}

	if c.publisher == nil {
		return
	}
	evt.Timestamp = c.now()
	if err := c.publisher.Publish(ctx, evt); err != nil {
		c.logger.Warn().Err(err).
			Str("operation", evt.Operation).
			Str("operation_id", evt.OperationID.String()).
			Msg("publish ledger event failed")
	}
}

func newEvent(op domain.EntryType, caller domain.Identity, amount uint64) domain.LedgerEvent {
	return domain.LedgerEvent{
		OperationID: uuid.New(),
		Operation:   op.String(),
		Owner:       caller,
		Amount:      amount,
	}
}
