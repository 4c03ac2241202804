package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
)

// Deposit 存款：呼叫者 -> 帳本
// 外部轉帳確認後才入帳，避免呼叫者花掉還沒真正轉出的錢
func (c *CoreUseCase) Deposit(ctx context.Context, caller domain.Identity, amount uint64) error {
	return c.transferIn(ctx, domain.EntryTypeDeposit, caller, amount)
}

// Stake 質押：呼叫者 -> 帳本 (作為抵押品)
// 外部轉帳確認後才承認抵押
func (c *CoreUseCase) Stake(ctx context.Context, caller domain.Identity, amount uint64) error {
	return c.transferIn(ctx, domain.EntryTypeStake, caller, amount)
}

// Withdraw 提款：帳本 -> 呼叫者
// 先樂觀扣款再轉帳，轉帳失敗時補償
func (c *CoreUseCase) Withdraw(ctx context.Context, caller domain.Identity, amount uint64) error {
	return c.transferOut(ctx, domain.EntryTypeWithdraw, caller, amount)
}

// Unstake 解除質押：帳本 -> 呼叫者
// 先扣除質押與全域質押總額再轉帳，轉帳失敗時補償
func (c *CoreUseCase) Unstake(ctx context.Context, caller domain.Identity, amount uint64) error {
	return c.transferOut(ctx, domain.EntryTypeUnstake, caller, amount)
}

// transferIn 先轉帳，確認後入帳
func (c *CoreUseCase) transferIn(ctx context.Context, op domain.EntryType, caller domain.Identity, amount uint64) error {
	evt := newEvent(op, caller, amount)
	unlock, err := c.begin(ctx, evt)
	if err != nil {
		return err
	}
	defer unlock()

	// 外部轉帳一旦發出就必須跑完，不受呼叫端取消影響
	ctx = context.WithoutCancel(ctx)
	log := c.operationLogger(evt)

	outcome := c.callTransfer(ctx, evt, domain.TransferRequest{
		From:   caller,
		To:     c.ledgerAccount,
		Amount: amount,
	})
	if err := outcome.Err(); err != nil {
		log.Warn().Err(err).Msg("transfer failed, ledger unchanged")
		c.finish(ctx, evt, resultRejected, err)
		return err
	}
	evt.BlockIndex = outcome.BlockIndex

	entry := &domain.Entry{
		EntryID: evt.OperationID,
		Owner:   caller,
		Amount:  amount,
		Type:    op,
	}
	if err := c.store.PostEntry(ctx, entry); err != nil {
		// 錢已經進來但沒有入帳，需要人工對帳
		log.Error().Err(err).
			Uint64("block_index", outcome.BlockIndex).
			Msg("transfer confirmed but ledger credit failed")
		err = fmt.Errorf("%w: %s confirmed at block %d but not credited: %w",
			domain.ErrLedgerInconsistent, op, outcome.BlockIndex, err)
		c.finish(ctx, evt, resultInconsistent, err)
		return err
	}

	log.Info().Uint64("block_index", outcome.BlockIndex).Msg("operation committed")
	c.finish(ctx, evt, resultCommitted, nil)
	return nil
}

// transferOut 先樂觀扣款，再轉帳；轉帳失敗時套用補償分錄
func (c *CoreUseCase) transferOut(ctx context.Context, op domain.EntryType, caller domain.Identity, amount uint64) error {
	evt := newEvent(op, caller, amount)
	unlock, err := c.begin(ctx, evt)
	if err != nil {
		return err
	}
	defer unlock()

	ctx = context.WithoutCancel(ctx)
	log := c.operationLogger(evt)

	entry := &domain.Entry{
		EntryID: evt.OperationID,
		Owner:   caller,
		Amount:  amount,
		Type:    op,
	}
	if err := c.store.PostEntry(ctx, entry); err != nil {
		log.Debug().Err(err).Msg("operation rejected")
		c.finish(ctx, evt, resultRejected, err)
		return err
	}

	outcome := c.callTransfer(ctx, evt, domain.TransferRequest{
		FromSubaccount: c.ledgerAccount.Subaccount,
		From:           c.ledgerAccount.Owner,
		To:             domain.TransferAccount{Owner: caller},
		Amount:         amount,
	})
	transferErr := outcome.Err()
	if transferErr == nil {
		evt.BlockIndex = outcome.BlockIndex
		log.Info().Uint64("block_index", outcome.BlockIndex).Msg("operation committed")
		c.finish(ctx, evt, resultCommitted, nil)
		return nil
	}

	if err := c.compensate(ctx, entry); err != nil {
		log.Error().Err(err).AnErr("transfer_error", transferErr).
			Msg("compensation failed, ledger inconsistent")
		err = fmt.Errorf("%w: %w: compensation failed: %w", domain.ErrLedgerInconsistent, transferErr, err)
		c.finish(ctx, evt, resultInconsistent, err)
		return err
	}

	log.Warn().Err(transferErr).Msg("transfer failed, debit reverted")
	c.finish(ctx, evt, resultCompensated, transferErr)
	return transferErr
}

// begin 驗證請求並取得該身分的鎖
func (c *CoreUseCase) begin(ctx context.Context, evt domain.LedgerEvent) (func(), error) {
	if err := validateRequest(evt.Owner, evt.Amount); err != nil {
		c.finish(ctx, evt, resultRejected, err)
		return nil, err
	}
	unlock, ok := c.locker.tryLock(evt.Owner)
	if !ok {
		c.metrics.ObserveBusy(evt.Operation)
		c.finish(ctx, evt, resultBusy, domain.ErrBusy)
		return nil, domain.ErrBusy
	}
	return unlock, nil
}

// compensate 套用補償分錄，只動本地帳本，不再呼叫外部服務
func (c *CoreUseCase) compensate(ctx context.Context, entry *domain.Entry) error {
	revert, ok := entry.Compensation()
	if !ok {
		return fmt.Errorf("no compensation for %s", entry.Type)
	}
	if err := c.store.PostEntry(ctx, revert); err != nil {
		c.metrics.ObserveCompensation(entry.Type.String(), "failed")
		return err
	}
	c.metrics.ObserveCompensation(entry.Type.String(), "applied")
	return nil
}

// callTransfer 呼叫外部轉帳服務並記錄延遲
func (c *CoreUseCase) callTransfer(ctx context.Context, evt domain.LedgerEvent, req domain.TransferRequest) domain.Outcome {
	createdAt := uint64(c.now().UnixNano())
	req.CreatedAtTime = &createdAt
	req.Memo = evt.OperationID[:]

	start := time.Now()
	outcome := c.transfer.Transfer(ctx, req)
	c.metrics.ObserveTransfer(outcome.Status.String(), time.Since(start))
	return outcome
}

func (c *CoreUseCase) operationLogger(evt domain.LedgerEvent) zerolog.Logger {
	return c.logger.With().
		Str("operation", evt.Operation).
		Str("operation_id", evt.OperationID.String()).
		Str("owner", string(evt.Owner)).
		Str("amount", domain.FormatAmount(evt.Amount)).
		Logger()
}
