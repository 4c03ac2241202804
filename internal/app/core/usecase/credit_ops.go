package usecase

import (
	"context"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
)

// Borrow 以質押為抵押借款，上限為質押的 50% (含已借金額)
// 純本地操作，沒有外部呼叫，因此不需要身分鎖
func (c *CoreUseCase) Borrow(ctx context.Context, caller domain.Identity, amount uint64) error {
	return c.postLocal(ctx, domain.EntryTypeBorrow, caller, amount)
}

// Repay 以可用餘額還款
func (c *CoreUseCase) Repay(ctx context.Context, caller domain.Identity, amount uint64) error {
	return c.postLocal(ctx, domain.EntryTypeRepay, caller, amount)
}

func (c *CoreUseCase) postLocal(ctx context.Context, op domain.EntryType, caller domain.Identity, amount uint64) error {
	evt := newEvent(op, caller, amount)
	if err := validateRequest(caller, amount); err != nil {
		c.finish(ctx, evt, resultRejected, err)
		return err
	}

	err := c.store.PostEntry(ctx, &domain.Entry{
		EntryID: evt.OperationID,
		Owner:   caller,
		Amount:  amount,
		Type:    op,
	})
	if err != nil {
		c.finish(ctx, evt, resultRejected, err)
		return err
	}
	log := c.operationLogger(evt)
	log.Info().Msg("operation committed")
	c.finish(ctx, evt, resultCommitted, nil)
	return nil
}
