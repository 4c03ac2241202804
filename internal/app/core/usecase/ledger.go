package usecase

import (
	"context"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
)

// LedgerStore 是帳本儲存的介面 (唯一的狀態擁有者)
type LedgerStore interface {
	// PostEntry 原子地套用一筆分錄，同一帳戶的欄位與全域總額一起更新
	PostEntry(ctx context.Context, entry *domain.Entry) error
	// GetAccount 取得帳戶副本，不存在時回傳 domain.ErrAccountNotFound
	GetAccount(ctx context.Context, id domain.Identity) (domain.Account, error)
	// GetTotals 取得全域質押與借款總額
	GetTotals(ctx context.Context) (domain.Totals, error)
	// Snapshot 匯出一致的狀態快照
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// TransferClient 是外部轉帳服務的介面
// 永遠回傳三態結果，不回傳 error
type TransferClient interface {
	Transfer(ctx context.Context, req domain.TransferRequest) domain.Outcome
}

// EventPublisher 發布操作事件，失敗只記錄不影響操作結果
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.LedgerEvent) error
}
