package memory

import (
	"context"
	"sync"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-stake-ledger/pkg/wal"
)

// MutexLedger 是一個使用 RWMutex 保護的記憶體帳本
//
// 結構:
//
//	mu: 寫入取寫鎖，查詢取讀鎖
//	engine: 狀態、WAL 與冪等檢查
type MutexLedger struct {
	mu     sync.RWMutex
	engine *engine
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 參數:
//
//	snap: 啟動時載入的快照 (可為 nil)
//	w: Write-Ahead Log 實例 (可為 nil)
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewMutexLedger(snap *domain.Snapshot, w *wal.WAL) (*MutexLedger, error) {
	e, err := newEngine(snap, w)
	if err != nil {
		return nil, err
	}
	return &MutexLedger{engine: e}, nil
}

// PostEntry 套用一筆分錄
func (m *MutexLedger) PostEntry(ctx context.Context, entry *domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.post(entry)
}

// GetAccount 取得帳戶副本
func (m *MutexLedger) GetAccount(ctx context.Context, id domain.Identity) (domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine.account(id)
}

// GetTotals 取得全域總額
func (m *MutexLedger) GetTotals(ctx context.Context) (domain.Totals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine.state.Totals(), nil
}

// Snapshot 匯出快照
func (m *MutexLedger) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine.state.Snapshot(), nil
}

var _ usecase.LedgerStore = (*MutexLedger)(nil)
