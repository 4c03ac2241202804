package memory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/pkg/wal"
)

// engine 是兩種帳本共用的狀態機：State + WAL + 冪等檢查
// 不是 thread-safe，由 MutexLedger 的鎖或 LMAXLedger 的單一 goroutine 保護
type engine struct {
	state *domain.State
	// 已處理過的分錄
	processed map[uuid.UUID]struct{}
	// Write-Ahead Logging，可為 nil (純記憶體)
	wal *wal.WAL
}

// newEngine 由快照建立狀態機並重放 WAL
//
// 參數:
//
//	snap: 啟動時載入的快照 (可為 nil)
//	w: WAL 實例 (可為 nil)
func newEngine(snap *domain.Snapshot, w *wal.WAL) (*engine, error) {
	state := domain.NewState()
	if snap != nil {
		state = domain.Restore(*snap)
	}
	e := &engine{
		state:     state,
		processed: make(map[uuid.UUID]struct{}),
		wal:       w,
	}
	if err := e.recoverFromWAL(); err != nil {
		return nil, err
	}
	return e, nil
}

// recoverFromWAL 從 WAL 恢復帳本狀態
// 序號不大於快照序號的分錄已經包含在快照裡，直接略過
func (e *engine) recoverFromWAL() error {
	if e.wal == nil {
		return nil
	}
	return e.wal.ReadAll(func(raw json.RawMessage) error {
		var entry domain.Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		e.processed[entry.EntryID] = struct{}{}
		if entry.Sequence <= e.state.Sequence() {
			return nil
		}
		if err := e.state.Apply(&entry); err != nil {
			return fmt.Errorf("replay entry %d (%s): %w", entry.Sequence, entry.Type, err)
		}
		return nil
	})
}

// post 驗證 -> 寫 WAL -> 更新狀態
// 驗證失敗的分錄不會進 WAL，重放時永遠成功
func (e *engine) post(entry *domain.Entry) error {
	if _, ok := e.processed[entry.EntryID]; ok {
		return nil
	}
	if err := e.state.Check(entry); err != nil {
		return err
	}

	entry.Sequence = e.state.NextSequence()
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().UnixNano()
	}

	if e.wal != nil {
		if err := e.wal.Write(entry); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
		}
	}

	if err := e.state.Apply(entry); err != nil {
		return err
	}
	e.processed[entry.EntryID] = struct{}{}
	return nil
}

func (e *engine) account(id domain.Identity) (domain.Account, error) {
	acc, ok := e.state.Account(id)
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return acc, nil
}
