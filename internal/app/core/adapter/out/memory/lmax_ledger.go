package memory

import (
	"context"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-stake-ledger/pkg/wal"
)

// request 輸送帶上的請求，讓呼叫端可以等待結果
// entry 與 read 二擇一
type request struct {
	entry  *domain.Entry
	read   func(e *engine)
	result chan error
}

// LMAXLedger 單一寫入者帳本
// 所有讀寫都經由 channel 交給同一個 goroutine 依序處理，狀態不需要鎖
type LMAXLedger struct {
	engine *engine
	// 輸送帶 負責接收請求
	requests chan *request
	// closing: run loop 收到關閉信號; stopped: 剩餘請求已處理完
	closing chan struct{}
	stopped chan struct{}
}

// NewLMAXLedger 建立一個新的 LMAXLedger 實例，需呼叫 Start 才會開始處理
//
// 參數:
//
//	snap: 啟動時載入的快照 (可為 nil)
//	w: Write-Ahead Log 實例 (可為 nil)
//	bufferSize: 輸送帶容量
func NewLMAXLedger(snap *domain.Snapshot, w *wal.WAL, bufferSize int) (*LMAXLedger, error) {
	e, err := newEngine(snap, w)
	if err != nil {
		return nil, err
	}
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &LMAXLedger{
		engine:   e,
		requests: make(chan *request, bufferSize),
		closing:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Start 啟動核心引擎 (非同步)，ctx 結束時處理完剩下的請求後停止
func (l *LMAXLedger) Start(ctx context.Context) {
	go l.run(ctx)
}

// Done 引擎完全停止後關閉
func (l *LMAXLedger) Done() <-chan struct{} {
	return l.stopped
}

func (l *LMAXLedger) run(ctx context.Context) {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			close(l.closing)
			l.drain()
			return
		case req := <-l.requests:
			l.process(req)
		}
	}
}

func (l *LMAXLedger) drain() {
	for {
		select {
		case req := <-l.requests:
			l.process(req)
		default:
			return
		}
	}
}

func (l *LMAXLedger) process(req *request) {
	if req.read != nil {
		req.read(l.engine)
		req.result <- nil
		return
	}
	req.result <- l.engine.post(req.entry)
}

// submit 放入輸送帶並等待結果
func (l *LMAXLedger) submit(ctx context.Context, req *request) error {
	req.result = make(chan error, 1)
	select {
	case l.requests <- req:
	case <-l.closing:
		return domain.ErrLedgerClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-l.stopped:
		// drain 可能剛好處理完這筆
		select {
		case err := <-req.result:
			return err
		default:
			return domain.ErrLedgerClosed
		}
	}
}

// PostEntry 套用一筆分錄
// PostEntry(等待) -> Channel -> Run Loop -> WAL -> State -> Result Channel
func (l *LMAXLedger) PostEntry(ctx context.Context, entry *domain.Entry) error {
	return l.submit(ctx, &request{entry: entry})
}

// GetAccount 取得帳戶副本
func (l *LMAXLedger) GetAccount(ctx context.Context, id domain.Identity) (domain.Account, error) {
	var (
		acc    domain.Account
		getErr error
	)
	err := l.submit(ctx, &request{read: func(e *engine) {
		acc, getErr = e.account(id)
	}})
	if err != nil {
		return domain.Account{}, err
	}
	return acc, getErr
}

// GetTotals 取得全域總額
func (l *LMAXLedger) GetTotals(ctx context.Context) (domain.Totals, error) {
	var totals domain.Totals
	err := l.submit(ctx, &request{read: func(e *engine) {
		totals = e.state.Totals()
	}})
	return totals, err
}

// Snapshot 匯出快照
func (l *LMAXLedger) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := l.submit(ctx, &request{read: func(e *engine) {
		snap = e.state.Snapshot()
	}})
	return snap, err
}

var _ usecase.LedgerStore = (*LMAXLedger)(nil)
