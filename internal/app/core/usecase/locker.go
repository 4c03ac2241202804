package usecase

import (
	"sync"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
)

// identityLocker 每個身分一把鎖
// 外部轉帳期間持有，同一身分的其他轉帳類操作直接拿到 ErrBusy
// 解鎖時移除該身分的鎖，map 大小只跟進行中的操作數量有關
type identityLocker struct {
	locks sync.Map // map[domain.Identity]*sync.Mutex
}

// tryLock 嘗試取得鎖，成功時回傳解鎖函式
func (l *identityLocker) tryLock(id domain.Identity) (func(), bool) {
	for {
		v, _ := l.locks.LoadOrStore(id, &sync.Mutex{})
		mu := v.(*sync.Mutex)
		if !mu.TryLock() {
			return nil, false
		}
		// 拿到的可能是剛被移除的舊鎖，必須確認仍是 map 裡的那一把
		if cur, ok := l.locks.Load(id); ok && cur == mu {
			return func() {
				l.locks.CompareAndDelete(id, mu)
				mu.Unlock()
			}, true
		}
		mu.Unlock()
	}
}

// size 目前持有中的鎖數量
func (l *identityLocker) size() int {
	n := 0
	l.locks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
