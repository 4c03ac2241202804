package memory

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-stake-ledger/pkg/wal"
)

type ledgerFactory func(t *testing.T, snap *domain.Snapshot, w *wal.WAL) usecase.LedgerStore

func factories() map[string]ledgerFactory {
	return map[string]ledgerFactory{
		"mutex": func(t *testing.T, snap *domain.Snapshot, w *wal.WAL) usecase.LedgerStore {
			l, err := NewMutexLedger(snap, w)
			require.NoError(t, err)
			return l
		},
		"lmax": func(t *testing.T, snap *domain.Snapshot, w *wal.WAL) usecase.LedgerStore {
			l, err := NewLMAXLedger(snap, w, 16)
			require.NoError(t, err)
			ctx, cancel := context.WithCancel(context.Background())
			l.Start(ctx)
			t.Cleanup(func() {
				cancel()
				<-l.Done()
			})
			return l
		},
	}
}

func entry(owner domain.Identity, typ domain.EntryType, amount uint64) *domain.Entry {
	return &domain.Entry{EntryID: uuid.New(), Owner: owner, Type: typ, Amount: amount}
}

func openWAL(t *testing.T, path string) *wal.WAL {
	t.Helper()
	w, err := wal.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestLedger_PostAndQuery(t *testing.T) {
	for name, newLedger := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := newLedger(t, nil, nil)

			_, err := l.GetAccount(ctx, "alice")
			assert.ErrorIs(t, err, domain.ErrAccountNotFound)

			require.NoError(t, l.PostEntry(ctx, entry("alice", domain.EntryTypeDeposit, 100)))
			require.NoError(t, l.PostEntry(ctx, entry("alice", domain.EntryTypeStake, 40)))
			require.NoError(t, l.PostEntry(ctx, entry("alice", domain.EntryTypeBorrow, 20)))

			acc, err := l.GetAccount(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, domain.Account{Balance: 120, StakedAmount: 40, BorrowedAmount: 20}, acc)

			totals, err := l.GetTotals(ctx)
			require.NoError(t, err)
			assert.Equal(t, domain.Totals{Staked: 40, Borrowed: 20}, totals)

			err = l.PostEntry(ctx, entry("bob", domain.EntryTypeWithdraw, 1))
			assert.ErrorIs(t, err, domain.ErrAccountNotFound)
			_, err = l.GetAccount(ctx, "bob")
			assert.ErrorIs(t, err, domain.ErrAccountNotFound, "failed withdraw must not create an account")
		})
	}
}

func TestLedger_DuplicateEntryAppliedOnce(t *testing.T) {
	for name, newLedger := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := newLedger(t, nil, nil)

			e := entry("alice", domain.EntryTypeDeposit, 10)
			require.NoError(t, l.PostEntry(ctx, e))
			dup := *e
			require.NoError(t, l.PostEntry(ctx, &dup))

			acc, err := l.GetAccount(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, uint64(10), acc.Balance)
		})
	}
}

func TestLedger_ConcurrentPostsKeepTotals(t *testing.T) {
	for name, newLedger := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := newLedger(t, nil, nil)

			const workers = 20
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					owner := domain.Identity(uuid.NewString())
					assert.NoError(t, l.PostEntry(ctx, entry(owner, domain.EntryTypeStake, 10)))
					assert.NoError(t, l.PostEntry(ctx, entry(owner, domain.EntryTypeBorrow, 5)))
				}(i)
			}
			wg.Wait()

			snap, err := l.Snapshot(ctx)
			require.NoError(t, err)
			var staked, borrowed uint64
			for _, acc := range snap.Accounts {
				staked += acc.StakedAmount
				borrowed += acc.BorrowedAmount
			}
			assert.Equal(t, snap.Totals, domain.Totals{Staked: staked, Borrowed: borrowed})
			assert.Equal(t, domain.Totals{Staked: 10 * workers, Borrowed: 5 * workers}, snap.Totals)
			assert.Equal(t, uint64(2*workers), snap.Sequence)
		})
	}
}

func TestLedger_RecoverFromWAL(t *testing.T) {
	for name, newLedger := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "wal.log")

			l := newLedger(t, nil, openWAL(t, path))
			require.NoError(t, l.PostEntry(ctx, entry("alice", domain.EntryTypeDeposit, 100)))
			require.NoError(t, l.PostEntry(ctx, entry("alice", domain.EntryTypeWithdraw, 30)))
			require.NoError(t, l.PostEntry(ctx, entry("alice", domain.EntryTypeRevertWithdraw, 30)))
			require.NoError(t, l.PostEntry(ctx, entry("alice", domain.EntryTypeStake, 50)))
			// 驗證失敗的分錄不進 WAL
			assert.ErrorIs(t, l.PostEntry(ctx, entry("alice", domain.EntryTypeBorrow, 26)), domain.ErrInsufficientCollateral)

			want, err := l.Snapshot(ctx)
			require.NoError(t, err)

			recovered := newLedger(t, nil, openWAL(t, path))
			got, err := recovered.Snapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, uint64(4), got.Sequence)
		})
	}
}

func TestLedger_RecoverSkipsEntriesCoveredBySnapshot(t *testing.T) {
	for name, newLedger := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "wal.log")

			l := newLedger(t, nil, openWAL(t, path))
			require.NoError(t, l.PostEntry(ctx, entry("alice", domain.EntryTypeStake, 100)))
			snap, err := l.Snapshot(ctx)
			require.NoError(t, err)
			require.NoError(t, l.PostEntry(ctx, entry("alice", domain.EntryTypeStake, 20)))

			recovered := newLedger(t, &snap, openWAL(t, path))
			acc, err := recovered.GetAccount(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, uint64(120), acc.StakedAmount)

			totals, err := recovered.GetTotals(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(120), totals.Staked)
		})
	}
}

func TestLMAXLedger_ClosedAfterStop(t *testing.T) {
	l, err := NewLMAXLedger(nil, nil, 4)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)

	require.NoError(t, l.PostEntry(context.Background(), entry("alice", domain.EntryTypeDeposit, 1)))
	cancel()
	<-l.Done()

	err = l.PostEntry(context.Background(), entry("alice", domain.EntryTypeDeposit, 1))
	assert.ErrorIs(t, err, domain.ErrLedgerClosed)
}
