package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apply(t *testing.T, s *State, owner Identity, typ EntryType, amount uint64) error {
	t.Helper()
	return s.Apply(&Entry{
		EntryID:  uuid.New(),
		Sequence: s.NextSequence(),
		Owner:    owner,
		Type:     typ,
		Amount:   amount,
	})
}

func TestState_ImplicitCreation(t *testing.T) {
	s := NewState()

	for _, typ := range []EntryType{EntryTypeWithdraw, EntryTypeUnstake, EntryTypeBorrow, EntryTypeRepay} {
		err := apply(t, s, "alice", typ, 1)
		assert.ErrorIs(t, err, ErrAccountNotFound, typ.String())
	}
	assert.Equal(t, 0, s.Len())

	require.NoError(t, apply(t, s, "alice", EntryTypeDeposit, 5))
	require.NoError(t, apply(t, s, "bob", EntryTypeStake, 7))
	assert.Equal(t, 2, s.Len())
}

func TestState_CompensationOnMissingAccount(t *testing.T) {
	s := NewState()
	assert.ErrorIs(t, apply(t, s, "ghost", EntryTypeRevertWithdraw, 1), ErrAccountVanished)
	assert.ErrorIs(t, apply(t, s, "ghost", EntryTypeRevertUnstake, 1), ErrAccountVanished)
	assert.Equal(t, 0, s.Len())
}

func TestState_BorrowBoundary(t *testing.T) {
	s := NewState()
	require.NoError(t, apply(t, s, "alice", EntryTypeStake, 100))

	assert.ErrorIs(t, apply(t, s, "alice", EntryTypeBorrow, 51), ErrInsufficientCollateral)
	require.NoError(t, apply(t, s, "alice", EntryTypeBorrow, 50))
	assert.ErrorIs(t, apply(t, s, "alice", EntryTypeBorrow, 1), ErrInsufficientCollateral)

	acc, _ := s.Account("alice")
	assert.Equal(t, Account{Balance: 50, StakedAmount: 100, BorrowedAmount: 50}, acc)
	assert.Equal(t, Totals{Staked: 100, Borrowed: 50}, s.Totals())
}

func TestState_BorrowRoundsDown(t *testing.T) {
	s := NewState()
	require.NoError(t, apply(t, s, "alice", EntryTypeStake, 3))
	assert.ErrorIs(t, apply(t, s, "alice", EntryTypeBorrow, 2), ErrInsufficientCollateral)
	require.NoError(t, apply(t, s, "alice", EntryTypeBorrow, 1))
}

func TestState_UnstakeKeepsCollateralization(t *testing.T) {
	s := NewState()
	require.NoError(t, apply(t, s, "alice", EntryTypeStake, 100))
	require.NoError(t, apply(t, s, "alice", EntryTypeBorrow, 40))

	// 剩 79 時可借上限 39 < 40
	assert.ErrorIs(t, apply(t, s, "alice", EntryTypeUnstake, 21), ErrInsufficientCollateral)
	require.NoError(t, apply(t, s, "alice", EntryTypeUnstake, 20))
	assert.ErrorIs(t, apply(t, s, "alice", EntryTypeUnstake, 81), ErrInsufficientStaked)

	acc, _ := s.Account("alice")
	assert.True(t, acc.Collateralized())
	assert.Equal(t, uint64(80), s.Totals().Staked)
}

func TestState_Repay(t *testing.T) {
	s := NewState()
	require.NoError(t, apply(t, s, "alice", EntryTypeStake, 100))
	require.NoError(t, apply(t, s, "alice", EntryTypeBorrow, 30))
	require.NoError(t, apply(t, s, "alice", EntryTypeWithdraw, 25))

	assert.ErrorIs(t, apply(t, s, "alice", EntryTypeRepay, 6), ErrInsufficientBalance)
	require.NoError(t, apply(t, s, "alice", EntryTypeDeposit, 100))
	assert.ErrorIs(t, apply(t, s, "alice", EntryTypeRepay, 31), ErrInsufficientBorrowed)
	require.NoError(t, apply(t, s, "alice", EntryTypeRepay, 30))

	acc, _ := s.Account("alice")
	assert.Equal(t, Account{Balance: 75, StakedAmount: 100, BorrowedAmount: 0}, acc)
	assert.Equal(t, uint64(0), s.Totals().Borrowed)
}

func TestState_OverflowLeavesStateUntouched(t *testing.T) {
	s := NewState()
	require.NoError(t, apply(t, s, "alice", EntryTypeDeposit, math.MaxUint64))
	before := s.Snapshot()

	assert.ErrorIs(t, apply(t, s, "alice", EntryTypeDeposit, 1), ErrAmountOverflow)
	require.NoError(t, apply(t, s, "bob", EntryTypeStake, math.MaxUint64))
	assert.ErrorIs(t, apply(t, s, "carol", EntryTypeStake, 1), ErrAmountOverflow, "total_staked overflow")

	_, ok := s.Account("carol")
	assert.False(t, ok)
	acc, _ := s.Account("alice")
	assert.Equal(t, before.Accounts["alice"], acc)
}

func TestState_CheckDoesNotMutate(t *testing.T) {
	s := NewState()
	e := &Entry{EntryID: uuid.New(), Owner: "alice", Type: EntryTypeDeposit, Amount: 10}
	require.NoError(t, s.Check(e))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, uint64(0), s.Sequence())

	err := s.Check(&Entry{EntryID: uuid.New(), Owner: "alice", Type: EntryTypeWithdraw, Amount: 10})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestState_TotalsMatchAccountSums(t *testing.T) {
	s := NewState()
	ops := []struct {
		owner  Identity
		typ    EntryType
		amount uint64
	}{
		{"a", EntryTypeStake, 100},
		{"b", EntryTypeStake, 60},
		{"a", EntryTypeBorrow, 50},
		{"b", EntryTypeBorrow, 10},
		{"a", EntryTypeUnstake, 10},
		{"b", EntryTypeUnstake, 40},
		{"b", EntryTypeRevertUnstake, 40},
		{"a", EntryTypeRepay, 20},
		{"b", EntryTypeBorrow, 25},
	}
	for _, op := range ops {
		_ = apply(t, s, op.owner, op.typ, op.amount)

		snap := s.Snapshot()
		var staked, borrowed uint64
		for _, acc := range snap.Accounts {
			staked += acc.StakedAmount
			borrowed += acc.BorrowedAmount
			assert.True(t, acc.Collateralized())
		}
		assert.Equal(t, Totals{Staked: staked, Borrowed: borrowed}, snap.Totals)
	}
}

func TestOutcome_Err(t *testing.T) {
	assert.NoError(t, Confirmed(7).Err())

	err := Declined("InsufficientFunds").Err()
	assert.ErrorIs(t, err, ErrTransferDeclined)
	assert.Contains(t, err.Error(), "InsufficientFunds")

	err = Unreachable("deadline exceeded").Err()
	assert.ErrorIs(t, err, ErrTransferUnreachable)
	var te *TransferError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "deadline exceeded", te.Reason)
}

func TestEntry_Compensation(t *testing.T) {
	e := &Entry{EntryID: uuid.New(), Owner: "alice", Type: EntryTypeUnstake, Amount: 9}
	revert, ok := e.Compensation()
	require.True(t, ok)
	assert.Equal(t, EntryTypeRevertUnstake, revert.Type)
	assert.Equal(t, e.Amount, revert.Amount)
	assert.NotEqual(t, e.EntryID, revert.EntryID)

	_, ok = (&Entry{Type: EntryTypeDeposit}).Compensation()
	assert.False(t, ok)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.5", FormatAmount(150_000_000))
	assert.Equal(t, "0.00000001", FormatAmount(1))
	assert.Equal(t, "184467440737.09551615", FormatAmount(math.MaxUint64))
}
