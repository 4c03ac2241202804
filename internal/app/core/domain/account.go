package domain

import "math/bits"

// Identity 呼叫者身分 (由傳輸層驗證後提供)
type Identity string

// Account 單一身分的帳戶
type Account struct {
	Balance        uint64 `json:"balance"`
	StakedAmount   uint64 `json:"staked_amount"`
	BorrowedAmount uint64 `json:"borrowed_amount"`
}

// MaxBorrow 可借上限 = 質押的一半 (無條件捨去)
func (a *Account) MaxBorrow() uint64 {
	return a.StakedAmount / 2
}

// Collateralized 檢查借款是否在質押的 50% 以內
func (a *Account) Collateralized() bool {
	return a.BorrowedAmount <= a.MaxBorrow()
}

// Credit 增加可用餘額
func (a *Account) Credit(amount uint64) error {
	sum, err := addUint64(a.Balance, amount)
	if err != nil {
		return err
	}
	a.Balance = sum
	return nil
}

// Debit 扣除可用餘額
func (a *Account) Debit(amount uint64) error {
	if a.Balance < amount {
		return ErrInsufficientBalance
	}
	a.Balance -= amount
	return nil
}

// Stake 增加質押
func (a *Account) Stake(amount uint64) error {
	sum, err := addUint64(a.StakedAmount, amount)
	if err != nil {
		return err
	}
	a.StakedAmount = sum
	return nil
}

// Unstake 解除質押，解除後仍須滿足抵押率
func (a *Account) Unstake(amount uint64) error {
	if a.StakedAmount < amount {
		return ErrInsufficientStaked
	}
	if a.BorrowedAmount > (a.StakedAmount-amount)/2 {
		return ErrInsufficientCollateral
	}
	a.StakedAmount -= amount
	return nil
}

// Borrow 借款，已借金額也計入上限
func (a *Account) Borrow(amount uint64) error {
	limit := a.MaxBorrow()
	if a.BorrowedAmount > limit || amount > limit-a.BorrowedAmount {
		return ErrInsufficientCollateral
	}
	balance, err := addUint64(a.Balance, amount)
	if err != nil {
		return err
	}
	a.BorrowedAmount += amount
	a.Balance = balance
	return nil
}

// Repay 以可用餘額還款
func (a *Account) Repay(amount uint64) error {
	if a.Balance < amount {
		return ErrInsufficientBalance
	}
	if a.BorrowedAmount < amount {
		return ErrInsufficientBorrowed
	}
	a.Balance -= amount
	a.BorrowedAmount -= amount
	return nil
}

// Totals 全帳本的質押與借款總額
type Totals struct {
	Staked   uint64 `json:"total_staked"`
	Borrowed uint64 `json:"total_borrowed"`
}

func addUint64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrAmountOverflow
	}
	return sum, nil
}
