package domain

// State 帳本狀態：帳戶 Map 加上全域總額
// 不是 thread-safe，由外層的帳本實作負責同步
type State struct {
	accounts map[Identity]*Account
	totals   Totals
	// 最後套用的分錄序號
	sequence uint64
}

// NewState 建立空的帳本狀態
func NewState() *State {
	return &State{
		accounts: make(map[Identity]*Account),
	}
}

// Restore 由快照還原帳本狀態
func Restore(snap Snapshot) *State {
	s := &State{
		accounts: make(map[Identity]*Account, len(snap.Accounts)),
		totals:   snap.Totals,
		sequence: snap.Sequence,
	}
	for id, acc := range snap.Accounts {
		acc := acc // per-iteration copy (go 1.21 loop-variable semantics)
		s.accounts[id] = &acc
	}
	return s
}

// Account 取得帳戶副本
func (s *State) Account(id Identity) (Account, bool) {
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, false
	}
	return *acc, true
}

// Totals 取得全域總額
func (s *State) Totals() Totals {
	return s.totals
}

// Sequence 最後套用的分錄序號
func (s *State) Sequence() uint64 {
	return s.sequence
}

// NextSequence 下一個可分配的序號
func (s *State) NextSequence() uint64 {
	return s.sequence + 1
}

// Len 帳戶數量
func (s *State) Len() int {
	return len(s.accounts)
}

// Apply 套用一筆分錄 (全有或全無)
// 先在副本上計算，所有檢查通過後才寫回，因此失敗時狀態不變
//
// 參數:
//
//	e: 分錄，Sequence 必須已分配
//
// 回傳:
//
//	error: 驗證錯誤 (帳戶不存在、餘額不足、溢位...)
func (s *State) Apply(e *Entry) error {
	acc, err := s.prepare(e)
	if err != nil {
		return err
	}
	totals := s.totals

	switch e.Type {
	case EntryTypeDeposit:
		err = acc.Credit(e.Amount)
	case EntryTypeWithdraw:
		err = acc.Debit(e.Amount)
	case EntryTypeRevertWithdraw:
		err = acc.Credit(e.Amount)
	case EntryTypeStake, EntryTypeRevertUnstake:
		if err = acc.Stake(e.Amount); err == nil {
			totals.Staked, err = addUint64(totals.Staked, e.Amount)
		}
	case EntryTypeUnstake:
		if err = acc.Unstake(e.Amount); err == nil {
			totals.Staked -= e.Amount
		}
	case EntryTypeBorrow:
		if err = acc.Borrow(e.Amount); err == nil {
			totals.Borrowed, err = addUint64(totals.Borrowed, e.Amount)
		}
	case EntryTypeRepay:
		if err = acc.Repay(e.Amount); err == nil {
			totals.Borrowed -= e.Amount
		}
	default:
		err = ErrUnknownEntryType
	}
	if err != nil {
		return err
	}

	s.accounts[e.Owner] = &acc
	s.totals = totals
	if e.Sequence > s.sequence {
		s.sequence = e.Sequence
	}
	return nil
}

// Check 只驗證不寫入，供寫 WAL 之前使用
func (s *State) Check(e *Entry) error {
	acc, err := s.prepare(e)
	if err != nil {
		return err
	}
	probe := &State{
		accounts: map[Identity]*Account{e.Owner: &acc},
		totals:   s.totals,
	}
	return probe.Apply(e)
}

// prepare 取得要修改的帳戶副本，依分錄類型決定帳戶不存在時的行為
func (s *State) prepare(e *Entry) (Account, error) {
	if e.Owner == "" {
		return Account{}, ErrInvalidIdentity
	}
	existing, ok := s.accounts[e.Owner]
	if ok {
		return *existing, nil
	}
	switch e.Type {
	case EntryTypeDeposit, EntryTypeStake:
		return Account{}, nil
	case EntryTypeRevertWithdraw, EntryTypeRevertUnstake:
		return Account{}, ErrAccountVanished
	default:
		return Account{}, ErrAccountNotFound
	}
}

// Snapshot 帳本快照
type Snapshot struct {
	Accounts map[Identity]Account
	Totals   Totals
	Sequence uint64
}

// Snapshot 匯出目前狀態的深拷貝
func (s *State) Snapshot() Snapshot {
	accounts := make(map[Identity]Account, len(s.accounts))
	for id, acc := range s.accounts {
		accounts[id] = *acc
	}
	return Snapshot{
		Accounts: accounts,
		Totals:   s.totals,
		Sequence: s.sequence,
	}
}
