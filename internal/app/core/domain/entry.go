package domain

import "github.com/google/uuid"

// EntryType 分錄類型
// 為了節省記憶體，使用 uint8
type EntryType uint8

const (
	// 存入可用餘額 (帳戶不存在時建立)
	EntryTypeDeposit EntryType = 1
	// 扣除可用餘額 (提款的樂觀扣款)
	EntryTypeWithdraw EntryType = 2
	// 提款失敗的補償
	EntryTypeRevertWithdraw EntryType = 3
	// 增加質押 (帳戶不存在時建立)
	EntryTypeStake EntryType = 4
	// 解除質押 (樂觀扣款)
	EntryTypeUnstake EntryType = 5
	// 解除質押失敗的補償
	EntryTypeRevertUnstake EntryType = 6
	// 借款
	EntryTypeBorrow EntryType = 7
	// 還款
	EntryTypeRepay EntryType = 8
)

var entryTypeNames = map[EntryType]string{
	EntryTypeDeposit:        "deposit",
	EntryTypeWithdraw:       "withdraw",
	EntryTypeRevertWithdraw: "revert_withdraw",
	EntryTypeStake:          "stake",
	EntryTypeUnstake:        "unstake",
	EntryTypeRevertUnstake:  "revert_unstake",
	EntryTypeBorrow:         "borrow",
	EntryTypeRepay:          "repay",
}

func (t EntryType) String() string {
	if name, ok := entryTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Entry 帳本分錄，所有狀態變更都以分錄的形式套用
// 注意欄位排序以避免 Padding
type Entry struct {
	// Sequence: 由帳本分配的遞增序號，用於 WAL 重放與快照對齊
	Sequence uint64 `json:"sequence"`
	// Amount: 金額 (最小單位)
	Amount uint64 `json:"amount"`
	// CreatedAt: 建立時間 (unix nano)
	CreatedAt int64 `json:"created_at"`
	// Owner: 帳戶身分
	Owner Identity `json:"owner"`
	// EntryID: 冪等鍵
	EntryID uuid.UUID `json:"entry_id"`
	// Type: 放到最後面，利用 Padding 空間
	Type EntryType `json:"type"`
}

// Compensation 回傳抵銷此分錄的補償分錄，只有樂觀扣款類型才有補償
func (e *Entry) Compensation() (*Entry, bool) {
	var revert EntryType
	switch e.Type {
	case EntryTypeWithdraw:
		revert = EntryTypeRevertWithdraw
	case EntryTypeUnstake:
		revert = EntryTypeRevertUnstake
	default:
		return nil, false
	}
	return &Entry{
		EntryID: uuid.New(),
		Owner:   e.Owner,
		Amount:  e.Amount,
		Type:    revert,
	}, true
}
