package domain

import "fmt"

// Subaccount 外部轉帳服務的子帳戶 (32 bytes)
type Subaccount [32]byte

// TransferAccount 外部轉帳服務上的帳戶
type TransferAccount struct {
	Owner      Identity    `json:"owner"`
	Subaccount *Subaccount `json:"subaccount,omitempty"`
}

// TransferRequest 外部轉帳請求，欄位原樣傳給外部服務
type TransferRequest struct {
	FromSubaccount *Subaccount     `json:"from_subaccount,omitempty"`
	From           Identity        `json:"from"`
	To             TransferAccount `json:"to"`
	Amount         uint64          `json:"amount"`
	Fee            *uint64         `json:"fee,omitempty"`
	Memo           []byte          `json:"memo,omitempty"`
	CreatedAtTime  *uint64         `json:"created_at_time,omitempty"`
}

// OutcomeStatus 外部轉帳的三種結果
type OutcomeStatus uint8

const (
	// OutcomeConfirmed 轉帳成功
	OutcomeConfirmed OutcomeStatus = iota
	// OutcomeDeclined 外部服務明確拒絕 (例如外部餘額不足)
	OutcomeDeclined
	// OutcomeUnreachable 呼叫沒有完成 (timeout、路由失敗、地址錯誤)
	OutcomeUnreachable
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeDeclined:
		return "declined"
	case OutcomeUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Outcome 外部轉帳結果
type Outcome struct {
	Status OutcomeStatus
	// BlockIndex: 外部服務回傳的轉帳編號 (Confirmed 才有)
	BlockIndex uint64
	// Reason: 失敗原因
	Reason string
}

// Confirmed 建立成功結果
func Confirmed(blockIndex uint64) Outcome {
	return Outcome{Status: OutcomeConfirmed, BlockIndex: blockIndex}
}

// Declined 建立拒絕結果
func Declined(reason string) Outcome {
	return Outcome{Status: OutcomeDeclined, Reason: reason}
}

// Unreachable 建立無法連線結果
func Unreachable(reason string) Outcome {
	return Outcome{Status: OutcomeUnreachable, Reason: reason}
}

// Err 將結果轉成 error；Confirmed 回傳 nil
func (o Outcome) Err() error {
	switch o.Status {
	case OutcomeConfirmed:
		return nil
	case OutcomeDeclined:
		return &TransferError{Kind: ErrTransferDeclined, Reason: o.Reason}
	default:
		return &TransferError{Kind: ErrTransferUnreachable, Reason: o.Reason}
	}
}

// TransferError 帶有原因的轉帳錯誤，errors.Is 可比對 Kind
type TransferError struct {
	Kind   error
	Reason string
}

func (e *TransferError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *TransferError) Unwrap() error {
	return e.Kind
}
