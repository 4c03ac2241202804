package domain

import "errors"

var (
	// ErrInvalidAmount 金額必須為正數
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidIdentity 呼叫者身分為空
	ErrInvalidIdentity = errors.New("invalid caller identity")

	// ErrAmountOverflow 加總超過 uint64 上限
	ErrAmountOverflow = errors.New("amount overflow")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientBalance 餘額不足
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientStaked 質押數量不足
	ErrInsufficientStaked = errors.New("insufficient staked amount")

	// ErrInsufficientCollateral 借款超過質押的 50%
	ErrInsufficientCollateral = errors.New("borrow amount exceeds allowed limit")

	// ErrInsufficientBorrowed 還款超過借款
	ErrInsufficientBorrowed = errors.New("repay amount exceeds borrowed amount")

	// ErrBusy 同一帳戶已有進行中的操作
	ErrBusy = errors.New("account has an operation in flight")

	// ErrInvalidTarget 外部轉帳服務地址設定錯誤
	ErrInvalidTarget = errors.New("invalid transfer service target")

	// ErrTransferDeclined 外部轉帳服務明確拒絕
	ErrTransferDeclined = errors.New("token transfer declined")

	// ErrTransferUnreachable 外部轉帳呼叫無法完成
	ErrTransferUnreachable = errors.New("transfer service unreachable")

	// ErrAccountVanished 補償時帳戶已不存在
	ErrAccountVanished = errors.New("account vanished during in-flight operation")

	// ErrLedgerInconsistent 帳本與外部服務狀態不一致，需要人工對帳
	ErrLedgerInconsistent = errors.New("ledger inconsistent")

	// ErrWALWriteFailed WAL 寫入失敗
	ErrWALWriteFailed = errors.New("wal write failed")

	// ErrLedgerClosed 帳本已停止
	ErrLedgerClosed = errors.New("ledger closed")

	// ErrUnknownEntryType 未知的分錄類型
	ErrUnknownEntryType = errors.New("unknown entry type")
)
