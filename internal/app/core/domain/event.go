package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus 操作結果
type EventStatus string

const (
	EventStatusCommitted   EventStatus = "committed"
	EventStatusRejected    EventStatus = "rejected"
	EventStatusCompensated EventStatus = "compensated"
)

// LedgerEvent 對外發布的操作事件
type LedgerEvent struct {
	OperationID uuid.UUID   `json:"operation_id"`
	Operation   string      `json:"operation"`
	Owner       Identity    `json:"owner"`
	Amount      uint64      `json:"amount"`
	Status      EventStatus `json:"status"`
	Reason      string      `json:"reason,omitempty"`
	BlockIndex  uint64      `json:"block_index,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}
