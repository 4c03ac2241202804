package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/pkg/mysql"
)

// 快照只有一筆 meta
const metaRowID = 1

const saveBatchSize = 500

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	Identity  string `gorm:"primaryKey;size:191"`
	Balance   uint64
	Staked    uint64
	Borrowed  uint64
	UpdatedAt int64 `gorm:"autoUpdateTime:milli"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlLedgerMeta 對應資料庫的 ledger_meta 表
type sqlLedgerMeta struct {
	ID            uint8 `gorm:"primaryKey;autoIncrement:false"`
	Sequence      uint64
	TotalStaked   uint64
	TotalBorrowed uint64
	UpdatedAt     int64 `gorm:"autoUpdateTime:milli"`
}

func (*sqlLedgerMeta) TableName() string {
	return "ledger_meta"
}

// SnapshotRepository 將記憶體帳本定期落地到 MySQL
// 啟動時讀回快照，再用 WAL 補上快照之後的紀錄
type SnapshotRepository struct {
	client *mysql.Client
}

func NewSnapshotRepository(client *mysql.Client) *SnapshotRepository {
	return &SnapshotRepository{
		client: client,
	}
}

// Migrate 建立或更新資料表
func (r *SnapshotRepository) Migrate(ctx context.Context) error {
	return r.client.DB().WithContext(ctx).AutoMigrate(&sqlAccount{}, &sqlLedgerMeta{})
}

// SaveSnapshot 在同一個 Transaction 內寫入所有帳戶與 meta
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snap domain.Snapshot) error {
	accounts := make([]sqlAccount, 0, len(snap.Accounts))
	for id, acc := range snap.Accounts {
		accounts = append(accounts, sqlAccount{
			Identity: string(id),
			Balance:  acc.Balance,
			Staked:   acc.StakedAmount,
			Borrowed: acc.BorrowedAmount,
		})
	}
	meta := sqlLedgerMeta{
		ID:            metaRowID,
		Sequence:      snap.Sequence,
		TotalStaked:   snap.Totals.Staked,
		TotalBorrowed: snap.Totals.Borrowed,
	}

	return r.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(accounts) > 0 {
			err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
				CreateInBatches(&accounts, saveBatchSize).Error
			if err != nil {
				return fmt.Errorf("save accounts: %w", err)
			}
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&meta).Error; err != nil {
			return fmt.Errorf("save ledger meta: %w", err)
		}
		return nil
	})
}

// LoadSnapshot 讀取最後一次的快照
//
// 回傳值:
//
//	*domain.Snapshot: 尚未寫過快照時為 nil
//	error: 查詢失敗
func (r *SnapshotRepository) LoadSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	db := r.client.DB().WithContext(ctx)

	var meta sqlLedgerMeta
	err := db.Where("id = ?", metaRowID).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger meta: %w", err)
	}

	var rows []sqlAccount
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	snap := &domain.Snapshot{
		Accounts: make(map[domain.Identity]domain.Account, len(rows)),
		Totals: domain.Totals{
			Staked:   meta.TotalStaked,
			Borrowed: meta.TotalBorrowed,
		},
		Sequence: meta.Sequence,
	}
	for _, row := range rows {
		snap.Accounts[domain.Identity(row.Identity)] = domain.Account{
			Balance:        row.Balance,
			StakedAmount:   row.Staked,
			BorrowedAmount: row.Borrowed,
		}
	}
	return snap, nil
}
