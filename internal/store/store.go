// Package store persists the audit trail the core produces at hand
// settlement boundaries: pot distributions, treasury allocations, pool
// balances and terminal hand outcomes. Nothing here is read mid-hand.
package store

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feltworks/tableserver/internal/treasury"
)

type PotDistribution struct {
	ID             string `gorm:"primaryKey;size:36"`
	TableID        string `gorm:"index;size:36"`
	HandID         string `gorm:"index;size:36"`
	PotAmount      int64
	WinnerAmount   int64
	RakeAmount     int64
	TreasuryAmount int64
	JackpotAmount  int64
	CreatedAt      time.Time
}

type TreasuryAllocation struct {
	ID          string `gorm:"primaryKey;size:36"`
	Amount      int64
	Purpose     string `gorm:"size:64"`
	Description string
	CreatedAt   time.Time
}

type PoolBalance struct {
	Kind      string `gorm:"primaryKey;size:16"`
	Balance   int64
	UpdatedAt time.Time
}

// HandOutcome is the terminal record of one hand, written exactly once
// when the hand settles or folds out.
type HandOutcome struct {
	ID        string `gorm:"primaryKey;size:36"` // hand id
	TableID   string `gorm:"index;size:36"`
	Terminal  string `gorm:"size:16"` // settled or folded-out
	Board     string `gorm:"size:32"`
	Pot       int64
	Winners   string // comma-separated player ids
	CreatedAt time.Time
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to postgres and migrates the audit tables.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&PotDistribution{}, &TreasuryAllocation{}, &PoolBalance{}, &HandOutcome{}); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) AppendDistribution(ctx context.Context, d *treasury.Distribution) error {
	rec := PotDistribution{
		ID:             d.ID,
		TableID:        d.TableID,
		HandID:         d.HandID,
		PotAmount:      d.PotAmount,
		WinnerAmount:   d.WinnerAmount,
		RakeAmount:     d.RakeAmount,
		TreasuryAmount: d.TreasuryAmount,
		JackpotAmount:  d.JackpotAmount,
		CreatedAt:      d.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *Store) AppendAllocation(ctx context.Context, a *treasury.Allocation) error {
	rec := TreasuryAllocation{
		ID:          a.ID,
		Amount:      a.Amount,
		Purpose:     a.Purpose,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *Store) SavePoolBalance(ctx context.Context, kind treasury.PoolKind, balance int64, updatedAt time.Time) error {
	rec := PoolBalance{Kind: string(kind), Balance: balance, UpdatedAt: updatedAt}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
		}).
		Create(&rec).Error
}

// LoadPoolBalances reads the persisted pool counters at process start.
// Missing rows read as zero.
func (s *Store) LoadPoolBalances(ctx context.Context) (treasuryBal, jackpotBal int64, err error) {
	var rows []PoolBalance
	if err = s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		switch treasury.PoolKind(r.Kind) {
		case treasury.PoolTreasury:
			treasuryBal = r.Balance
		case treasury.PoolJackpot:
			jackpotBal = r.Balance
		}
	}
	return treasuryBal, jackpotBal, nil
}

func (s *Store) ArchiveHand(ctx context.Context, o *HandOutcome) error {
	return s.db.WithContext(ctx).Create(o).Error
}
