// Package treasury settles resolved pots into platform economics: rake,
// a shared treasury pool, and a progressive jackpot funded out of rake.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInsufficientFunds = errors.New("insufficient treasury funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrNilLedger         = errors.New("ledger cannot be nil")
)

// Config holds the economics constants. Percentages are integer percent
// values; all splits use floor division so chips never appear from rounding.
type Config struct {
	MinPotForRake          int64 // pots below this take no fees at all
	RakePercent            int64
	MaxRakePerPot          int64
	TreasuryPercent        int64
	JackpotPercentFromRake int64
}

// DefaultConfig mirrors the production table economics.
func DefaultConfig() Config {
	return Config{
		MinPotForRake:          100,
		RakePercent:            5,
		MaxRakePerPot:          300,
		TreasuryPercent:        2,
		JackpotPercentFromRake: 10,
	}
}

// Distribution is the immutable record of one resolved pot's split.
// WinnerAmount + RakeAmount + TreasuryAmount == PotAmount always;
// JackpotAmount is carved out of RakeAmount, never additive.
type Distribution struct {
	ID             string
	TableID        string
	HandID         string
	PotAmount      int64
	WinnerAmount   int64
	RakeAmount     int64
	TreasuryAmount int64
	JackpotAmount  int64
	CreatedAt      time.Time
}

// Allocation records a debit from the treasury pool for a platform
// purpose (promotions, leaderboards, manual grants).
type Allocation struct {
	ID          string
	Amount      int64
	Purpose     string
	Description string
	CreatedAt   time.Time
}

// PoolKind names one of the two singleton aggregates.
type PoolKind string

const (
	PoolTreasury PoolKind = "treasury"
	PoolJackpot  PoolKind = "jackpot"
)

// Ledger is the durable side of the engine: an append-only distribution
// and allocation log plus the persisted pool balances.
type Ledger interface {
	AppendDistribution(ctx context.Context, d *Distribution) error
	AppendAllocation(ctx context.Context, a *Allocation) error
	SavePoolBalance(ctx context.Context, kind PoolKind, balance int64, updatedAt time.Time) error
}

// pool is a single-writer counter. Each pool has its own lock so the two
// credits from a distribution stay independent.
type pool struct {
	mu        sync.Mutex
	balance   int64
	updatedAt time.Time
}

func (p *pool) add(amount int64) (int64, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance += amount
	p.updatedAt = time.Now().UTC()
	return p.balance, p.updatedAt
}

func (p *pool) debit(amount int64) (int64, time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.balance < amount {
		return p.balance, p.updatedAt, ErrInsufficientFunds
	}
	p.balance -= amount
	p.updatedAt = time.Now().UTC()
	return p.balance, p.updatedAt, nil
}

func (p *pool) read() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

// Service is the economics engine. Tables settle pots concurrently, so
// the pools are the only shared mutable state in the process and every
// update goes through their counters.
type Service struct {
	cfg    Config
	ledger Ledger
	log    *zap.Logger

	treasury pool
	jackpot  pool
}

func NewService(cfg Config, ledger Ledger, log *zap.Logger) (*Service, error) {
	if ledger == nil {
		return nil, ErrNilLedger
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cfg: cfg, ledger: ledger, log: log}, nil
}

// Restore seeds the in-memory pool counters, used at process start to
// pick up the balances persisted by a previous run.
func (s *Service) Restore(treasury, jackpot int64) {
	s.treasury.add(treasury)
	s.jackpot.add(jackpot)
}

// Balances reports the current treasury and jackpot balances.
func (s *Service) Balances() (treasury, jackpot int64) {
	return s.treasury.read(), s.jackpot.read()
}

// Distribute splits a resolved pot, appends the distribution record and
// credits the pools. Small pots below MinPotForRake pay no fees so they
// are not eroded away.
func (s *Service) Distribute(ctx context.Context, potAmount int64, tableID, handID string) (*Distribution, error) {
	if potAmount <= 0 {
		return nil, fmt.Errorf("%w: pot %d", ErrInvalidAmount, potAmount)
	}

	d := &Distribution{
		ID:        uuid.NewString(),
		TableID:   tableID,
		HandID:    handID,
		PotAmount: potAmount,
		CreatedAt: time.Now().UTC(),
	}

	if potAmount < s.cfg.MinPotForRake {
		d.WinnerAmount = potAmount
	} else {
		rake := potAmount * s.cfg.RakePercent / 100
		if rake > s.cfg.MaxRakePerPot {
			rake = s.cfg.MaxRakePerPot
		}
		d.RakeAmount = rake
		d.TreasuryAmount = potAmount * s.cfg.TreasuryPercent / 100
		d.JackpotAmount = rake * s.cfg.JackpotPercentFromRake / 100
		d.WinnerAmount = potAmount - d.RakeAmount - d.TreasuryAmount
	}

	if err := s.ledger.AppendDistribution(ctx, d); err != nil {
		return nil, fmt.Errorf("append distribution: %w", err)
	}

	if d.TreasuryAmount > 0 {
		bal, at := s.treasury.add(d.TreasuryAmount)
		s.persistPool(ctx, PoolTreasury, bal, at)
	}
	if d.JackpotAmount > 0 {
		bal, at := s.jackpot.add(d.JackpotAmount)
		s.persistPool(ctx, PoolJackpot, bal, at)
	}

	s.log.Info("pot distributed",
		zap.String("table", tableID),
		zap.String("hand", handID),
		zap.Int64("pot", d.PotAmount),
		zap.Int64("winner", d.WinnerAmount),
		zap.Int64("rake", d.RakeAmount),
		zap.Int64("treasury", d.TreasuryAmount),
		zap.Int64("jackpot", d.JackpotAmount))
	return d, nil
}

// AllocateFunds debits the treasury pool for a platform purpose. The
// debit is all-or-nothing: a short balance fails with ErrInsufficientFunds
// and no state changes.
func (s *Service) AllocateFunds(ctx context.Context, amount int64, purpose, description string) (*Allocation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: allocation %d", ErrInvalidAmount, amount)
	}

	bal, at, err := s.treasury.debit(amount)
	if err != nil {
		return nil, err
	}

	a := &Allocation{
		ID:          uuid.NewString(),
		Amount:      amount,
		Purpose:     purpose,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.ledger.AppendAllocation(ctx, a); err != nil {
		// Put the chips back rather than lose track of them.
		s.treasury.add(amount)
		return nil, fmt.Errorf("append allocation: %w", err)
	}
	s.persistPool(ctx, PoolTreasury, bal, at)

	s.log.Info("treasury allocation",
		zap.String("purpose", purpose),
		zap.Int64("amount", amount),
		zap.Int64("balance", bal))
	return a, nil
}

func (s *Service) persistPool(ctx context.Context, kind PoolKind, balance int64, at time.Time) {
	if err := s.ledger.SavePoolBalance(ctx, kind, balance, at); err != nil {
		s.log.Warn("pool balance persist failed", zap.String("pool", string(kind)), zap.Error(err))
	}
}
