package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/ledger"
	"github.com/frahmantamala/gym-storefront/internal/paymentgateway"
)

type Service struct {
	repo     RepositoryAPI
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewService keeps business days in loc; nil means UTC.
func NewService(repo RepositoryAPI, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:     repo,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) BusinessDate(t time.Time) string {
	return t.In(s.location).Format(ledger.BusinessDateLayout)
}

// ObtainOrOpen returns today's open register of the gateway. When there is
// none it first closes registers left open on earlier days.
func (s *Service) ObtainOrOpen(ctx context.Context, gatewayID int64) (*ledger.CashRegister, error) {
	now := s.now()
	today := s.BusinessDate(now)

	reg, err := s.repo.FindOpen(ctx, gatewayID, today)
	if err != nil {
		return nil, fmt.Errorf("find open register: %w", err)
	}
	if reg != nil {
		return reg, nil
	}

	closed, err := s.repo.CloseStale(ctx, gatewayID, today, now)
	if err != nil {
		return nil, fmt.Errorf("close stale registers: %w", err)
	}
	if closed > 0 {
		s.logger.Info("closed stale cash registers", "gateway_id", gatewayID, "count", closed, "before", today)
	}

	fresh := &ledger.CashRegister{
		GatewayID:    gatewayID,
		BusinessDate: today,
		State:        ledger.RegisterOpen,
		OpenedAt:     now,
	}
	if err := s.repo.CreateIfAbsent(ctx, fresh); err != nil {
		return nil, fmt.Errorf("open register: %w", err)
	}

	// another request may have won the insert
	reg, err = s.repo.Find(ctx, gatewayID, today)
	if err != nil {
		return nil, fmt.Errorf("load register: %w", err)
	}
	if reg == nil {
		return nil, ErrRegisterNotFound
	}
	if reg.State != ledger.RegisterOpen {
		return nil, ErrRegisterClosed
	}

	s.logger.Info("cash register ready", "register_id", reg.ID, "gateway_id", gatewayID, "business_date", today)
	return reg, nil
}

// Apply folds one settled transaction into the register.
func (s *Service) Apply(ctx context.Context, registerID, transactionID, gross, fee, tax int64) error {
	if gross < 0 || fee < 0 || tax < 0 || fee+tax > gross {
		return ErrInvalidAmounts
	}

	m := &ledger.Movement{
		RegisterID:    registerID,
		TransactionID: transactionID,
		Gross:         gross,
		Fee:           fee,
		Tax:           tax,
		Net:           gross - fee - tax,
	}
	if err := s.repo.Apply(ctx, m); err != nil {
		return fmt.Errorf("apply transaction %d to register %d: %w", transactionID, registerID, err)
	}

	s.logger.Info("transaction applied to cash register",
		"register_id", registerID,
		"transaction_id", transactionID,
		"gross", gross,
		"fee", fee,
		"tax", tax)
	return nil
}

// ApplyToday applies the transaction to registerID, moving it to the
// gateway's current register when registerID was closed in the meantime.
// It returns the register that took the transaction.
func (s *Service) ApplyToday(ctx context.Context, gatewayID, registerID, transactionID, gross, fee, tax int64) (int64, error) {
	err := s.Apply(ctx, registerID, transactionID, gross, fee, tax)
	if !errors.Is(err, ErrRegisterNotOpen) {
		return registerID, err
	}

	reg, err := s.ObtainOrOpen(ctx, gatewayID)
	if err != nil {
		return 0, err
	}
	s.logger.Warn("cash register closed before settlement, using current register",
		"transaction_id", transactionID,
		"closed_register_id", registerID,
		"register_id", reg.ID)
	if err := s.Apply(ctx, reg.ID, transactionID, gross, fee, tax); err != nil {
		return 0, err
	}
	return reg.ID, nil
}

func (s *Service) Get(ctx context.Context, registerID int64) (*ledger.CashRegister, error) {
	reg, err := s.repo.GetByID(ctx, registerID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrRegisterNotFound
	}
	return reg, nil
}

func (s *Service) Movements(ctx context.Context, registerID int64) ([]ledger.Movement, error) {
	return s.repo.Movements(ctx, registerID)
}

// Fees computes the gateway commission on gross and the tax charged on that
// commission. Basis points are rounded half up.
func Fees(settings *paymentgateway.Settings, gross int64) (fee, tax int64) {
	if settings == nil || gross <= 0 {
		return 0, 0
	}
	fee = basisPoints(gross, settings.FeeBasisPoints) + settings.FixedFee
	if fee > gross {
		fee = gross
	}
	tax = basisPoints(fee, settings.TaxBasisPoints)
	if fee+tax > gross {
		tax = gross - fee
	}
	return fee, tax
}

func basisPoints(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}
