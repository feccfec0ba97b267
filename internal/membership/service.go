package membership

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/gym-storefront/internal"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/membership"
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ResolveBuyer finds the buyer by document id, creating it when absent.
// Contact details of an existing buyer are refreshed from the input.
func (s *Service) ResolveBuyer(ctx context.Context, in BuyerInput) (*membership.Buyer, bool, error) {
	documentID := strings.TrimSpace(in.DocumentID)
	buyer, err := s.repo.GetBuyerByDocument(ctx, documentID)
	if err != nil {
		return nil, false, fmt.Errorf("find buyer: %w", err)
	}

	if buyer == nil {
		buyer = &membership.Buyer{
			DocumentID: documentID,
			FirstName:  strings.TrimSpace(in.FirstName),
			LastName:   strings.TrimSpace(in.LastName),
			Email:      strings.ToLower(strings.TrimSpace(in.Email)),
			Phone:      strings.TrimSpace(in.Phone),
		}
		if err := s.repo.CreateBuyer(ctx, buyer); err != nil {
			return nil, false, fmt.Errorf("create buyer: %w", err)
		}
		s.logger.Info("buyer created", "buyer_id", buyer.ID)
		return buyer, true, nil
	}

	changed := false
	if email := strings.ToLower(strings.TrimSpace(in.Email)); email != "" && email != buyer.Email {
		buyer.Email = email
		changed = true
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" && phone != buyer.Phone {
		buyer.Phone = phone
		changed = true
	}
	if changed {
		if err := s.repo.UpdateBuyer(ctx, buyer); err != nil {
			return nil, false, fmt.Errorf("update buyer: %w", err)
		}
	}
	return buyer, false, nil
}

func (s *Service) Plan(ctx context.Context, code string) (*membership.Plan, error) {
	plan, err := s.repo.GetPlanByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, internal.ErrPlanNotFound
	}
	if !plan.IsActive {
		return nil, internal.ErrPlanInactive
	}
	return plan, nil
}

func (s *Service) ActivePlans(ctx context.Context) ([]membership.Plan, error) {
	return s.repo.ListActivePlans(ctx)
}

// SavePlan creates or updates a plan by code.
func (s *Service) SavePlan(ctx context.Context, plan *membership.Plan) error {
	if plan.Code == "" || plan.Price <= 0 || plan.DurationDays <= 0 || len(plan.Currency) != 3 {
		return fmt.Errorf("invalid plan %q", plan.Code)
	}
	return s.repo.UpsertPlan(ctx, plan)
}

// Materialize records the sale, its line and an active membership that
// starts today and runs for the plan duration.
func (s *Service) Materialize(ctx context.Context, in SaleInput) (*Bundle, error) {
	if in.Plan == nil {
		return nil, internal.ErrPlanNotFound
	}
	qty := in.Quantity
	if qty <= 0 {
		qty = 1
	}

	startsAt := startOfDay(s.now())
	total := in.Plan.Price * int64(qty)

	bundle := &Bundle{
		Sale: &membership.Sale{
			BuyerID:       in.BuyerID,
			SessionID:     in.SessionID,
			TransactionID: in.TransactionID,
			Total:         total,
			Currency:      in.Plan.Currency,
		},
		Lines: []*membership.SaleLine{{
			PlanID:      in.Plan.ID,
			Description: in.Plan.Name,
			Quantity:    qty,
			UnitPrice:   in.Plan.Price,
			LineTotal:   total,
		}},
		Membership: &membership.Membership{
			BuyerID:        in.BuyerID,
			PlanID:         in.Plan.ID,
			SubscriptionID: in.SubscriptionID,
			State:          membership.StateActive,
			StartsAt:       startsAt,
			EndsAt:         startsAt.AddDate(0, 0, in.Plan.DurationDays*qty),
		},
		TransactionID:  in.TransactionID,
		SubscriptionID: in.SubscriptionID,
	}

	if err := s.repo.Materialize(ctx, bundle); err != nil {
		return nil, fmt.Errorf("materialize sale: %w", err)
	}

	s.logger.Info("membership activated",
		"sale_id", bundle.Sale.ID,
		"membership_id", bundle.Membership.ID,
		"buyer_id", in.BuyerID,
		"plan", in.Plan.Code,
		"ends_at", bundle.Membership.EndsAt)
	return bundle, nil
}

func (s *Service) SaleForSession(ctx context.Context, sessionID int64) (*membership.Sale, error) {
	return s.repo.GetSaleBySession(ctx, sessionID)
}

// BundleForSession loads what an earlier settled checkout materialized.
// It returns (nil, nil) when that session recorded no sale.
func (s *Service) BundleForSession(ctx context.Context, sessionID int64) (*Bundle, error) {
	sale, err := s.repo.GetSaleBySession(ctx, sessionID)
	if err != nil || sale == nil {
		return nil, err
	}
	m, err := s.repo.GetMembershipBySale(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("sale %d has no membership", sale.ID)
	}
	return &Bundle{
		Sale:           sale,
		Membership:     m,
		TransactionID:  sale.TransactionID,
		SubscriptionID: m.SubscriptionID,
	}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*membership.Membership, error) {
	return s.repo.GetMembership(ctx, id)
}

// ExpireEnded moves active memberships whose validity ended before now to expired.
func (s *Service) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.ExpireEnded(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("memberships expired", "count", n)
	}
	return n, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
