package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/frahmantamala/gym-storefront/internal"
	"github.com/frahmantamala/gym-storefront/internal/audit"
	"github.com/frahmantamala/gym-storefront/internal/core/common/validation"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/gateway"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/membership"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/session"
	"github.com/frahmantamala/gym-storefront/internal/core/events"
	ledgerpkg "github.com/frahmantamala/gym-storefront/internal/ledger"
	"github.com/frahmantamala/gym-storefront/internal/masking"
	membershippkg "github.com/frahmantamala/gym-storefront/internal/membership"
	"github.com/frahmantamala/gym-storefront/internal/paymentgateway"
	sessionpkg "github.com/frahmantamala/gym-storefront/internal/session"
)

const gatewayDateLayout = "2006-01-02"

type Dependencies struct {
	GatewayID   int64
	Gateway     GatewayCaller
	Settings    SettingsSource
	Repository  RepositoryAPI
	Sessions    *sessionpkg.Service
	Ledger      *ledgerpkg.Service
	Memberships *membershippkg.Service
	// Publisher and Metrics are optional.
	Publisher Publisher
	Metrics   *Metrics
}

type Orchestrator struct {
	gatewayID   int64
	gateway     GatewayCaller
	settings    SettingsSource
	repo        RepositoryAPI
	sessions    *sessionpkg.Service
	ledger      *ledgerpkg.Service
	memberships *membershippkg.Service
	publisher   Publisher
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time
}

func NewOrchestrator(deps Dependencies, logger *slog.Logger) *Orchestrator {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Orchestrator{
		gatewayID:   deps.GatewayID,
		gateway:     deps.Gateway,
		settings:    deps.Settings,
		repo:        deps.Repository,
		sessions:    deps.Sessions,
		ledger:      deps.Ledger,
		memberships: deps.Memberships,
		publisher:   deps.Publisher,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// purchase is the state carried from one phase to the next.
type purchase struct {
	req     PurchaseRequest
	plan    *membership.Plan
	session *session.PaymentSession
	logger  *slog.Logger

	buyer        *membership.Buyer
	customer     *gateway.Customer
	card         *gateway.Card
	subscription *gateway.Subscription
	transaction  *gateway.Transaction
	bundle       *membershippkg.Bundle

	// prior is the earlier booking of the same gateway charge, set when
	// the gateway answers a repeated purchase with a charge we already hold.
	prior *gateway.Transaction

	settled           bool
	externalTxnID     string
	subscriptionBody  json.RawMessage
	subscriptionLogID int64

	result *Result
}

// Process runs one purchase. Invalid input is rejected before a session
// exists. Once the session is open every outcome comes back as a Result;
// failures also return an *internal.AppError describing the cause.
// Gateway resources created before a failure are left in place.
func (o *Orchestrator) Process(ctx context.Context, req PurchaseRequest) (*Result, error) {
	started := o.now()
	req = normalize(req)

	if appErr := validatePurchase(req); appErr != nil {
		o.metrics.Results.WithLabelValues("invalid", PhaseValidation).Inc()
		return nil, appErr
	}

	plan, err := o.memberships.Plan(ctx, req.PlanCode)
	if err != nil {
		o.metrics.Results.WithLabelValues("invalid", PhaseValidation).Inc()
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		return nil, internal.NewInternalError("could not load the membership plan", err)
	}
	if req.Amount != plan.Price {
		o.metrics.Results.WithLabelValues("invalid", PhaseValidation).Inc()
		return nil, internal.NewValidationFieldError("amount",
			fmt.Sprintf("amount must equal the plan price of %d", plan.Price), internal.ErrCodeAmountMismatch)
	}

	ps, err := o.sessions.Open(ctx, sessionpkg.OpenParams{
		PlanID:            &plan.ID,
		DocumentID:        req.DocumentID,
		DeviceFingerprint: req.DeviceSessionID,
		ClientIP:          req.ClientIP,
		UserAgent:         req.UserAgent,
		Amount:            req.Amount,
		Currency:          plan.Currency,
	})
	if err != nil {
		o.metrics.Results.WithLabelValues("failed", PhaseSession).Inc()
		return nil, internal.NewInternalError("could not start the payment session", err)
	}

	p := &purchase{
		req:     req,
		plan:    plan,
		session: ps,
		logger:  o.logger.With("session_id", ps.ID, "plan", plan.Code),
		result: &Result{
			SessionID:    ps.ID,
			SessionToken: ps.Token,
		},
	}

	err = o.record(ctx, p, sessionpkg.ActionStarted, "checkout started", map[string]any{
		"plan":     plan.Code,
		"amount":   req.Amount,
		"currency": plan.Currency,
	}, nil)
	if err != nil {
		return o.fail(ctx, p, PhaseSession, err, started)
	}

	phases := []struct {
		name string
		run  func(context.Context, *purchase) error
	}{
		{PhaseCustomer, o.resolveCustomer},
		{PhaseCard, o.attachCard},
		{PhaseSubscription, o.createSubscription},
		{PhaseSettlement, o.settle},
	}
	for _, phase := range phases {
		if err := phase.run(ctx, p); err != nil {
			return o.fail(ctx, p, phase.name, err, started)
		}
	}

	p.result.Success = true
	p.result.Message = fmt.Sprintf("%s active until %s", plan.Name, p.bundle.Membership.EndsAt.Format(gatewayDateLayout))

	if p.prior != nil {
		o.metrics.Results.WithLabelValues("replayed", PhaseSettlement).Inc()
		o.metrics.Duration.Observe(o.now().Sub(started).Seconds())
		p.logger.Info("checkout matched an earlier booking",
			"transaction_id", p.prior.ID,
			"original_session_id", p.prior.SessionID,
			"membership_id", p.bundle.Membership.ID)
		return p.result, nil
	}

	o.metrics.Results.WithLabelValues("success", PhaseSettlement).Inc()
	o.metrics.Duration.Observe(o.now().Sub(started).Seconds())
	o.publish(ctx, events.NewMembershipActivatedEvent(
		ps.ID,
		p.buyer.ID,
		p.bundle.Membership.ID,
		p.bundle.Sale.ID,
		p.transaction.ID,
		plan.Code,
		plan.Price,
		plan.Currency,
		p.bundle.Membership.EndsAt,
	))

	p.logger.Info("checkout completed",
		"buyer_id", p.buyer.ID,
		"transaction_id", p.transaction.ID,
		"membership_id", p.bundle.Membership.ID)
	return p.result, nil
}

// resolveCustomer finds or creates the buyer and its gateway customer. A
// locally known customer that the gateway no longer has is deactivated
// and created again.
func (o *Orchestrator) resolveCustomer(ctx context.Context, p *purchase) error {
	buyer, _, err := o.memberships.ResolveBuyer(ctx, membershippkg.BuyerInput{
		DocumentID: p.req.DocumentID,
		FirstName:  p.req.FirstName,
		LastName:   p.req.LastName,
		Email:      p.req.Email,
		Phone:      p.req.Phone,
	})
	if err != nil {
		return err
	}
	p.buyer = buyer
	p.result.BuyerID = buyer.ID

	customer, err := o.repo.ActiveCustomer(ctx, buyer.ID, o.gatewayID)
	if err != nil {
		return fmt.Errorf("find gateway customer: %w", err)
	}

	reused := false
	if customer != nil {
		reused, err = o.verifyCustomer(ctx, customer)
		if err != nil {
			return err
		}
		if !reused {
			customer = nil
		}
	}

	if customer == nil {
		customer, err = o.createCustomer(ctx, buyer)
		if err != nil {
			return err
		}
	}

	p.customer = customer
	p.result.CustomerID = customer.ID

	return o.record(ctx, p, sessionpkg.ActionCustomerResolved, "gateway customer resolved", map[string]any{
		"customer_id": customer.ExternalID,
		"reused":      reused,
	}, &buyer.ID)
}

func (o *Orchestrator) verifyCustomer(ctx context.Context, customer *gateway.Customer) (bool, error) {
	req, err := paymentgateway.NewGetCustomerRequest(customer.ExternalID)
	if err != nil {
		return false, err
	}

	_, err = o.gateway.Execute(ctx, audit.Call{
		Request:  req,
		Table:    "gateway_customers",
		RecordID: strconv.FormatInt(customer.ID, 10),
		Action:   "customer.verify",
	})
	if err == nil {
		return true, nil
	}

	if gwErr, ok := paymentgateway.AsError(err); ok && gwErr.StatusCode == http.StatusNotFound {
		if err := o.repo.DeactivateCustomer(ctx, customer.ID, o.now()); err != nil {
			return false, fmt.Errorf("deactivate gateway customer: %w", err)
		}
		o.logger.Warn("gateway customer missing upstream, recreating",
			"customer_id", customer.ID,
			"external_id", customer.ExternalID)
		return false, nil
	}
	return false, err
}

func (o *Orchestrator) createCustomer(ctx context.Context, buyer *membership.Buyer) (*gateway.Customer, error) {
	req, err := paymentgateway.NewCreateCustomerRequest(paymentgateway.CustomerInput{
		Name:        buyer.FirstName,
		LastName:    buyer.LastName,
		Email:       buyer.Email,
		PhoneNumber: buyer.Phone,
	})
	if err != nil {
		return nil, err
	}

	resp, err := o.gateway.Execute(ctx, audit.Call{
		Request:  req,
		Table:    "gateway_customers",
		RecordID: strconv.FormatInt(buyer.ID, 10),
		Action:   "customer.create",
	})
	if err != nil {
		return nil, err
	}
	remote, err := paymentgateway.DecodeCustomer(resp)
	if err != nil {
		return nil, err
	}

	customer := &gateway.Customer{
		UserID:     buyer.ID,
		GatewayID:  o.gatewayID,
		ExternalID: remote.ID,
		Email:      buyer.Email,
		IsActive:   true,
		APICallID:  logIDPtr(resp.LogID),
	}
	if err := o.repo.CreateCustomer(ctx, customer); err != nil {
		// a concurrent checkout of the same buyer may have stored one first
		existing, findErr := o.repo.ActiveCustomer(ctx, buyer.ID, o.gatewayID)
		if findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("store gateway customer: %w", err)
	}
	return customer, nil
}

func (o *Orchestrator) attachCard(ctx context.Context, p *purchase) error {
	req, err := paymentgateway.NewAttachCardRequest(p.customer.ExternalID, paymentgateway.CardInput{
		TokenID:         p.req.CardToken,
		DeviceSessionID: p.req.DeviceSessionID,
	})
	if err != nil {
		return err
	}

	resp, err := o.gateway.Execute(ctx, audit.Call{
		Request:  req,
		Table:    "gateway_cards",
		RecordID: p.customer.ExternalID,
		Action:   "card.attach",
	})
	if err != nil {
		return err
	}
	remote, err := paymentgateway.DecodeCard(resp)
	if err != nil {
		return err
	}

	card, err := o.repo.FindCard(ctx, p.customer.ID, remote.ID)
	if err != nil {
		return fmt.Errorf("find gateway card: %w", err)
	}
	if card != nil {
		p.card = card
		p.result.CardID = card.ID
		return o.record(ctx, p, sessionpkg.ActionCardAttached, "card already attached", map[string]any{
			"card_id": remote.ID,
			"brand":   remote.Brand,
			"last4":   card.Last4,
		}, nil)
	}

	card = &gateway.Card{
		CustomerID:      p.customer.ID,
		ExternalID:      remote.ID,
		Token:           p.req.CardToken,
		Last4:           remote.Last4(),
		Brand:           remote.Brand,
		ExpirationMonth: remote.ExpirationMonth,
		ExpirationYear:  remote.ExpirationYear,
		HolderName:      remote.HolderName,
		IsActive:        true,
		APICallID:       logIDPtr(resp.LogID),
	}
	if err := o.repo.CreateCard(ctx, card); err != nil {
		return fmt.Errorf("store gateway card: %w", err)
	}
	p.card = card
	p.result.CardID = card.ID

	return o.record(ctx, p, sessionpkg.ActionCardAttached, "card attached", map[string]any{
		"card_id": remote.ID,
		"brand":   remote.Brand,
		"last4":   card.Last4,
	}, nil)
}

func (o *Orchestrator) createSubscription(ctx context.Context, p *purchase) error {
	if err := o.sessions.IncrementAttempts(ctx, p.session.ID); err != nil {
		return err
	}

	req, err := paymentgateway.NewCreateSubscriptionRequest(p.customer.ExternalID, paymentgateway.SubscriptionInput{
		PlanID:   p.plan.GatewayPlanID,
		SourceID: p.card.ExternalID,
	})
	if err != nil {
		return err
	}

	resp, err := o.gateway.Execute(ctx, audit.Call{
		Request:  req,
		Table:    "gateway_subscriptions",
		RecordID: p.customer.ExternalID,
		Action:   "subscription.create",
	})
	if err != nil {
		return err
	}
	remote, err := paymentgateway.DecodeSubscription(resp)
	if err != nil {
		return err
	}

	externalTxnID := remote.TransactionID
	if externalTxnID == "" {
		externalTxnID = remote.ID
	}
	if remote.Settled() {
		prior, err := o.repo.SettledTransaction(ctx, externalTxnID)
		if err != nil {
			return fmt.Errorf("find settled transaction: %w", err)
		}
		if prior != nil {
			p.prior = prior
			p.result.SubscriptionID = prior.SubscriptionID
			return o.record(ctx, p, sessionpkg.ActionSubscriptionCreated, "subscription already created", map[string]any{
				"subscription_id": remote.ID,
				"status":          remote.Status,
				"transaction_id":  prior.ID,
				"replayed":        true,
			}, nil)
		}
	}

	sub := &gateway.Subscription{
		CustomerID:     p.customer.ID,
		CardID:         p.card.ID,
		PlanID:         p.plan.ID,
		ExternalID:     remote.ID,
		ExternalPlanID: p.plan.GatewayPlanID,
		State:          subscriptionState(remote.Status),
		ExternalStatus: remote.Status,
		NextChargeDate: parseGatewayDate(remote.ChargeDate),
		PeriodEndDate:  parseGatewayDate(remote.PeriodEndDate),
		IsActive:       true,
		APICallID:      logIDPtr(resp.LogID),
	}
	if err := o.repo.CreateSubscription(ctx, sub); err != nil {
		return fmt.Errorf("store gateway subscription: %w", err)
	}

	p.subscription = sub
	p.result.SubscriptionID = sub.ID
	p.settled = remote.Settled()
	p.externalTxnID = externalTxnID
	p.subscriptionBody = resp.Body
	p.subscriptionLogID = resp.LogID

	return o.record(ctx, p, sessionpkg.ActionSubscriptionCreated, "subscription created", map[string]any{
		"subscription_id": remote.ID,
		"status":          remote.Status,
	}, nil)
}

// settle records the transaction against today's register. Only a settled
// subscription moves money, materializes the sale and completes the session.
func (o *Orchestrator) settle(ctx context.Context, p *purchase) error {
	if p.prior != nil {
		return o.settleReplay(ctx, p)
	}

	settings, err := o.settings.Settings(ctx)
	if err != nil {
		return err
	}
	register, err := o.ledger.ObtainOrOpen(ctx, o.gatewayID)
	if err != nil {
		return err
	}

	gross := p.plan.Price
	var fee, tax int64
	if p.settled {
		fee, tax = ledgerpkg.Fees(settings, gross)
	}

	txn := gateway.NewTransaction(gross, fee, tax, p.plan.Currency)
	txn.SessionID = p.session.ID
	txn.SubscriptionID = p.subscription.ID
	txn.CardID = p.card.ID
	txn.CashRegisterID = register.ID
	txn.ExternalID = p.externalTxnID
	txn.ResponsePayload = datatypes.JSON(masking.MaskJSON(p.subscriptionBody))
	txn.APICallID = logIDPtr(p.subscriptionLogID)
	txn.State = gateway.TransactionFailed
	if p.settled {
		txn.State = gateway.TransactionSettled
	}

	if err := o.repo.CreateTransaction(ctx, txn); err != nil {
		// a concurrent checkout may have booked the same charge first
		if p.settled {
			prior, findErr := o.repo.SettledTransaction(ctx, p.externalTxnID)
			if findErr == nil && prior != nil {
				p.prior = prior
				return o.settleReplay(ctx, p)
			}
		}
		return fmt.Errorf("store gateway transaction: %w", err)
	}
	p.transaction = txn
	p.result.TransactionID = txn.ID

	if err := o.sessions.LinkTransaction(ctx, p.session.ID, txn.ID); err != nil {
		return err
	}
	if !p.settled {
		return ErrNotSettled
	}

	registerID, err := o.ledger.ApplyToday(ctx, o.gatewayID, register.ID, txn.ID, gross, fee, tax)
	if err != nil {
		return err
	}
	txn.CashRegisterID = registerID

	bundle, err := o.memberships.Materialize(ctx, membershippkg.SaleInput{
		BuyerID:        p.buyer.ID,
		SessionID:      p.session.ID,
		TransactionID:  txn.ID,
		SubscriptionID: p.subscription.ID,
		Plan:           p.plan,
	})
	if err != nil {
		p.logger.Error("payment settled but sale could not be recorded",
			"transaction_id", txn.ID,
			"error", err)
		return err
	}
	p.bundle = bundle
	p.result.SaleID = bundle.Sale.ID
	p.result.MembershipID = bundle.Membership.ID

	err = o.record(ctx, p, sessionpkg.ActionPaymentSucceeded, "payment settled", map[string]any{
		"transaction_id": txn.ID,
		"sale_id":        bundle.Sale.ID,
		"membership_id":  bundle.Membership.ID,
		"gross":          txn.GrossAmount,
		"fee":            txn.FeeAmount,
		"tax":            txn.TaxAmount,
		"net":            txn.NetAmount,
	}, nil)
	if err != nil {
		return err
	}

	return o.sessions.Complete(ctx, p.session.ID)
}

// settleReplay completes the session against the booking that already
// holds this gateway charge. Nothing is added to the register and no new
// sale is written.
func (o *Orchestrator) settleReplay(ctx context.Context, p *purchase) error {
	prior := p.prior
	p.result.TransactionID = prior.ID
	p.result.SubscriptionID = prior.SubscriptionID
	p.result.CardID = prior.CardID

	if err := o.sessions.LinkTransaction(ctx, p.session.ID, prior.ID); err != nil {
		return err
	}

	bundle, err := o.memberships.BundleForSession(ctx, prior.SessionID)
	if err != nil {
		return err
	}
	if bundle == nil {
		return ErrChargePending
	}
	p.bundle = bundle
	p.result.SaleID = bundle.Sale.ID
	p.result.MembershipID = bundle.Membership.ID

	err = o.record(ctx, p, sessionpkg.ActionPaymentSucceeded, "payment already settled", map[string]any{
		"transaction_id":      prior.ID,
		"sale_id":             bundle.Sale.ID,
		"membership_id":       bundle.Membership.ID,
		"original_session_id": prior.SessionID,
		"replayed":            true,
	}, nil)
	if err != nil {
		return err
	}

	return o.sessions.Complete(ctx, p.session.ID)
}

// fail closes the session as failed and builds the failure result. It keeps
// running when the caller's context is already cancelled.
func (o *Orchestrator) fail(ctx context.Context, p *purchase, phase string, cause error, started time.Time) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	kind, code := classify(cause)
	logID := audit.LogIDOf(cause)
	reason := fmt.Sprintf("%s: %v", phase, cause)

	p.logger.Warn("checkout failed",
		"phase", phase,
		"error_kind", kind,
		"error_code", code,
		"log_id", logID,
		"error", cause)

	err := o.sessions.Record(ctx, p.session.ID, sessionpkg.Event{
		Action:   sessionpkg.ActionPaymentFailed,
		Detail:   reason,
		ClientIP: p.req.ClientIP,
		Payload: map[string]any{
			"phase":      phase,
			"error_kind": kind,
			"error_code": code,
			"log_id":     logID,
		},
	})
	if err != nil {
		p.logger.Error("failed to record checkout failure", "error", err)
	}
	if err := o.sessions.Fail(ctx, p.session.ID, reason); err != nil && !errors.Is(err, internal.ErrSessionClosed) {
		p.logger.Error("failed to close payment session", "error", err)
	}

	message := failureMessage(kind)
	p.result.Success = false
	p.result.Message = message
	p.result.FailedPhase = phase
	p.result.ErrorKind = kind
	p.result.ErrorCode = code
	p.result.LogID = logID

	o.metrics.Results.WithLabelValues("failed", phase).Inc()
	o.metrics.Duration.Observe(o.now().Sub(started).Seconds())
	o.publish(ctx, events.NewPaymentFailedEvent(p.session.ID, p.session.Token, phase, p.req.Amount, kind, code, reason))

	details := map[string]interface{}{
		"session_id": p.session.ID,
		"phase":      phase,
	}
	if code != "" {
		details["gateway_code"] = code
	}
	return p.result, appErrorFor(kind, message, cause).WithDetails(details)
}

func (o *Orchestrator) record(ctx context.Context, p *purchase, action, detail string, payload map[string]any, userID *int64) error {
	return o.sessions.Record(ctx, p.session.ID, sessionpkg.Event{
		Action:   action,
		Detail:   detail,
		ClientIP: p.req.ClientIP,
		Payload:  payload,
		UserID:   userID,
	})
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Error("failed to publish checkout event", "event_type", event.EventType(), "error", err)
	}
}

func normalize(req PurchaseRequest) PurchaseRequest {
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.PlanCode = strings.TrimSpace(req.PlanCode)
	req.CardToken = strings.TrimSpace(req.CardToken)
	req.DeviceSessionID = strings.TrimSpace(req.DeviceSessionID)
	return req
}

func validatePurchase(req PurchaseRequest) *internal.AppError {
	v := validation.NewValidator()
	v.Field("document_id", req.DocumentID).Custom(func(value interface{}) *internal.AppError {
		return validation.ValidateDocumentID(value.(string))
	})
	v.Field("first_name", req.FirstName).Required().MaxLength(80)
	v.Field("last_name", req.LastName).MaxLength(80)
	v.Field("email", req.Email).Required().Email()
	v.Field("phone", req.Phone).MaxLength(20)
	v.Field("plan_code", req.PlanCode).Required().MaxLength(32)
	v.Field("amount", req.Amount).Custom(func(value interface{}) *internal.AppError {
		return validation.ValidateAmount(value.(int64))
	})
	v.Field("card_token", req.CardToken).Required().Custom(func(value interface{}) *internal.AppError {
		if token := value.(string); token != "" && !validation.CardToken(token) {
			return internal.NewValidationFieldError("card_token", "card_token is not a valid card token", internal.ErrCodeInvalidCardToken)
		}
		return nil
	})
	v.Field("device_session_id", req.DeviceSessionID).Required().MaxLength(255)
	return v.Validate()
}

func classify(err error) (kind, code string) {
	if gwErr, ok := paymentgateway.AsError(err); ok {
		return string(gwErr.Kind), gwErr.Code
	}
	if errors.Is(err, ErrNotSettled) {
		return string(paymentgateway.KindRejected), "not_settled"
	}
	if errors.Is(err, ErrChargePending) {
		return "internal", "charge_pending"
	}
	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		return "internal", string(appErr.Code)
	}
	return "internal", "internal_error"
}

func failureMessage(kind string) string {
	switch paymentgateway.Kind(kind) {
	case paymentgateway.KindRejected:
		return "The payment was declined. Please check your card details or use another card."
	case paymentgateway.KindTransient:
		return "The payment provider is not responding. Please try again in a few minutes."
	case paymentgateway.KindRateLimited:
		return "Too many payment attempts. Please wait a moment and try again."
	case paymentgateway.KindConfiguration:
		return "Online payments are temporarily unavailable."
	case paymentgateway.KindValidation:
		return "The payment details were not accepted."
	}
	return "The purchase could not be completed."
}

func appErrorFor(kind, message string, cause error) *internal.AppError {
	switch paymentgateway.Kind(kind) {
	case paymentgateway.KindRejected:
		return internal.NewGatewayRejectedError(message, cause)
	case paymentgateway.KindTransient:
		return internal.NewGatewayUnavailableError(message, cause)
	case paymentgateway.KindRateLimited:
		return internal.NewRateLimitedError(message, cause)
	case paymentgateway.KindConfiguration:
		return internal.NewConfigurationError(message, cause)
	case paymentgateway.KindValidation:
		return internal.NewValidationError(message, internal.ErrCodePaymentFailed).WithCause(cause)
	}
	return internal.NewInternalError(message, cause)
}

func subscriptionState(status string) gateway.SubscriptionState {
	switch status {
	case paymentgateway.SubscriptionStatusActive, paymentgateway.SubscriptionStatusTrial:
		return gateway.SubscriptionActive
	case paymentgateway.SubscriptionStatusCancelled:
		return gateway.SubscriptionCancelled
	case "expired":
		return gateway.SubscriptionExpired
	}
	return gateway.SubscriptionPaused
}

func parseGatewayDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(gatewayDateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func logIDPtr(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
