package paymentgateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	OpCreateCustomer     = "create_customer"
	OpGetCustomer        = "get_customer"
	OpAttachCard         = "attach_card"
	OpCreateSubscription = "create_subscription"
	OpGetSubscription    = "get_subscription"
	OpCancelSubscription = "cancel_subscription"
	OpCreateCharge       = "create_charge"
	OpGetCharge          = "get_charge"
)

var inputValidator = validator.New()

type CustomerInput struct {
	Name            string `json:"name" validate:"required,max=80"`
	LastName        string `json:"last_name,omitempty" validate:"max=80"`
	Email           string `json:"email" validate:"required,email"`
	PhoneNumber     string `json:"phone_number,omitempty" validate:"omitempty,max=20"`
	ExternalID      string `json:"external_id,omitempty" validate:"omitempty,max=100"`
	RequiresAccount bool   `json:"requires_account"`
}

type CardInput struct {
	TokenID         string `json:"token_id" validate:"required"`
	DeviceSessionID string `json:"device_session_id" validate:"required,max=255"`
}

type SubscriptionInput struct {
	PlanID       string `json:"plan_id" validate:"required"`
	SourceID     string `json:"source_id" validate:"required"`
	TrialEndDate string `json:"trial_end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type ChargeInput struct {
	Method          string         `json:"method" validate:"required,oneof=card"`
	SourceID        string         `json:"source_id" validate:"required"`
	Amount          int64          `json:"amount" validate:"gt=0"`
	Currency        string         `json:"currency" validate:"required,len=3"`
	Description     string         `json:"description" validate:"required,max=250"`
	OrderID         string         `json:"order_id,omitempty" validate:"omitempty,max=100"`
	DeviceSessionID string         `json:"device_session_id,omitempty"`
	Customer        *CustomerInput `json:"customer,omitempty" validate:"omitempty"`
}

func validateInput(operation string, in any) error {
	if err := inputValidator.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			parts := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			err = errors.New(strings.Join(parts, "; "))
		}
		return &Error{Kind: KindValidation, Operation: operation, Code: "invalid_request", Description: err.Error(), Err: err}
	}
	return nil
}

func requireID(operation, field, id string) error {
	if strings.TrimSpace(id) == "" {
		return &Error{Kind: KindValidation, Operation: operation, Code: "invalid_request", Description: field + " is required"}
	}
	return nil
}

func sanitize(s string) string {
	return strings.TrimSpace(s)
}

func NewCreateCustomerRequest(in CustomerInput) (*Request, error) {
	in.Name = sanitize(in.Name)
	in.LastName = sanitize(in.LastName)
	in.Email = strings.ToLower(sanitize(in.Email))
	in.PhoneNumber = sanitize(in.PhoneNumber)
	if err := validateInput(OpCreateCustomer, in); err != nil {
		return nil, err
	}
	return &Request{Operation: OpCreateCustomer, Method: http.MethodPost, Path: "/customers", Body: in, Idempotent: true}, nil
}

func NewGetCustomerRequest(customerID string) (*Request, error) {
	if err := requireID(OpGetCustomer, "customer_id", customerID); err != nil {
		return nil, err
	}
	return &Request{Operation: OpGetCustomer, Method: http.MethodGet, Path: "/customers/" + url.PathEscape(customerID)}, nil
}

func NewAttachCardRequest(customerID string, in CardInput) (*Request, error) {
	if err := requireID(OpAttachCard, "customer_id", customerID); err != nil {
		return nil, err
	}
	in.TokenID = sanitize(in.TokenID)
	in.DeviceSessionID = sanitize(in.DeviceSessionID)
	if err := validateInput(OpAttachCard, in); err != nil {
		return nil, err
	}
	return &Request{
		Operation:  OpAttachCard,
		Method:     http.MethodPost,
		Path:       "/customers/" + url.PathEscape(customerID) + "/cards",
		Body:       in,
		Idempotent: true,
	}, nil
}

func NewCreateSubscriptionRequest(customerID string, in SubscriptionInput) (*Request, error) {
	if err := requireID(OpCreateSubscription, "customer_id", customerID); err != nil {
		return nil, err
	}
	in.PlanID = sanitize(in.PlanID)
	in.SourceID = sanitize(in.SourceID)
	if err := validateInput(OpCreateSubscription, in); err != nil {
		return nil, err
	}
	return &Request{
		Operation:  OpCreateSubscription,
		Method:     http.MethodPost,
		Path:       "/customers/" + url.PathEscape(customerID) + "/subscriptions",
		Body:       in,
		Idempotent: true,
	}, nil
}

func NewGetSubscriptionRequest(customerID, subscriptionID string) (*Request, error) {
	if err := requireID(OpGetSubscription, "customer_id", customerID); err != nil {
		return nil, err
	}
	if err := requireID(OpGetSubscription, "subscription_id", subscriptionID); err != nil {
		return nil, err
	}
	return &Request{
		Operation: OpGetSubscription,
		Method:    http.MethodGet,
		Path:      "/customers/" + url.PathEscape(customerID) + "/subscriptions/" + url.PathEscape(subscriptionID),
	}, nil
}

func NewCancelSubscriptionRequest(customerID, subscriptionID string) (*Request, error) {
	if err := requireID(OpCancelSubscription, "customer_id", customerID); err != nil {
		return nil, err
	}
	if err := requireID(OpCancelSubscription, "subscription_id", subscriptionID); err != nil {
		return nil, err
	}
	return &Request{
		Operation: OpCancelSubscription,
		Method:    http.MethodDelete,
		Path:      "/customers/" + url.PathEscape(customerID) + "/subscriptions/" + url.PathEscape(subscriptionID),
	}, nil
}

func NewCreateChargeRequest(in ChargeInput) (*Request, error) {
	if in.Method == "" {
		in.Method = "card"
	}
	in.SourceID = sanitize(in.SourceID)
	in.Currency = strings.ToUpper(sanitize(in.Currency))
	in.Description = sanitize(in.Description)
	if err := validateInput(OpCreateCharge, in); err != nil {
		return nil, err
	}
	return &Request{Operation: OpCreateCharge, Method: http.MethodPost, Path: "/charges", Body: in, Idempotent: true}, nil
}

func NewGetChargeRequest(chargeID string) (*Request, error) {
	if err := requireID(OpGetCharge, "charge_id", chargeID); err != nil {
		return nil, err
	}
	return &Request{Operation: OpGetCharge, Method: http.MethodGet, Path: "/charges/" + url.PathEscape(chargeID)}, nil
}

type Customer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone_number"`
	ExternalID   string `json:"external_id"`
	Status       string `json:"status"`
	CreationDate string `json:"creation_date"`
}

type Card struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Brand           string `json:"brand"`
	CardNumber      string `json:"card_number"`
	HolderName      string `json:"holder_name"`
	ExpirationYear  string `json:"expiration_year"`
	ExpirationMonth string `json:"expiration_month"`
	CustomerID      string `json:"customer_id"`
	CreationDate    string `json:"creation_date"`
}

// Last4 returns the trailing digits of the (already masked) card number.
func (c *Card) Last4() string {
	if len(c.CardNumber) < 4 {
		return c.CardNumber
	}
	return c.CardNumber[len(c.CardNumber)-4:]
}

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusTrial     = "trial"
	SubscriptionStatusPastDue   = "past_due"
	SubscriptionStatusUnpaid    = "unpaid"
	SubscriptionStatusCancelled = "cancelled"
)

type Subscription struct {
	ID                  string `json:"id"`
	Status              string `json:"status"`
	PlanID              string `json:"plan_id"`
	CustomerID          string `json:"customer_id"`
	ChargeDate          string `json:"charge_date"`
	PeriodEndDate       string `json:"period_end_date"`
	TrialEndDate        string `json:"trial_end_date"`
	CreationDate        string `json:"creation_date"`
	CurrentPeriodNumber int    `json:"current_period_number"`
	Card                *Card  `json:"card,omitempty"`
	TransactionID       string `json:"transaction_id,omitempty"`
}

// Settled reports whether the gateway has accepted the first period.
func (s *Subscription) Settled() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusTrial
}

type Charge struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Method        string `json:"method"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Description   string `json:"description"`
	OrderID       string `json:"order_id"`
	Authorization string `json:"authorization"`
	ErrorMessage  string `json:"error_message"`
	CreationDate  string `json:"creation_date"`
	Card          *Card  `json:"card,omitempty"`
}

func decode[T any](resp *Response) (*T, error) {
	var out T
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func DecodeCustomer(resp *Response) (*Customer, error) {
	return decode[Customer](resp)
}

func DecodeCard(resp *Response) (*Card, error) {
	return decode[Card](resp)
}

func DecodeSubscription(resp *Response) (*Subscription, error) {
	return decode[Subscription](resp)
}

func DecodeCharge(resp *Response) (*Charge, error) {
	return decode[Charge](resp)
}
