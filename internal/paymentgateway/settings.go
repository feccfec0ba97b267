package paymentgateway

import (
	"context"
	"fmt"
	"strings"
)

// Settings are the merchant credentials and fee schedule of one gateway.
type Settings struct {
	GatewayID       int64
	MerchantID      string
	PublicKey       string
	PrivateKey      string
	IsProduction    bool
	DefaultCurrency string
	FeeBasisPoints  int64
	FixedFee        int64
	TaxBasisPoints  int64
}

type SettingsProvider interface {
	Load(ctx context.Context) (*Settings, error)
}

// Validate lists every missing field at once.
func (s *Settings) Validate() error {
	var missing []string
	if s.GatewayID <= 0 {
		missing = append(missing, "gateway_id")
	}
	if strings.TrimSpace(s.MerchantID) == "" {
		missing = append(missing, "merchant_id")
	}
	if strings.TrimSpace(s.PrivateKey) == "" {
		missing = append(missing, "private_key")
	}
	if len(s.DefaultCurrency) != 3 {
		missing = append(missing, "default_currency")
	}
	if s.FeeBasisPoints < 0 || s.TaxBasisPoints < 0 || s.FixedFee < 0 {
		missing = append(missing, "fee schedule")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrSettingsIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

func (s *Settings) Environment() string {
	if s.IsProduction {
		return "production"
	}
	return "sandbox"
}

// StaticSettings serves a fixed value; used by tests and tooling.
type StaticSettings struct {
	Settings *Settings
	Err      error
}

func (p StaticSettings) Load(context.Context) (*Settings, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Settings == nil {
		return nil, ErrSettingsNotFound
	}
	copied := *p.Settings
	return &copied, nil
}
