package mercadopago

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/shopspring/decimal"

	"github.com/abex/clubes-abex/pkg/config"
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
)

const (
	Provider = "mercadopago"

	defaultTimeout = 15 * time.Second
	sandboxPrefix  = "TEST-"
)

var errAccessTokenRequired = errors.New("mercado pago access token is required")

type preferenceAPI interface {
	Create(ctx context.Context, request preference.Request) (*preference.Response, error)
}

type paymentAPI interface {
	Get(ctx context.Context, id int) (*payment.Response, error)
}

// Client wraps the Mercado Pago SDK clients used for checkout and reconciliation.
type Client struct {
	preferences   preferenceAPI
	payments      paymentAPI
	sandbox       bool
	currency      string
	webhookSecret string
	timeout       time.Duration
}

// PreferenceInput describes a single-item checkout for one plan period.
type PreferenceInput struct {
	ExternalReference string
	ItemID            string
	Title             string
	Description       string
	Amount            decimal.Decimal
	PayerEmail        string
	SuccessURL        string
	PendingURL        string
	FailureURL        string
	NotificationURL   string
	Metadata          map[string]string
}

// Preference is the created checkout session.
type Preference struct {
	ID          string
	RedirectURL string
}

// PaymentStatus is the authoritative state of a payment as reported by Mercado Pago.
type PaymentStatus struct {
	ExternalID        string
	Status            enums.PaymentStatus
	RawStatus         string
	StatusDetail      string
	Amount            decimal.Decimal
	Currency          string
	PaymentMethod     string
	ExternalReference string
	Metadata          map[string]string
}

// NewClient initializes the SDK clients with the configured access token.
func NewClient(ctx context.Context, cfg config.MercadoPagoConfig, logg *logger.Logger) (*Client, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}

	sdkCfg, err := mpconfig.New(token)
	if err != nil {
		return nil, fmt.Errorf("configuring mercado pago sdk: %w", err)
	}

	sandbox := cfg.Sandbox || strings.HasPrefix(token, sandboxPrefix)
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "sandbox", sandbox), "mercado pago client initialized")
	}

	return newClient(preference.NewClient(sdkCfg), payment.NewClient(sdkCfg), cfg, sandbox, timeout), nil
}

func newClient(prefs preferenceAPI, pays paymentAPI, cfg config.MercadoPagoConfig, sandbox bool, timeout time.Duration) *Client {
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "BRL"
	}
	return &Client{
		preferences:   prefs,
		payments:      pays,
		sandbox:       sandbox,
		currency:      currency,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		timeout:       timeout,
	}
}

// Currency returns the ISO currency charged for every preference.
func (c *Client) Currency() string {
	return c.currency
}

// WebhookSecret returns the notification signing secret, empty when disabled.
func (c *Client) WebhookSecret() string {
	return c.webhookSecret
}

// CreatePreference creates a checkout preference and returns its redirect URL.
func (c *Client) CreatePreference(ctx context.Context, in PreferenceInput) (*Preference, error) {
	if !in.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference amount must be positive")
	}

	request := preference.Request{
		Items: []preference.ItemRequest{{
			ID:          in.ItemID,
			Title:       in.Title,
			Description: in.Description,
			Quantity:    1,
			UnitPrice:   in.Amount.InexactFloat64(),
			CurrencyID:  c.currency,
		}},
		BackURLs: &preference.BackURLsRequest{
			Success: in.SuccessURL,
			Pending: in.PendingURL,
			Failure: in.FailureURL,
		},
		NotificationURL:   in.NotificationURL,
		ExternalReference: in.ExternalReference,
		Metadata:          toAnyMap(in.Metadata),
	}
	if in.SuccessURL != "" {
		request.AutoReturn = "approved"
	}
	if in.PayerEmail != "" {
		request.Payer = &preference.PayerRequest{Email: in.PayerEmail}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.preferences.Create(callCtx, request)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "create mercado pago preference")
	}

	redirect := resp.InitPoint
	if c.sandbox && resp.SandboxInitPoint != "" {
		redirect = resp.SandboxInitPoint
	}
	if resp.ID == "" || redirect == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "mercado pago returned an incomplete preference")
	}

	return &Preference{ID: resp.ID, RedirectURL: redirect}, nil
}

// GetPaymentStatus fetches the payment by its Mercado Pago id.
func (c *Client) GetPaymentStatus(ctx context.Context, externalID string) (*PaymentStatus, error) {
	id, err := strconv.Atoi(strings.TrimSpace(externalID))
	if err != nil || id <= 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid mercado pago payment id %q", externalID)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.payments.Get(callCtx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, fmt.Sprintf("fetch mercado pago payment %d", id))
	}
	if resp == nil || resp.ID == 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeUpstream, "mercado pago payment %d not found", id)
	}

	return toPaymentStatus(resp)
}

func toPaymentStatus(resp *payment.Response) (*PaymentStatus, error) {
	status, err := enums.PaymentStatusFromGateway(resp.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "map mercado pago payment status")
	}

	return &PaymentStatus{
		ExternalID:        strconv.Itoa(resp.ID),
		Status:            status,
		RawStatus:         resp.Status,
		StatusDetail:      resp.StatusDetail,
		Amount:            decimal.NewFromFloat(resp.TransactionAmount).Round(2),
		Currency:          resp.CurrencyID,
		PaymentMethod:     resp.PaymentMethodID,
		ExternalReference: resp.ExternalReference,
		Metadata:          toStringMap(resp.Metadata),
	}, nil
}

func toAnyMap(in map[string]string) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func toStringMap(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v == nil {
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
