package stripe

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/account"
	"github.com/stripe/stripe-go/v82/accountlink"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/Tiagocys/gamehub/pkg/logging"
)

// MetadataPurposeTopup marks checkout sessions that settle into the
// highlight wallet.
const MetadataPurposeTopup = "highlight_wallet_topup"

// Client wraps the Stripe API operations the marketplace needs: hosted
// checkout for wallet top-ups and Connect onboarding for partners.
type Client struct {
	secretKey     string
	webhookSecret string
	logger        logging.Logger
}

// Config for creating a new Stripe client
type Config struct {
	SecretKey     string // STRIPE_SECRET_KEY
	WebhookSecret string // STRIPE_WEBHOOK_SECRET
	Logger        logging.Logger
}

// NewClient creates a new Stripe client
func NewClient(config Config) *Client {
	// Set the global API key for the stripe-go library
	stripe.Key = config.SecretKey

	return &Client{
		secretKey:     config.SecretKey,
		webhookSecret: config.WebhookSecret,
		logger:        config.Logger,
	}
}

// TopupCheckoutParams for creating a wallet top-up checkout session
type TopupCheckoutParams struct {
	UserID           string
	Days             int
	AmountBRL        float64
	TotalCents       int64
	PurchasedSeconds int64
	AutoActivate     bool
	ListingID        string
	SuccessURL       string
	CancelURL        string
}

// CreateTopupCheckout creates a hosted checkout session whose settlement the
// webhook turns into a wallet credit. All settlement-relevant values travel
// in metadata so the webhook needs no extra lookup.
func (c *Client) CreateTopupCheckout(ctx context.Context, params TopupCheckoutParams) (*stripe.CheckoutSession, error) {
	metadata := map[string]string{
		"user_id":           params.UserID,
		"purpose":           MetadataPurposeTopup,
		"days":              strconv.Itoa(params.Days),
		"purchased_seconds": strconv.FormatInt(params.PurchasedSeconds, 10),
		"total_cents":       strconv.FormatInt(params.TotalCents, 10),
		"amount_brl":        fmt.Sprintf("%.2f", params.AmountBRL),
		"auto_activate":     strconv.FormatBool(params.AutoActivate),
	}
	if params.ListingID != "" {
		metadata["listing_id"] = params.ListingID
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("brl"),
					UnitAmount: stripe.Int64(params.TotalCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Listing highlight balance"),
					},
				},
			},
		},
		Metadata: metadata,
	}

	sess, err := checkoutsession.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	c.logger.WithFields(logging.Fields{
		"session_id":        sess.ID,
		"user_id":           params.UserID,
		"total_cents":       params.TotalCents,
		"purchased_seconds": params.PurchasedSeconds,
	}).Info("Created wallet topup checkout session")

	return sess, nil
}

// GetPaymentNetCents fetches the processor-reported net-of-fee amount for a
// settled payment intent, in cents, via its charge's balance transaction.
func (c *Client) GetPaymentNetCents(ctx context.Context, paymentIntentID string) (int64, error) {
	params := &stripe.PaymentIntentParams{}
	params.AddExpand("latest_charge.balance_transaction")

	pi, err := paymentintent.Get(paymentIntentID, params)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch payment intent: %w", err)
	}
	if pi.LatestCharge == nil || pi.LatestCharge.BalanceTransaction == nil {
		return 0, fmt.Errorf("payment intent %s carries no balance transaction", paymentIntentID)
	}
	return pi.LatestCharge.BalanceTransaction.Net, nil
}

// CreateConnectAccount creates an express Connect account for a partner.
func (c *Client) CreateConnectAccount(ctx context.Context, email string) (*stripe.Account, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String("BR"),
		Email:   stripe.String(email),
	}

	acct, err := account.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create Connect account: %w", err)
	}

	c.logger.WithFields(logging.Fields{
		"account_id": acct.ID,
	}).Info("Created Stripe Connect account")

	return acct, nil
}

// CreateAccountLink creates an onboarding link for a Connect account.
func (c *Client) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (*stripe.AccountLink, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}

	link, err := accountlink.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create account link: %w", err)
	}
	return link, nil
}

// GetAccount fetches the current state of a Connect account.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	acct, err := account.GetByID(accountID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Connect account: %w", err)
	}
	return acct, nil
}
