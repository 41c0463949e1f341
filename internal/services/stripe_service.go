package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"routelynk/internal/logger"
	"routelynk/internal/models"
)

var (
	ErrStripeAPIError         = errors.New("stripe API error")
	ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")
)

// StripeService wraps the payment gateway. The marketplace only needs the
// create-intent surface: the client confirms the intent with Stripe directly
// and then finalizes through RecordPayment.
type StripeService struct {
	client   *client.API
	currency string
	log      *logger.Logger
}

func NewStripeService(currency string, log *logger.Logger) (*StripeService, error) {
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY environment variable not set")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(stripeKey, nil)
	if sc == nil {
		log.Error("STRIPE", "Failed to initialize Stripe client")
		return nil, ErrStripeClientInitFailed
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeService{client: sc, currency: currency, log: log}, nil
}

// CreatePaymentIntent creates a gateway intent for the given price and
// returns the client secret the frontend confirms against.
func (s *StripeService) CreatePaymentIntent(ctx context.Context, req *models.PaymentIntentRequest) (*models.PaymentIntentResponse, error) {
	// Stripe bills in the smallest currency unit.
	amountInCents := int64(math.Round(req.Price * 100))

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountInCents),
		Currency:           stripe.String(s.currency),
		PaymentMethodTypes: []*string{stripe.String("card")},
	}
	params.Context = ctx

	s.log.LogPayment("INTENT", "new", fmt.Sprintf("Creating payment intent for %.2f %s", req.Price, s.currency))
	pi, err := s.client.PaymentIntents.New(params)
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Failed to create payment intent: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}

	s.log.LogPayment("INTENT", pi.ID, "Payment intent created")
	return &models.PaymentIntentResponse{ClientSecret: pi.ClientSecret}, nil
}
