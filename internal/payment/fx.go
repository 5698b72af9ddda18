package payment

import (
	paymentdomain "github.com/principalgrid/billing/internal/payment/domain"
	"github.com/principalgrid/billing/internal/payment/stripe"
	"go.uber.org/fx"
)

// Module wires the Stripe processor client.
var Module = fx.Module("payment.stripe",
	fx.Provide(
		stripe.NewClient,
		func(c *stripe.Client) paymentdomain.Processor { return c },
	),
)
