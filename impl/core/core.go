package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"

	"vatbill/entity"
	"vatbill/internal/stripeclient"
	"vatbill/lib/sl"
)

const notifyTimeout = 15 * time.Second

type AuthService interface {
	UserByToken(token string) (*entity.User, error)
}

type InvoiceService interface {
	Create(ctx context.Context, ownerId string, draft *entity.InvoiceDraft) (*entity.Invoice, error)
	List(ctx context.Context, ownerId, status string) ([]*entity.Invoice, error)
	MarkPaid(ctx context.Context, ownerId, invoiceId string) (*entity.Invoice, bool, error)
	Summary(ctx context.Context, ownerId string) (*entity.Summary, error)
}

type Mailer interface {
	Send(ctx context.Context, msg *entity.EmailMessage) error
}

type Channel interface {
	Notify(text string)
}

// Core connects the HTTP layer to the services. Notification of a
// completed payment is dispatched here, after the state change has
// committed, on its own goroutine with its own timeout; a failed or
// slow notification never delays or fails the response.
type Core struct {
	inv    InvoiceService
	auth   AuthService
	sc     *stripeclient.StripeClient
	mailer Mailer
	tg     Channel
	log    *slog.Logger
}

func New(inv InvoiceService, auth AuthService, sc *stripeclient.StripeClient, log *slog.Logger) *Core {
	if inv == nil {
		panic("invoice service is nil")
	}
	return &Core{
		inv:  inv,
		auth: auth,
		sc:   sc,
		log:  log.With(sl.Module("core")),
	}
}

// SetMailer enables payment-confirmation email. A nil mailer keeps it off.
func (c *Core) SetMailer(mailer Mailer) {
	c.mailer = mailer
}

// SetChannel enables the operational Telegram channel. Nil keeps it off.
func (c *Core) SetChannel(ch Channel) {
	c.tg = ch
}

func (c *Core) AuthenticateByToken(token string) (*entity.User, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.UserByToken(token)
}

func (c *Core) InvoiceCreate(ctx context.Context, user *entity.User, draft *entity.InvoiceDraft) (*entity.Invoice, error) {
	return c.inv.Create(ctx, user.Id, draft)
}

func (c *Core) InvoiceList(ctx context.Context, user *entity.User, status string) ([]*entity.Invoice, error) {
	return c.inv.List(ctx, user.Id, status)
}

func (c *Core) InvoiceSummary(ctx context.Context, user *entity.User) (*entity.Summary, error) {
	return c.inv.Summary(ctx, user.Id)
}

func (c *Core) InvoiceMarkPaid(ctx context.Context, user *entity.User, invoiceId string) (*entity.Invoice, error) {
	inv, transitioned, err := c.inv.MarkPaid(ctx, user.Id, invoiceId)
	if err != nil {
		return nil, err
	}
	if transitioned {
		c.notifyPaid(inv, user.Email)
	}
	return inv, nil
}

// StripeVerifySignature checks a webhook delivery against the secret.
func (c *Core) StripeVerifySignature(payload []byte, header string, tolerance time.Duration) bool {
	if c.sc == nil {
		return false
	}
	return c.sc.VerifySignature(payload, header, tolerance)
}

// StripeEvent applies a payment event to the invoice it references.
// Events without an invoice reference are ignored; a failing update is
// logged and left for Stripe's retry.
func (c *Core) StripeEvent(ctx context.Context, evt *stripe.Event) {
	log := c.log.With(
		slog.String("event_id", evt.ID),
		slog.Any("type", evt.Type),
	)

	ownerId, invoiceId, ok := stripeclient.PaymentReference(evt)
	if !ok {
		log.Debug("event carries no invoice reference, ignored")
		return
	}
	log = log.With(
		slog.String("invoice_id", invoiceId),
		slog.String("owner_id", ownerId),
	)

	inv, transitioned, err := c.inv.MarkPaid(ctx, ownerId, invoiceId)
	if err != nil {
		log.Error("apply payment event", sl.Err(err))
		return
	}
	if !transitioned {
		log.Debug("invoice already paid, event ignored")
		return
	}
	log.Info("invoice paid via stripe")
	c.notifyPaid(inv, "")
}

// notifyPaid dispatches the confirmation email and the Telegram ops
// message. Failures are logged and swallowed; the payment state has
// already committed and is never rolled back over a notification.
func (c *Core) notifyPaid(inv *entity.Invoice, email string) {
	short := inv.Id
	if len(short) > 8 {
		short = short[:8]
	}

	if c.mailer != nil && email != "" {
		msg := &entity.EmailMessage{
			To:      email,
			Subject: fmt.Sprintf("Invoice #%s Payment Confirmed", short),
			Body: fmt.Sprintf("Your invoice #%s has been marked as paid. Total: %.2f, VAT: %.2f.",
				short, inv.Total, inv.Vat),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := c.mailer.Send(ctx, msg); err != nil {
				c.log.Warn("payment confirmation email failed",
					slog.String("invoice_id", inv.Id),
					sl.Err(err))
			}
		}()
	}

	if c.tg != nil {
		text := fmt.Sprintf("Invoice #%s paid: total %.2f (VAT %.2f)", short, inv.Total, inv.Vat)
		go c.tg.Notify(text)
	}
}
