package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vatbill/entity"
	"vatbill/internal/vat"
	"vatbill/lib/clock"
	"vatbill/lib/sl"
)

var (
	// ErrValidation reports malformed invoice input, detected before
	// any call leaves the process.
	ErrValidation = errors.New("invalid invoice input")

	// ErrNotFound covers both a missing invoice and an invoice owned
	// by someone else. The two cases are deliberately reported the
	// same way, so callers learn nothing about other users' documents.
	ErrNotFound = errors.New("invoice not found")

	// ErrUpstream reports a failed call to the document platform.
	ErrUpstream = errors.New("store request failed")
)

// Store is the slice of the document platform the lifecycle needs.
// Get returns (nil, nil) for a missing document. SetInvoicePaid is a
// conditional update matching only while paid is false; it reports
// whether the document was matched.
type Store interface {
	InsertInvoice(ctx context.Context, inv *entity.Invoice) error
	GetInvoice(ctx context.Context, id string) (*entity.Invoice, error)
	ListInvoices(ctx context.Context, ownerId string, paid *bool) ([]*entity.Invoice, error)
	SetInvoicePaid(ctx context.Context, inv *entity.Invoice) (bool, error)
}

// Rates resolves a country code to a VAT rate, falling back to the
// configured default. It never fails.
type Rates interface {
	Rate(ctx context.Context, country string) float64
}

// Service implements the invoice lifecycle: create, list, mark paid,
// summarize. An invoice has two states, unpaid and paid; the only
// transition is unpaid to paid, and it is terminal.
type Service struct {
	store          Store
	rates          Rates
	defaultCountry string
	log            *slog.Logger
}

func New(store Store, rates Rates, defaultCountry string, log *slog.Logger) *Service {
	return &Service{
		store:          store,
		rates:          rates,
		defaultCountry: defaultCountry,
		log:            log.With(sl.Module("invoices")),
	}
}

// Create validates the draft, resolves the VAT rate for its country,
// computes VAT and total, and persists a new unpaid invoice scoped to
// the owner. Returns the persisted record with structured line items.
func (s *Service) Create(ctx context.Context, ownerId string, draft *entity.InvoiceDraft) (*entity.Invoice, error) {
	if ownerId == "" {
		return nil, fmt.Errorf("%w: missing owner", ErrValidation)
	}
	if draft == nil || len(draft.Items) == 0 {
		return nil, fmt.Errorf("%w: invoice must contain at least one item", ErrValidation)
	}
	for _, item := range draft.Items {
		if item.Amount <= 0 {
			return nil, fmt.Errorf("%w: item amounts must be positive", ErrValidation)
		}
	}

	country := vat.NormalizeCountry(draft.Country)
	if country == "" {
		country = s.defaultCountry
	}

	subtotal := draft.Subtotal()
	rate := s.rates.Rate(ctx, draft.Country)
	vatAmount, total, err := vat.Compute(subtotal, rate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := clock.NowUTC()
	inv := &entity.Invoice{
		OwnerId:   ownerId,
		Items:     draft.Items,
		Country:   country,
		Subtotal:  subtotal,
		VatRate:   rate,
		Vat:       vatAmount,
		Total:     total,
		Paid:      false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = inv.EncodeItems(); err != nil {
		return nil, fmt.Errorf("%w: encode items: %v", ErrValidation, err)
	}

	if err = s.store.InsertInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.log.Info("invoice created",
		slog.String("invoice_id", inv.Id),
		slog.String("owner_id", ownerId),
		slog.Float64("subtotal", subtotal),
		slog.Float64("vat", vatAmount),
		slog.Float64("total", total))
	return inv, nil
}

// List returns the owner's invoices newest first. Status narrows the
// result: "paid", "unpaid", or empty for all. Line items are decoded
// into structured form regardless of how the store holds them.
func (s *Service) List(ctx context.Context, ownerId, status string) ([]*entity.Invoice, error) {
	var paid *bool
	switch status {
	case "":
	case "paid":
		v := true
		paid = &v
	case "unpaid":
		v := false
		paid = &v
	default:
		return nil, fmt.Errorf("%w: status must be paid or unpaid", ErrValidation)
	}

	list, err := s.store.ListInvoices(ctx, ownerId, paid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	for _, inv := range list {
		if err = inv.DecodeItems(); err != nil {
			s.log.Warn("stored invoice has undecodable items",
				slog.String("invoice_id", inv.Id),
				sl.Err(err))
		}
	}
	return list, nil
}

// MarkPaid transitions an invoice from unpaid to paid. Ownership is
// checked here, not left to the store's access rules. Marking an
// already-paid invoice is a no-op returning the current record. VAT
// and total are recomputed from the stored subtotal and stored rate,
// never from request input. The returned bool reports whether this
// call performed the transition; the caller dispatches notifications
// only when it did.
func (s *Service) MarkPaid(ctx context.Context, ownerId, invoiceId string) (*entity.Invoice, bool, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceId)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if inv == nil || inv.OwnerId != ownerId {
		return nil, false, ErrNotFound
	}
	if err = inv.DecodeItems(); err != nil {
		s.log.Warn("stored invoice has undecodable items",
			slog.String("invoice_id", inv.Id),
			sl.Err(err))
	}
	if inv.Paid {
		s.log.Debug("invoice already paid", slog.String("invoice_id", invoiceId))
		return inv, false, nil
	}

	vatAmount, total, err := vat.Compute(inv.Subtotal, inv.VatRate)
	if err != nil {
		return nil, false, fmt.Errorf("%w: stored invoice %s: %v", ErrUpstream, invoiceId, err)
	}

	now := clock.NowUTC()
	inv.Paid = true
	inv.Vat = vatAmount
	inv.Total = total
	inv.UpdatedAt = now
	inv.PaidAt = &now

	matched, err := s.store.SetInvoicePaid(ctx, inv)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if !matched {
		// A concurrent payer already flipped the flag between our read
		// and the conditional update. Re-read and report the no-op.
		current, err := s.store.GetInvoice(ctx, invoiceId)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		if current == nil || current.OwnerId != ownerId {
			return nil, false, ErrNotFound
		}
		if err = current.DecodeItems(); err != nil {
			s.log.Warn("stored invoice has undecodable items",
				slog.String("invoice_id", current.Id),
				sl.Err(err))
		}
		return current, false, nil
	}

	s.log.Info("invoice marked paid",
		slog.String("invoice_id", invoiceId),
		slog.String("owner_id", ownerId),
		slog.Float64("total", total))
	return inv, true, nil
}

// Summary aggregates over all of the owner's invoices. Revenue and
// VAT sums are rounded once after summation.
func (s *Service) Summary(ctx context.Context, ownerId string) (*entity.Summary, error) {
	list, err := s.List(ctx, ownerId, "")
	if err != nil {
		return nil, err
	}

	summary := &entity.Summary{Total: len(list)}
	var revenue, vatSum float64
	for _, inv := range list {
		revenue += inv.Total
		vatSum += inv.Vat
		if inv.Paid {
			summary.Paid++
		} else {
			summary.Outstanding++
		}
	}
	summary.TotalRevenue = vat.Round2(revenue)
	summary.TotalVat = vat.Round2(vatSum)
	return summary, nil
}
