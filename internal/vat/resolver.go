package vat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/biter777/countries"

	"vatbill/entity"
	"vatbill/lib/sl"
)

// RateSource looks a country code up in the external rate table.
// A nil record with a nil error means the country has no stored rate.
type RateSource interface {
	GetVatRate(ctx context.Context, country string) (*entity.VatRate, error)
}

// Resolver maps a country code to a VAT rate. Lookups that miss or
// fail resolve to the configured default: invoice creation must not
// block on an unreachable rate table, and the default is always safe.
type Resolver struct {
	src         RateSource
	defaultRate float64
	log         *slog.Logger
}

func NewResolver(src RateSource, defaultRate float64, log *slog.Logger) (*Resolver, error) {
	if defaultRate < 0 || defaultRate > 1 {
		return nil, fmt.Errorf("%w: default rate %v must be between 0 and 1", ErrInvalidArgument, defaultRate)
	}
	return &Resolver{
		src:         src,
		defaultRate: defaultRate,
		log:         log.With(sl.Module("vat.resolver")),
	}, nil
}

// Rate resolves the VAT rate for a country. An empty country, an
// unknown country, a stored rate outside [0,1], or a store failure all
// yield the default rate; Rate never returns an error.
func (r *Resolver) Rate(ctx context.Context, country string) float64 {
	code := NormalizeCountry(country)
	if code == "" {
		return r.defaultRate
	}
	if r.src == nil {
		return r.defaultRate
	}

	record, err := r.src.GetVatRate(ctx, code)
	if err != nil {
		r.log.Warn("vat rate lookup failed, using default",
			slog.String("country", code),
			sl.Err(err))
		return r.defaultRate
	}
	if record == nil {
		r.log.Debug("no vat rate stored for country, using default",
			slog.String("country", code))
		return r.defaultRate
	}
	if record.Rate < 0 || record.Rate > 1 {
		r.log.Warn("stored vat rate out of range, using default",
			slog.String("country", code),
			slog.Float64("rate", record.Rate))
		return r.defaultRate
	}
	return record.Rate
}

// NormalizeCountry maps user input to an upper-case ISO alpha-2 code.
// Full country names are accepted ("Germany" -> "DE"); anything that
// cannot be resolved is returned upper-cased as given.
func NormalizeCountry(country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		return ""
	}
	if len(country) == 2 {
		return strings.ToUpper(country)
	}
	code := countries.ByName(country).Alpha2()
	if len(code) == 2 {
		return code
	}
	return strings.ToUpper(country)
}
