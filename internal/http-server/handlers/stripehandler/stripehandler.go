package stripehandler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stripe/stripe-go/v76"

	"vatbill/lib/sl"
)

type Core interface {
	StripeVerifySignature(payload []byte, header string, tolerance time.Duration) bool
	StripeEvent(ctx context.Context, evt *stripe.Event)
}

// Event receives Stripe webhook deliveries. A bad signature or body is
// answered 400 so Stripe retries; a valid event is always acknowledged
// with 200 once handed to the core, even if applying it fails there.
func Event(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const tolerance = 5 * time.Minute
		log := logger.With(
			sl.Module("http.handlers.stripe"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("read request body", sl.Err(err))
			http.Error(w, "read", http.StatusBadRequest)
			return
		}

		sig := r.Header.Get("Stripe-Signature")
		if !handler.StripeVerifySignature(payload, sig, tolerance) {
			log.Error("invalid webhook signature")
			http.Error(w, "signature", http.StatusBadRequest)
			return
		}

		var evt stripe.Event
		if err = json.Unmarshal(payload, &evt); err != nil {
			log.Error("unmarshal event", sl.Err(err))
			http.Error(w, "json", http.StatusBadRequest)
			return
		}

		handler.StripeEvent(r.Context(), &evt)

		w.WriteHeader(http.StatusOK)
	}
}
