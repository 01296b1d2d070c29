package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"vatbill/entity"
	"vatbill/impl/invoices"
	"vatbill/lib/api/cont"
	"vatbill/lib/api/response"
	"vatbill/lib/sl"
)

type Core interface {
	InvoiceCreate(ctx context.Context, user *entity.User, draft *entity.InvoiceDraft) (*entity.Invoice, error)
	InvoiceList(ctx context.Context, user *entity.User, status string) ([]*entity.Invoice, error)
	InvoiceMarkPaid(ctx context.Context, user *entity.User, invoiceId string) (*entity.Invoice, error)
	InvoiceSummary(ctx context.Context, user *entity.User) (*entity.Summary, error)
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.invoice")
		user := cont.GetUser(r.Context())

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user", user.Username),
		)

		if handler == nil {
			logger.Error("invoice service not available")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Invoice service not available"))
			return
		}

		var draft entity.InvoiceDraft
		if err := render.Bind(r, &draft); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.Int("items_count", len(draft.Items)),
			slog.String("country", draft.Country),
		)

		inv, err := handler.InvoiceCreate(r.Context(), user, &draft)
		if err != nil {
			fail(w, r, logger, "Failed to create invoice", err)
			return
		}
		logger.With(
			slog.String("invoice_id", inv.Id),
		).Debug("invoice created")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(inv))
	}
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.invoice")
		user := cont.GetUser(r.Context())

		// any status other than paid/unpaid means no filter
		status := r.URL.Query().Get("status")
		if status != "paid" && status != "unpaid" {
			status = ""
		}

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user", user.Username),
			slog.String("status", status),
		)

		if handler == nil {
			logger.Error("invoice service not available")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Invoice service not available"))
			return
		}

		list, err := handler.InvoiceList(r.Context(), user, status)
		if err != nil {
			fail(w, r, logger, "Failed to list invoices", err)
			return
		}
		if list == nil {
			list = []*entity.Invoice{}
		}
		logger.With(
			slog.Int("count", len(list)),
		).Debug("invoices listed")

		render.JSON(w, r, response.Ok(list))
	}
}

func Pay(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.invoice")
		user := cont.GetUser(r.Context())
		invoiceId := chi.URLParam(r, "id")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user", user.Username),
			slog.String("invoice_id", invoiceId),
		)

		if handler == nil {
			logger.Error("invoice service not available")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Invoice service not available"))
			return
		}

		if invoiceId == "" {
			logger.Warn("invalid invoice id")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid invoice id"))
			return
		}

		inv, err := handler.InvoiceMarkPaid(r.Context(), user, invoiceId)
		if err != nil {
			fail(w, r, logger, "Failed to mark invoice as paid", err)
			return
		}
		logger.Debug("invoice marked paid")

		render.JSON(w, r, response.Ok(inv))
	}
}

func Summary(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.invoice")
		user := cont.GetUser(r.Context())

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user", user.Username),
		)

		if handler == nil {
			logger.Error("invoice service not available")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Invoice service not available"))
			return
		}

		summary, err := handler.InvoiceSummary(r.Context(), user)
		if err != nil {
			fail(w, r, logger, "Failed to generate summary", err)
			return
		}
		logger.Debug("summary generated")

		render.JSON(w, r, response.Ok(summary))
	}
}

// fail maps a service error to the response status. Validation maps to
// 400, a missing or foreign invoice to 404, anything else to a 500
// with a generic message so store details never reach the client.
func fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, message string, err error) {
	switch {
	case errors.Is(err, invoices.ErrValidation):
		logger.Warn(message, sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(fmt.Sprintf("%s: %v", message, err)))
	case errors.Is(err, invoices.ErrNotFound):
		logger.Warn(message, sl.Err(err))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("Invoice not found"))
	default:
		logger.Error(message, sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(message))
	}
}
