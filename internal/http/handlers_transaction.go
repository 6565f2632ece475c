package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/wiz-abhi/LedgerBook/internal/core"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		slog.ErrorContext(r.Context(), "Parse transaction form error", "error", err)
		BadRequestError("Invalid request format").Write(w)
		return
	}

	form, err := parser.TransactionForm()
	if err != nil {
		UnprocessableEntityError("Customer, type and amount are required").Write(w)
		return
	}

	paise, err := core.ParseDecimalToPaise(form.Amount)
	if err != nil {
		UnprocessableEntityError("Invalid amount: use a value like 1500 or 1500.50").Write(w)
		return
	}

	txn, err := s.ledger.CreateTransaction(r.Context(),
		form.CustomerID,
		core.TransactionType(form.Type),
		core.Money{Paise: paise},
		form.Description)
	if resp := s.ledgerErrorResponse(r, err, "create transaction", form.CustomerID); resp != nil {
		resp.Write(w)
		return
	}

	s.invalidateCaches()

	NewHTMXResponse().
		TriggerLedgerChanged(txn.CustomerID).
		TriggerFormReset().
		TriggerSuccessNotification("Transaction recorded").
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	id := parser.Get("id")
	if id == "" {
		BadRequestError("Missing transaction id").Write(w)
		return
	}

	form, err := parser.TransactionForm()
	if err != nil {
		UnprocessableEntityError("Customer, type and amount are required").Write(w)
		return
	}

	paise, err := core.ParseDecimalToPaise(form.Amount)
	if err != nil {
		UnprocessableEntityError("Invalid amount: use a value like 1500 or 1500.50").Write(w)
		return
	}

	txn, err := s.ledger.EditTransaction(r.Context(), id,
		core.TransactionType(form.Type),
		core.Money{Paise: paise},
		form.Description)
	if resp := s.ledgerErrorResponse(r, err, "update transaction", id); resp != nil {
		resp.Write(w)
		return
	}

	s.invalidateCaches()

	NewHTMXResponse().
		TriggerLedgerChanged(txn.CustomerID).
		TriggerSuccessNotification("Transaction updated").
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	id := parser.Get("id")
	if id == "" {
		BadRequestError("Missing transaction id").Write(w)
		return
	}

	txn, err := s.ledger.GetTransaction(r.Context(), id)
	if resp := s.ledgerErrorResponse(r, err, "load transaction", id); resp != nil {
		resp.Write(w)
		return
	}

	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		if resp := s.ledgerErrorResponse(r, err, "delete transaction", id); resp != nil {
			resp.Write(w)
			return
		}
	}

	s.invalidateCaches()

	NewHTMXResponse().
		TriggerLedgerChanged(txn.CustomerID).
		TriggerSuccessNotification("Transaction removed").
		Write(w)
}

// ledgerErrorResponse maps service errors to HTTP responses, returning nil on success.
func (s *Server) ledgerErrorResponse(r *http.Request, err error, op, ref string) *HTMXResponseBuilder {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("Not found")
	case errors.Is(err, core.ErrValidation):
		return UnprocessableEntityError("Invalid data: " + err.Error())
	case errors.Is(err, core.ErrConflict):
		return ConflictError("The record changed underneath you, please retry")
	case errors.Is(err, core.ErrBackendUnavailable):
		slog.ErrorContext(r.Context(), "Backend unavailable", "error", err, "op", op, "ref", ref)
		return ErrorResponse(http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		slog.ErrorContext(r.Context(), "Ledger operation failed", "error", err, "op", op, "ref", ref)
		return InternalServerError("Something went wrong")
	}
}
