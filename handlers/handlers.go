// Package handlers holds the request plumbing shared by the HTTP handlers:
// decoding, validation, path parameters and mapping ledger errors to status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"binarymarket/handlers/math/market"
	"binarymarket/ledger"
	"binarymarket/security"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 16

var validate = validator.New()

// DecodeAndValidate reads a JSON body into v and runs its validate tags.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid %s: failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return err
	}
	return nil
}

// PathID parses the {name} path variable as a positive int64.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// StatusFor maps an error from the ledger or engine to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrMarketNotFound),
		errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrNameTaken),
		errors.Is(err, ledger.ErrStaleState),
		errors.Is(err, ledger.ErrMarketHasHoldings),
		errors.Is(err, market.ErrMarketResolved),
		errors.Is(err, market.ErrMarketNotResolved),
		errors.Is(err, ledger.ErrNothingToClaim):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, market.ErrEngineInvariantViolation):
		return http.StatusInternalServerError
	case errors.Is(err, security.ErrInvalidInput),
		ledger.IsUserError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Fail writes err with its mapped status. Server-side errors get a generic
// message; the detail is already in the ledger's log.
func Fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	http.Error(w, msg, status)
}
