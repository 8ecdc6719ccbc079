package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/shopagent/internal/domain/payment"
)

// ValidateHold reports whether the hold is still capturable by the
// authenticated identity. Unknown IDs and IDs belonging to other identities
// are distinguishable (404 vs 403) only to the authenticated caller; both
// reveal nothing about the hold itself.
func (h *Handler) ValidateHold(w http.ResponseWriter, r *http.Request) {
	ownerID := IdentityFromContext(r.Context())
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	holdID := r.PathValue("id")
	if holdID == "" {
		writeError(w, http.StatusNotFound, "hold not found")
		return
	}

	v, err := h.holds.ValidateHold(r.Context(), holdID, ownerID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrHoldNotFound):
			writeError(w, http.StatusNotFound, "hold not found")
		case errors.Is(err, payment.ErrUnauthorized):
			writeError(w, http.StatusForbidden, "hold belongs to a different account")
		default:
			h.log.Error("hold validation failed",
				zap.String("hold_id", holdID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "something went wrong, please try again")
		}
		return
	}

	// An expired-but-uncaptured hold is gone for good; report that with the
	// validation body attached.
	status := http.StatusOK
	if !v.Valid && !v.Status.Terminal() {
		status = http.StatusGone
	}

	writeJSON(w, status, encodeHoldValidation(v))
}

func encodeHoldValidation(v *payment.HoldValidation) *jx.Encoder {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("valid", func(e *jx.Encoder) { e.Bool(v.Valid) })
		e.Field("amount", func(e *jx.Encoder) { e.Str(v.Amount.StringFixed(2)) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(v.Currency) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(v.Status)) })
		e.Field("expires_at", func(e *jx.Encoder) { e.Str(v.ExpiresAt.Format(time.RFC3339)) })
		e.Field("cart_fingerprint", func(e *jx.Encoder) { e.Str(v.CartFingerprint) })
	})
	return &e
}
