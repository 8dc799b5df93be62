// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ezchain/ezchain/business/sys/validate"
	"github.com/ezchain/ezchain/business/web/errs"
	"github.com/ezchain/ezchain/foundation/events"
	"github.com/ezchain/ezchain/foundation/ezchain/selector"
	"github.com/ezchain/ezchain/foundation/ezchain/state"
	"github.com/ezchain/ezchain/foundation/ezchain/transaction"
	"github.com/ezchain/ezchain/foundation/ezchain/updater"
	"github.com/ezchain/ezchain/foundation/ezchain/validator"
	"github.com/ezchain/ezchain/foundation/ezchain/value"
	"github.com/ezchain/ezchain/foundation/web"
)

// Handlers manages the set of public ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide update events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitUpdate applies a confirmed transaction to the VPB set of the
// specified account.
func (h Handlers) SubmitUpdate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var app updateRequest
	if err := web.Decode(r, &app); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	if err := validate.Check(app); err != nil {
		return err
	}

	req, err := toUpdateRequest(app)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit update", "traceid", v.TraceID, "account", req.AccountID, "batch", req.Batch.Digest, "height", req.BlockHeight)

	result, err := h.State.ProcessUpdate(req)
	if err != nil {
		return errs.NewTrusted(err, updateStatusCode(err))
	}

	return web.Respond(ctx, w, result, http.StatusOK)
}

// Status returns the update status diagnostic for an account.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := transaction.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	status, err := h.State.Status(accountID)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// VPBs returns the live pairs currently owned by an account.
func (h Handlers) VPBs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := transaction.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	pairs, err := h.State.QueryVPBs(accountID)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, pairs, http.StatusOK)
}

// PlanSpend selects the ranges funding a spend with the configured
// coin-selection strategy.
func (h Handlers) PlanSpend(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app planSpendRequest
	if err := web.Decode(r, &app); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	if err := validate.Check(app); err != nil {
		return err
	}

	fromID, err := transaction.ToAccountID(app.FromAddress)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	toID, err := transaction.ToAccountID(app.ToAddress)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	transfers, err := h.State.PlanSpend(fromID, toID, app.Amount)
	if err != nil {
		if errors.Is(err, selector.ErrInsufficientValue) {
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return err
	}

	return web.Respond(ctx, w, transfers, http.StatusOK)
}

// VerifyInbound produces the accept/reject verdict for an inbound transfer.
func (h Handlers) VerifyInbound(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app verifyInboundRequest
	if err := web.Decode(r, &app); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	if err := validate.Check(app); err != nil {
		return err
	}

	val, err := toValue(app.Value)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := h.State.VerifyInbound(app.Chain, val, app.BatchDigest); err != nil {
		switch {
		case errors.Is(err, validator.ErrProofInvalid), errors.Is(err, updater.ErrDoubleSpend):
			return web.Respond(ctx, w, verdict{Accepted: false, Reason: err.Error()}, http.StatusOK)
		default:
			return err
		}
	}

	return web.Respond(ctx, w, verdict{Accepted: true}, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// =============================================================================

// updateStatusCode maps the core's failure kinds to HTTP status codes.
// ErrStoreUnavailable is the only retryable condition.
func updateStatusCode(err error) int {
	switch {
	case errors.Is(err, updater.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, updater.ErrDoubleSpend):
		return http.StatusConflict
	case errors.Is(err, updater.ErrAccountMismatch):
		return http.StatusForbidden
	case errors.Is(err, validator.ErrProofInvalid), errors.Is(err, value.ErrInvalidSplit):
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}
