// Package private maintains the group of handlers for operator access.
package private

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ezchain/ezchain/business/sys/validate"
	"github.com/ezchain/ezchain/business/web/errs"
	"github.com/ezchain/ezchain/foundation/ezchain/state"
	"github.com/ezchain/ezchain/foundation/web"
)

// Handlers manages the set of operator endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// rolloverRequest names the epoch window the guard is reset for.
type rolloverRequest struct {
	Epoch uint64 `json:"epoch"`
}

// RolloverEpoch resets the double-spend guard for a new epoch window. This
// is a non-reversible configuration action.
func (h Handlers) RolloverEpoch(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var app rolloverRequest
	if err := web.Decode(r, &app); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	if err := validate.Check(app); err != nil {
		return err
	}

	h.Log.Infow("epoch rollover", "traceid", v.TraceID, "epoch", app.Epoch)
	h.State.RolloverEpoch(app.Epoch)

	resp := struct {
		Status string `json:"status"`
		Epoch  uint64 `json:"epoch"`
	}{
		Status: "guard reset",
		Epoch:  app.Epoch,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// GuardStats returns the double-spend guard's counters.
func (h Handlers) GuardStats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.GuardStats(), http.StatusOK)
}
