// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ezchain/ezchain/app/services/node/handlers/v1/private"
	"github.com/ezchain/ezchain/app/services/node/handlers/v1/public"
	"github.com/ezchain/ezchain/foundation/events"
	"github.com/ezchain/ezchain/foundation/ezchain/state"
	"github.com/ezchain/ezchain/foundation/web"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/accounts/:account/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/accounts/:account/vpbs", pbl.VPBs)
	app.Handle(http.MethodPost, version, "/update", pbl.SubmitUpdate)
	app.Handle(http.MethodPost, version, "/spend/plan", pbl.PlanSpend)
	app.Handle(http.MethodPost, version, "/verify", pbl.VerifyInbound)
}

// PrivateRoutes binds all the version 1 operator routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	app.Handle(http.MethodPost, version, "/epoch/rollover", prv.RolloverEpoch)
	app.Handle(http.MethodGet, version, "/guard/stats", prv.GuardStats)
}
