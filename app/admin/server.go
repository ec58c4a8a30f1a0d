package admin

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cardinal-cryptography/electionsx/app/admin/controller"
	"github.com/cardinal-cryptography/electionsx/app/admin/types"
	"github.com/cardinal-cryptography/electionsx/pkg/utils"
)

// NewServer builds the HTTP server for app and stores it in app.Server.
func NewServer(app *types.App) error {
	ctler, err := controller.NewController(app)
	if err != nil {
		return err
	}
	router, err := ctler.NewRouter()
	if err != nil {
		return err
	}

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3000")

	app.Server = &http.Server{
		Addr:              addr,
		Handler:           controller.WithCORS(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.Logger.Info("Starting server", zap.String("addr", addr))

	return nil
}
