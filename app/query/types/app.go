package types

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
	"github.com/cardinal-cryptography/electionsx/pkg/elections"
	"github.com/cardinal-cryptography/electionsx/pkg/redis"
)

type App struct {
	// Conn is the node connection every accessor reads through.
	Conn      chain.Reader
	Elections *elections.Pallet

	// RedisClient feeds the /api/ws change stream. Nil when REDIS_ENABLED is false.
	RedisClient redis.Conn

	// StatusWorkers bounds concurrent lookups of the validator status endpoint.
	StatusWorkers int

	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("Server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = a.Server.Shutdown(shutdownCtx)

	if a.RedisClient != nil {
		a.Logger.Info("closing redis connection")
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	if closer, ok := a.Conn.(interface{ Close() }); ok {
		a.Logger.Info("closing node connection")
		closer.Close()
	}

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
