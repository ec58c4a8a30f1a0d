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

// User is an admin account allowed to log in.
type User struct {
	Username string `json:"username"`
	Hash     []byte `json:"hash"`
	Role     string `json:"role"`
}

type App struct {
	// Root is the sudo-capable node connection.
	Root      chain.RootConnection
	Elections *elections.Pallet

	// TxStatus is the inclusion status awaited when the request does not name one.
	TxStatus chain.TxStatus

	// Publisher announces applied configuration changes.
	Publisher redis.Publisher
	// RedisClient is set when REDIS_ENABLED is true and closed on shutdown.
	RedisClient redis.Conn

	// Zap Logger
	Logger *zap.Logger

	// HTTP Server
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

	if closer, ok := a.Root.(interface{ Close() }); ok {
		a.Logger.Info("closing node connection")
		closer.Close()
	}

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
