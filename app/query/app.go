package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/cardinal-cryptography/electionsx/app/query/types"
	"github.com/cardinal-cryptography/electionsx/pkg/chain/substrate"
	"github.com/cardinal-cryptography/electionsx/pkg/elections"
	"github.com/cardinal-cryptography/electionsx/pkg/logging"
	"github.com/cardinal-cryptography/electionsx/pkg/redis"
	"github.com/cardinal-cryptography/electionsx/pkg/retry"
	"github.com/cardinal-cryptography/electionsx/pkg/utils"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New("query")
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	nodeURL := utils.Env("NODE_URL", "ws://127.0.0.1:9944")
	conn, err := substrate.Dial(ctx, substrate.Opts{
		URL:    nodeURL,
		Retry:  retry.DialConfig(),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Unable to connect to node", zap.String("url", nodeURL), zap.Error(err))
	}

	app := &types.App{
		Conn:          conn,
		Elections:     elections.New(conn),
		StatusWorkers: utils.EnvInt("STATUS_WORKERS", 8),
		Logger:        logger,
	}

	// Redis feeds the websocket change stream (optional)
	if utils.EnvBool("REDIS_ENABLED", false) {
		redisClient, err := redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - websocket change stream will be disabled",
				zap.Error(err))
		} else {
			app.RedisClient = redisClient
			logger.Info("Redis client initialized for websocket change stream")
		}
	} else {
		logger.Info("Redis disabled - websocket change stream will not be available")
	}

	return app
}
