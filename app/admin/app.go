package admin

import (
	"context"

	"go.uber.org/zap"

	"github.com/cardinal-cryptography/electionsx/app/admin/types"
	"github.com/cardinal-cryptography/electionsx/pkg/chain"
	"github.com/cardinal-cryptography/electionsx/pkg/chain/substrate"
	"github.com/cardinal-cryptography/electionsx/pkg/elections"
	"github.com/cardinal-cryptography/electionsx/pkg/logging"
	"github.com/cardinal-cryptography/electionsx/pkg/redis"
	"github.com/cardinal-cryptography/electionsx/pkg/retry"
	"github.com/cardinal-cryptography/electionsx/pkg/utils"
)

func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New("admin")
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	status, err := chain.ParseTxStatus(utils.Env("TX_STATUS", "in-block"))
	if err != nil {
		logger.Fatal("Invalid TX_STATUS", zap.Error(err))
	}

	nodeURL := utils.Env("NODE_URL", "ws://127.0.0.1:9944")
	root, err := substrate.DialRoot(ctx, substrate.Opts{
		URL:    nodeURL,
		Retry:  retry.DialConfig(),
		Logger: logger,
	}, utils.Env("SUDO_SEED", ""))
	if err != nil {
		logger.Fatal("Unable to open root connection", zap.String("url", nodeURL), zap.Error(err))
	}
	logger.Info("Root connection ready", zap.String("sudo", root.Address()))

	app := &types.App{
		Root:      root,
		Elections: elections.New(root),
		TxStatus:  status,
		Publisher: redis.Discard{},
		Logger:    logger,
	}

	// Redis carries change notifications (optional)
	if utils.EnvBool("REDIS_ENABLED", false) {
		redisClient, err := redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - change notifications will be disabled",
				zap.Error(err))
		} else {
			app.RedisClient = redisClient
			app.Publisher = redisClient
			logger.Info("Redis client initialized for change notifications")
		}
	} else {
		logger.Info("Redis disabled - change notifications will not be published")
	}

	return app
}
