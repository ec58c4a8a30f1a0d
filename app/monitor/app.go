package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cardinal-cryptography/electionsx/pkg/chain"
	"github.com/cardinal-cryptography/electionsx/pkg/chain/substrate"
	"github.com/cardinal-cryptography/electionsx/pkg/elections"
	"github.com/cardinal-cryptography/electionsx/pkg/logging"
	"github.com/cardinal-cryptography/electionsx/pkg/redis"
	"github.com/cardinal-cryptography/electionsx/pkg/retry"
	"github.com/cardinal-cryptography/electionsx/pkg/utils"
)

// App polls Elections state every Cron tick and publishes an event for every
// watched item whose value changed since the previous tick.
type App struct {
	Conn      chain.Reader
	Elections *elections.Pallet

	// Publisher receives change events.
	Publisher   redis.Publisher
	RedisClient *redis.Client

	// Cron is the scheduler that triggers checks at specified intervals, according to CronSpec.
	Cron     *cron.Cron
	CronSpec string

	// Seen holds the last observed value per event type.
	Seen *xsync.Map[string, any]

	ready atomic.Bool

	Logger *zap.Logger
	Server *http.Server
}

// watch reads one item whose changes are published as events of Type.
type watch struct {
	Type string
	Read func(ctx context.Context) (any, error)
}

// New returns a monitor reading through conn. Call SetupScheduler before StartCron.
func New(conn chain.Reader, publisher redis.Publisher, logger *zap.Logger) *App {
	return &App{
		Conn:      conn,
		Elections: elections.New(conn),
		Publisher: publisher,
		CronSpec:  "*/30 * * * * *",
		Seen:      xsync.NewMap[string, any](),
		Logger:    logger,
	}
}

// Initialize initializes the App from the environment.
func Initialize(ctx context.Context) (*App, error) {
	logger, err := logging.New("monitor")
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
		return nil, fmt.Errorf("connect to node: %w", err)
	}

	app := New(conn, redis.Discard{}, logger)
	app.CronSpec = utils.Env("MONITOR_CRON", app.CronSpec)

	// Without Redis the monitor only logs changes
	if utils.EnvBool("REDIS_ENABLED", false) {
		redisClient, err := redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - changes will only be logged", zap.Error(err))
		} else {
			app.RedisClient = redisClient
			app.Publisher = redisClient
		}
	}

	if err := app.SetupScheduler(ctx, cron.DefaultLogger, app.CronSpec); err != nil {
		return nil, err
	}

	return app, nil
}

// SetupScheduler sets up the cron scheduler.
func (a *App) SetupScheduler(ctx context.Context, logger cron.Logger, cronSpec string) error {
	// Seconds field, optional
	a.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	_, err := a.Cron.AddFunc(cronSpec, func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, 25*time.Second)
		defer cancel()
		if err := a.Check(rctx); err != nil {
			a.Logger.Warn("[monitor] check error", zap.Error(err))
		}
	})
	return err
}

// StartCron starts the cron scheduler.
func (a *App) StartCron() {
	a.Cron.Start()
	a.Logger.Info("[monitor] Cron started", zap.String("cronSpec", a.CronSpec))
}

// StopCron stops the cron scheduler and waits for a running check.
func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}

func (a *App) watches() []watch {
	return []watch{
		{Type: redis.BanConfigChanged, Read: func(ctx context.Context) (any, error) { return a.Elections.BanConfig(ctx) }},
		{Type: redis.CommitteeSeatsChanged, Read: func(ctx context.Context) (any, error) { return a.Elections.CommitteeSeats(ctx, nil) }},
		{Type: redis.EraValidatorsChanged, Read: func(ctx context.Context) (any, error) { return a.Elections.CurrentEraValidators(ctx) }},
	}
}

// Check reads every watched item once. The first value seen for an item is recorded
// without an event; later differing values are published. A failed read leaves the
// recorded value untouched and marks the monitor not ready.
func (a *App) Check(ctx context.Context) error {
	var errs []error
	for _, w := range a.watches() {
		current, err := w.Read(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w.Type, err))
			continue
		}

		previous, seen := a.Seen.Load(w.Type)
		a.Seen.Store(w.Type, current)
		if !seen {
			a.Logger.Info("[monitor] baseline recorded", zap.String("item", w.Type))
			continue
		}
		if reflect.DeepEqual(previous, current) {
			continue
		}

		a.Logger.Info("[monitor] change detected", zap.String("event", w.Type))
		a.Publisher.Publish(ctx, redis.Event{
			Type: w.Type,
			Data: map[string]any{"previous": previous, "current": current},
		})
	}

	a.ready.Store(len(errs) == 0)
	return errors.Join(errs...)
}

// CheckOnce is a convenience wrapper for Check.
func (a *App) CheckOnce(ctx context.Context) {
	if err := a.Check(ctx); err != nil {
		a.Logger.Warn("[monitor] initial check error", zap.Error(err))
	}
}

// Ready reports whether the last check read every watched item.
func (a *App) Ready() bool { return a.ready.Load() }

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("Server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()
	_ = a.Server.Close()
	a.Logger.Info("[monitor] shutting down…")
	a.StopCron()

	if a.RedisClient != nil {
		_ = a.RedisClient.Close()
	}
	if closer, ok := a.Conn.(interface{ Close() }); ok {
		closer.Close()
	}

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
