// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/projecthub/internal/app/services/projectsvc"
	aclstore "github.com/dalemusser/projecthub/internal/app/store/acl"
	assetstore "github.com/dalemusser/projecthub/internal/app/store/assets"
	historystore "github.com/dalemusser/projecthub/internal/app/store/history"
	projectstore "github.com/dalemusser/projecthub/internal/app/store/projects"
	userstore "github.com/dalemusser/projecthub/internal/app/store/users"
	"github.com/dalemusser/projecthub/internal/app/system/access"
	"github.com/dalemusser/projecthub/internal/app/system/historylog"
	"github.com/dalemusser/projecthub/internal/app/system/mailer"
	"github.com/dalemusser/projecthub/internal/app/system/ratelimit"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Runtime holds the long-lived application components built once at
// startup.
type Runtime struct {
	ACL     *aclstore.Store
	Assets  *assetstore.Store
	History *historystore.Store
	Events  *historylog.Logger
	Service *projectsvc.Service
	Worker  *workers.UserEvents      // nil without Redis
	Invites *ratelimit.InviteLimiter // nil when unlimited
}

// newRuntime builds the stores and the project service and registers the
// deletion handlers. Assets are removed before history.
func newRuntime(ctx context.Context, appCfg AppConfig, db *mongo.Database, logger *zap.Logger) (*Runtime, error) {
	users := userstore.New(db)
	rt := &Runtime{
		ACL:     aclstore.New(db),
		Assets:  assetstore.New(db),
		History: historystore.New(db),
	}
	rt.Events = historylog.New(rt.History, logger, appCfg.AuditLogHistory)

	rt.Service = projectsvc.New(projectsvc.Deps{
		Projects: projectstore.New(db),
		ACL:      rt.ACL,
		Users:    users,
		Assets:   rt.Assets,
		Access:   access.New(users, access.ParseDomains(appCfg.InviteAllowedDomains)),
		Mail: mailer.New(mailer.Config{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			Username: appCfg.MailSMTPUser,
			Password: appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
		}, logger),
		History:  rt.Events,
		SiteName: appCfg.SiteName,
		BaseURL:  appCfg.BaseURL,
	}, logger)

	if appCfg.InvitesPerHour > 0 {
		rt.Invites = ratelimit.NewInviteLimiter(appCfg.InvitesPerHour, time.Hour)
	}

	if err := rt.Service.Init(ctx); err != nil {
		return nil, fmt.Errorf("init project service: %w", err)
	}
	if err := rt.Service.RegisterProjectDeletionHandlers(rt.Assets, rt.History); err != nil {
		return nil, fmt.Errorf("register deletion handlers: %w", err)
	}
	return rt, nil
}

// startWorker subscribes the project service to user lifecycle events.
func (rt *Runtime) startWorker(ctx context.Context, rdb *redis.Client, channel string, logger *zap.Logger) error {
	w := workers.NewUserEvents(rdb, channel, rt.Service, logger)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start user events worker: %w", err)
	}
	rt.Worker = w
	return nil
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("count", n))
	}

	rt, err := newRuntime(ctx, appCfg, deps.ProjectHubMongoDatabase, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	if deps.Redis != nil {
		if err := rt.startWorker(ctx, deps.Redis, appCfg.UserEventsChannel, logger); err != nil {
			logger.Error("startup failed", zap.Error(err))
			return err
		}
	} else {
		logger.Warn("redis_addr not set; user lifecycle events are not consumed")
	}

	*deps.Runtime = *rt
	return nil
}
