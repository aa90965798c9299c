// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the event worker, releases the project service, and
// closes the backends.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if rt := deps.Runtime; rt != nil {
		if rt.Worker != nil {
			rt.Worker.Stop()
		}
		if rt.Invites != nil {
			rt.Invites.Stop()
		}
		if rt.Service != nil {
			if err := rt.Service.Shutdown(ctx); err != nil {
				logger.Warn("project service shutdown", zap.Error(err))
			}
		}
	}
	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if deps.ProjectHubMongoClient != nil {
		logger.Info("disconnecting ProjectHub MongoDB client")
		if err := deps.ProjectHubMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
