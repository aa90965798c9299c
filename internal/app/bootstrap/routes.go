// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/features/apierrors"
	healthfeature "github.com/dalemusser/projecthub/internal/app/features/health"
	projectsfeature "github.com/dalemusser/projecthub/internal/app/features/projects"
	userstore "github.com/dalemusser/projecthub/internal/app/store/users"
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/dalemusser/projecthub/internal/app/system/projectacl"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// ProjectHub applies session middleware, mounts the health check, and
// mounts the projects API under /api/projects. Unknown routes answer with
// the JSON error envelope.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on each request, so deleted accounts are signed out.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.ProjectHubMongoDatabase))

	return buildRouter(appCfg, deps, sessionMgr, logger), nil
}

func buildRouter(appCfg AppConfig, deps DBDeps, sessionMgr *auth.SessionManager, logger *zap.Logger) chi.Router {
	rt := deps.Runtime
	errLog := apierrors.NewErrorLogger(logger)

	r := chi.NewRouter()
	r.NotFound(apierrors.NotFound)
	r.MethodNotAllowed(apierrors.MethodNotAllowed)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(
		healthfeature.MongoPinger(deps.ProjectHubMongoClient),
		healthfeature.RedisPinger(deps.Redis),
		logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	projectsHandler := projectsfeature.NewHandler(rt.Service, rt.Assets, rt.History, rt.Events, errLog, projectsfeature.Options{
		EnablePublish:  appCfg.FeaturePublish,
		EnableRSS:      appCfg.FeatureRSS,
		MaxUploadBytes: int64(appCfg.MaxUploadMB) << 20,
		InviteLimiter:  rt.Invites,
	}, logger)
	r.Mount("/api/projects", projectsfeature.Routes(projectsHandler, sessionMgr, projectacl.New(rt.ACL, errLog)))

	return r
}
