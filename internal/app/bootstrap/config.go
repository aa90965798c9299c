// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dalemusser/projecthub/internal/app/system/historylog"
	"github.com/dalemusser/projecthub/internal/app/system/limits"
	"github.com/dalemusser/projecthub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for ProjectHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: PROJECTHUB_MONGO_URI, PROJECTHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "projecthub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "projecthub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs mail instead of sending)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@projecthub.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "ProjectHub", Desc: "From display name"},

	// Links and branding
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for links in invitation mail"},
	{Name: "site_name", Default: "ProjectHub", Desc: "Site name used in mail"},

	// Invitations
	{Name: "invite_allowed_domains", Default: "", Desc: "Comma separated email domains that may be invited (blank allows all)"},

	// Redis user lifecycle events
	{Name: "redis_addr", Default: "", Desc: "Redis address for user lifecycle events (blank disables)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "user_events_channel", Default: workers.DefaultUserEventsChannel, Desc: "Redis pub/sub channel carrying user changes"},

	// Features
	{Name: "feature_publish", Default: false, Desc: "Enable publish/unpublish endpoints"},
	{Name: "feature_rss", Default: false, Desc: "Enable the published projects RSS feed"},
	{Name: "max_upload_mb", Default: 20, Desc: "Maximum document upload request size in MB"},
	{Name: "invites_per_hour", Default: limits.DefaultInvitesPerHour, Desc: "Invite requests allowed per user per hour (0 disables)"},

	// Audit logging settings
	{Name: "audit_log_history", Default: historylog.ModeAll, Desc: "Project history logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, PROJECTHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "PROJECTHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL:  appValues.String("base_url"),
		SiteName: appValues.String("site_name"),

		InviteAllowedDomains: appValues.String("invite_allowed_domains"),

		// Redis
		RedisAddr:         appValues.String("redis_addr"),
		RedisPassword:     appValues.String("redis_password"),
		RedisDB:           appValues.Int("redis_db"),
		UserEventsChannel: appValues.String("user_events_channel"),

		// Features
		FeaturePublish: appValues.Bool("feature_publish"),
		FeatureRSS:     appValues.Bool("feature_rss"),
		MaxUploadMB:    appValues.Int("max_upload_mb"),
		InvitesPerHour: appValues.Int("invites_per_hour"),

		AuditLogHistory: appValues.String("audit_log_history"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// ProjectHub validates the MongoDB URI format to catch configuration
// errors early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}

	u, err := url.Parse(appCfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL, got %q", appCfg.BaseURL)
	}

	if coreCfg != nil && coreCfg.Env == "prod" && len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 characters in production")
	}

	if appCfg.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", appCfg.MaxUploadMB)
	}

	if appCfg.InvitesPerHour < 0 {
		return fmt.Errorf("invites_per_hour must not be negative, got %d", appCfg.InvitesPerHour)
	}

	switch appCfg.AuditLogHistory {
	case historylog.ModeAll, historylog.ModeDB, historylog.ModeLog, historylog.ModeOff:
	default:
		return fmt.Errorf("audit_log_history must be one of all, db, log, off; got %q", appCfg.AuditLogHistory)
	}

	return nil
}
