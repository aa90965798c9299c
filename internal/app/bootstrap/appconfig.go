// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// AppConfig carries what is specific to ProjectHub: the Mongo and Redis
// backends, session cookies, invitation mail, and feature switches.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: projecthub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (blank logs mail instead of sending)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address
	MailFromName string // From display name

	// Base URL for links in invitation mail
	BaseURL  string // e.g., "https://projecthub.example.org"
	SiteName string // shown in mail subjects

	// Invitations
	InviteAllowedDomains string // comma separated; blank allows every domain

	// Redis user lifecycle events (blank address disables the worker)
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	UserEventsChannel string

	// Feature switches and limits
	FeaturePublish bool
	FeatureRSS     bool
	MaxUploadMB    int
	InvitesPerHour int // per-user invite requests; 0 disables the limit

	// Project history destination: 'all', 'db', 'log', or 'off'
	AuditLogHistory string
}
