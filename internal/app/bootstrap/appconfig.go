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
//   - Database connection timeouts
//
// AppConfig is where everything specific to floatChat lives: the MongoDB
// connection, session and CSRF secrets, SMTP settings for verification
// mail, Google OAuth credentials, and the chat relay upstream.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: floatchat-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionTTL    time.Duration // Server-side session lifetime (default: 24h)

	// CSRF protection
	CSRFKey string // 32-byte key for CSRF token generation

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for Mailpit)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address (e.g., noreply@floatchat.app)
	MailFromName string // From display name (e.g., floatChat)

	// Base URL for email links (verification links, OAuth callbacks)
	BaseURL string // e.g., "https://floatchat.app" or "http://localhost:3000"

	// Google OAuth configuration. Both must be set for the Google login
	// button to appear; otherwise local email/password login is the only
	// path.
	GoogleClientID     string
	GoogleClientSecret string

	// Chat relay upstream
	ChatAPIURL  string        // Base URL of the chat backend (e.g., http://localhost:8000)
	ChatModel   string        // Model identifier forwarded with every query
	ChatTimeout time.Duration // Per-request timeout for upstream chat calls
}
