// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	authgooglefeature "github.com/floatchat/floatchatweb/internal/app/features/authgoogle"
	chatfeature "github.com/floatchat/floatchatweb/internal/app/features/chat"
	errorsfeature "github.com/floatchat/floatchatweb/internal/app/features/errors"
	healthfeature "github.com/floatchat/floatchatweb/internal/app/features/health"
	homefeature "github.com/floatchat/floatchatweb/internal/app/features/home"
	loginfeature "github.com/floatchat/floatchatweb/internal/app/features/login"
	logoutfeature "github.com/floatchat/floatchatweb/internal/app/features/logout"
	signupfeature "github.com/floatchat/floatchatweb/internal/app/features/signup"
	"github.com/floatchat/floatchatweb/internal/app/store/oauthstate"
	"github.com/floatchat/floatchatweb/internal/app/store/sessions"
	userstore "github.com/floatchat/floatchatweb/internal/app/store/users"
	"github.com/floatchat/floatchatweb/internal/app/system/accounts"
	"github.com/floatchat/floatchatweb/internal/app/system/auth"
	"github.com/floatchat/floatchatweb/internal/app/system/chatrelay"
	"github.com/floatchat/floatchatweb/internal/app/system/googleauth"
	"github.com/floatchat/floatchatweb/internal/app/system/mailer"
	"github.com/floatchat/floatchatweb/internal/app/system/timeouts"
	"github.com/floatchat/floatchatweb/internal/domain/models"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point we have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: the MongoDB client and database bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// floatChat wires the session manager over the Mongo-backed session store,
// boots the template engine, and mounts the feature routers: home, signup,
// login, logout, Google OAuth, chat, and health.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	secure := coreCfg.Env == "prod"

	// Upstream chat calls get the configured timeout; the rest keep defaults.
	timeouts.Configure(timeouts.Config{Long: appCfg.ChatTimeout})

	// Server-side sessions: the browser holds only a signed opaque id,
	// the session payload lives in Mongo with a TTL index.
	sessionStore := sessions.New(db, appCfg.SessionTTL)
	sessionMgr, err := auth.NewSessionManager(
		appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		sessionStore.TTL(), secure, sessionStore, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	// Domain services.
	users := userstore.New(db)
	mail := mailer.New(
		appCfg.MailSMTPHost, appCfg.MailSMTPPort,
		appCfg.MailSMTPUser, appCfg.MailSMTPPass,
		appCfg.MailFrom, appCfg.MailFromName, logger)
	accountsSvc := accounts.NewService(users, mail, appCfg.BaseURL, models.DefaultSiteName, logger)

	googleProvider := googleauth.New(appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL)
	oauthStates := oauthstate.New(db)

	relay := chatrelay.New(appCfg.ChatAPIURL, appCfg.ChatModel, appCfg.ChatTimeout, logger)

	r := chi.NewRouter()

	// Global middleware: session loading and CSRF protection. Every form
	// and the chat API submit the token (hidden field or X-CSRF-Token).
	r.Use(sessionMgr.LoadSession)
	r.Use(csrf.Protect([]byte(appCfg.CSRFKey), csrf.Secure(secure), csrf.Path("/")))

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Public pages
	homeHandler := homefeature.NewHandler(logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Local account signup and email verification
	signupHandler := signupfeature.NewHandler(accountsSvc, errLog, logger)
	signupfeature.Routes(r, signupHandler)

	// Authentication
	loginHandler := loginfeature.NewHandler(accountsSvc, sessionMgr, errLog, googleProvider.IsConfigured(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	googleHandler := authgooglefeature.NewHandler(googleProvider, oauthStates, accountsSvc, sessionMgr, errLog, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	// Chat (signed-in users only)
	chatHandler := chatfeature.NewHandler(users, relay, errLog, logger)
	chatfeature.Routes(r, chatHandler, sessionMgr)

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	return r, nil
}
