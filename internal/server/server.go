// Package server assembles the portal's HTTP surface: middleware, guards and
// one route per operation.
package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"immigration-portal/internal/common/access"
	"immigration-portal/internal/common/auth"
	"immigration-portal/internal/common/config"
	"immigration-portal/internal/common/database"
	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/gemini"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/observability"
	"immigration-portal/internal/common/realtime"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/common/storage"
	analyzeprogramfit "immigration-portal/internal/handlers/advisory/analyze-program-fit"
	comparefaces "immigration-portal/internal/handlers/advisory/compare-faces"
	extractdocument "immigration-portal/internal/handlers/advisory/extract-document"
	validateauthenticity "immigration-portal/internal/handlers/advisory/validate-authenticity"
	admindashboard "immigration-portal/internal/handlers/applications/admin-dashboard"
	applyprogram "immigration-portal/internal/handlers/applications/apply-program"
	listallapplications "immigration-portal/internal/handlers/applications/list-all-applications"
	listmyapplications "immigration-portal/internal/handlers/applications/list-my-applications"
	updatestatus "immigration-portal/internal/handlers/applications/update-status"
	currentsession "immigration-portal/internal/handlers/auth/current-session"
	signin "immigration-portal/internal/handlers/auth/sign-in"
	signout "immigration-portal/internal/handlers/auth/sign-out"
	signup "immigration-portal/internal/handlers/auth/sign-up"
	listmessages "immigration-portal/internal/handlers/chat/list-messages"
	sendmessage "immigration-portal/internal/handlers/chat/send-message"
	streammessages "immigration-portal/internal/handlers/chat/stream-messages"
	notifystatus "immigration-portal/internal/handlers/notification/notify-status"
	sendemail "immigration-portal/internal/handlers/notification/send-email"
	createprogram "immigration-portal/internal/handlers/programs/create-program"
	listprograms "immigration-portal/internal/handlers/programs/list-programs"
	searchprograms "immigration-portal/internal/handlers/programs/search-programs"
	managedraft "immigration-portal/internal/handlers/wizard/manage-draft"
	submitapplication "immigration-portal/internal/handlers/wizard/submit-application"
	"immigration-portal/internal/wizard"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Dependencies are the clients the operations run against. Search may be nil
// when Elasticsearch is disabled; SMS may be nil when text messages are off.
type Dependencies struct {
	DB        *sql.DB
	Redis     *redis.Client
	Search    *database.ElasticsearchClient
	Identity  *auth.KeycloakClient
	Storage   storage.Storage
	Generator gemini.Generator
	Relay     sendemail.Relay
	SMS       notifystatus.SMSSender
	Obs       *observability.Observability
}

type Server struct {
	cfg    *config.Config
	deps   Dependencies
	logger logger.Logger
	router *gin.Engine
}

func New(cfg *config.Config, deps Dependencies, log logger.Logger) (*Server, error) {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"component": "server"}),
		router: gin.New(),
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.Server.Address,
		Handler:     s.router,
		ReadTimeout: config.GetDuration(s.cfg.Server.ReadTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) routes() error {
	cfg, deps, log := s.cfg, s.deps, s.logger
	errs := apperrors.NewErrorHandler(log)

	sessions := session.NewStore(deps.Redis, sessionTTL(cfg))

	r := s.router
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.App.Name))
	r.Use(recordRequests(deps.Obs))
	r.Use(withSession(sessions, cfg.Auth.Session.CookieName, log))

	// --- Probes ---
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.App.Version})
	})
	r.GET("/ready", readiness(s.readinessChecks()))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// --- Shared clients ---
	drafts := wizard.NewDraftStore(deps.Redis, time.Duration(cfg.Wizard.DraftTTL)*time.Second)
	broker := realtime.NewBroker(deps.Redis, log)

	var searcher searchprograms.Searcher
	var indexer createprogram.Indexer
	if deps.Search != nil {
		searcher = deps.Search
		indexer = deps.Search
	}

	emailCfg := sendemail.LoadConfig(cfg)
	if err := emailCfg.Validate(); err != nil {
		return err
	}
	emailService := sendemail.NewService(sendemail.ServiceDependencies{Logger: log, Relay: deps.Relay}, emailCfg)
	notifier := notifystatus.NewNotifier(notifystatus.LoadConfig(cfg), deps.DB, emailService, deps.SMS, log)

	// --- Handlers ---
	signUp := signup.NewHandler(signup.LoadConfig(cfg), deps.DB, deps.Identity, log)
	signIn := signin.NewHandler(signin.LoadConfig(cfg), deps.DB, deps.Identity, sessions, log)
	signOut := signout.NewHandler(signout.LoadConfig(cfg), sessions, deps.Identity, log)
	current := currentsession.NewHandler(log)

	programs := listprograms.NewHandler(listprograms.LoadConfig(cfg), deps.DB, log)
	search := searchprograms.NewHandler(searchprograms.LoadConfig(cfg), deps.DB, searcher, log)
	create := createprogram.NewHandler(createprogram.LoadConfig(cfg), deps.DB, indexer, log)

	apply := applyprogram.NewHandler(applyprogram.LoadConfig(cfg), deps.DB, log)
	mine := listmyapplications.NewHandler(listmyapplications.LoadConfig(cfg), deps.DB, log)
	all := listallapplications.NewHandler(listallapplications.LoadConfig(cfg), deps.DB, log)
	status := updatestatus.NewHandler(updatestatus.LoadConfig(cfg), deps.DB, notifier, log)
	dashboard := admindashboard.NewHandler(admindashboard.LoadConfig(cfg), programs, all, log)

	draft := managedraft.NewHandler(managedraft.LoadConfig(cfg), deps.DB, drafts, log)
	submit := submitapplication.NewHandler(submitapplication.LoadConfig(cfg), deps.DB, drafts, deps.Storage, database.NewLocker(deps.Redis), log)

	history := listmessages.NewHandler(listmessages.LoadConfig(cfg), deps.DB, log)
	send := sendmessage.NewHandler(sendmessage.LoadConfig(cfg), deps.DB, broker, log)
	stream := streammessages.NewHandler(streammessages.LoadConfig(cfg), deps.DB, broker, send, log)

	fit := analyzeprogramfit.NewHandler(analyzeprogramfit.LoadConfig(cfg), deps.Generator, log)
	extract := extractdocument.NewHandler(extractdocument.LoadConfig(cfg), deps.Generator, log)
	authenticity := validateauthenticity.NewHandler(validateauthenticity.LoadConfig(cfg), deps.Generator, log)
	faces := comparefaces.NewHandler(comparefaces.LoadConfig(cfg), deps.Generator, log)

	email := sendemail.NewHandler(emailCfg, emailService, log)

	// --- Routes ---
	api := r.Group("/api")

	limiter := newRateLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
	authGroup := api.Group("/auth")
	authGroup.POST("/sign-up", limiter.middleware(errs), signUp.Handle)
	authGroup.POST("/sign-in", limiter.middleware(errs), signIn.Handle)
	authGroup.POST("/sign-out", guard(access.Authenticated), signOut.Handle)
	authGroup.GET("/session", guard(access.Authenticated), current.Handle)

	api.GET("/programs", programs.HandlePublic)
	api.GET("/programs/search", search.Handle)

	signedIn := api.Group("", guard(access.Authenticated))
	signedIn.GET("/applications", mine.Handle)
	signedIn.POST("/applications", apply.Handle)

	app := signedIn.Group("/applications/:id")
	app.GET("/wizard", draft.HandleView)
	app.POST("/wizard/advance", draft.HandleAdvance)
	app.POST("/wizard/retreat", draft.HandleRetreat)
	app.PUT("/wizard/answers", draft.HandleAnswers)
	app.GET("/wizard/validate", draft.HandleValidate)
	app.POST("/wizard/documents/:key", draft.HandleUpload)
	app.DELETE("/wizard/documents/:key", draft.HandleDetach)
	app.POST("/submit", submit.Handle)
	app.GET("/messages", history.Handle)
	app.POST("/messages", send.Handle)
	app.GET("/messages/ws", stream.Handle)

	advisory := signedIn.Group("/advisory")
	advisory.GET("/questionnaire", fit.HandleQuestionnaire)
	s.mount(advisory, http.MethodPost, "/program-fit", analyzeprogramfit.Operation, fit.Handle)
	s.mount(advisory, http.MethodPost, "/extract", extractdocument.Operation, extract.Handle)
	s.mount(advisory, http.MethodPost, "/authenticity", validateauthenticity.Operation, authenticity.Handle)
	s.mount(advisory, http.MethodPost, "/faces", comparefaces.Operation, faces.Handle)

	admin := api.Group("/admin", guard(access.Admin))
	admin.GET("/dashboard", dashboard.Handle)
	admin.GET("/programs", programs.HandleAdmin)
	admin.POST("/programs", create.Handle)
	admin.GET("/applications", all.Handle)
	admin.PUT("/applications/:id/status", status.Handle)

	notifications := api.Group("/notifications", guard(access.Admin))
	s.mount(notifications, http.MethodPost, "/email", sendemail.Operation, email.Handle)

	log.Info("routes registered", map[string]interface{}{"count": len(r.Routes())})
	return nil
}

// mount registers h unless its operation is switched off in configuration.
func (s *Server) mount(group *gin.RouterGroup, method, path, operation string, h gin.HandlerFunc) {
	if !config.IsHandlerEnabled(s.cfg, operation) {
		s.logger.Info("operation disabled", map[string]interface{}{"operation": operation})
		return
	}
	group.Handle(method, path, h)
}

func sessionTTL(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Auth.Session.TTL) * time.Second
}
