package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskpulse/internal/config"
	"github.com/phrazzld/taskpulse/internal/notify"
	"github.com/phrazzld/taskpulse/internal/platform/amqp"
	"github.com/phrazzld/taskpulse/internal/platform/email"
	"github.com/phrazzld/taskpulse/internal/platform/postgres"
	"github.com/phrazzld/taskpulse/internal/platform/realtime"
	"github.com/phrazzld/taskpulse/internal/redact"
	"github.com/phrazzld/taskpulse/internal/scheduler"
	"github.com/phrazzld/taskpulse/internal/service"
	"github.com/phrazzld/taskpulse/internal/service/auth"
	"github.com/phrazzld/taskpulse/internal/service/mention"
	"github.com/phrazzld/taskpulse/internal/service/recurrence"
	"github.com/phrazzld/taskpulse/internal/service/reminder"
	"github.com/phrazzld/taskpulse/internal/store"
	"github.com/phrazzld/taskpulse/internal/store/memstore"
	"github.com/rs/cors"
)

// stores is the record store the engine runs on, either PostgreSQL or the
// in-memory store.
type stores struct {
	tasks         store.TaskStore
	projects      store.ProjectStore
	schedules     store.ScheduleStore
	preferences   store.PreferenceStore
	notifications store.NotificationStore
	claims        store.ClaimStore
	users         store.UserStore
	tx            store.Transactor
}

func memoryStores(s *memstore.Store) stores {
	return stores{
		tasks:         s.Tasks(),
		projects:      s.Projects(),
		schedules:     s.Schedules(),
		preferences:   s.Preferences(),
		notifications: s.Notifications(),
		claims:        s.Claims(),
		users:         s.Users(),
		tx:            s,
	}
}

func postgresStores(db *sql.DB, logger *slog.Logger) stores {
	pg := postgres.NewStores(db, logger)
	return stores{
		tasks:         pg.Tasks,
		projects:      pg.Projects,
		schedules:     pg.Schedules,
		preferences:   pg.Preferences,
		notifications: pg.Notifications,
		claims:        pg.Claims,
		users:         pg.Users,
		tx:            pg.Transactor,
	}
}

// application holds the shared dependencies so they can be released
// together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	stores    stores
	cors      *cors.Cors
	hub       *realtime.Hub
	publisher *amqp.Publisher

	jwtService          auth.JWTService
	taskService         service.TaskService
	notificationService service.NotificationService
	scheduler           *scheduler.Scheduler
}

// newApplication connects the configured backends and builds every service.
// Without a database URL the engine runs on the in-memory store.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	if cfg.Database.URL != "" {
		db, err := setupAppDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		app.db = db
		if err := postgres.Migrate(ctx, db, "up", logger); err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		app.stores = postgresStores(db, logger)
	} else {
		logger.Warn("database.url is empty; using the in-memory store")
		app.stores = memoryStores(memstore.New())
	}

	if err := app.build(); err != nil {
		app.cleanup()
		return nil, err
	}
	logger.Info("application initialized successfully")
	return app, nil
}

// build wires the channels, engines and services on top of app.stores.
func (app *application) build() error {
	cfg, logger, st := app.config, app.logger, app.stores

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.cors = cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})
	app.hub = realtime.NewHub(logger, app.cors.OriginAllowed)

	var busChannel *notify.BusChannel
	if cfg.Bus.URL != "" {
		app.publisher = amqp.NewPublisher(cfg.Bus.URL, cfg.Dispatch.ChannelTimeout, logger)
		busChannel = notify.NewBusChannel(app.publisher, cfg.Bus.Exchange)
		logger.Info("bus channel enabled", slog.String("exchange", cfg.Bus.Exchange))
	}

	var emailChannel *notify.EmailChannel
	if cfg.Email.SMTPHost != "" {
		sender, err := email.NewSender(cfg.Email, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize email sender: %w", err)
		}
		emailChannel = notify.NewEmailChannel(sender, st.users)
		logger.Info("email channel enabled", slog.String("smtp_host", cfg.Email.SMTPHost))
	}

	dispatcher := notify.NewDispatcher(cfg.Dispatch.ChannelTimeout, logger, notify.DefaultStages(
		notify.NewInAppChannel(st.notifications),
		notify.NewRealtimeChannel(app.hub),
		busChannel,
		emailChannel,
	)...)
	loc := cfg.Scheduler.Location()
	guard := notify.NewGuard(st.notifications, st.claims, loc)
	prefs := notify.NewPreferenceResolver(st.preferences)
	notifier := notify.NewNotifier(guard, prefs, dispatcher, logger)

	deps := reminder.Deps{
		Tasks:     st.tasks,
		Projects:  st.projects,
		Schedules: st.schedules,
		Notifier:  notifier,
		Location:  loc,
		Workers:   cfg.Scheduler.Workers,
		Logger:    logger,
	}
	reminders := reminder.NewEngine(deps)

	app.taskService, err = service.NewTaskService(service.TaskDeps{
		Tasks:      st.tasks,
		Reminders:  reminders,
		Overdue:    reminder.NewOverdueEngine(deps),
		Recurrence: recurrence.NewEngine(st.tx, st.tasks, reminders, loc, logger),
		Mentions:   mention.NewNotifier(st.tasks, mention.NewResolver(st.users), notifier, logger),
		Notifier:   notifier,
		Location:   loc,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create task service: %w", err)
	}

	app.notificationService, err = service.NewNotificationService(st.notifications, prefs, dispatcher, logger)
	if err != nil {
		return fmt.Errorf("failed to create notification service: %w", err)
	}

	app.scheduler, err = scheduler.New(app.taskService, cfg.Scheduler.CheckInterval, loc, logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	return nil
}

// Run starts the scheduler and the HTTP server and blocks until ctx is
// canceled or the server fails.
func (app *application) Run(ctx context.Context) error {
	app.scheduler.Start()
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases the application resources. It is safe on a partially
// built application.
func (app *application) cleanup() {
	if app.hub != nil {
		app.hub.Close()
	}
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error("error closing bus publisher", slog.String("error", redact.Error(err)))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", redact.Error(err)))
		}
	}
	app.logger.Info("application shutdown completed")
}
