package main

import (
	"database/sql"
	"fmt"
	"time"

	"use_of_force/internal/app"
	"use_of_force/internal/domain/identity"
	"use_of_force/internal/domain/notification"
	"use_of_force/internal/domain/store"
	"use_of_force/internal/infra/config"
	"use_of_force/internal/infra/database"
	"use_of_force/internal/infra/events"
	"use_of_force/internal/infra/keycloak"
	"use_of_force/internal/infra/logger"
	"use_of_force/internal/infra/memstore"
	"use_of_force/internal/infra/notify"
	"use_of_force/internal/infra/scheduler"
	"use_of_force/internal/infra/telegram"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// application holds the wired services and whatever has to be closed on shutdown.
type application struct {
	cfg       *config.AppConfig
	log       *logrus.Entry
	db        *sql.DB // nil for the memory backend
	store     store.Store
	scheduler *scheduler.ReminderScheduler
	staff     *app.StaffService
	bot       *telebot.Bot // nil unless TELEGRAM_TOKEN is set

	closers []func() error
}

func loadConfig() (*config.AppConfig, *logrus.Entry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)
	return cfg, logger.Entry(), nil
}

func newApplication(cfg *config.AppConfig, log *logrus.Entry) (*application, error) {
	a := &application{cfg: cfg, log: log}

	if err := a.openStore(); err != nil {
		a.Close()
		return nil, err
	}

	directory, err := a.identityDirectory()
	if err != nil {
		a.Close()
		return nil, err
	}

	templates, err := config.LoadTemplates(cfg.TemplatesFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	client, err := a.emailClient(templates)
	if err != nil {
		a.Close()
		return nil, err
	}

	publishers, err := a.eventPublishers()
	if err != nil {
		a.Close()
		return nil, err
	}

	secret := cfg.RemovalLinkSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("REMOVAL_LINK_SECRET not set, removal links will not survive a restart")
	}

	clock := app.SystemClock{}
	links := app.NewRemovalLinks(cfg.EmailLocationURL, secret, clock)
	notifications := app.NewNotificationService(client, publishers, log)
	sender := app.NewReminderSender(notifications, links, clock, log)
	resolver := app.NewEmailResolver(directory, directory, log)
	reminders := app.NewReminderService(a.store, sender, resolver, clock, log)
	a.staff = app.NewStaffService(a.store, directory, directory, clock, log)

	a.scheduler = scheduler.NewReminderScheduler(reminders, log, cfg.CronSpecReminders, cfg.RunTimeout)
	return a, nil
}

// requirePersistentStore rejects the memory backend for commands that run once and exit, since
// they would start from an empty store and lose whatever they changed.
func requirePersistentStore(cfg *config.AppConfig, command string) error {
	if cfg.StoreBackend == config.StoreBackendMemory {
		return fmt.Errorf("%s needs STORE_BACKEND=%s, the memory store only lives as long as serve", command, config.StoreBackendPostgres)
	}
	return nil
}

func (a *application) openStore() error {
	switch a.cfg.StoreBackend {
	case config.StoreBackendMemory:
		a.log.Warn("Using the in-memory store, data is lost on restart")
		a.store = memstore.New()
	default:
		db, err := database.NewPostgresConnection(a.cfg.DatabaseURL, database.DefaultPoolConfig)
		if err != nil {
			return fmt.Errorf("could not connect to database: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
		a.store = database.NewPostgresStore(db)
		a.log.Info("Database connection established successfully.")
	}
	return nil
}

type directory interface {
	identity.Service
	identity.TokenSupplier
}

func (a *application) identityDirectory() (directory, error) {
	if !a.cfg.KeycloakEnabled() {
		if a.cfg.StaffDirectoryFile == "" {
			a.log.Warn("Neither KEYCLOAK_URL nor STAFF_DIRECTORY_FILE set, staff email addresses will never be resolved")
		}
		return keycloak.LoadStaticDirectory(a.cfg.StaffDirectoryFile)
	}
	return keycloak.NewDirectory(keycloak.Args{
		ServerURL:    a.cfg.Keycloak.URL,
		Realm:        a.cfg.Keycloak.Realm,
		ClientID:     a.cfg.Keycloak.ClientID,
		ClientSecret: a.cfg.Keycloak.ClientSecret,
	}, a.log), nil
}

func (a *application) emailClient(templates config.Templates) (notification.Client, error) {
	switch a.cfg.NotifyBackend {
	case config.NotifyBackendNotify:
		return notify.NewNotifyClient(a.cfg.NotifyBaseURL, a.cfg.NotifyAPIKey, templates)
	case config.NotifyBackendSendGrid:
		return notify.NewSendGridClient(a.cfg.SendGridAPIKey, a.cfg.SendGridFrom, "", templates), nil
	default:
		return notify.NewLogClient(a.log), nil
	}
}

func (a *application) eventPublishers() (events.Fanout, error) {
	publishers := events.Fanout{events.NewLogPublisher(a.log), events.MetricsPublisher{}}

	if len(a.cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(a.cfg.KafkaBrokers, a.cfg.KafkaEventsTopic, a.log)
		a.closers = append(a.closers, kafka.Close)
		publishers = append(publishers, kafka)
		a.log.WithField("topic", a.cfg.KafkaEventsTopic).Info("Publishing notification events to kafka")
	}

	if a.cfg.TelegramToken != "" {
		bot, err := telebot.NewBot(telebot.Settings{
			Token:  a.cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				a.log.WithError(err).Error("Telegram bot error")
			},
		})
		if err != nil {
			return nil, fmt.Errorf("could not create Telegram bot: %w", err)
		}
		a.bot = bot
		publishers = append(publishers, telegram.NewAlertPublisher(telegram.NewTelebotAdapter(bot), a.cfg.AlertTelegramChatID, a.log))
	}

	return publishers, nil
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("Error during shutdown")
		}
	}
}
