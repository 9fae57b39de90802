package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/foodbridge/foodbridge/internal/api"
	"github.com/foodbridge/foodbridge/internal/app"
	"github.com/foodbridge/foodbridge/internal/app/maintenance"
	iauth "github.com/foodbridge/foodbridge/internal/auth"
	"github.com/foodbridge/foodbridge/internal/database"
	"github.com/foodbridge/foodbridge/internal/ledger"
	"github.com/foodbridge/foodbridge/internal/matching"
	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/internal/realtime"
	"github.com/foodbridge/foodbridge/internal/services"
	"github.com/foodbridge/foodbridge/pkg/logger"
	"github.com/foodbridge/foodbridge/pkg/mail"
)

// runtimeStack bundles long-lived collaborators used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Hub        *realtime.Hub
	Dispatcher *notify.Dispatcher
	Ledger     ledger.Ledger
	Cleaner    *maintenance.Cleaner
	Router     *gin.Engine
}

// bootstrapRuntime initialises the database, notification channels, the audit
// ledger, background maintenance, and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Hub = realtime.NewHub()

	dispatcherOpts := []notify.Option{
		notify.WithSMS(notify.NewTwilioSMS(cfg.SMS.TwilioConfig())),
	}
	if cfg.Email.SMTP.Enabled {
		mailer, mailErr := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
		if mailErr != nil {
			log.Warn("smtp unavailable; email channel disabled", zap.Error(mailErr))
		} else {
			dispatcherOpts = append(dispatcherOpts, notify.WithMailer(mailer))
		}
	}
	stack.Dispatcher = notify.NewDispatcher(stack.DB, stack.Hub, dispatcherOpts...)

	stack.Ledger = ledger.Ledger(ledger.NewNopLedger())
	if cfg.Ledger.Kafka.Enabled {
		kafkaLedger, kafkaErr := ledger.NewKafkaLedger(cfg.Ledger.KafkaConfig())
		if kafkaErr != nil {
			log.Warn("kafka unavailable; audit ledger disabled", zap.Error(kafkaErr))
		} else {
			stack.Ledger = kafkaLedger
			log.Info("kafka ledger connected", zap.Strings("brokers", cfg.Ledger.Kafka.Brokers))
		}
	}

	matcher := matching.NewStaticOptimizer()

	if cfg.Maintenance.Enabled {
		listingSvc, svcErr := services.NewListingService(stack.DB, matcher)
		if svcErr != nil {
			return nil, fmt.Errorf("initialise listing service: %w", svcErr)
		}
		notificationSvc, svcErr := services.NewNotificationService(stack.DB)
		if svcErr != nil {
			return nil, fmt.Errorf("initialise notification service: %w", svcErr)
		}

		stack.Cleaner = maintenance.NewCleaner(listingSvc, notificationSvc,
			maintenance.WithListingSchedule(cfg.Maintenance.ListingExpirySchedule),
			maintenance.WithNotificationSchedule(cfg.Maintenance.NotificationPruneSchedule),
			maintenance.WithNotificationRetentionDays(cfg.Maintenance.NotificationRetentionDays),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Deps{
		DB:         stack.DB,
		JWT:        jwtSvc,
		Hub:        stack.Hub,
		Dispatcher: stack.Dispatcher,
		Ledger:     stack.Ledger,
		Matcher:    matcher,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Dispatcher != nil {
		s.Dispatcher.Close()
	}

	if kl, ok := s.Ledger.(*ledger.KafkaLedger); ok && kl != nil {
		if err := kl.Close(); err != nil {
			log.Warn("kafka ledger shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
