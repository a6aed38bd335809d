package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lynqit/lynqit/app/controllers"
	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
	apiv1 "github.com/lynqit/lynqit/internal/api/v1"
	"github.com/lynqit/lynqit/internal/pkg/analytics"
	"github.com/lynqit/lynqit/internal/pkg/auth"
	"github.com/lynqit/lynqit/internal/pkg/billing"
	"github.com/lynqit/lynqit/internal/pkg/cache"
	"github.com/lynqit/lynqit/internal/pkg/database"
	"github.com/lynqit/lynqit/internal/pkg/env"
	"github.com/lynqit/lynqit/internal/pkg/jobqueue"
	"github.com/lynqit/lynqit/internal/pkg/middleware"
	"github.com/lynqit/lynqit/internal/pkg/ratelimit"
	"github.com/lynqit/lynqit/internal/pkg/render"
	"github.com/lynqit/lynqit/internal/pkg/router"
	"github.com/lynqit/lynqit/internal/pkg/statistics"
)

const shutdownTimeout = 15 * time.Second

func main() {
	app, manager := NewApplication()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down")
		manager.Stop()
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Printf("Shutdown failed: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",     // Current directory
		"../../", // From cmd/lynqit to project root
	}
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + apiv1.DefaultSpecPath); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := apiv1.LoadSpec(ctx, basePath+apiv1.DefaultSpecPath); err != nil {
		panic(err)
	}

	db := database.GetDB()
	if err := models.LoadSettings(db, &models.AppSettings{
		SiteTitle:            env.GetEnv("SITE_TITLE", "Lynqit"),
		AnalyticsEnabled:     env.GetBool("ANALYTICS_ENABLED", true),
		StripeSecretKey:      env.GetEnv("STRIPE_SECRET_KEY", ""),
		StripePublishableKey: env.GetEnv("STRIPE_PUBLISHABLE_KEY", ""),
		StripeWebhookSecret:  env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	}); err != nil {
		log.Printf("Settings not loaded, using defaults: %v", err)
	}
	repos := repository.NewRepositories(db)

	// BILLING
	provider := billing.NewStripeProvider(func() string {
		return models.GetAppSettings().GetStripeSecretKey()
	})
	prices := billing.PriceTable{
		"start:month": env.GetEnv("STRIPE_PRICE_START_MONTH", ""),
		"start:year":  env.GetEnv("STRIPE_PRICE_START_YEAR", ""),
		"pro:month":   env.GetEnv("STRIPE_PRICE_PRO_MONTH", ""),
		"pro:year":    env.GetEnv("STRIPE_PRICE_PRO_YEAR", ""),
	}
	billingSvc := billing.NewServiceFromDB(db, provider, billing.NewRedisLocker(cache.GetClient()), prices, func() string {
		return models.GetAppSettings().GetStripeWebhookSecret()
	})

	// JOBS
	manager := jobqueue.GetManager()
	recorder := analytics.NewRecorder(repos.Analytics, analytics.Options{
		Queue:     manager.GetQueue(),
		Pages:     repos.Page,
		PageCache: cache.GetClient(),
		Enabled: func() bool {
			return models.GetAppSettings().IsAnalyticsEnabled()
		},
	})
	recorder.Register(manager.GetQueue())
	manager.SetExpirySweep(billingSvc.ExpireCancelled)
	manager.Start()

	renderer, err := render.New(render.Options{
		SiteTitle: models.GetAppSettings().GetSiteTitle(),
		TrackURL:  "/api/analytics/track",
		ClickURL:  "/api/analytics/click",
	})
	if err != nil {
		panic(err)
	}

	ctrl := controllers.Initialize(controllers.Dependencies{
		Repos:     repos,
		Billing:   billingSvc,
		Analytics: recorder,
		Renderer:  renderer,
		Stats:     statistics.NewService(repos),
		Queue:     manager.GetQueue(),
	})

	app := fiber.New(fiber.Config{
		BodyLimit:   1 << 20,
		ProxyHeader: env.GetEnv("PROXY_HEADER", ""),
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + apiv1.DefaultSpecPath,
		Path:     "v1",
	}))

	metricsUsers := map[string]string{}
	if user := env.GetEnv("METRICS_USER", ""); user != "" {
		metricsUsers[user] = env.GetEnv("METRICS_PASSWORD", "")
	}

	// ROUTER
	router.InstallRouter(app, router.Config{
		Controllers: ctrl,
		Auth: middleware.AuthConfig{
			Tokens:        auth.NewJWTService(env.GetEnv("SUPABASE_JWT_SECRET", ""), auth.DefaultAudience),
			Users:         repos.User,
			EmailFallback: env.GetBool("AUTH_EMAIL_FALLBACK", false),
		},
		LimiterStorage: ratelimit.NewStorage(),
		Health: map[string]func() error{
			"database": func() error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Ping()
			},
			"redis": func() error {
				return cache.GetClient().Ping(context.Background()).Err()
			},
		},
		MetricsUsers: metricsUsers,
	})

	return app, manager
}
