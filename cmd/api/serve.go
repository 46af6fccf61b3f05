package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	config "github.com/anjiri1684/skillazon/configs"
	"github.com/anjiri1684/skillazon/database"
	"github.com/anjiri1684/skillazon/handlers"
	"github.com/anjiri1684/skillazon/jobs"
	"github.com/anjiri1684/skillazon/notifications"
	"github.com/anjiri1684/skillazon/routes"
	"github.com/anjiri1684/skillazon/services"
	"github.com/anjiri1684/skillazon/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(load func() (*config.AppConfig, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, chat hub and scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.Server.TimeZone)
	if err != nil {
		log.Printf("⚠️ Unknown time zone %q, using UTC", cfg.Server.TimeZone)
		loc = time.UTC
	}

	s, err := database.OpenStore(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.SeedAdmin(ctx, s, cfg.Admin); err != nil {
		log.Printf("⚠️ Admin seed failed: %v", err)
	}

	users := services.NewIdentityDirectory(s, cfg.Auth.JWTSecret,
		services.WithRefreshSecret(cfg.Auth.JWTRefreshSecret),
		services.WithLockout(cfg.Auth.MaxLoginAttempts, time.Duration(cfg.Auth.LockoutHours)*time.Hour),
	)
	skills := services.NewSkillCatalog(s)
	emails := notifications.NewBookingEmails(notifications.NewEmailService(cfg.Email), loc)
	bookings := services.NewBookingEngine(s, services.WithNotifier(emails))
	reviews := services.NewReviewLedger(s, skills, users)

	var relay websocket.Relay
	if cfg.Redis.URL != "" {
		r, err := websocket.NewRedisRelay(cfg.Redis.URL, cfg.Redis.Channel)
		if err != nil {
			log.Printf("⚠️ Redis relay unavailable, chat stays local to this instance: %v", err)
		} else {
			defer r.Close()
			relay = r
		}
	}
	hub := websocket.NewHub(relay)
	go hub.Run(ctx)

	c := cron.New(cron.WithLocation(loc))
	if err := jobs.Register(ctx, c, bookings, cfg.Jobs); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()
	log.Println("✅ Booking jobs scheduled successfully.")

	var avatars *services.AvatarSigner
	if cfg.Upload.CloudinaryURL != "" {
		avatars, err = services.NewAvatarSigner(cfg.Upload.CloudinaryURL, cfg.Upload.Folder)
		if err != nil {
			log.Printf("⚠️ Avatar uploads disabled: %v", err)
		}
	}

	app := newApp(cfg.Server)
	routes.SetupRoutes(app, &handlers.Handler{
		Bookings: bookings,
		Reviews:  reviews,
		Skills:   skills,
		Users:    users,
		Store:    s,
		Hub:      hub,
		Avatars:  avatars,
	}, cfg.Auth.JWTSecret)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("✅ Server is running on %s", cfg.Server.Port)
		errCh <- app.Listen(cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("Shutting down server...")
		return app.ShutdownWithTimeout(shutdownTimeout)
	}
}

func newApp(cfg config.ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:       cfg.AppName,
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	origins := "*"
	if len(cfg.CorsOrigins) > 0 {
		origins = strings.Join(cfg.CorsOrigins, ", ")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   cfg.TimeZone,
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to " + cfg.AppName + " API",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return app
}
