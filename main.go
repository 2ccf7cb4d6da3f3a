package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/plateful/plateful-server/ai"
	"github.com/plateful/plateful-server/config"
	"github.com/plateful/plateful-server/database"
	"github.com/plateful/plateful-server/database/repositories"
	"github.com/plateful/plateful-server/handlers"
	"github.com/plateful/plateful-server/identity"
	"github.com/plateful/plateful-server/logger"
	"github.com/plateful/plateful-server/middleware"
	"github.com/plateful/plateful-server/services"
	"github.com/plateful/plateful-server/worker"
	"github.com/plateful/plateful-server/ws"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := "config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if env := os.Getenv("PLATEFUL_CONFIG"); env != "" {
		configPath = env
	}

	customHandler := logger.NewHandler("Plateful")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting Plateful backend",
		slog.String("version", version),
		slog.String("commit", commit))

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	customHandler.Configure(cfg.Log.Level, cfg.Log.AddSource)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	slog.Info("Connecting to database...")
	db, err := database.New(connectCtx, cfg.DB)
	if err != nil {
		slog.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitTables(connectCtx); err != nil {
		slog.Error("Failed to initialize schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	resolver, err := identity.NewHMACResolver(cfg.Auth.Secret, 1024)
	if err != nil {
		slog.Error("Failed to initialize identity resolver", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// A missing AI credential is not fatal: parse and summary jobs record the
	// failure on the affected record instead.
	completion, err := ai.NewClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		if !errors.Is(err, ai.ErrNotConfigured) {
			slog.Error("Failed to initialize completion client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Warn("Completion credential not configured; AI jobs will fail per record")
	}

	hub := ws.NewHub()
	go hub.Run()

	pool := worker.NewPool(cfg.AI.Workers, 256)
	pool.Start(ctx)

	noteRepo := repositories.NewNoteRepository(db.BunDB())
	recipeRepo := repositories.NewRecipeRepository(db.BunDB())

	noteService := services.NewNoteService(noteRepo, completion, pool, hub)
	recipeService := services.NewRecipeService(recipeRepo, completion, pool, hub)

	webApp := handlers.NewWebApp(noteService, recipeService, db)

	app := fiber.New(fiber.Config{
		AppName:      "Plateful Backend",
		ServerHeader: "Plateful",
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(compress.New())
	app.Use(middleware.ResolveIdentity(resolver))
	app.Use(middleware.LoggingMiddleware())

	api := app.Group("/api")
	api.Get("/health", webApp.HandleHealth)

	notes := api.Group("/notes")
	notes.Get("/", webApp.HandleListNotes)
	notes.Post("/", webApp.HandleCreateNote)
	notes.Get("/:id", webApp.HandleGetNote)
	notes.Put("/:id", webApp.HandleUpdateNote)
	notes.Delete("/:id", webApp.HandleDeleteNote)

	recipes := api.Group("/recipes")
	recipes.Get("/", webApp.HandleListRecipes)
	recipes.Post("/", webApp.HandleCreateRecipe)
	recipes.Get("/search", webApp.HandleSearchRecipes)
	recipes.Get("/:id", webApp.HandleGetRecipe)
	recipes.Delete("/:id", webApp.HandleDeleteRecipe)

	app.Use("/ws", handlers.WebSocketUpgrade())
	app.Get("/ws", handlers.HandleWebSocket(hub))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		if err := app.Listen(addr); err != nil {
			slog.Error("Server stopped", slog.String("error", err.Error()))
			stop()
		}
	}()
	logger.LogSystem("Server listening", slog.String("addr", addr))

	<-ctx.Done()
	slog.Info("Shutting down...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
	pool.Stop()
	hub.Stop()
	slog.Info("Shutdown complete")
}
