package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stammtischbot/internal/bot"
	"stammtischbot/internal/config"
	"stammtischbot/internal/geocoder"
	"stammtischbot/internal/nostr"
	"stammtischbot/internal/relay"
	"stammtischbot/internal/storage"
	"stammtischbot/internal/storage/ch"
	"stammtischbot/internal/storage/stubs"
	"stammtischbot/internal/telegram"
)

// App represents the application
type App struct {
	config  *config.Config
	logger  *zap.Logger
	db      storage.Storage
	gateway *telegram.BotAPI
	bot     *bot.Bot
	server  *http.Server

	cancelSweeper context.CancelFunc
}

// New creates and initializes a new application instance
func New() (*App, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	app := &App{config: cfg, logger: logger}

	logger.Info("Starting Stammtisch bot...")

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	// Initialize bot
	if err := app.initBot(); err != nil {
		return nil, err
	}

	// Initialize HTTP server
	app.initHTTPServer()

	return app, nil
}

// initDatabase initializes the audit database connection
func (a *App) initDatabase() error {
	var db storage.Storage
	if a.config.UseMockDB {
		a.logger.Info("Using mock database")
		db = stubs.NewMockDB()
	} else {
		a.logger.Info("Connecting to ClickHouse",
			zap.String("host", a.config.ClickHouseHost),
			zap.Int("port", a.config.ClickHousePort),
			zap.String("database", a.config.ClickHouseDatabase),
			zap.String("user", a.config.ClickHouseUser),
			zap.Bool("tls", a.config.ClickHouseUseTLS),
		)
		clickhouseDB, err := ch.NewClickHouseDB(
			a.config.ClickHouseHost,
			a.config.ClickHousePort,
			a.config.ClickHouseDatabase,
			a.config.ClickHouseUser,
			a.config.ClickHousePassword,
			a.config.ClickHouseUseTLS,
		)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		db = clickhouseDB
	}

	// Initialize database schema
	ctx := context.Background()
	if err := db.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.logger.Info("Database initialized successfully")

	a.db = db
	return nil
}

// initBot wires the relay layer, geocoder and Telegram gateway into the bot.
func (a *App) initBot() error {
	var priv *btcec.PrivateKey
	if a.config.PrivateKeyHex != "" {
		key, err := nostr.ParsePrivateKey(a.config.PrivateKeyHex)
		if err != nil {
			return fmt.Errorf("invalid NOSTR_PRIVATE_KEY: %w", err)
		}
		priv = key
	} else {
		a.logger.Warn("No signing key configured, publishing will fail")
	}

	location, err := time.LoadLocation(a.config.EventTimezone)
	if err != nil {
		return fmt.Errorf("invalid EVENT_TIMEZONE %q: %w", a.config.EventTimezone, err)
	}

	client := relay.NewClient(a.logger)
	resolver := relay.NewResolver(client, a.config.RelayURLs, a.config.QueryTimeout, a.logger)
	publisher := relay.NewPublisher(client, resolver, a.config.RelayURLs, priv, a.config.CalendarNaddr, location, a.logger)
	geo := geocoder.NewClient(a.config.GeocoderBaseURL, a.logger)

	gateway, err := telegram.New(a.config.TelegramToken, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram gateway: %w", err)
	}
	a.gateway = gateway

	a.bot = bot.New(gateway, resolver, publisher, geo, a.db, a.config.AdminChatID, a.config.CalendarNaddr, a.logger)

	sweepCtx, cancel := context.WithCancel(context.Background())
	a.cancelSweeper = cancel
	go a.bot.RunSweeper(sweepCtx)

	a.logger.Info("Bot created successfully",
		zap.Int64("admin_chat_id", a.config.AdminChatID),
		zap.Strings("relays", a.config.RelayURLs),
	)
	return nil
}

// initHTTPServer initializes the HTTP server for health checks, the webhook
// and the meetup listing API
func (a *App) initHTTPServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // Default port
	}

	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	// Root endpoint
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		mode := "polling"
		if a.config.WebhookMode {
			mode = "webhook"
		}
		fmt.Fprintf(w, "Stammtisch bot is running (mode: %s)", mode)
	})

	// Webhook endpoint (only used in webhook mode)
	mux.HandleFunc("/telegram-webhook", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			a.logger.Error("Error decoding webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Process update in background to respond quickly to Telegram
		go a.bot.HandleUpdate(update)

		w.WriteHeader(http.StatusOK)
	})

	bot.NewHTTPServer(a.bot).RegisterRoutes(mux)

	a.server = &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Start HTTP server in background
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", port))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in appropriate mode
	if a.config.WebhookMode {
		// Webhook mode: configure webhook and wait for HTTP requests
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.gateway.API(), a.config.WebhookURL); err != nil {
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
		a.logger.Info("Webhook configured. Bot will receive updates via HTTP endpoint /telegram-webhook")
	} else {
		// Polling mode: actively poll Telegram servers
		go func() {
			a.logger.Info("Starting bot in POLLING mode...")
			if err := a.bot.StartPolling(a.gateway.API()); err != nil {
				a.logger.Fatal("Failed to start bot", zap.Error(err))
			}
		}()
	}

	// Wait for interrupt signal
	<-sigChan

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	if a.cancelSweeper != nil {
		a.cancelSweeper()
	}

	// Shutdown HTTP server gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Close database
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	return nil
}
