package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	TelegramToken string
	AdminChatID   int64

	// Nostr configuration
	RelayURLs     []string
	PrivateKeyHex string // signing key; publishing fails without it
	CalendarNaddr string // naddr of the community calendar
	QueryTimeout  time.Duration
	EventTimezone string // IANA name, defaults to Europe/Zurich

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)

	// Geocoder
	GeocoderBaseURL string // empty means the public Nominatim instance

	// ClickHouse configuration (audit storage)
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	UseMockDB bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Admin chat (required): the review channel for event requests
	adminStr := os.Getenv("ADMIN_CHAT_ID")
	if adminStr == "" {
		return nil, fmt.Errorf("ADMIN_CHAT_ID is required")
	}
	adminID, err := strconv.ParseInt(strings.TrimSpace(adminStr), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_CHAT_ID: %s", adminStr)
	}
	config.AdminChatID = adminID

	// Relay list (required)
	relaysStr := os.Getenv("RELAY_URLS")
	if relaysStr == "" {
		return nil, fmt.Errorf("RELAY_URLS is required (comma-separated list of wss:// endpoints)")
	}
	for _, raw := range strings.Split(relaysStr, ",") {
		relayURL := strings.TrimSpace(raw)
		if relayURL == "" {
			continue
		}
		if !strings.HasPrefix(relayURL, "ws://") && !strings.HasPrefix(relayURL, "wss://") {
			return nil, fmt.Errorf("invalid relay URL in RELAY_URLS: %s", relayURL)
		}
		config.RelayURLs = append(config.RelayURLs, relayURL)
	}
	if len(config.RelayURLs) == 0 {
		return nil, fmt.Errorf("RELAY_URLS contains no usable entries")
	}

	// Signing key is optional at startup; publishing surfaces the error.
	config.PrivateKeyHex = os.Getenv("NOSTR_PRIVATE_KEY")

	config.CalendarNaddr = os.Getenv("CALENDAR_NADDR")
	if config.CalendarNaddr == "" {
		return nil, fmt.Errorf("CALENDAR_NADDR is required")
	}

	config.QueryTimeout = 10 * time.Second
	if timeoutStr := os.Getenv("RELAY_QUERY_TIMEOUT_SECONDS"); timeoutStr != "" {
		seconds, err := strconv.Atoi(timeoutStr)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid RELAY_QUERY_TIMEOUT_SECONDS: %s", timeoutStr)
		}
		config.QueryTimeout = time.Duration(seconds) * time.Second
	}

	config.EventTimezone = os.Getenv("EVENT_TIMEZONE")
	if config.EventTimezone == "" {
		config.EventTimezone = "Europe/Zurich"
	}

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}

	config.GeocoderBaseURL = os.Getenv("GEOCODER_BASE_URL")

	// Use Mock DB (default: false)
	config.UseMockDB = os.Getenv("USE_MOCK_DB") == "true"

	// ClickHouse configuration (required if not using mock)
	if !config.UseMockDB {
		config.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
		if config.ClickHouseHost == "" {
			return nil, fmt.Errorf("CLICKHOUSE_HOST is required when USE_MOCK_DB is not set")
		}

		portStr := os.Getenv("CLICKHOUSE_PORT")
		if portStr == "" {
			config.ClickHousePort = 9000 // Default ClickHouse native port
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
			}
			config.ClickHousePort = port
		}

		config.ClickHouseDatabase = os.Getenv("CLICKHOUSE_DATABASE")
		if config.ClickHouseDatabase == "" {
			config.ClickHouseDatabase = "default"
		}

		config.ClickHouseUser = os.Getenv("CLICKHOUSE_USER")
		if config.ClickHouseUser == "" {
			config.ClickHouseUser = "default"
		}

		config.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")
		// Password is optional, can be empty

		config.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	}

	return config, nil
}
