package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is constructed once at
// startup and passed explicitly to the components that need it.
type Config struct {
	Sweep   SweepConfig
	Browser BrowserConfig
	Sink    SinkConfig
	Log     LogConfig
}

// SweepConfig controls the keyword/pagination sweep.
type SweepConfig struct {
	// Keywords is the list of search keywords. Empty means "ask on stdin".
	Keywords []string

	// ListingBase is the root URL of the listing site.
	ListingBase string // default: "https://www.viewstats.com"

	// MaxPages is the number of listing pages visited per keyword.
	MaxPages int // default: 3

	// PageRPS / PageBurst rate-limit listing page loads.
	PageRPS   float64 // default: 0.5
	PageBurst int     // default: 1

	// NavTimeout bounds the wait for a new tab to materialize.
	NavTimeout time.Duration // default: 10s

	// ElementTimeout bounds every per-element wait.
	ElementTimeout time.Duration // default: 8s

	// SettleDelay is the pause after tab switches, giving the page time to
	// render before the next selector query.
	SettleDelay time.Duration // default: 2s
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all requests.
	Proxy string

	// BlockedResources lists resource types blocked by the hijack router.
	// default: ["Image", "Font", "Media"]
	BlockedResources []string
}

// SinkConfig controls the local CSV store and the spreadsheet mirror.
type SinkConfig struct {
	// CSVFile is the append-only tabular output file.
	CSVFile string // default: "viewstats_data.csv"

	// SpreadsheetKey is the Google Sheets spreadsheet id. Empty disables
	// the remote mirror entirely.
	SpreadsheetKey string

	// SheetName is the worksheet replaced on every upload.
	SheetName string // default: "viewstats_result"

	// CredentialsFile is the service-account credential path.
	CredentialsFile string // default: "credentials.json"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Sweep: SweepConfig{
			Keywords:       envSliceOr("KEYWORDS", nil),
			ListingBase:    envOr("LISTING_BASE", "https://www.viewstats.com"),
			MaxPages:       envIntOr("MAX_PAGES", 3),
			PageRPS:        envFloatOr("SCOUT_PAGE_RPS", 0.5),
			PageBurst:      envIntOr("SCOUT_PAGE_BURST", 1),
			NavTimeout:     envDurationOr("SCOUT_NAV_TIMEOUT", 10*time.Second),
			ElementTimeout: envDurationOr("SCOUT_ELEMENT_TIMEOUT", 8*time.Second),
			SettleDelay:    envDurationOr("SCOUT_SETTLE_DELAY", 2*time.Second),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("SCOUT_HEADLESS", true),
			NoSandbox:  envBoolOr("SCOUT_NO_SANDBOX", false),
			BrowserBin: os.Getenv("SCOUT_BROWSER_BIN"),
			Proxy:      os.Getenv("SCOUT_PROXY"),
			BlockedResources: envSliceOr("SCOUT_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Sink: SinkConfig{
			CSVFile:         envOr("CSV_FILE", "viewstats_data.csv"),
			SpreadsheetKey:  os.Getenv("SPREADSHEET_KEY"),
			SheetName:       envOr("SHEET_NAME", "viewstats_result"),
			CredentialsFile: envOr("CREDENTIALS_JSON", "credentials.json"),
		},
		Log: LogConfig{
			Level:  envOr("SCOUT_LOG_LEVEL", "info"),
			Format: envOr("SCOUT_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
