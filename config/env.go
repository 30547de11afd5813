package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CANDLETRADES_"

// LoadEnv loads KEY=value pairs from a .env file into the process
// environment. A missing file is not an error; variables already set win.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg from CANDLETRADES_* variables. AWS_* variables are
// read by the AWS SDK itself.
func ApplyEnv(cfg *Config) error {
	var errs []error

	if v, ok := lookup("PAIR"); ok && !strings.EqualFold(strings.TrimSpace(v), cfg.Pair) {
		// A different pair invalidates whatever was derived from the old one.
		cfg.Pair = v
		cfg.Base, cfg.Quote = "", ""
		cfg.Exchange.CandlesURL, cfg.Exchange.TradesURL = "", ""
	}
	setString(&cfg.Base, "BASE")
	setString(&cfg.Quote, "QUOTE")
	setString(&cfg.Timezone, "TIMEZONE")
	setString(&cfg.Exchange.CandlesURL, "CANDLES_URL")
	setString(&cfg.Exchange.TradesURL, "TRADES_URL")
	setString(&cfg.Exchange.Timeout, "TIMEOUT")
	setString(&cfg.Trades.Budget, "TRADES_BUDGET")
	setString(&cfg.Output.File, "OUTPUT_FILE")
	setString(&cfg.Upload.Bucket, "BUCKET")
	setString(&cfg.Upload.Prefix, "KEY_PREFIX")
	setString(&cfg.Upload.Region, "S3_REGION")
	setString(&cfg.Upload.Endpoint, "S3_ENDPOINT")
	setString(&cfg.Journal.DBPath, "DB_PATH")
	setString(&cfg.Metrics.Textfile, "METRICS_TEXTFILE")
	setString(&cfg.Metrics.Addr, "METRICS_ADDR")
	setString(&cfg.Schedule.Every, "EVERY")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Log.File, "LOG_FILE")

	errs = append(errs,
		setInt(&cfg.Window, "WINDOW"),
		setInt(&cfg.Trades.PageLimit, "PAGE_LIMIT"),
		setInt(&cfg.Trades.MaxPages, "MAX_PAGES"),
		setFloat(&cfg.Exchange.RequestsPerSecond, "REQUESTS_PER_SECOND"),
		setBool(&cfg.Upload.Enabled, "UPLOAD"),
		setBool(&cfg.Journal.Enabled, "JOURNAL"),
	)
	return errors.Join(errs...)
}

func lookup(key string) (string, bool) {
	return os.LookupEnv(EnvPrefix + key)
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = b
	return nil
}
