package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ExitAvailabilityHandled is the process exit code for "availability was found
// and processed this run". The invoking scheduler uses it to tell a productive
// run apart from an idle one (exit 0).
const ExitAvailabilityHandled = 42

type Config struct {
	SaltalaBase string
	PublicURL   string

	TargetLineNames []string
	FallbackLineID  int
	UnitHint        int
	CorporationID   int
	MonthsAhead     int

	// Timezone is used to compute the correct UTC offset per date (DST-safe).
	// TZOffset, when set (e.g. "-03:00"), takes precedence.
	Timezone string
	TZOffset string

	KapsoBase          string
	KapsoAPIKey        string
	KapsoPhoneNumberID string

	FollowupAfter   time.Duration
	ReactivateAfter time.Duration

	// FollowupTemplate is the approved WhatsApp template used to re-contact
	// pending users outside the session window.
	FollowupTemplate string

	// watch mode
	PollInterval time.Duration
	ListenAddr   string

	LogLevel string

	// Local testing knobs: when set they short-circuit line discovery and
	// availability queries without touching the network.
	MockLineID   int
	MockLineName string
	MockDays     []string
	MockTimes    []string
}

func FromEnv() (Config, error) {
	// .env for local runs; absence is fine.
	_ = godotenv.Load()

	cfg := Config{
		SaltalaBase:        getenv("SALTALA_BASE", "https://saltala.apisaltala.com/api/v1"),
		PublicURL:          getenv("PUBLIC_URL", "lobarnechea"),
		TargetLineNames:    splitList(getenv("TARGET_LINE_NAMES", "Renovación")),
		Timezone:           getenv("TZ_NAME", "America/Santiago"),
		TZOffset:           os.Getenv("TZ_OFFSET"),
		KapsoBase:          getenv("KAPSO_BASE", "https://api.kapso.ai"),
		KapsoAPIKey:        os.Getenv("KAPSO_API_KEY"),
		KapsoPhoneNumberID: os.Getenv("KAPSO_PHONE_NUMBER_ID"),
		FollowupTemplate:   getenv("FOLLOWUP_TEMPLATE", "seguimiento_espera"),
		ListenAddr:         getenv("LISTEN_ADDR", ":8080"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		MockLineName:       os.Getenv("MOCK_LINE_NAME"),
		MockDays:           splitList(os.Getenv("MOCK_DAYS")),
		MockTimes:          splitList(os.Getenv("MOCK_TIMES")),
	}

	var err error
	if cfg.FallbackLineID, err = getenvInt("FALLBACK_LINE_ID", 1768); err != nil {
		return Config{}, err
	}
	if cfg.UnitHint, err = getenvInt("UNIT_HINT", 277); err != nil {
		return Config{}, err
	}
	if cfg.CorporationID, err = getenvInt("CORPORATION_ID", 0); err != nil {
		return Config{}, err
	}
	if cfg.MonthsAhead, err = getenvInt("NUMBER_OF_MONTH", 2); err != nil {
		return Config{}, err
	}
	if cfg.MonthsAhead < 1 {
		return Config{}, fmt.Errorf("NUMBER_OF_MONTH must be >= 1")
	}
	if cfg.MockLineID, err = getenvInt("MOCK_LINE_ID", 0); err != nil {
		return Config{}, err
	}

	followupHours, err := getenvInt("PENDING_FOLLOWUP_HOURS", 1)
	if err != nil {
		return Config{}, err
	}
	reactivateHours, err := getenvInt("PENDING_REACTIVATE_HOURS", 24)
	if err != nil {
		return Config{}, err
	}
	cfg.FollowupAfter = time.Duration(followupHours) * time.Hour
	cfg.ReactivateAfter = time.Duration(reactivateHours) * time.Hour

	pollSec, err := getenvInt("POLL_SECONDS", 300)
	if err != nil {
		return Config{}, err
	}
	if pollSec < 1 {
		return Config{}, fmt.Errorf("POLL_SECONDS must be >= 1")
	}
	cfg.PollInterval = time.Duration(pollSec) * time.Second

	return cfg, nil
}

// OffsetForDate returns the ISO UTC offset (e.g. "-03:00") in effect on the
// given YYYY-MM-DD in the configured timezone. A TZOffset override wins; on
// any parse failure the Chilean standard-time offset is used.
func (c Config) OffsetForDate(date string) string {
	if c.TZOffset != "" {
		return c.TZOffset
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return "-03:00"
	}
	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return "-03:00"
	}
	_, secs := d.Zone()
	sign := "+"
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	return fmt.Sprintf("%s%02d:%02d", sign, secs/3600, (secs%3600)/60)
}

var listSep = regexp.MustCompile(`[,\s]+`)

func splitList(raw string) []string {
	var out []string
	for _, s := range listSep.Split(raw, -1) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}
