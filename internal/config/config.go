package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	CacheBackendFile     = "file"
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
)

// DefaultContactOverrides lists owners who teach without appearing on the
// subject card, keyed by the exact name the portal shows.
var DefaultContactOverrides = map[string]string{
	"Žmolíková Kateřina, Ing.": "izmolikova@fit.vut.cz",
}

type Config struct {
	Env  string
	Port int

	Log      LogConfig
	Portal   PortalConfig
	Cache    CacheConfig
	Contacts ContactsConfig
	Notifier NotifierConfig
	Output   OutputConfig
	Metrics  MetricsConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// PortalConfig holds credentials and the URLs scraped during a run
type PortalConfig struct {
	User     string
	Password string

	CASURL             string
	RecordingsURL      string
	AllowedSubjectsURL string
	// RecordingsInfoURL contains a {year} placeholder
	RecordingsInfoURL string
	// SubjectCardURL contains a {subject_id} placeholder
	SubjectCardURL string

	NotPublishedPermissions []string

	Timeout   time.Duration
	UserAgent string
}

type CacheConfig struct {
	Backend        string
	Dir            string
	DatabaseURL    string
	RedisURL       string
	RedisKeyPrefix string

	SubjectsKey      string
	ContactsKey      string
	NotificationsKey string
}

// ContactsConfig controls contact resolution policy
type ContactsConfig struct {
	// CacheNegative stores empty resolutions so they are not retried on later runs
	CacheNegative bool
	Overrides     map[string]string
}

type NotifierConfig struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

type OutputConfig struct {
	NotificationsFile string
	ContactsFile      string
}

type MetricsConfig struct {
	PushgatewayURL string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Portal = PortalConfig{
		User:                    v.GetString("PORTAL_USER"),
		Password:                v.GetString("PORTAL_PASSWORD"),
		CASURL:                  v.GetString("CAS_URL"),
		RecordingsURL:           v.GetString("ZAZNAMY_URL"),
		AllowedSubjectsURL:      v.GetString("ALLOWED_ZAZNAMY_URL"),
		RecordingsInfoURL:       v.GetString("ZAZNAMY_INFO_URL"),
		SubjectCardURL:          v.GetString("SUBJECT_CARD_URL"),
		NotPublishedPermissions: splitAndTrim(v.GetString("NOT_PUBLISHED_ZAZNAM_PERM")),
		Timeout:                 parseDuration(v.GetString("HTTP_TIMEOUT"), 60*time.Second),
		UserAgent:               v.GetString("USER_AGENT"),
	}

	cfg.Cache = CacheConfig{
		Backend:          strings.ToLower(v.GetString("CACHE_BACKEND")),
		Dir:              v.GetString("CACHE_DIR"),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		RedisURL:         v.GetString("REDIS_URL"),
		RedisKeyPrefix:   v.GetString("REDIS_KEY_PREFIX"),
		SubjectsKey:      v.GetString("ALLOWED_SUBJECTS_FILE"),
		ContactsKey:      v.GetString("CONTACT_INFO_FILE"),
		NotificationsKey: v.GetString("NOTIFICATIONS_FILE"),
	}

	overrides, err := parsePairs(v.GetString("CONTACT_OVERRIDES"), ";", "=")
	if err != nil {
		return nil, fmt.Errorf("invalid CONTACT_OVERRIDES: %w", err)
	}
	merged := make(map[string]string, len(DefaultContactOverrides)+len(overrides))
	for name, email := range DefaultContactOverrides {
		merged[name] = email
	}
	for name, email := range overrides {
		merged[name] = email
	}
	cfg.Contacts = ContactsConfig{
		CacheNegative: v.GetBool("CACHE_NEGATIVE_CONTACTS"),
		Overrides:     merged,
	}

	headers, err := parsePairs(v.GetString("SECURITY_HEADER"), ";", ":")
	if err != nil {
		return nil, fmt.Errorf("invalid SECURITY_HEADER: %w", err)
	}
	cfg.Notifier = NotifierConfig{
		URL:     v.GetString("NOTIFIER_SERVER"),
		Headers: headers,
		Timeout: parseDuration(v.GetString("NOTIFIER_TIMEOUT"), 30*time.Second),
	}

	cfg.Output = OutputConfig{
		NotificationsFile: v.GetString("OUTPUT_FILE"),
		ContactsFile:      v.GetString("CONTACTS_OUTPUT_FILE"),
	}

	cfg.Metrics = MetricsConfig{
		PushgatewayURL: v.GetString("PUSHGATEWAY_URL"),
	}

	switch cfg.Cache.Backend {
	case CacheBackendFile, CacheBackendPostgres, CacheBackendRedis:
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.Cache.Backend)
	}

	return cfg, nil
}

// ValidateForNotify checks the settings a notify run cannot work without.
func (c *Config) ValidateForNotify(dryRun bool) error {
	var missing []string
	if c.Portal.User == "" {
		missing = append(missing, "PORTAL_USER")
	}
	if c.Portal.Password == "" {
		missing = append(missing, "PORTAL_PASSWORD")
	}
	if len(c.Portal.NotPublishedPermissions) == 0 {
		missing = append(missing, "NOT_PUBLISHED_ZAZNAM_PERM")
	}
	if !dryRun && c.Notifier.URL == "" {
		missing = append(missing, "NOTIFIER_SERVER")
	}
	if c.Cache.Backend == CacheBackendPostgres && c.Cache.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Cache.Backend == CacheBackendRedis && c.Cache.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("PORTAL_USER", "")
	v.SetDefault("PORTAL_PASSWORD", "")
	v.SetDefault("CAS_URL", "https://cas.fit.vutbr.cz/")
	v.SetDefault("ZAZNAMY_URL", "https://video1.fit.vutbr.cz/av/")
	v.SetDefault("ALLOWED_ZAZNAMY_URL", "https://video1.fit.vutbr.cz/av/no_streaming.php")
	v.SetDefault("ZAZNAMY_INFO_URL", "https://video1.fit.vutbr.cz/av/records-list.php?datum={year}&nazev=___&SubmitButton=Vyhledat")
	v.SetDefault("SUBJECT_CARD_URL", "https://www.fit.vut.cz/study/course/{subject_id}/")
	v.SetDefault("NOT_PUBLISHED_ZAZNAM_PERM", "persons,lects,dep,emps")
	v.SetDefault("HTTP_TIMEOUT", "60s")
	v.SetDefault("USER_AGENT", "recnotify/1.0")

	v.SetDefault("CACHE_BACKEND", CacheBackendFile)
	v.SetDefault("CACHE_DIR", ".")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_KEY_PREFIX", "recnotify:")
	v.SetDefault("ALLOWED_SUBJECTS_FILE", "allowed_subjects")
	v.SetDefault("CONTACT_INFO_FILE", "contact_info")
	v.SetDefault("NOTIFICATIONS_FILE", "notifications")

	v.SetDefault("CACHE_NEGATIVE_CONTACTS", true)
	v.SetDefault("CONTACT_OVERRIDES", "")

	v.SetDefault("NOTIFIER_SERVER", "https://func-recording-notifier.azurewebsites.net/api/notify")
	v.SetDefault("SECURITY_HEADER", "")
	v.SetDefault("NOTIFIER_TIMEOUT", "30s")

	v.SetDefault("OUTPUT_FILE", "notifications_out")
	v.SetDefault("CONTACTS_OUTPUT_FILE", "contacts_out")

	v.SetDefault("PUSHGATEWAY_URL", "")
}

// isMissingFile covers viper returning a plain fs error, not
// ConfigFileNotFoundError, when an explicitly set config file is absent.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// parsePairs reads "k1<kv>v1<sep>k2<kv>v2". Keys and values are trimmed;
// only the first kv separator of each pair splits it.
func parsePairs(raw, sep, kv string) (map[string]string, error) {
	result := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return result, nil
	}

	for _, pair := range strings.Split(raw, sep) {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, kv)
		if !ok {
			return nil, fmt.Errorf("pair %q has no %q separator", pair, kv)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("pair %q has an empty key", pair)
		}
		result[key] = strings.TrimSpace(value)
	}

	return result, nil
}
