package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Tokens        TokenConfig
	AuthRateLimit AuthRateLimitConfig
	Mail          MailConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Policy        PolicyConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Mail.validate(cfg.PubSub); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MigrateConfig is what the migration CLI reads. It leaves out JWT, mail and
// redis so schema changes can run before those are provisioned.
type MigrateConfig struct {
	App AppConfig
	DB  DBConfig
}

func LoadMigrate() (*MigrateConfig, error) {
	var cfg MigrateConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing migrate config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"TICKETBOOTH_APP_ENV" required:"true"`
	Port          string `envconfig:"TICKETBOOTH_APP_PORT" required:"true"`
	PublicBaseURL string `envconfig:"TICKETBOOTH_PUBLIC_BASE_URL" default:"http://localhost:8080"`
	LogLevel      string `envconfig:"TICKETBOOTH_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"TICKETBOOTH_LOG_WARN_STACK" default:"false"`
	CORSOrigins   string `envconfig:"TICKETBOOTH_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TICKETBOOTH_DB_DSN"`
	Driver string `envconfig:"TICKETBOOTH_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TICKETBOOTH_DB_HOST"`
	Port     int    `envconfig:"TICKETBOOTH_DB_PORT" default:"5432"`
	User     string `envconfig:"TICKETBOOTH_DB_USER"`
	Password string `envconfig:"TICKETBOOTH_DB_PASSWORD"`
	Name     string `envconfig:"TICKETBOOTH_DB_NAME"`
	SSLMode  string `envconfig:"TICKETBOOTH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TICKETBOOTH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TICKETBOOTH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TICKETBOOTH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TICKETBOOTH_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// MigrationsDir points the migrate CLI at SQL files on disk; empty uses the embedded set.
	MigrationsDir string `envconfig:"TICKETBOOTH_DB_MIGRATIONS_DIR"`
}

// IsSQLite reports whether the local single-file driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"TICKETBOOTH_REDIS_URL"`
	Address      string        `envconfig:"TICKETBOOTH_REDIS_ADDR"`
	Password     string        `envconfig:"TICKETBOOTH_REDIS_PASSWORD"`
	DB           int           `envconfig:"TICKETBOOTH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TICKETBOOTH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TICKETBOOTH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TICKETBOOTH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TICKETBOOTH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TICKETBOOTH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TICKETBOOTH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TICKETBOOTH_JWT_ISSUER" default:"ticketbooth"`
	ExpirationMinutes int    `envconfig:"TICKETBOOTH_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// SessionTTL returns how long an issued session token stays valid.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TICKETBOOTH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TICKETBOOTH_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TICKETBOOTH_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TICKETBOOTH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TICKETBOOTH_ARGON_KEY_LEN" default:"32"`
}

// TokenConfig controls the lifetime of the one-time tokens mailed to users.
type TokenConfig struct {
	VerificationTTL  time.Duration `envconfig:"TICKETBOOTH_VERIFICATION_TOKEN_TTL" default:"24h"`
	PasswordResetTTL time.Duration `envconfig:"TICKETBOOTH_PASSWORD_RESET_TOKEN_TTL" default:"15m"`
}

type AuthRateLimitConfig struct {
	Enabled            bool          `envconfig:"TICKETBOOTH_AUTH_RATE_LIMIT_ENABLED" default:"true"`
	LoginWindow        time.Duration `envconfig:"TICKETBOOTH_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TICKETBOOTH_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TICKETBOOTH_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"TICKETBOOTH_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"TICKETBOOTH_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"TICKETBOOTH_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ForgotWindow       time.Duration `envconfig:"TICKETBOOTH_AUTH_RATE_LIMIT_FORGOT_WINDOW" default:"15m"`
	ForgotEmailLimit   int           `envconfig:"TICKETBOOTH_AUTH_RATE_LIMIT_FORGOT_EMAIL_LIMIT" default:"3"`
	ForgotIPLimit      int           `envconfig:"TICKETBOOTH_AUTH_RATE_LIMIT_FORGOT_IP_LIMIT" default:"10"`
}

// MailConfig selects how verification and reset emails leave the service.
type MailConfig struct {
	Driver       string `envconfig:"TICKETBOOTH_MAIL_DRIVER" default:"log"`
	FromEmail    string `envconfig:"TICKETBOOTH_MAIL_FROM" default:"no-reply@ticketbooth.local"`
	SMTPHost     string `envconfig:"TICKETBOOTH_SMTP_HOST"`
	SMTPPort     int    `envconfig:"TICKETBOOTH_SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"TICKETBOOTH_SMTP_USER"`
	SMTPPassword string `envconfig:"TICKETBOOTH_SMTP_PASSWORD"`
}

func (m MailConfig) validate(ps PubSubConfig) error {
	switch strings.ToLower(strings.TrimSpace(m.Driver)) {
	case MailDriverLog:
		return nil
	case MailDriverSMTP:
		if strings.TrimSpace(m.SMTPHost) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvSMTPHost, EnvMailDriver, MailDriverSMTP)
		}
		return nil
	case MailDriverPubSub:
		if strings.TrimSpace(ps.EmailTopic) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvPubSubEmailTopic, EnvMailDriver, MailDriverPubSub)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvMailDriver, m.Driver)
	}
}

type GCPConfig struct {
	ProjectID        string `envconfig:"TICKETBOOTH_GCP_PROJECT_ID"`
	CredentialsFile  string `envconfig:"TICKETBOOTH_GOOGLE_APPLICATION_CREDENTIALS"`
	PubSubEmulatorOn bool   `envconfig:"TICKETBOOTH_PUBSUB_EMULATOR" default:"false"`
}

type PubSubConfig struct {
	EmailTopic string `envconfig:"TICKETBOOTH_PUBSUB_EMAIL_TOPIC"`
}

// PolicyConfig makes the relaxed referential rules around theater systems explicit.
type PolicyConfig struct {
	CascadeSystemDelete bool `envconfig:"TICKETBOOTH_POLICY_CASCADE_SYSTEM_DELETE" default:"false"`
	RecheckNameOnAssign bool `envconfig:"TICKETBOOTH_POLICY_RECHECK_NAME_ON_ASSIGN" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TICKETBOOTH_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "ticketbooth.db"
		return nil
	}

	missing := []string{}
	discrete := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if discrete[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
