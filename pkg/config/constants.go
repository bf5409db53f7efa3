package config

const EnvPrefix = "TICKETBOOTH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	MailDriverLog    = "log"
	MailDriverSMTP   = "smtp"
	MailDriverPubSub = "pubsub"
)

const (
	EnvAppEnv           = "TICKETBOOTH_APP_ENV"
	EnvPort             = "TICKETBOOTH_APP_PORT"
	EnvDBDSN            = "TICKETBOOTH_DB_DSN"
	EnvDBDriver         = "TICKETBOOTH_DB_DRIVER"
	EnvDBHost           = "TICKETBOOTH_DB_HOST"
	EnvDBUser           = "TICKETBOOTH_DB_USER"
	EnvDBName           = "TICKETBOOTH_DB_NAME"
	EnvDBMigrationsDir  = "TICKETBOOTH_DB_MIGRATIONS_DIR"
	EnvRedisURL         = "TICKETBOOTH_REDIS_URL"
	EnvJWTSecret        = "TICKETBOOTH_JWT_SECRET"
	EnvJWTExpMins       = "TICKETBOOTH_JWT_EXPIRATION_MINUTES"
	EnvMailDriver       = "TICKETBOOTH_MAIL_DRIVER"
	EnvSMTPHost         = "TICKETBOOTH_SMTP_HOST"
	EnvPubSubEmailTopic = "TICKETBOOTH_PUBSUB_EMAIL_TOPIC"
	EnvPolicyCascade    = "TICKETBOOTH_POLICY_CASCADE_SYSTEM_DELETE"
	EnvLogFormat        = "TICKETBOOTH_LOG_FORMAT"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
