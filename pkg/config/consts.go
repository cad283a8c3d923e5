package config

// EnvPrefix namespaces every environment variable the core reads.
const EnvPrefix = "STOCKCORE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names referenced directly in validation messages and
// test helpers.
const (
	EnvAppEnv = "STOCKCORE_APP_ENV"
	EnvDBDSN  = "STOCKCORE_DB_DSN"
	EnvDBHost = "STOCKCORE_DB_HOST"
	EnvDBUser = "STOCKCORE_DB_USER"
	EnvDBName = "STOCKCORE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
