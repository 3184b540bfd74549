package config

// EnvPrefix is applied by envconfig when resolving variables.
const EnvPrefix = "helpnet"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "HELPNET_DB_DSN"
	EnvDBHost = "HELPNET_DB_HOST"
	EnvDBUser = "HELPNET_DB_USER"
	EnvDBName = "HELPNET_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
