package config

// EnvPrefix is the envconfig prefix shared by every section.
const EnvPrefix = "MOVIELEX"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	EnvDBDSN  = "MOVIELEX_DB_DSN"
	EnvDBHost = "MOVIELEX_DB_HOST"
	EnvDBUser = "MOVIELEX_DB_USER"
	EnvDBName = "MOVIELEX_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
