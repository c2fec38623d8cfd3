package config

type Config interface {
	EnvConfig
	AuthServiceConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
}

type AuthServiceConfig interface {
	GetAuthServiceURL() string
	GetHTTPTimeout() int // seconds
	GetLoginRedirect() string
	GetBypassBootstrap() bool
	GetLoginEmail() string
	GetLoginPassword() string
}

type StoreConfig interface {
	GetRedisURL() string
	GetRefreshTokenFile() string
}

type mainConfig struct {
	EnvVars
	AuthServiceVars
	StoreVars
}

func New() Config {
	return mainConfig{}
}
