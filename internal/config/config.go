package config

// Config aggregates every configuration surface the application reads. All
// values come from the environment with sensible defaults.
type Config interface {
	EnvConfig
	OAuthConfig
}

type mainConfig struct {
	EnvVars
	OAuth
}

func New() Config {
	return mainConfig{}
}
