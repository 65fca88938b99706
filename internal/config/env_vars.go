package config

import "os"

const (
	appNameVar      = "APP_NAME"
	callbackAddrVar = "CALLBACK_ADDR"
)

type EnvConfig interface {
	GetAppName() string
	GetCallbackAddr() string
	GetEnv() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "OAuth Flow")
}

// GetCallbackAddr returns the loopback address the callback server binds to.
// Port 0 picks an ephemeral port; providers that require a pre-registered
// redirect URI need a fixed one here.
func (EnvVars) GetCallbackAddr() string {
	return GetEnv(callbackAddrVar, "127.0.0.1:0")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
