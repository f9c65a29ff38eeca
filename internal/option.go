package internal

import "github.com/stefan-niedermann/OwnCloud-Notes/internal/remote"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	configPath string
	client     remote.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithConfigPath enables hot reload by telling the application where its
// configuration was loaded from.
func WithConfigPath(path string) Option {
	return func(a *application) {
		a.configPath = path
	}
}

// WithRemoteClient overrides the remote client (used by tests).
func WithRemoteClient(client remote.Client) Option {
	return func(a *application) {
		a.client = client
	}
}
