package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	mcpStdio bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStdioMCP runs the MCP server on stdin/stdout instead of the HTTP
// server and watcher.
func WithStdioMCP() Option {
	return func(a *application) {
		a.mcpStdio = true
	}
}
