// Package config defines the server's runtime configuration, loaded from
// environment variables (optionally populated from an env file).
package config

// Config holds all environment-driven settings for the server.
type Config struct {
	ListenAddress      string `envconfig:"LISTEN_ADDRESS" default:"0.0.0.0:8989" description:"The host:port that the chat server listens on."`
	DBPath             string `envconfig:"DB_PATH" default:"confabulator.sqlite" description:"The path to the SQLite database file. The file and DB schema are auto-created if they don't exist."`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"info" description:"Set logging granularity. Possible values: 'trace', 'debug', 'info', 'warn', 'error'."`
	MercyLimit         int    `envconfig:"MERCY_LIMIT" default:"2" description:"Number of unauthorized admin attempts forgiven before an account is IP-banned and deleted."`
	DefaultReplaySize  int    `envconfig:"DEFAULT_REPLAY_SIZE" default:"10" description:"Number of buffered lines replayed to a client joining a freshly-created channel."`
	BuiltinBufferLimit int    `envconfig:"BUILTIN_BUFFER_LIMIT" default:"10000" description:"Hard ceiling on channel history length regardless of a channel's configured buffer size."`
	FailFast           bool   `envconfig:"FAIL_FAST" default:"false" description:"Crash the server on an unexpected handler error instead of reporting it to the client and unwinding the connection. Useful for development."`
}
