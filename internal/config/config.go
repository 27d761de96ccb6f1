package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Assets   AssetsConfig   `mapstructure:"assets"`
	Task     TaskConfig     `mapstructure:"task"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
}

// AssetsConfig configures where course attachments are stored.
// Backend selects the storage implementation; the SFTP fields are only
// consulted when Backend is "sftp".
type AssetsConfig struct {
	Backend string     `mapstructure:"backend" validate:"omitempty,oneof=filesystem sftp"`
	Dir     string     `mapstructure:"dir"`
	SFTP    SFTPConfig `mapstructure:"sftp"`
}

// TaskConfig configures the background task runner used for deferred
// cleanup work.
type TaskConfig struct {
	QueueSize   int `mapstructure:"queue_size"   validate:"omitempty,gt=0"`
	WorkerCount int `mapstructure:"worker_count" validate:"omitempty,gt=0"`
}

// SFTPConfig contains the connection settings for the SFTP asset backend.
// HostKey is the media host's public key in authorized_keys format
// (e.g. "ssh-ed25519 AAAA..."); connections are refused unless the host
// presents exactly this key.
type SFTPConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	RemoteDir string `mapstructure:"remote_dir"`
	HostKey   string `mapstructure:"host_key"`
}
