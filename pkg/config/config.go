package config

// Messaging definition messaging_service YAML structure
type Messaging struct {
	Port        string         `mapstructure:"port"`
	Mongo       DatabaseConfig `mapstructure:"mongo"`
	Redis       RedisConfig    `mapstructure:"redis"`
	UserService ServiceConfig  `mapstructure:"user"`
}

// ServiceConfig definition service port & name
type ServiceConfig struct {
	Port string `mapstructure:"service_port"`
	Name string `mapstructure:"service_name"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}
