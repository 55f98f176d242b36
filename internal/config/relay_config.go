package config

import "fmt"

// RelayConfig holds configuration for the change relay.
// It only includes what the relay needs.
type RelayConfig struct {
	Database   DatabaseConfig `mapstructure:"db"`
	RabbitMQ   RabbitMQConfig `mapstructure:"rabbitmq"`
	Log        LogConfig      `mapstructure:"log"`
	HealthPort int            `mapstructure:"health_port"`
}

func LoadRelayConfig(path string) (*RelayConfig, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	v.SetDefault("health_port", 8090)

	var cfg RelayConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode relay config: %w", err)
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("config: db.url is required by the relay")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("config: rabbitmq.url is required by the relay")
	}
	return &cfg, nil
}
