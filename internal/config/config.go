package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	BackendURL  string `mapstructure:"backend_url"`
	MessagingWS string `mapstructure:"messaging_ws"`

	ToolURL      string `mapstructure:"tool_url"`
	ToolPassword string `mapstructure:"tool_password"`

	CanvasWidth  int `mapstructure:"canvas_width"`
	CanvasHeight int `mapstructure:"canvas_height"`

	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("backend_url", "http://localhost:9000")
	v.SetDefault("messaging_ws", "ws://localhost:9001/ws")
	v.SetDefault("tool_url", "ws://localhost:4455")
	v.SetDefault("canvas_width", 1280)
	v.SetDefault("canvas_height", 720)
	v.SetDefault("ping_period", "54s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
