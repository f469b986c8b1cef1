package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type SchedulerConfig struct {
	MaxConcurrentJobs int
	WaitTimeout       time.Duration
	Retention         time.Duration
	SweepInterval     time.Duration
	SimulateWorkers   bool
}

type RateLimitConfig struct {
	LayersPerMin int
	JobsPerMin   int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("scheduler.max_concurrent_jobs", 3)
	viper.SetDefault("scheduler.wait_timeout_ms", 300000)
	viper.SetDefault("scheduler.retention_ms", 3600000)
	viper.SetDefault("scheduler.sweep_interval_ms", 600000)
	viper.SetDefault("scheduler.simulate_workers", false)
	viper.SetDefault("ratelimit.layers_per_min", 60)
	viper.SetDefault("ratelimit.jobs_per_min", 30)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		Scheduler: SchedulerConfig{
			MaxConcurrentJobs: viper.GetInt("scheduler.max_concurrent_jobs"),
			WaitTimeout:       time.Duration(viper.GetInt("scheduler.wait_timeout_ms")) * time.Millisecond,
			Retention:         time.Duration(viper.GetInt("scheduler.retention_ms")) * time.Millisecond,
			SweepInterval:     time.Duration(viper.GetInt("scheduler.sweep_interval_ms")) * time.Millisecond,
			SimulateWorkers:   viper.GetBool("scheduler.simulate_workers"),
		},
		RateLimit: RateLimitConfig{
			LayersPerMin: viper.GetInt("ratelimit.layers_per_min"),
			JobsPerMin:   viper.GetInt("ratelimit.jobs_per_min"),
		},
	}

	return cfg, nil
}
