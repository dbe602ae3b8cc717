// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configFile = pflag.String("config", "", "Path to a config file, defaults to ./config.toml")

	validLogLevels     = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers       = []string{"sqlite", "postgres"}
	validThrottleStore = []string{"memory", "redis"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	bindEnv()
	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	return validate()
}

func bindEnv() {
	v.AutomaticEnv()

	v.BindEnv("app.log_level", "app_log_level")
	v.BindEnv("app.name", "app_name")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.cors", "host_cors")

	v.BindEnv("database.driver", "database_driver")
	v.BindEnv("database.dsn", "database_dsn")

	v.BindEnv("jwt.secret", "jwt_secret")
	v.BindEnv("jwt.expires_in", "jwt_expires_in")

	v.BindEnv("google.client_id", "google_client_id")

	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.username", "mail_username")
	v.BindEnv("mail.password", "mail_password")
	v.BindEnv("mail.from", "mail_from")
	v.BindEnv("mail.queue.enabled", "mail_queue_enabled")
	v.BindEnv("mail.queue.concurrency", "mail_queue_concurrency")

	v.BindEnv("redis.addr", "redis_addr")
	v.BindEnv("redis.password", "redis_password")
	v.BindEnv("redis.db", "redis_db")

	v.BindEnv("throttle.store", "throttle_store")
	v.BindEnv("throttle.redis_ttl", "throttle_redis_ttl")

	v.BindEnv("security.rate_limit", "security_rate_limit")
	v.BindEnv("security.max_body_size", "security_max_body_size")

	v.BindEnv("cloudflare.turnstile.enabled", "cloudflare_turnstile_enabled")
	v.BindEnv("cloudflare.turnstile.secret_token", "cloudflare_turnstile_secret_token")
}

func setDefaults() {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.name", "Barbería Carlyn")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors", "http://localhost:5173")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "carlyn.db")

	v.SetDefault("jwt.expires_in", "24h")

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.queue.enabled", false)
	v.SetDefault("mail.queue.concurrency", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("throttle.store", "memory")
	v.SetDefault("throttle.redis_ttl", "15m")

	v.SetDefault("security.rate_limit", 10)
	v.SetDefault("security.max_body_size", 1<<20)

	v.SetDefault("cloudflare.turnstile.enabled", false)
}

func validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDrivers, v.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("database.dsn") == "" {
		return errors.New("database.dsn can't be empty")
	}

	if v.GetDuration("jwt.expires_in") <= 0 {
		return errors.New("jwt.expires_in must be a positive duration")
	}

	if v.GetString("mail.host") == "" {
		return errors.New("mail.host can't be empty")
	}

	if v.GetString("mail.from") == "" {
		return errors.New("mail.from can't be empty")
	}

	if v.GetInt("security.rate_limit") <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if v.GetInt64("security.max_body_size") <= 0 {
		return errors.New("security.max_body_size must be bigger than 0")
	}

	if !slices.Contains(validThrottleStore, v.GetString("throttle.store")) {
		return errors.New("invalid throttle store provided")
	}

	if v.GetString("throttle.store") == "redis" || v.GetBool("mail.queue.enabled") {
		if v.GetString("redis.addr") == "" {
			return errors.New("redis.addr can't be empty")
		}
	}

	if v.GetBool("mail.queue.enabled") && v.GetInt("mail.queue.concurrency") <= 0 {
		return errors.New("mail.queue.concurrency must be bigger than 0")
	}

	if v.GetString("google.client_id") == "" {
		fmt.Println("[WARNING]: google.client_id is empty. Google sign in will reject every token")
	}

	if !v.GetBool("cloudflare.turnstile.enabled") {
		fmt.Println("[WARNING]: Cloudflare's turnstile is disabled. Some public endpoints won't be guarded against bots")
	} else {
		if v.GetString("cloudflare.turnstile.secret_token") == "" {
			return errors.New("turnstile secret token is missing")
		}
	}

	return nil
}
