package config

import (
	"log"

	"github.com/spf13/viper"
)

// Backend mode values for BACKEND_MODE.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Config holds all configuration values.
type Config struct {
	AppPort     string `mapstructure:"APP_PORT"`
	Env         string `mapstructure:"ENV"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	BackendMode string `mapstructure:"BACKEND_MODE"`

	// Mongo (remote document store).
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisWalletDB int    `mapstructure:"REDIS_WALLET_DB"`
	RedisSweepDB  int    `mapstructure:"REDIS_SWEEP_DB"`

	// Business rules.
	PlatformFeePercentage float64 `mapstructure:"PLATFORM_FEE_PERCENTAGE"`
	AIConfidenceThreshold float64 `mapstructure:"AI_CONFIDENCE_THRESHOLD"`
	JobExpiryHours        int     `mapstructure:"JOB_EXPIRY_HOURS"`

	// External collaborators.
	GeminiAPIKey        string `mapstructure:"GEMINI_API_KEY"`
	GeocoderEndpoint    string `mapstructure:"GEOCODER_ENDPOINT"`
	FirebaseCredentials string `mapstructure:"FIREBASE_CREDENTIALS"`

	// Cloudinary (proof photo storage).
	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("BACKEND_MODE", BackendLocal)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "bottlebank")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_WALLET_DB", 1)
	viper.SetDefault("REDIS_SWEEP_DB", 2)
	viper.SetDefault("PLATFORM_FEE_PERCENTAGE", 0.08)
	viper.SetDefault("AI_CONFIDENCE_THRESHOLD", 70.0)
	viper.SetDefault("JOB_EXPIRY_HOURS", 24)
	viper.SetDefault("GEOCODER_ENDPOINT", "https://nominatim.openstreetmap.org")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
