/**
 * @description
 * Configuration management for the onboarding service. Settings come from
 * environment variables (or a .env file loaded in main), with defaults for
 * everything except the database and broker URLs.
 *
 * @dependencies
 * - github.com/spf13/viper: For configuration management.
 */
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`

	// Exchange and routing keys for the credit/issuance choreography.
	EventsExchange            string `mapstructure:"EVENTS_EXCHANGE"`
	CustomerRegisteredKey     string `mapstructure:"CUSTOMER_REGISTERED_KEY"`
	CardIssuanceRequestedKey  string `mapstructure:"CARD_ISSUANCE_REQUESTED_KEY"`
	AnalysisCompletedKey      string `mapstructure:"ANALYSIS_COMPLETED_KEY"`
	AnalysisFailedKey         string `mapstructure:"ANALYSIS_FAILED_KEY"`
	CardIssuedKey             string `mapstructure:"CARD_ISSUED_KEY"`
	CardIssuanceFailedKey     string `mapstructure:"CARD_ISSUANCE_FAILED_KEY"`
	AnalysisCompletedQueue    string `mapstructure:"ANALYSIS_COMPLETED_QUEUE"`
	AnalysisFailedQueue       string `mapstructure:"ANALYSIS_FAILED_QUEUE"`
	CardIssuedQueue           string `mapstructure:"CARD_ISSUED_QUEUE"`
	CardIssuanceFailedQueue   string `mapstructure:"CARD_ISSUANCE_FAILED_QUEUE"`

	// PublishTimeout bounds every broker publish.
	PublishTimeout time.Duration `mapstructure:"PUBLISH_TIMEOUT"`

	// Re-analysis sweep.
	ReanalysisSweepSchedule  string `mapstructure:"REANALYSIS_SWEEP_SCHEDULE"`
	ReanalysisSweepBatchSize int    `mapstructure:"REANALYSIS_SWEEP_BATCH_SIZE"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (Config, error) {
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("EVENTS_EXCHANGE", "onboarding_events")
	viper.SetDefault("CUSTOMER_REGISTERED_KEY", "customer.registered")
	viper.SetDefault("CARD_ISSUANCE_REQUESTED_KEY", "card.issuance.requested")
	viper.SetDefault("ANALYSIS_COMPLETED_KEY", "credit.analysis.completed")
	viper.SetDefault("ANALYSIS_FAILED_KEY", "credit.analysis.failed")
	viper.SetDefault("CARD_ISSUED_KEY", "card.issued")
	viper.SetDefault("CARD_ISSUANCE_FAILED_KEY", "card.issuance.failed")
	viper.SetDefault("ANALYSIS_COMPLETED_QUEUE", "onboarding_analysis_completed")
	viper.SetDefault("ANALYSIS_FAILED_QUEUE", "onboarding_analysis_failed")
	viper.SetDefault("CARD_ISSUED_QUEUE", "onboarding_card_issued")
	viper.SetDefault("CARD_ISSUANCE_FAILED_QUEUE", "onboarding_card_issuance_failed")
	viper.SetDefault("PUBLISH_TIMEOUT", "5s")
	viper.SetDefault("REANALYSIS_SWEEP_SCHEDULE", "0 3 * * *") // daily at 03:00
	viper.SetDefault("REANALYSIS_SWEEP_BATCH_SIZE", 100)

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind env vars explicitly so they appear in Unmarshal.
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("HTTP_ADDR")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("CUSTOMER_REGISTERED_KEY")
	_ = viper.BindEnv("CARD_ISSUANCE_REQUESTED_KEY")
	_ = viper.BindEnv("ANALYSIS_COMPLETED_KEY")
	_ = viper.BindEnv("ANALYSIS_FAILED_KEY")
	_ = viper.BindEnv("CARD_ISSUED_KEY")
	_ = viper.BindEnv("CARD_ISSUANCE_FAILED_KEY")
	_ = viper.BindEnv("ANALYSIS_COMPLETED_QUEUE")
	_ = viper.BindEnv("ANALYSIS_FAILED_QUEUE")
	_ = viper.BindEnv("CARD_ISSUED_QUEUE")
	_ = viper.BindEnv("CARD_ISSUANCE_FAILED_QUEUE")
	_ = viper.BindEnv("PUBLISH_TIMEOUT")
	_ = viper.BindEnv("REANALYSIS_SWEEP_SCHEDULE")
	_ = viper.BindEnv("REANALYSIS_SWEEP_BATCH_SIZE")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}
