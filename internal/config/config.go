/**
 * @description
 * This file handles configuration management for the billing service.
 * It loads settings from environment variables, providing defaults for
 * cron schedules and referral payout amounts.
 */
package config

import (
	"github.com/spf13/viper"
)

// Config holds all configuration for the billing service.
type Config struct {
	Port                   string `mapstructure:"PORT"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	AMQPURL                string `mapstructure:"AMQP_URL"`
	StripeAPIKey           string `mapstructure:"STRIPE_API_KEY"`
	StripeWebhookSecret    string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	AdminJWTSecret         string `mapstructure:"ADMIN_JWT_SECRET"`
	PayoutJobSchedule      string `mapstructure:"PAYOUT_JOB_SCHEDULE"`
	GraceSweepSchedule     string `mapstructure:"GRACE_SWEEP_SCHEDULE"`
	ReferralPayoutAmount   int64  `mapstructure:"REFERRAL_PAYOUT_AMOUNT"`
	ReferralPayoutCurrency string `mapstructure:"REFERRAL_PAYOUT_CURRENCY"`
	MaxPayoutAttempts      int    `mapstructure:"MAX_PAYOUT_ATTEMPTS"`
	GiftCardAPIURL         string `mapstructure:"GIFTCARD_API_URL"`
	GiftCardAPIKey         string `mapstructure:"GIFTCARD_API_KEY"`
	WalletAPIURL           string `mapstructure:"WALLET_API_URL"`
	WalletAPIKey           string `mapstructure:"WALLET_API_KEY"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	viper.SetDefault("PORT", "8086")
	viper.SetDefault("PAYOUT_JOB_SCHEDULE", "0 * * * *")      // Hourly.
	viper.SetDefault("GRACE_SWEEP_SCHEDULE", "30 * * * *")    // Hourly, offset from payouts.
	viper.SetDefault("REFERRAL_PAYOUT_AMOUNT", 1000)          // $10.00 in minor units.
	viper.SetDefault("REFERRAL_PAYOUT_CURRENCY", "usd")
	viper.SetDefault("MAX_PAYOUT_ATTEMPTS", 10)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("AMQP_URL")
	_ = viper.BindEnv("STRIPE_API_KEY")
	_ = viper.BindEnv("STRIPE_WEBHOOK_SECRET")
	_ = viper.BindEnv("ADMIN_JWT_SECRET")
	_ = viper.BindEnv("PAYOUT_JOB_SCHEDULE")
	_ = viper.BindEnv("GRACE_SWEEP_SCHEDULE")
	_ = viper.BindEnv("REFERRAL_PAYOUT_AMOUNT")
	_ = viper.BindEnv("REFERRAL_PAYOUT_CURRENCY")
	_ = viper.BindEnv("MAX_PAYOUT_ATTEMPTS")
	_ = viper.BindEnv("GIFTCARD_API_URL")
	_ = viper.BindEnv("GIFTCARD_API_KEY")
	_ = viper.BindEnv("WALLET_API_URL")
	_ = viper.BindEnv("WALLET_API_KEY")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
