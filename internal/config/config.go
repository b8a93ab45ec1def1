// Package config loads runtime configuration from viper, which merges
// flag values, env vars, and defaults set up by the cobra command in
// cmd/retroboard.
package config

import "github.com/spf13/viper"

// Config holds all runtime configuration for the retrospective board
// server.
type Config struct {
	DBPath                            string
	HTTPPort                          int
	PresenceWindowSeconds             int
	ShareableLinkLength               int
	ShareableLinkRetryCount           int
	SubscriberHeartbeatTimeoutSeconds int
	SubscriberSendQueueCapacity       int
	AdminSecret                       string
	DefaultCardLimit                  int // 0 means unlimited
	DefaultReactionLimit              int // 0 means unlimited
}

// Load reads configuration from viper.
func Load() Config {
	return Config{
		DBPath:                            viper.GetString("db_path"),
		HTTPPort:                          viper.GetInt("http_port"),
		PresenceWindowSeconds:             viper.GetInt("presence_window_seconds"),
		ShareableLinkLength:               viper.GetInt("shareable_link_length"),
		ShareableLinkRetryCount:           viper.GetInt("shareable_link_retry_count"),
		SubscriberHeartbeatTimeoutSeconds: viper.GetInt("subscriber_heartbeat_timeout_seconds"),
		SubscriberSendQueueCapacity:       viper.GetInt("subscriber_send_queue_capacity"),
		AdminSecret:                       viper.GetString("admin_secret"),
		DefaultCardLimit:                  viper.GetInt("default_card_limit"),
		DefaultReactionLimit:              viper.GetInt("default_reaction_limit"),
	}
}
