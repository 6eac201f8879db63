package config

import (
	"time"

	"github.com/subcycle/subcycle/internal/types"
)

// Webhook represents the configuration for inbound webhook processing.
// Deliveries are acknowledged immediately and processed off a message
// router so a slow downstream never trips the gateway's retry timer.
type Webhook struct {
	Topic           string           `mapstructure:"topic" default:"gateway_webhooks"`
	PubSub          types.PubSubType `mapstructure:"pubsub" default:"memory"`
	MaxRetries      int              `mapstructure:"max_retries" default:"5"`
	InitialInterval time.Duration    `mapstructure:"initial_interval" default:"1s"`
	MaxInterval     time.Duration    `mapstructure:"max_interval" default:"1m"`
	Multiplier      float64          `mapstructure:"multiplier" default:"2"`
	MaxElapsedTime  time.Duration    `mapstructure:"max_elapsed_time" default:"10m"`
	// DedupTTL bounds how long processed webhook event ids are remembered.
	DedupTTL time.Duration `mapstructure:"dedup_ttl" default:"24h"`
}

func DefaultWebhookConfig() Webhook {
	return Webhook{
		Topic:           types.TopicInboundWebhooks,
		PubSub:          types.MemoryPubSub,
		MaxRetries:      5,
		InitialInterval: time.Second,
		MaxInterval:     time.Minute,
		Multiplier:      2,
		MaxElapsedTime:  10 * time.Minute,
		DedupTTL:        24 * time.Hour,
	}
}
