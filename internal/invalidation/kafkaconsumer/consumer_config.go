package kafkaconsumer

import (
	"strings"
	"time"

	"github.com/mohammed-shakir/bkk-condo-map/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	RetryBackoff        time.Duration
}

func FromConfig(c config.InvalidationCfg) Config {
	return Config{
		Brokers:          splitCSV(c.Brokers),
		Topic:            c.Topic,
		GroupID:          c.GroupID,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		// replicas only care about reloads published while they run
		InitialOffsetOldest: false,
		RetryBackoff:        2 * time.Second,
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
