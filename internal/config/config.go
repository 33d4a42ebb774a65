package config

import (
	"time"

	"github.com/spf13/viper"
	pkgconfig "github.com/tidelake/chatrelay/pkg/config"
	"github.com/tidelake/chatrelay/pkg/log"
)

type Config struct {
	Server     ServerConfig
	WebSocket  WebSocketConfig
	Hub        HubConfig
	Transcript TranscriptConfig
	Log        log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type HubConfig struct {
	// SendQueueSize bounds each member's outbound delivery queue.
	SendQueueSize int `mapstructure:"send_queue_size"`
	// MaxSendStrikes is the number of consecutive dropped deliveries
	// after which a stalled member is disconnected.
	MaxSendStrikes int `mapstructure:"max_send_strikes"`
}

type TranscriptConfig struct {
	Dir           string
	QueueSize     int           `mapstructure:"queue_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("hub.send_queue_size", 256)
	v.SetDefault("hub.max_send_strikes", 8)
	v.SetDefault("transcript.dir", "logs")
	v.SetDefault("transcript.queue_size", 4096)
	v.SetDefault("transcript.flush_interval", "1s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "chatrelay")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("transcript.dir", "TRANSCRIPT_DIR")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Transcript.FlushInterval = parseDuration(v, "transcript.flush_interval", time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
