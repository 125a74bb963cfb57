package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	CourierLog CourierLogConfig `yaml:"courierlog"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	NotificationsTopicName string `yaml:"notifications_topic_name"`
	OrderCapturedTopicName string `yaml:"order_captured_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type CourierLogConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	SummaryTTLSeconds int `yaml:"summary_ttl_seconds"`

	// Delivery-platform package identifiers; substring, case-insensitive.
	SourceAllowList []string `yaml:"source_allow_list"`

	// Acceptance window for a single location delta.
	MinDeltaMeters float64 `yaml:"min_delta_meters"`
	MaxDeltaMeters float64 `yaml:"max_delta_meters"`

	SamplesPerMinute int `yaml:"samples_per_minute"`

	SaverQueueSize int `yaml:"saver_queue_size"`
	SaverWorkers   int `yaml:"saver_workers"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
