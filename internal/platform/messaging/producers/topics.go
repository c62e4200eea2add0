package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	topicReadAttempts = 5
	topicReadBackoff  = 2 * time.Second
)

// topicSpec describes a topic to provision. Zero partitions or replicas mean 1.
type topicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
}

// ensureTopic creates the topic when its partitions cannot be read, retrying the read first
func ensureTopic(admin topicAdmin, spec topicSpec, backoff time.Duration, log *slog.Logger) error {
	var (
		partitions []kafka.Partition
		err        error
	)

	for i := 0; i < topicReadAttempts; i++ {
		partitions, err = admin.ReadPartitions(spec.Name)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "topic", spec.Name, "attempt", i+1, "error", err)
		time.Sleep(backoff)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", spec.Name, "partitions", len(partitions))
		return nil
	}

	cfg := kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.NumPartitions,
		ReplicationFactor: spec.ReplicationFactor,
	}
	if cfg.NumPartitions <= 0 {
		cfg.NumPartitions = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}

	log.Info("Creating Kafka topic", "topic", spec.Name, "partitions", cfg.NumPartitions)
	if err := admin.CreateTopics(cfg); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", spec.Name, err)
	}
	return nil
}

// dialAndEnsureTopic opens an admin connection to brokers and provisions the topic
func dialAndEnsureTopic(brokers string, spec topicSpec, log *slog.Logger) error {
	conn, err := kafka.Dial("tcp", brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	return ensureTopic(conn, spec, topicReadBackoff, log)
}
