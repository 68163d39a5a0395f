//go:build integration

package containers

import (
	"context"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/redpanda"
)

// RedpandaContainer wraps a Kafka-compatible broker.
type RedpandaContainer struct {
	Container *redpanda.Container
	Broker    string
}

var (
	rpOnce sync.Once
	rpC    *RedpandaContainer
	rpErr  error
)

// GetRedpandaContainer returns the shared broker container.
func GetRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()
	rpOnce.Do(func() {
		rpC, rpErr = startRedpanda(context.Background())
	})
	if rpErr != nil {
		t.Fatalf("failed to start redpanda container: %v", rpErr)
	}
	return rpC
}

func startRedpanda(ctx context.Context) (*RedpandaContainer, error) {
	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.2.4")
	if err != nil {
		return nil, err
	}
	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	return &RedpandaContainer{Container: container, Broker: broker}, nil
}
