package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatrail/internal/platform/config"
)

func TestNewClient_DisabledWithoutBrokers(t *testing.T) {
	client, err := NewClient(config.KafkaConfig{Topic: "datatrail.audit"})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewClient_DoesNotDial(t *testing.T) {
	client, err := NewClient(config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}, Topic: "datatrail.audit"})
	require.NoError(t, err)
	require.NotNil(t, client)
	client.Close()
}
