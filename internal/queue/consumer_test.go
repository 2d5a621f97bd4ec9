package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeDeliveriesForwardsAndTags(t *testing.T) {
	a := make(chan amqp.Delivery, 1)
	b := make(chan amqp.Delivery, 1)
	a <- amqp.Delivery{Body: []byte("a")}                                  // no routing key
	b <- amqp.Delivery{RoutingKey: "explicit.key", Body: []byte("b")}
	close(a)
	close(b)

	merged := mergeDeliveries(map[string]<-chan amqp.Delivery{
		QueueUserCreated:     a,
		QueueVerifyRequested: b,
	})

	got := map[string]string{}
	for d := range merged {
		got[string(d.Body)] = d.RoutingKey
	}
	assert.Equal(t, QueueUserCreated, got["a"])
	assert.Equal(t, "explicit.key", got["b"])
}

func TestMergeDeliveriesClosesWhenInputsClose(t *testing.T) {
	a := make(chan amqp.Delivery)
	b := make(chan amqp.Delivery)
	merged := mergeDeliveries(map[string]<-chan amqp.Delivery{
		QueueUserCreated:            a,
		QueuePasswordResetRequested: b,
	})

	// Consume channels all close when the broker connection drops; the
	// merged channel must follow so the consume loop can reconnect.
	close(a)
	close(b)

	select {
	case _, open := <-merged:
		assert.False(t, open, "merged channel must be closed, not carrying data")
	case <-time.After(2 * time.Second):
		t.Fatal("merged channel did not close after all inputs closed")
	}
}

func TestHandleMessageWritesEmailLine(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg := EmailConsumerConfig{FromName: "Auth Service", FromAddress: "no-reply@localhost", BaseURL: "http://localhost:8080"}
	body, err := json.Marshal(UserCreatedEvent{UserID: 1, Email: "new@example.com", VerifyToken: "tok123"})
	require.NoError(t, err)

	require.NoError(t, handleMessage(QueueUserCreated, body, cfg))

	data, err := os.ReadFile(filepath.Join(dir, "logs", "email.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "to=new@example.com")
	assert.Contains(t, string(data), "/auth/verify_email?token=tok123")
}

func TestHandleMessageRejectsUnknownQueue(t *testing.T) {
	err := handleMessage("no.such.queue", []byte("{}"), EmailConsumerConfig{})
	require.Error(t, err)
}

func TestHandleMessageRejectsMalformedBody(t *testing.T) {
	err := handleMessage(QueueUserCreated, []byte("not json"), EmailConsumerConfig{})
	require.Error(t, err)
}
