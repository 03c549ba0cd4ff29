package events_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/domain"
	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/events"
)

// TestRabbitMQPublisherIntegration publishes both event kinds to a real broker
// and reads them back from a bound queue.
func TestRabbitMQPublisherIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	rabbitContainer, rabbitURL := startRabbitMQContainer(t, ctx)
	defer func() {
		if err := rabbitContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	}()

	exchange := "ledger.operations"
	publisher, err := events.NewRabbitMQPublisher(rabbitURL, exchange, nil)
	if err != nil {
		t.Fatalf("failed to create rabbitmq publisher: %v", err)
	}
	defer publisher.Close()

	eventChan := make(chan map[string]interface{}, 2)
	stopConsumer := startEventConsumer(t, rabbitURL, exchange, "ledger.#", eventChan)
	defer stopConsumer()

	tx := domain.NewTransaction("Salary", decimal.NewFromInt(200), domain.TransactionKindDeposit, time.Now())
	if err := publisher.PublishTransactionRecorded(ctx, 1000, tx); err != nil {
		t.Fatalf("PublishTransactionRecorded failed: %v", err)
	}

	transfer := &domain.Transfer{
		ID:            uuid.New(),
		SourceID:      1000,
		DestinationID: 1001,
		Amount:        decimal.RequireFromString("100.50"),
		CompletedAt:   time.Now(),
	}
	if err := publisher.PublishTransferCompleted(ctx, transfer); err != nil {
		t.Fatalf("PublishTransferCompleted failed: %v", err)
	}

	received := map[string]map[string]interface{}{}
	for len(received) < 2 {
		select {
		case event := <-eventChan:
			received[fmt.Sprint(event["eventType"])] = event
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for events, got %d", len(received))
		}
	}

	recorded := received[events.EventTypeTransactionRecorded]
	if recorded["accountId"] != "1000" || recorded["amount"] != "200.00" {
		t.Errorf("unexpected transaction event: %v", recorded)
	}
	completed := received[events.EventTypeTransferCompleted]
	if completed["operationId"] != transfer.ID.String() || completed["amount"] != "100.50" {
		t.Errorf("unexpected transfer event: %v", completed)
	}
}

// startRabbitMQContainer starts a RabbitMQ testcontainer and returns the AMQP URL.
func startRabbitMQContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-management",
		ExposedPorts: []string{"5672/tcp", "15672/tcp"},
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": "guest",
			"RABBITMQ_DEFAULT_PASS": "guest",
		},
		WaitingFor: wait.ForLog("Server startup complete"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start rabbitmq container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get rabbitmq host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5672")
	if err != nil {
		t.Fatalf("failed to get rabbitmq port: %v", err)
	}

	return container, fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

// startEventConsumer binds an exclusive queue and forwards decoded events to eventChan.
func startEventConsumer(t *testing.T, rabbitURL, exchange, bindingKey string, eventChan chan map[string]interface{}) func() {
	conn, err := amqp.Dial(rabbitURL)
	if err != nil {
		t.Fatalf("failed to connect to rabbitmq: %v", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		t.Fatalf("failed to open channel: %v", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		t.Fatalf("failed to declare queue: %v", err)
	}

	if err := ch.QueueBind(q.Name, bindingKey, exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		t.Fatalf("failed to bind queue: %v", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		t.Fatalf("failed to start consuming: %v", err)
	}

	go func() {
		for msg := range msgs {
			var event map[string]interface{}
			if err := json.Unmarshal(msg.Body, &event); err != nil {
				t.Logf("failed to unmarshal event: %v", err)
				continue
			}
			eventChan <- event
		}
	}()

	return func() {
		ch.Close()
		conn.Close()
	}
}
