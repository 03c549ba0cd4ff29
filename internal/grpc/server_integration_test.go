package grpc_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/spbu-ds-practicum-2025/example-project/services/ledger-service/internal/events"
)

// TestTransferIntegration is a full end-to-end integration test.
// It spins up a RabbitMQ container, starts a gRPC server, executes a transfer,
// and verifies the event was published to RabbitMQ.
func TestTransferIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start RabbitMQ container
	rabbitContainer, rabbitURL := startRabbitMQContainer(t, ctx)
	defer func() {
		if err := rabbitContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	}()

	// Initialize RabbitMQ publisher
	exchange := "ledger.operations"
	publisher, err := events.NewRabbitMQPublisher(rabbitURL, exchange, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create rabbitmq publisher: %v", err)
	}
	defer publisher.Close()

	client, ledger := startTestServer(t, publisher)

	// Setup RabbitMQ consumer to capture published events
	eventChan := make(chan map[string]interface{}, 1)
	stopConsumer := startEventConsumer(t, rabbitURL, exchange, events.RoutingKeyTransferCompleted, eventChan)
	defer stopConsumer()

	sender := openAccount(t, client, "Alice", "1000.00")
	recipient := openAccount(t, client, "Bob", "500.00")

	// Execute transfer via gRPC
	idempotencyKey := uuid.New().String()
	transferReq := map[string]interface{}{
		"source_id":       sender,
		"destination_id":  recipient,
		"amount":          "100.50",
		"idempotency_key": idempotencyKey,
	}

	resp, err := client.Call(ctx, "Transfer", transferReq)
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	operationID := resp.GetFields()["operation_id"].GetStringValue()
	if operationID == "" {
		t.Error("expected non-empty operation_id")
	}

	// Verify balances changed
	senderResp, err := client.Call(ctx, "GetAccount", map[string]interface{}{"account_id": sender})
	if err != nil {
		t.Fatalf("GetAccount for sender failed: %v", err)
	}
	if got := senderResp.GetFields()["balance"].GetStringValue(); got != "899.50" {
		t.Errorf("expected sender balance 899.50, got %s", got)
	}

	recipientResp, err := client.Call(ctx, "GetAccount", map[string]interface{}{"account_id": recipient})
	if err != nil {
		t.Fatalf("GetAccount for recipient failed: %v", err)
	}
	if got := recipientResp.GetFields()["balance"].GetStringValue(); got != "600.50" {
		t.Errorf("expected recipient balance 600.50, got %s", got)
	}

	// Wait for event to be published and consumed
	select {
	case event := <-eventChan:
		if event["eventType"] != events.EventTypeTransferCompleted {
			t.Errorf("expected eventType %q, got %v", events.EventTypeTransferCompleted, event["eventType"])
		}
		if event["operationId"] != operationID {
			t.Errorf("expected operationId %s, got %v", operationID, event["operationId"])
		}
		if event["senderId"] != sender {
			t.Errorf("expected senderId %s, got %v", sender, event["senderId"])
		}
		if event["recipientId"] != recipient {
			t.Errorf("expected recipientId %s, got %v", recipient, event["recipientId"])
		}
		if event["idempotencyKey"] != idempotencyKey {
			t.Errorf("expected idempotencyKey %s, got %v", idempotencyKey, event["idempotencyKey"])
		}
		if event["amount"] != "100.50" {
			t.Errorf("expected amount 100.50, got %v", event["amount"])
		}

	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event to be published")
	}

	// Test idempotency: call again with same idempotency key
	resp2, err := client.Call(ctx, "Transfer", transferReq)
	if err != nil {
		t.Fatalf("second Transfer call failed: %v", err)
	}
	if got := resp2.GetFields()["operation_id"].GetStringValue(); got != operationID {
		t.Errorf("idempotent call returned different operation_id: %s vs %s", operationID, got)
	}

	senderResp2, _ := client.Call(ctx, "GetAccount", map[string]interface{}{"account_id": sender})
	if got := senderResp2.GetFields()["balance"].GetStringValue(); got != "899.50" {
		t.Errorf("sender balance changed on idempotent call: %s", got)
	}

	ledger.WaitForEvents()
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

	rabbitURL := fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
	return container, rabbitURL
}

// startEventConsumer starts a RabbitMQ consumer that listens for events and sends them to the channel.
func startEventConsumer(t *testing.T, rabbitURL, exchange, routingKey string, eventChan chan map[string]interface{}) func() {
	conn, err := amqp.Dial(rabbitURL)
	if err != nil {
		t.Fatalf("failed to connect to rabbitmq: %v", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		t.Fatalf("failed to open channel: %v", err)
	}

	// Declare exclusive queue for testing
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		t.Fatalf("failed to declare queue: %v", err)
	}

	// Bind queue to exchange with routing key
	if err := ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
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

	// Consume messages in background
	go func() {
		for msg := range msgs {
			var event map[string]interface{}
			if err := json.Unmarshal(msg.Body, &event); err != nil {
				t.Logf("failed to unmarshal event: %v", err)
				continue
			}
			select {
			case eventChan <- event:
			default:
			}
		}
	}()

	// Return cleanup function
	return func() {
		ch.Close()
		conn.Close()
	}
}
