package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/twmb/franz-go/pkg/kgo"

	"mediawire/internal/protocol"
)

func TestKafkaContainerIntegration(t *testing.T) {
	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("docker/container runtime unavailable: %v", r)
		}
	}()

	req := testcontainers.ContainerRequest{
		Image:        "docker.redpanda.com/redpandadata/redpanda:v24.1.8",
		ExposedPorts: []string{"9092/tcp"},
		Cmd:          []string{"redpanda", "start", "--overprovisioned", "--smp", "1", "--memory", "512M", "--reserve-memory", "0M", "--check=false", "--node-id", "0", "--kafka-addr", "0.0.0.0:9092", "--advertise-kafka-addr", "127.0.0.1:9092"},
		WaitingFor:   wait.ForLog("Successfully started Redpanda"),
	}
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("docker/container runtime unavailable: %v", err)
	}
	defer func() { _ = ctr.Terminate(ctx) }()

	host, _ := ctr.Host(ctx)
	port, _ := ctr.MappedPort(ctx, "9092")
	broker := fmt.Sprintf("%s:%s", host, port.Port())

	codec := testCodec(t)
	pub, err := NewKafkaPublisher(KafkaConfig{Enabled: true, Brokers: []string{broker}, Topic: "announce"})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer pub.Close()

	msg := testNotify(t)
	payload, err := codec.Dump(msg)
	if err != nil {
		t.Fatal(err)
	}
	produceCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pub.Publish(produceCtx, msg.Stream.String(), payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	consumer, err := kgo.NewClient(kgo.SeedBrokers(broker), kgo.ConsumeTopics("announce"))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	defer consumer.Close()

	consumeCtx, cancelConsume := context.WithTimeout(ctx, 10*time.Second)
	defer cancelConsume()
	fetches := consumer.PollFetches(consumeCtx)
	if errs := fetches.Errors(); len(errs) > 0 {
		t.Fatalf("poll: %v", errs[0].Err)
	}
	records := fetches.Records()
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	decoded, err := codec.DecodeMessage(records[0].Value)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := decoded.(protocol.NotifyMessage)
	if !ok || got.Stream != msg.Stream {
		t.Fatalf("bad decode: %+v", decoded)
	}
}
