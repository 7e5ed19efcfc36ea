package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Strano/internal/domain"
)

func TestRoutingKeyFor(t *testing.T) {
	tests := []struct {
		status domain.DeploymentStatus
		want   RoutingKey
	}{
		{domain.DeploymentStatusRunning, "deployment.started"},
		{domain.DeploymentStatusSucceeded, "deployment.succeeded"},
		{domain.DeploymentStatusFailed, "deployment.failed"},
		{domain.DeploymentStatusPending, "deployment.pending"},
		{domain.DeploymentStatus("CANCELLED"), "deployment.cancelled"},
	}

	for _, tt := range tests {
		if got := RoutingKeyFor(tt.status); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.status, tt.want, got)
		}
	}
}

func TestNewDeploymentEvent(t *testing.T) {
	d := domain.NewDeployment("deploy", []string{"web1"})
	d.MarkRunning()
	d.Release = "20230103000000"
	d.MarkFailed("exit status 1")

	event := NewDeploymentEvent(d)

	if event.DeploymentID != d.ID || event.Task != "deploy" || event.Status != domain.DeploymentStatusFailed {
		t.Errorf("unexpected event: %+v", event)
	}
	if event.Release != "20230103000000" || event.Error != "exit status 1" {
		t.Errorf("release and error should be copied: %+v", event)
	}
}

func publishedBody(t *testing.T, d *domain.Deployment) []byte {
	t.Helper()

	body, err := json.Marshal(Message{
		ID:        "m1",
		Type:      MessageType(RoutingKeyFor(d.Status)),
		Payload:   NewDeploymentEvent(d),
		Timestamp: time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestDecodeEvent(t *testing.T) {
	d := domain.NewDeployment("rollback", []string{"web1", "web2"})
	d.MarkRunning()

	event, err := DecodeEvent(publishedBody(t, d))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Deployment.DeploymentID != d.ID || len(event.Deployment.Hosts) != 2 || event.Deployment.Status != domain.DeploymentStatusRunning {
		t.Errorf("unexpected event: %+v", event)
	}
	if event.ID != "m1" || event.Type != "deployment.started" || event.Timestamp.Year() != 2023 {
		t.Errorf("unexpected envelope: %+v", event)
	}
}

func TestDecodeEvent_Foreign(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "hello"},
		{"no payload", `{"id":"x","type":"other"}`},
		{"other payload", `{"id":"x","type":"other","payload":{"flow_id":"abc"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeEvent([]byte(tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := DecodeEvent([]byte(`{"id":"x","payload":{}}`))
	if !errors.Is(err, ErrNotDeploymentEvent) {
		t.Errorf("expected ErrNotDeploymentEvent, got %v", err)
	}
}

func TestTail_DrainSkipsForeignMessages(t *testing.T) {
	first := domain.NewDeployment("deploy", []string{"web1"})
	first.MarkRunning()
	second := domain.NewDeployment("cleanup", []string{"web1"})
	second.MarkRunning()
	second.MarkSucceeded()

	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- amqp.Delivery{Body: publishedBody(t, first)}
	deliveries <- amqp.Delivery{Body: []byte(`{"id":"x","payload":{"flow_id":"abc"}}`)}
	deliveries <- amqp.Delivery{Body: publishedBody(t, second)}
	close(deliveries)

	tail := NewTail(nil, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if tail.pattern != RoutingKeyAll {
		t.Errorf("expected default pattern %s, got %s", RoutingKeyAll, tail.pattern)
	}

	var got []Event
	tail.drain(context.Background(), deliveries, func(_ context.Context, e Event) {
		got = append(got, e)
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Deployment.DeploymentID != first.ID || got[1].Deployment.Status != domain.DeploymentStatusSucceeded {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestTail_DrainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tail := NewTail(nil, "deployment.failed", nil)
	tail.drain(ctx, make(chan amqp.Delivery), func(context.Context, Event) {
		t.Error("handler must not be called")
	})
}

func TestNewConnection_NoURL(t *testing.T) {
	if _, err := NewConnection("", nil); !errors.Is(err, ErrNoURL) {
		t.Errorf("expected ErrNoURL, got %v", err)
	}
}

func TestWithChannel_NoChannel(t *testing.T) {
	c := &Connection{}

	err := c.WithChannel(context.Background(), nil)
	if !errors.Is(err, ErrNoChannel) {
		t.Errorf("expected ErrNoChannel, got %v", err)
	}
	if c.IsConnected() {
		t.Error("empty connection should not report connected")
	}
}

func TestTopologyInfo(t *testing.T) {
	info := TopologyInfo()
	for _, name := range []string{string(ExchangeDeployments), string(QueueDeploymentEvents)} {
		if !strings.Contains(info, name) {
			t.Errorf("topology info should mention %s", name)
		}
	}
}
