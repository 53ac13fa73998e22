package producer

import (
	"context"
	"testing"
	"time"

	"runtelemetry/internal/telemetry/domain"
)

func TestNewKafkaProducer_DisabledWithoutBrokers(t *testing.T) {
	p, err := NewKafkaProducer(nil, "run-telemetry")
	if err != nil {
		t.Fatalf("NewKafkaProducer: %v", err)
	}
	if p != nil {
		t.Fatal("producer should be nil without brokers")
	}
	// nil producer is a no-op
	if err := p.Emit(context.Background(), &domain.Report{RunID: "r1"}); err != nil {
		t.Errorf("Emit on nil producer: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close on nil producer: %v", err)
	}
}

func TestMessage_KeyedByRunID(t *testing.T) {
	rep := &domain.Report{
		RunID:     "3f2a9b",
		Project:   "mnist",
		CreatedAt: time.Date(2021, 5, 4, 12, 0, 0, 0, time.UTC),
	}
	rep.Record.SetFramework("torch")
	rep.Record.InitImports().Torch = true

	msg, err := Message(rep)
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if string(msg.Key) != "3f2a9b" {
		t.Errorf("key = %q, want run id", msg.Key)
	}

	got, err := Decode(msg.Value)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.RunID != "3f2a9b" || got.Project != "mnist" {
		t.Errorf("decoded envelope = %+v", got)
	}
	if got.Record.GetFramework() != "torch" || !got.Record.ImportsInit.Torch {
		t.Errorf("decoded record = %+v", got.Record)
	}
	if got.Record.HasFeature() {
		t.Error("absent feature must stay absent after JSON")
	}
}

func TestMessage_NilReport(t *testing.T) {
	if _, err := Message(nil); err == nil {
		t.Error("Message(nil) should fail")
	}
}

func TestDecode_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{"not json", "{"},
		{"missing run id", `{"project":"p","record":{}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode([]byte(tc.value)); err == nil {
				t.Errorf("Decode(%s) should fail", tc.value)
			}
		})
	}
}
