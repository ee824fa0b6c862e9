package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alfredjeanlab/misp-purge/internal/model"
	"github.com/nats-io/nats.go"
)

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = &NoopPublisher{}
	if err := pub.Publish(context.Background(), TopicRunStarted, RunStarted{}); err != nil {
		t.Fatalf("Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close returned unexpected error: %v", err)
	}
}

func TestNATSPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestChunkTopic(t *testing.T) {
	for _, tc := range []struct {
		name  string
		chunk model.ChunkResult
		want  string
	}{
		{"Deleted", model.ChunkResult{Counters: model.Counters{Success: 10}}, TopicChunkDeleted},
		{"Failed", model.ChunkResult{Counters: model.Counters{Failed: 10}}, TopicChunkFailed},
		{"Empty", model.ChunkResult{}, TopicChunkDeleted},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := ChunkTopic(tc.chunk); got != tc.want {
				t.Errorf("ChunkTopic = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFinishTopic(t *testing.T) {
	for o, want := range map[model.Outcome]string{
		model.OutcomeCompleted: TopicRunCompleted,
		model.OutcomeSimulated: TopicRunCompleted,
		model.OutcomeAborted:   TopicRunAborted,
	} {
		if got := FinishTopic(o); got != want {
			t.Errorf("FinishTopic(%s) = %q, want %q", o, got, want)
		}
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicChunkDeleted, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := ChunkDone{
		RunID: "pr-abc",
		Chunk: model.ChunkResult{Index: 2, IDs: []model.ID{7, 8}, Counters: model.Counters{Success: 2}},
	}
	if err := pub.Publish(context.Background(), TopicChunkDeleted, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		var got ChunkDone
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.RunID != "pr-abc" || got.Chunk.Index != 2 || got.Chunk.Counters.Success != 2 {
			t.Errorf("got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_PublishAllTopics(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 8)
	sub, err := nc.ChanSubscribe(TopicAll, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	sent := []struct {
		topic string
		event any
	}{
		{TopicRunStarted, RunStarted{RunID: "pr-1", Mode: model.ModeEvents}},
		{TopicChunkFailed, ChunkDone{RunID: "pr-1"}},
		{TopicBlocklistDeleted, BlocklistDeleted{RunID: "pr-1", EventUUID: "u", OK: true}},
		{TopicRunAborted, RunFinished{RunID: "pr-1", Outcome: model.OutcomeAborted}},
	}
	for _, tc := range sent {
		if err := pub.Publish(context.Background(), tc.topic, tc.event); err != nil {
			t.Fatalf("Publish(%s): %v", tc.topic, err)
		}
	}
	pub.conn.Flush()

	for i := range sent {
		select {
		case msg := <-ch:
			if msg.Subject != sent[i].topic {
				t.Errorf("message %d subject = %q, want %q", i, msg.Subject, sent[i].topic)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, TopicRunStarted, RunStarted{}); err == nil {
		t.Error("expected error publishing with a canceled context")
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if err := pub.Publish(context.Background(), TopicRunStarted, RunStarted{}); err == nil {
		t.Error("expected error publishing after close")
	}
}
