package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ritzau/encap-analyzer/pkg/analysis"
)

func subscribe(t *testing.T, pub *SSEPublisher, topic string) Subscription {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sub, err := pub.Subscribe(ctx, topic)
	if err != nil {
		t.Fatalf("Subscribe(%s) error = %v", topic, err)
	}
	return sub
}

// next returns the next event, failing the test if none arrives
func next(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

// drained fails the test if an event is already waiting
func drained(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Errorf("unexpected event %s/%s version %d", ev.Topic, ev.Type, ev.Version)
	default:
	}
}

func decode[T any](t *testing.T, ev Event) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(ev.Data, &v); err != nil {
		t.Fatalf("decode %s event: %v", ev.Topic, err)
	}
	return v
}

func TestStatusReplaysLatestOnly(t *testing.T) {
	pub := NewAnalysisPublisher()
	defer pub.Close()

	for i, state := range []string{"loading", "analyzing", "ready"} {
		status := AnalysisStatus{State: state, Message: state + "...", Step: i + 1, Total: 4}
		if err := pub.Publish(TopicAnalysisStatus, state, status); err != nil {
			t.Fatalf("Publish(%s) error = %v", state, err)
		}
	}

	sub := subscribe(t, pub, TopicAnalysisStatus)
	ev := next(t, sub)
	if ev.Type != "ready" || ev.Version != 3 {
		t.Errorf("replayed %s version %d, want ready version 3", ev.Type, ev.Version)
	}
	got := decode[AnalysisStatus](t, ev)
	if got != (AnalysisStatus{State: "ready", Message: "ready...", Step: 3, Total: 4}) {
		t.Errorf("status = %+v", got)
	}
	drained(t, sub)
}

func TestProgressKeepsLatestTick(t *testing.T) {
	pub := NewAnalysisPublisher()
	defer pub.Close()

	ticks := []analysis.Progress{
		{Unit: "Lib", Phase: analysis.PhaseSearch, Current: 1, Total: 2, Symbol: "Lib.Used"},
		{Unit: "Lib", Phase: analysis.PhaseSearch, Current: 2, Total: 2, Symbol: "Lib.Unused"},
	}
	for _, p := range ticks {
		if err := pub.Publish(TopicProgress, string(p.Phase), p); err != nil {
			t.Fatal(err)
		}
	}

	sub := subscribe(t, pub, TopicProgress)
	got := decode[analysis.Progress](t, next(t, sub))
	if got != ticks[1] {
		t.Errorf("progress = %+v, want %+v", got, ticks[1])
	}
	drained(t, sub)
}

func TestReportReplaysSummary(t *testing.T) {
	pub := NewAnalysisPublisher()
	defer pub.Close()

	want := ReportSummary{RunID: "run-1", Units: 2, Candidates: 1, Fixed: true}
	if err := pub.Publish(TopicReport, "complete", want); err != nil {
		t.Fatal(err)
	}

	sub := subscribe(t, pub, TopicReport)
	ev := next(t, sub)
	if ev.Topic != TopicReport || ev.Type != "complete" {
		t.Errorf("event = %s/%s", ev.Topic, ev.Type)
	}
	if got := decode[ReportSummary](t, ev); got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}
}

func TestLiveEventsFollowReplay(t *testing.T) {
	pub := NewAnalysisPublisher()
	defer pub.Close()

	pub.Publish(TopicAnalysisStatus, "loading", AnalysisStatus{State: "loading"})
	sub := subscribe(t, pub, TopicAnalysisStatus)
	pub.Publish(TopicAnalysisStatus, "analyzing", AnalysisStatus{State: "analyzing"})

	for _, want := range []string{"loading", "analyzing"} {
		if ev := next(t, sub); ev.Type != want {
			t.Errorf("event = %s, want %s", ev.Type, want)
		}
	}

	// Other topics are not delivered
	pub.Publish(TopicReport, "complete", ReportSummary{RunID: "run-2"})
	drained(t, sub)
}

func TestReplayAllTopic(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()
	pub.ConfigureTopic("history", TopicConfig{BufferSize: 3, ReplayAll: true})

	for i := 1; i <= 5; i++ {
		pub.Publish("history", "tick", i)
	}

	sub := subscribe(t, pub, "history")
	for want := 3; want <= 5; want++ {
		if got := decode[int](t, next(t, sub)); got != want {
			t.Errorf("replayed %d, want %d", got, want)
		}
	}
	drained(t, sub)
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	pub := NewAnalysisPublisher()
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := pub.Subscribe(ctx, TopicProgress)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("received an event, want closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}

	// Closing again and publishing afterwards are both harmless
	if err := sub.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := pub.Publish(TopicProgress, "search-references", analysis.Progress{Unit: "Lib"}); err != nil {
		t.Errorf("Publish() after unsubscribe error = %v", err)
	}
}

func TestClosedPublisher(t *testing.T) {
	pub := NewAnalysisPublisher()
	sub := subscribe(t, pub, TopicReport)

	if err := pub.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-sub.Events(); ok {
		t.Error("subscription still open after publisher Close")
	}
	if err := pub.Publish(TopicReport, "complete", ReportSummary{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() error = %v, want ErrClosed", err)
	}
	if _, err := pub.Subscribe(context.Background(), TopicReport); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe() error = %v, want ErrClosed", err)
	}
	if err := sub.Close(); err != nil {
		t.Errorf("sub.Close() after publisher Close error = %v", err)
	}
}

func TestWriteSSE(t *testing.T) {
	data, _ := json.Marshal(AnalysisStatus{State: "ready", Step: 4, Total: 4})
	ev := Event{Topic: TopicAnalysisStatus, Type: "ready", Data: data, Version: 7}

	var buf bytes.Buffer
	if err := WriteSSE(&buf, ev); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "id: 7\ndata: {") || !strings.HasSuffix(out, "}\n\n") {
		t.Errorf("framing = %q", out)
	}
	payload := strings.TrimSuffix(strings.TrimPrefix(out, "id: 7\ndata: "), "\n\n")
	var back Event
	if err := json.Unmarshal([]byte(payload), &back); err != nil {
		t.Fatalf("data line is not JSON: %v", err)
	}
	if got := decode[AnalysisStatus](t, back); got.State != "ready" || got.Step != 4 {
		t.Errorf("status = %+v", got)
	}
}
