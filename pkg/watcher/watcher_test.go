package watcher

import (
	"context"
	"slices"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path     string
		want     ChangeType
		relevant bool
	}{
		{"/ws/Lib/Lib.csproj", ChangeTypeProject, true},
		{"/ws/Directory.Build.props", ChangeTypeProject, true},
		{"/ws/Lib/Foo.cs", ChangeTypeSource, true},
		{"/ws/Lib/Foo.CS", ChangeTypeSource, true},
		{"/ws/README.md", 0, false},
		{"/ws/Lib/Foo.cs.swp", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := Classify(tt.path)
			if ok != tt.relevant || (ok && got != tt.want) {
				t.Errorf("Classify(%q) = %v, %v; want %v, %v", tt.path, got, ok, tt.want, tt.relevant)
			}
		})
	}
}

func TestAnalyzeChanges(t *testing.T) {
	project := AnalyzeChanges(ChangeEvent{Type: ChangeTypeProject, Paths: []string{"/ws/Lib/Lib.csproj"}}, "/ws")
	if !project.NeedReloadUnits || project.Reason != "project changed: Lib/Lib.csproj" {
		t.Errorf("project change = %+v", project)
	}

	source := AnalyzeChanges(ChangeEvent{Type: ChangeTypeSource, Paths: []string{"/ws/A.cs", "/ws/B.cs"}}, "/ws")
	if source.NeedReloadUnits || source.Reason != "sources changed: A.cs and 1 more" {
		t.Errorf("source change = %+v", source)
	}
}

func TestDebouncer(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 20*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeSource, Paths: []string{"/ws/B.cs"}}
	input <- ChangeEvent{Type: ChangeTypeSource, Paths: []string{"/ws/A.cs", "/ws/B.cs"}}
	input <- ChangeEvent{Type: ChangeTypeProject, Paths: []string{"/ws/Lib.csproj"}}

	var got []ChangeEvent
	for len(got) < 2 {
		select {
		case ev := <-d.Output():
			got = append(got, ev)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for debounced events, got %d", len(got))
		}
	}

	if got[0].Type != ChangeTypeProject {
		t.Errorf("first event type = %v, want project", got[0].Type)
	}
	if got[1].Type != ChangeTypeSource || !slices.Equal(got[1].Paths, []string{"/ws/A.cs", "/ws/B.cs"}) {
		t.Errorf("source event = %+v, want deduplicated sorted paths", got[1])
	}

	select {
	case ev := <-d.Output():
		t.Errorf("unexpected extra event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncerFlushesOnClose(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, time.Hour, time.Hour)
	d.Start(context.Background())

	input <- ChangeEvent{Type: ChangeTypeSource, Paths: []string{"/ws/A.cs"}}
	close(input)

	ev, ok := <-d.Output()
	if !ok || ev.Type != ChangeTypeSource {
		t.Fatalf("expected pending event on close, got %+v, %v", ev, ok)
	}
	if _, ok := <-d.Output(); ok {
		t.Error("output should be closed after the input closes")
	}
}
