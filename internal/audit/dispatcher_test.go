package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/internal/logging"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) record(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg+" "+fmt.Sprint(args...))
}

func (l *recordingLogger) Info(_ context.Context, msg string, args ...any) {
	l.record("INFO", msg, args...)
}
func (l *recordingLogger) Warn(_ context.Context, msg string, args ...any) {
	l.record("WARN", msg, args...)
}
func (l *recordingLogger) Error(_ context.Context, msg string, args ...any) {
	l.record("ERROR", msg, args...)
}
func (l *recordingLogger) With(...any) logging.Logger { return l }

func (l *recordingLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []Event
}

func (s *blockingSink) Emit(ctx context.Context, e Event) {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, e)
	s.mu.Unlock()
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher should report zero drops")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_failure"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink and a tiny buffer")
	}
	close(sink.release)
	d.Close()
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{EventType: "signup", Identity: "a@example.com"})
	}
	d.Close()

	timeout := time.After(time.Second)
	for i := 0; i < 3; i++ {
		select {
		case e := <-sink.Events():
			if e.Identity != "a@example.com" {
				t.Fatalf("unexpected event %+v", e)
			}
		case <-timeout:
			t.Fatalf("expected 3 drained events, got %d", i)
		}
	}

	d.Emit(context.Background(), Event{EventType: "after_close"})
	if d.Flushed() != 3 {
		t.Fatalf("expected 3 flushed events, got %d", d.Flushed())
	}
}

func TestDispatcherLogsDropsOnce(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	log := &recordingLogger{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true, Logger: log}, sink)

	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), Event{EventType: "login_failure", Identity: "a@example.com"})
	}
	if d.Dropped() < 2 {
		t.Fatalf("expected several drops, got %d", d.Dropped())
	}
	if got := log.count("WARN audit event dropped"); got != 1 {
		t.Fatalf("expected exactly one drop warning, got %d", got)
	}

	close(sink.release)
	d.Close()
	if got := log.count("INFO audit dispatcher closed"); got != 1 {
		t.Fatalf("expected one close summary, got %d", got)
	}
}

func TestDispatcherBlockingEmitHonorsContext(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.release)
		d.Close()
	}()

	// One event is held by the sink, one fills the buffer.
	d.Emit(context.Background(), Event{EventType: "signup_success"})
	d.Emit(context.Background(), Event{EventType: "signup_success"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "signup_success"})
	if d.Dropped() != 1 {
		t.Fatalf("expected the timed-out event to count as dropped, got %d", d.Dropped())
	}
}

func TestDispatcherConcurrentEmitAndClose(t *testing.T) {
	sink := NewChannelSink(4096)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				d.Emit(context.Background(), Event{EventType: "refresh_success"})
			}
		}()
	}
	time.Sleep(time.Millisecond)
	d.Close()
	wg.Wait()

	// Every event that was accepted must have reached the sink.
	if got := uint64(len(sink.Events())); got != d.Flushed() {
		t.Fatalf("sink holds %d events, dispatcher flushed %d", got, d.Flushed())
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "role_changed", Identity: "b@example.com", Actor: "a@example.com", Success: true})

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("invalid json line %q: %v", line, err)
	}
	if decoded["actor"] != "a@example.com" || decoded["event_type"] != "role_changed" {
		t.Fatalf("unexpected payload: %v", decoded)
	}
}
