package eventbus

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("build-1")
	defer unsub()

	b.Publish("build-1", TaskStarted("build-1", "task_001"))

	select {
	case ev := <-ch:
		if ev.Kind != KindTaskStarted || ev.TaskID != "task_001" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishDropsOldestWhenFull(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("build-1")
	defer unsub()

	for i := 0; i < topicCapacity+10; i++ {
		b.Publish("build-1", TaskStarted("build-1", "task"))
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			if count > topicCapacity {
				t.Fatalf("expected at most %d buffered events, got %d", topicCapacity, count)
			}
			return
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("s1")
	unsub()
	b.Publish("s1", TaskDone("b1", "t1"))

	_, open := <-ch
	if open {
		t.Fatal("expected channel closed after unsubscribe")
	}
}

func TestWriteSSEFormatsFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSSE(&buf, TaskDone("b1", "t1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "event: task_done\ndata: ") {
		t.Fatalf("unexpected frame: %q", out)
	}
	if !strings.HasSuffix(out, "\n\n") {
		t.Fatalf("expected frame terminated by blank line: %q", out)
	}
}

func TestWriteDoneFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDone(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "data: [DONE]\n\n" {
		t.Fatalf("unexpected frame: %q", buf.String())
	}
}
