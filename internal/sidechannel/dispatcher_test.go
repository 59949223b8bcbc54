package sidechannel

import (
	"testing"
	"time"
)

func TestDispatchCursorMonotonic(t *testing.T) {
	feed := NewFeed()
	d := NewDispatcher()
	var seen []string
	d.HandleDefault(func(ev Event) {
		seen = append(seen, ev.ImageID)
	})

	feed.Append(Event{Kind: ImageGenerating, ImageID: "1"})
	feed.Append(Event{Kind: ImageCreated, ImageID: "2"})
	if n := d.Dispatch(feed.Snapshot()); n != 2 {
		t.Fatalf("first dispatch handled %d, want 2", n)
	}

	// 同一状态被重复派发（重渲染）不产生重复处理。
	if n := d.Dispatch(feed.Snapshot()); n != 0 {
		t.Fatalf("redispatch handled %d, want 0", n)
	}

	feed.Append(Event{Kind: ImageEditing, ImageID: "3"})
	feed.Append(Event{Kind: ImageEdited, ImageID: "4"})
	feed.Append(Event{Kind: LogoCreated, ImageID: "5"})
	if n := d.Dispatch(feed.Snapshot()); n != 3 {
		t.Fatalf("grown feed handled %d, want 3", n)
	}

	want := []string{"1", "2", "3", "4", "5"}
	if len(seen) != len(want) {
		t.Fatalf("seen %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("out of order at %d: %v", i, seen)
		}
	}
	if d.Cursor() != 5 {
		t.Fatalf("cursor %d, want 5", d.Cursor())
	}
}

func TestDispatchSkipsStaleSnapshot(t *testing.T) {
	feed := NewFeed()
	d := NewDispatcher()
	handled := 0
	d.HandleDefault(func(Event) { handled++ })

	old := feed.Snapshot()
	feed.Append(Event{Kind: ImageCreated, ImageID: "1"})
	feed.Append(Event{Kind: ImageCreated, ImageID: "2"})
	d.Dispatch(feed.Snapshot())
	if n := d.Dispatch(old); n != 0 {
		t.Fatalf("stale snapshot handled %d, want 0", n)
	}
	if handled != 2 {
		t.Fatalf("handled %d, want 2", handled)
	}
}

func TestDispatchRoutesByKind(t *testing.T) {
	d := NewDispatcher()
	var created, fallback int
	d.Handle(ImageCreated, func(Event) { created++ })
	d.HandleDefault(func(Event) { fallback++ })

	d.Dispatch([]Event{
		{Kind: ImageCreated},
		{Kind: LogoError},
		{Kind: ImageCreated},
	})
	if created != 2 || fallback != 1 {
		t.Fatalf("created=%d fallback=%d", created, fallback)
	}
}

func TestFeedSubscribeNotifies(t *testing.T) {
	feed := NewFeed()
	sub := feed.Subscribe()

	feed.Append(Event{Kind: ImageGenerating, ImageID: "1"})
	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for wakeup")
	}
	if feed.Len() != 1 {
		t.Fatalf("len %d", feed.Len())
	}

	feed.Close()
	select {
	case _, ok := <-sub:
		if ok {
			// 关闭前缓冲里可能还有一次唤醒，排空后通道必须关闭。
			if _, ok := <-sub; ok {
				t.Fatal("channel still open after close")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for close")
	}
}

func TestFeedAppendAfterCloseDropped(t *testing.T) {
	feed := NewFeed()
	feed.Close()
	feed.Append(Event{Kind: ImageCreated})
	if feed.Len() != 0 {
		t.Fatalf("append after close stored event")
	}
}
