package sidechannel

import (
	"sync"
	"time"
)

// EventKind 标记一条带外通知的类型。
type EventKind string

const (
	ImageGenerating EventKind = "imageGenerating"
	ImageCreated    EventKind = "imageCreated"
	ImageEditing    EventKind = "imageEditing"
	ImageEdited     EventKind = "imageEdited"
	LogoGenerating  EventKind = "logoGenerating"
	LogoCreated     EventKind = "logoCreated"
	ImageError      EventKind = "imageError"
	LogoError       EventKind = "logoError"
)

// Event 是主转录流之外的进度/状态通知。
type Event struct {
	Kind      EventKind
	ImageID   string
	URL       string
	Message   string
	Timestamp time.Time
}

// Feed 是只追加的事件序列。生产方（工具执行器）Append，消费方通过
// Snapshot 拿到完整序列交给 Dispatcher 按游标处理。Subscribe 返回
// 尽力而为的唤醒通道，慢消费者不会阻塞生产方。
type Feed struct {
	mu     sync.Mutex
	events []Event
	subs   []chan struct{}
	closed bool
}

func NewFeed() *Feed {
	return &Feed{}
}

// Append 追加一条事件并唤醒订阅者。
func (f *Feed) Append(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.events = append(f.events, ev)
	subs := f.subs
	f.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Snapshot 返回当前事件序列的副本。
func (f *Feed) Snapshot() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event{}, f.events...)
}

// Len 返回事件条数。
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// Subscribe 订阅追加唤醒。通道会在 Close 时关闭。
func (f *Feed) Subscribe() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	ch := make(chan struct{}, 8)
	f.subs = append(f.subs, ch)
	return ch
}

// Close 关闭 feed 和所有订阅通道。
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}
