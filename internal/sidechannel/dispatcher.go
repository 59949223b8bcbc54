package sidechannel

import "studio-cli/internal/logger"

// Handler 处理一条带外事件。
type Handler func(Event)

// Dispatcher 维护指向事件序列的单调游标：每次 Dispatch 只处理游标之后
// 的事件并把游标推进到新长度。即使对同一底层状态被重复调用（界面重渲
// 染场景），每条事件也只会被处理一次，且保持追加顺序。
type Dispatcher struct {
	cursor   int
	handlers map[EventKind]Handler
	fallback Handler
	log      *logger.LogEntry
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: map[EventKind]Handler{},
		log:      logger.Named("sidechannel"),
	}
}

// Handle 为指定事件类型注册处理器。
func (d *Dispatcher) Handle(kind EventKind, fn Handler) {
	if fn == nil {
		return
	}
	d.handlers[kind] = fn
}

// HandleDefault 注册兜底处理器，接住没有专属处理器的事件。
func (d *Dispatcher) HandleDefault(fn Handler) {
	d.fallback = fn
}

// Dispatch 处理 events 中游标之后的部分，返回本次处理的条数。
// events 必须是同一 feed 的前缀一致快照。
func (d *Dispatcher) Dispatch(events []Event) int {
	if d.cursor > len(events) {
		// 游标超过快照长度说明传入了更旧的快照，跳过以保住 at-most-once。
		return 0
	}
	pending := events[d.cursor:]
	d.cursor = len(events)
	for _, ev := range pending {
		if fn, ok := d.handlers[ev.Kind]; ok {
			fn(ev)
			continue
		}
		if d.fallback != nil {
			d.fallback(ev)
			continue
		}
		d.log.WithField("kind", string(ev.Kind)).Infof("unhandled side-channel event")
	}
	return len(pending)
}

// Cursor 返回当前游标位置。
func (d *Dispatcher) Cursor() int {
	return d.cursor
}
