package chat

import "encoding/json"

// DeltaKind 区分代理服务推送的增量类型。
type DeltaKind string

const (
	DeltaStart   DeltaKind = "message-start"
	DeltaText    DeltaKind = "text-delta"
	DeltaFile    DeltaKind = "file"
	DeltaTool    DeltaKind = "tool"
	DeltaFinish  DeltaKind = "finish"
	DeltaFailure DeltaKind = "error"
)

// Delta 是一条增量：指明消息 id 和一个片段（文本碎片、完整文件、
// 或一次工具调用状态迁移）。同一消息 id 内的增量保序。
type Delta struct {
	Kind      DeltaKind
	MessageID string
	Role      Role
	Text      string
	File      *FilePart
	Tool      *ToolInvocation
	Err       string
}

// TurnRequest 描述一次向代理服务发起（或续接）的回合。
type TurnRequest struct {
	SessionID string
	System    string
	Messages  []Message
	Resume    bool
	Outcomes  []ToolOutcome
}

// ToolOutcome 把审批结果作为对应工具调用的"输出"回传给代理服务。
type ToolOutcome struct {
	ToolCallID string
	ToolName   string
	Input      json.RawMessage
	Approved   bool
	Reason     string
	ResultURL  string
}

// TurnStarter 由宿主注入：负责真正打开一次流式回合并回灌 Delta。
type TurnStarter func(req TurnRequest)
