package chat

import "encoding/json"

// Role 表示消息归属方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status 表示流客户端的当前状态。
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSubmitted Status = "submitted"
	StatusStreaming Status = "streaming"
	StatusError     Status = "error"
)

// PartKind 区分消息片段的变体。
type PartKind string

const (
	PartText PartKind = "text"
	PartFile PartKind = "file"
	PartTool PartKind = "tool-invocation"
)

// ToolState 是单个工具调用的状态机状态，按 toolCallId 单调推进。
type ToolState string

const (
	ToolInputStreaming    ToolState = "input-streaming"
	ToolInputAvailable    ToolState = "input-available"
	ToolApprovalRequested ToolState = "approval-requested"
	ToolApproved          ToolState = "approved"
	ToolExecuting         ToolState = "executing"
	ToolOutputAvailable   ToolState = "output-available"
	ToolDenied            ToolState = "denied"
)

// rank 给状态定序；Apply 只接受不回退的迁移。
func (s ToolState) rank() int {
	switch s {
	case ToolInputStreaming:
		return 1
	case ToolInputAvailable:
		return 2
	case ToolApprovalRequested:
		return 3
	case ToolApproved:
		return 4
	case ToolExecuting:
		return 5
	case ToolOutputAvailable, ToolDenied:
		return 6
	default:
		return 0
	}
}

// Terminal 报告该状态是否为终态。
func (s ToolState) Terminal() bool {
	return s == ToolOutputAvailable || s == ToolDenied
}

// Approval 记录针对某个工具调用的人工决策。ID 等于所属调用的 toolCallId。
// 每个 id 只接受一次决策，后续决策为 no-op。
type Approval struct {
	ID       string
	Decided  bool
	Approved bool
	Reason   string
}

// ToolInvocation 是转录中一次工具调用的可变记录。
type ToolInvocation struct {
	ToolCallID string
	ToolName   string
	State      ToolState
	Input      json.RawMessage
	Output     json.RawMessage
	Approval   *Approval
}

// FilePart 描述消息中的文件引用。ImageID 关联图库条目，供 URL 重映射使用。
type FilePart struct {
	MediaType string
	Name      string
	URL       string
	ImageID   string
}

// Part 是消息片段的 tagged variant：text、file 或 toolInvocation 三选一。
type Part struct {
	Kind PartKind
	Text string
	File *FilePart
	Tool *ToolInvocation
}

// Message 是转录中的一条消息，Parts 有序。
type Message struct {
	ID    string
	Role  Role
	Parts []Part
}

// ReferenceImage 是"已附加、尚未发送"的唯一图片引用。
type ReferenceImage struct {
	ID  string
	Src string
}

// PendingExternalEdit 是外部编辑流程（如全屏图片编辑器）回传的跨界面交接记录。
// 由外部流程创建，Bridge 消费后由聊天界面置空。
type PendingExternalEdit struct {
	ToolCallID string
	Approved   bool
	ImageURL   string
	Reason     string
}

func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

func FileRef(mediaType, name, url, imageID string) Part {
	return Part{Kind: PartFile, File: &FilePart{MediaType: mediaType, Name: name, URL: url, ImageID: imageID}}
}

func ToolPart(inv *ToolInvocation) Part {
	return Part{Kind: PartTool, Tool: inv}
}
