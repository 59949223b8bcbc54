package chat

import "fmt"

// Transcript 是按 id 索引的消息 arena。消息只追加；唯一的例外是流中的
// 那条消息会被就地修补，以及图库同步对 file part 的 URL 重映射。
type Transcript struct {
	messages []*Message
	byID     map[string]*Message
	tools    map[string]*ToolInvocation
	toolMsg  map[string]string
}

func NewTranscript() *Transcript {
	return &Transcript{
		byID:    map[string]*Message{},
		tools:   map[string]*ToolInvocation{},
		toolMsg: map[string]string{},
	}
}

// Append 追加一条完整消息并登记其中的工具调用。重复 id 返回错误。
func (t *Transcript) Append(msg Message) (*Message, error) {
	if msg.ID == "" {
		return nil, fmt.Errorf("message id required")
	}
	if _, exists := t.byID[msg.ID]; exists {
		return nil, fmt.Errorf("duplicate message id %s", msg.ID)
	}
	stored := msg
	t.messages = append(t.messages, &stored)
	t.byID[stored.ID] = &stored
	for i := range stored.Parts {
		if stored.Parts[i].Kind == PartTool && stored.Parts[i].Tool != nil {
			t.registerTool(stored.ID, stored.Parts[i].Tool)
		}
	}
	return &stored, nil
}

// Message 返回指定 id 的消息。
func (t *Transcript) Message(id string) (*Message, bool) {
	msg, ok := t.byID[id]
	return msg, ok
}

// Len 返回消息条数。
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Messages 返回底层消息切片；调用方约定只在单一更新队列上读写。
func (t *Transcript) Messages() []*Message {
	return t.messages
}

// Snapshot 返回消息值的浅拷贝序列，供渲染或构造请求。
func (t *Transcript) Snapshot() []Message {
	out := make([]Message, 0, len(t.messages))
	for _, msg := range t.messages {
		out = append(out, *msg)
	}
	return out
}

// LastAssistant 返回最近一条 assistant 消息。
func (t *Transcript) LastAssistant() (*Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == RoleAssistant {
			return t.messages[i], true
		}
	}
	return nil, false
}

// Tool 按 toolCallId 查找工具调用。
func (t *Transcript) Tool(toolCallID string) (*ToolInvocation, bool) {
	inv, ok := t.tools[toolCallID]
	return inv, ok
}

// ToolMessageID 返回持有该工具调用的消息 id。
func (t *Transcript) ToolMessageID(toolCallID string) (string, bool) {
	id, ok := t.toolMsg[toolCallID]
	return id, ok
}

// AppendText 向消息追加文本增量：与上一个 text part 拼接，否则新开一个。
func (t *Transcript) AppendText(messageID, fragment string) error {
	msg, ok := t.byID[messageID]
	if !ok {
		return fmt.Errorf("unknown message id %s", messageID)
	}
	if n := len(msg.Parts); n > 0 && msg.Parts[n-1].Kind == PartText {
		msg.Parts[n-1].Text += fragment
		return nil
	}
	msg.Parts = append(msg.Parts, TextPart(fragment))
	return nil
}

// AppendFile 追加一个完整的 file part。
func (t *Transcript) AppendFile(messageID string, file FilePart) error {
	msg, ok := t.byID[messageID]
	if !ok {
		return fmt.Errorf("unknown message id %s", messageID)
	}
	f := file
	msg.Parts = append(msg.Parts, Part{Kind: PartFile, File: &f})
	return nil
}

// UpsertTool 按 toolCallId 就地推进工具调用状态。状态只前进不回退；
// 同 rank 的重复增量仅更新载荷（input 流式累积场景）。
func (t *Transcript) UpsertTool(messageID string, delta ToolInvocation) error {
	if delta.ToolCallID == "" {
		return fmt.Errorf("tool call id required")
	}
	inv, ok := t.tools[delta.ToolCallID]
	if !ok {
		msg, found := t.byID[messageID]
		if !found {
			return fmt.Errorf("unknown message id %s", messageID)
		}
		stored := delta
		if stored.State == "" {
			stored.State = ToolInputStreaming
		}
		msg.Parts = append(msg.Parts, ToolPart(&stored))
		t.registerTool(messageID, &stored)
		t.ensureApproval(&stored)
		return nil
	}
	if delta.State != "" {
		if delta.State.rank() < inv.State.rank() {
			return nil
		}
		inv.State = delta.State
	}
	if len(delta.Input) > 0 {
		inv.Input = delta.Input
	}
	if len(delta.Output) > 0 {
		inv.Output = delta.Output
	}
	if delta.ToolName != "" {
		inv.ToolName = delta.ToolName
	}
	t.ensureApproval(inv)
	return nil
}

func (t *Transcript) registerTool(messageID string, inv *ToolInvocation) {
	t.tools[inv.ToolCallID] = inv
	t.toolMsg[inv.ToolCallID] = messageID
	t.ensureApproval(inv)
}

// 进入 approval-requested 时挂上未决的 Approval，id 即 toolCallId。
func (t *Transcript) ensureApproval(inv *ToolInvocation) {
	if inv.State == ToolApprovalRequested && inv.Approval == nil {
		inv.Approval = &Approval{ID: inv.ToolCallID}
	}
}
