package chat

import (
	"encoding/json"

	"studio-cli/internal/logger"
)

// Bridge 把审批决策（本地按键或外部编辑流程的回传）落到转录中对应的
// 工具调用上，并在条件满足时触发自动续接。每个 toolCallId 至多接受
// 一次决策；外部记录通过 handled 集合保证 at-most-once。
type Bridge struct {
	client  *Client
	handled map[string]struct{}
	log     *logger.LogEntry
}

func NewBridge(client *Client) *Bridge {
	return &Bridge{
		client:  client,
		handled: map[string]struct{}{},
		log:     logger.Named("approval"),
	}
}

// Approve 批准指定工具调用。重复决策是 no-op。返回本次是否新落了决策。
func (b *Bridge) Approve(id string) bool {
	inv, ok := b.client.Transcript().Tool(id)
	if !ok {
		b.log.WithField("tool_call_id", id).Warnf("approval target missing")
		return false
	}
	if inv.Approval != nil && inv.Approval.Decided {
		return false
	}
	b.ensureApproval(inv)
	inv.Approval.Decided = true
	inv.Approval.Approved = true
	if inv.State.rank() < ToolApproved.rank() {
		inv.State = ToolApproved
	}
	b.client.Resume()
	return true
}

// Deny 拒绝指定工具调用并记录原因。重复决策是 no-op。
func (b *Bridge) Deny(id, reason string) bool {
	inv, ok := b.client.Transcript().Tool(id)
	if !ok {
		b.log.WithField("tool_call_id", id).Warnf("approval target missing")
		return false
	}
	if inv.Approval != nil && inv.Approval.Decided {
		return false
	}
	b.ensureApproval(inv)
	inv.Approval.Decided = true
	inv.Approval.Approved = false
	inv.Approval.Reason = reason
	inv.State = ToolDenied
	inv.Output = denialOutput(reason)
	b.client.Resume()
	return true
}

// ConsumeExternalEdit 消费一条跨界面交接记录。返回 true 表示记录已被
// 消费（或此前已消费过），调用方应将槽位置空；返回 false 表示目标工具
// 调用还不在转录里——记录保留，可能稍后流入，也可能永远不会（见日志）。
func (b *Bridge) ConsumeExternalEdit(edit PendingExternalEdit) bool {
	if edit.ToolCallID == "" {
		return true
	}
	if _, done := b.handled[edit.ToolCallID]; done {
		return true
	}
	inv, ok := b.client.Transcript().Tool(edit.ToolCallID)
	if !ok {
		// 可能尚未流入，也可能属于过期会话；只记日志，不重试。
		b.log.WithField("tool_call_id", edit.ToolCallID).Warnf("external edit has no matching invocation")
		return false
	}
	b.handled[edit.ToolCallID] = struct{}{}
	if inv.Approval != nil && inv.Approval.Decided {
		return true
	}
	b.ensureApproval(inv)
	inv.Approval.Decided = true
	inv.Approval.Approved = edit.Approved
	if edit.Approved {
		inv.Output = urlOutput(edit.ImageURL)
		inv.State = ToolOutputAvailable
	} else {
		inv.Approval.Reason = edit.Reason
		inv.Output = denialOutput(edit.Reason)
		inv.State = ToolDenied
	}
	b.client.Resume()
	return true
}

func (b *Bridge) ensureApproval(inv *ToolInvocation) {
	if inv.Approval == nil {
		inv.Approval = &Approval{ID: inv.ToolCallID}
	}
}

func urlOutput(url string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"url": url})
	return raw
}

func denialOutput(reason string) json.RawMessage {
	if reason == "" {
		reason = "denied by user"
	}
	raw, _ := json.Marshal(map[string]string{"error": reason})
	return raw
}
