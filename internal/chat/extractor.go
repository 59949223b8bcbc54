package chat

import "encoding/json"

// PendingApproval 描述一条等待人工决策的工具调用，供界面在输入框上方
// 的专用区域渲染审批入口。
type PendingApproval struct {
	ApprovalID string
	ToolCallID string
	ToolName   string
	Input      json.RawMessage
}

// PendingApprovals 扫描转录，按出现顺序返回处于 approval-requested
// 且尚未作答的工具调用。纯函数，不持有状态。
func PendingApprovals(t *Transcript) []PendingApproval {
	if t == nil {
		return nil
	}
	var out []PendingApproval
	for _, msg := range t.Messages() {
		for i := range msg.Parts {
			inv := msg.Parts[i].Tool
			if msg.Parts[i].Kind != PartTool || inv == nil {
				continue
			}
			if inv.State != ToolApprovalRequested {
				continue
			}
			if inv.Approval != nil && inv.Approval.Decided {
				continue
			}
			approvalID := inv.ToolCallID
			if inv.Approval != nil {
				approvalID = inv.Approval.ID
			}
			out = append(out, PendingApproval{
				ApprovalID: approvalID,
				ToolCallID: inv.ToolCallID,
				ToolName:   inv.ToolName,
				Input:      inv.Input,
			})
		}
	}
	return out
}
