package chat

import "testing"

func TestPendingApprovalsFiltersAndOrders(t *testing.T) {
	tr := NewTranscript()
	tr.Append(Message{ID: "u1", Role: RoleUser, Parts: []Part{TextPart("go")}})
	tr.Append(Message{ID: "a1", Role: RoleAssistant, Parts: []Part{
		ToolPart(&ToolInvocation{ToolCallID: "c1", ToolName: "create_image", State: ToolApprovalRequested}),
		ToolPart(&ToolInvocation{ToolCallID: "c2", ToolName: "list_gallery", State: ToolExecuting}),
	}})
	tr.Append(Message{ID: "a2", Role: RoleAssistant, Parts: []Part{
		ToolPart(&ToolInvocation{
			ToolCallID: "c3", ToolName: "edit_image", State: ToolApprovalRequested,
			Approval: &Approval{ID: "c3", Decided: true, Approved: true},
		}),
		ToolPart(&ToolInvocation{ToolCallID: "c4", ToolName: "generate_logo", State: ToolApprovalRequested}),
	}})

	got := PendingApprovals(tr)
	if len(got) != 2 {
		t.Fatalf("expected 2 pending approvals, got %d", len(got))
	}
	if got[0].ToolCallID != "c1" || got[1].ToolCallID != "c4" {
		t.Fatalf("wrong order: %s, %s", got[0].ToolCallID, got[1].ToolCallID)
	}
	if got[0].ApprovalID != "c1" {
		t.Fatalf("approval id %s", got[0].ApprovalID)
	}
}

// 场景：发送"create a poster"后流入一条带 createImage 审批请求的
// assistant 消息，界面必须恰好呈现一条待审批。
func TestSinglePendingApprovalScenario(t *testing.T) {
	client, _ := newTestClient(t)
	client.Send(Message{Parts: []Part{TextPart("create a poster")}})
	client.Apply(Delta{Kind: DeltaStart, MessageID: "a1", Role: RoleAssistant})
	client.Apply(Delta{Kind: DeltaTool, MessageID: "a1", Tool: &ToolInvocation{
		ToolCallID: "c1", ToolName: "create_image", State: ToolApprovalRequested,
	}})

	pending := PendingApprovals(client.Transcript())
	if len(pending) != 1 || pending[0].ToolName != "create_image" {
		t.Fatalf("expected exactly one pending create_image approval, got %+v", pending)
	}

	NewBridge(client).Approve(pending[0].ApprovalID)
	if len(PendingApprovals(client.Transcript())) != 0 {
		t.Fatal("approval still pending after decision")
	}
}

func TestPendingApprovalsNilTranscript(t *testing.T) {
	if got := PendingApprovals(nil); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}
