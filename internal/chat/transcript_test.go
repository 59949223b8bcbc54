package chat

import (
	"encoding/json"
	"testing"
)

func TestAppendRejectsDuplicateID(t *testing.T) {
	tr := NewTranscript()
	if _, err := tr.Append(Message{ID: "m1", Role: RoleUser, Parts: []Part{TextPart("hi")}}); err != nil {
		t.Fatalf("append m1: %v", err)
	}
	if _, err := tr.Append(Message{ID: "m1", Role: RoleUser}); err == nil {
		t.Fatal("expected duplicate id error")
	}
	if tr.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", tr.Len())
	}
}

func TestAppendTextConcatenatesTrailingFragment(t *testing.T) {
	tr := NewTranscript()
	if _, err := tr.Append(Message{ID: "a1", Role: RoleAssistant}); err != nil {
		t.Fatalf("append: %v", err)
	}
	for _, frag := range []string{"Here ", "is your ", "poster."} {
		if err := tr.AppendText("a1", frag); err != nil {
			t.Fatalf("append text: %v", err)
		}
	}
	msg, _ := tr.Message("a1")
	if len(msg.Parts) != 1 {
		t.Fatalf("expected one text part, got %d", len(msg.Parts))
	}
	if msg.Parts[0].Text != "Here is your poster." {
		t.Fatalf("unexpected text %q", msg.Parts[0].Text)
	}

	if err := tr.AppendFile("a1", FilePart{URL: "u", ImageID: "img"}); err != nil {
		t.Fatalf("append file: %v", err)
	}
	if err := tr.AppendText("a1", "done"); err != nil {
		t.Fatalf("append text after file: %v", err)
	}
	if len(msg.Parts) != 3 {
		t.Fatalf("expected text part after file to start fresh, got %d parts", len(msg.Parts))
	}
}

func TestUpsertToolCreatesPartAndAttachesApproval(t *testing.T) {
	tr := NewTranscript()
	if _, err := tr.Append(Message{ID: "a1", Role: RoleAssistant}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tr.UpsertTool("a1", ToolInvocation{ToolCallID: "c1", ToolName: "create_image", State: ToolInputStreaming}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	inv, ok := tr.Tool("c1")
	if !ok {
		t.Fatal("tool not registered")
	}
	if inv.Approval != nil {
		t.Fatal("approval must not exist before approval-requested")
	}
	if err := tr.UpsertTool("a1", ToolInvocation{ToolCallID: "c1", State: ToolApprovalRequested, Input: json.RawMessage(`{"prompt":"x"}`)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if inv.Approval == nil || inv.Approval.ID != "c1" || inv.Approval.Decided {
		t.Fatalf("expected undecided approval keyed by toolCallId, got %+v", inv.Approval)
	}
	if msgID, _ := tr.ToolMessageID("c1"); msgID != "a1" {
		t.Fatalf("expected owner a1, got %s", msgID)
	}
}

func TestUpsertToolNeverRegresses(t *testing.T) {
	tr := NewTranscript()
	if _, err := tr.Append(Message{ID: "a1", Role: RoleAssistant}); err != nil {
		t.Fatalf("append: %v", err)
	}
	seed := ToolInvocation{ToolCallID: "c1", ToolName: "create_image", State: ToolExecuting}
	if err := tr.UpsertTool("a1", seed); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	cases := []struct {
		name  string
		delta ToolInvocation
		want  ToolState
	}{
		{"regression ignored", ToolInvocation{ToolCallID: "c1", State: ToolInputAvailable}, ToolExecuting},
		{"same rank keeps state", ToolInvocation{ToolCallID: "c1", State: ToolExecuting}, ToolExecuting},
		{"forward applies", ToolInvocation{ToolCallID: "c1", State: ToolOutputAvailable, Output: json.RawMessage(`{"url":"u"}`)}, ToolOutputAvailable},
		{"terminal is sticky", ToolInvocation{ToolCallID: "c1", State: ToolApprovalRequested}, ToolOutputAvailable},
	}
	for _, tc := range cases {
		if err := tr.UpsertTool("a1", tc.delta); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		inv, _ := tr.Tool("c1")
		if inv.State != tc.want {
			t.Fatalf("%s: state %s, want %s", tc.name, inv.State, tc.want)
		}
	}
	inv, _ := tr.Tool("c1")
	if string(inv.Output) != `{"url":"u"}` {
		t.Fatalf("output lost: %s", inv.Output)
	}
}

func TestLastAssistantSkipsUserMessages(t *testing.T) {
	tr := NewTranscript()
	tr.Append(Message{ID: "u1", Role: RoleUser})
	tr.Append(Message{ID: "a1", Role: RoleAssistant})
	tr.Append(Message{ID: "u2", Role: RoleUser})
	last, ok := tr.LastAssistant()
	if !ok || last.ID != "a1" {
		t.Fatalf("expected a1, got %+v ok=%v", last, ok)
	}
}
