package chat

import (
	"encoding/json"
	"testing"
)

func newTestClient(t *testing.T) (*Client, *[]TurnRequest) {
	t.Helper()
	reqs := &[]TurnRequest{}
	client := NewClient(ClientOptions{
		SessionID: "s1",
		System:    "you are a marketing assistant",
		Start: func(req TurnRequest) {
			*reqs = append(*reqs, req)
		},
	})
	return client, reqs
}

func TestSendAppendsUserMessageAndFiresTurn(t *testing.T) {
	client, reqs := newTestClient(t)
	if err := client.Send(Message{Parts: []Part{TextPart("create a poster")}}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if client.Status() != StatusSubmitted {
		t.Fatalf("status %s, want submitted", client.Status())
	}
	if client.Transcript().Len() != 1 {
		t.Fatalf("transcript len %d", client.Transcript().Len())
	}
	if len(*reqs) != 1 || (*reqs)[0].Resume {
		t.Fatalf("expected one fresh turn request, got %+v", *reqs)
	}
	if (*reqs)[0].System == "" {
		t.Fatal("system prompt missing from request")
	}
	if err := client.Send(Message{Parts: []Part{TextPart("again")}}); err == nil {
		t.Fatal("expected in-flight rejection")
	}
}

func TestApplyStreamLifecycle(t *testing.T) {
	client, _ := newTestClient(t)
	if err := client.Send(Message{Parts: []Part{TextPart("hi")}}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := client.Apply(Delta{Kind: DeltaStart, MessageID: "a1", Role: RoleAssistant}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if client.Status() != StatusStreaming {
		t.Fatalf("status %s, want streaming", client.Status())
	}
	if err := client.Apply(Delta{Kind: DeltaText, MessageID: "a1", Text: "hello"}); err != nil {
		t.Fatalf("text: %v", err)
	}
	if err := client.Apply(Delta{Kind: DeltaFinish}); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if client.Status() != StatusIdle {
		t.Fatalf("status %s, want idle", client.Status())
	}
}

func TestFailureKeepsPartialMessage(t *testing.T) {
	client, _ := newTestClient(t)
	client.Send(Message{Parts: []Part{TextPart("hi")}})
	client.Apply(Delta{Kind: DeltaStart, MessageID: "a1", Role: RoleAssistant})
	client.Apply(Delta{Kind: DeltaText, MessageID: "a1", Text: "partial"})
	client.Apply(Delta{Kind: DeltaFailure, Err: "connection reset"})

	if client.Status() != StatusError {
		t.Fatalf("status %s, want error", client.Status())
	}
	msg, ok := client.Transcript().Message("a1")
	if !ok || len(msg.Parts) != 1 || msg.Parts[0].Text != "partial" {
		t.Fatalf("partial message not retained: %+v", msg)
	}
}

// 最后一条 assistant 消息有两个待审批调用时，两个都作答前绝不续接，
// 都作答后立即续接且只续接一次。
func TestAutoResumeGating(t *testing.T) {
	client, reqs := newTestClient(t)
	bridge := NewBridge(client)

	client.Send(Message{Parts: []Part{TextPart("create a poster and a logo")}})
	client.Apply(Delta{Kind: DeltaStart, MessageID: "a1", Role: RoleAssistant})
	for _, id := range []string{"c1", "c2"} {
		client.Apply(Delta{Kind: DeltaTool, MessageID: "a1", Tool: &ToolInvocation{
			ToolCallID: id, ToolName: "create_image", State: ToolApprovalRequested,
			Input: json.RawMessage(`{"prompt":"x"}`),
		}})
	}
	client.Apply(Delta{Kind: DeltaFinish})

	if client.CanResume() {
		t.Fatal("must not resume with undecided approvals")
	}
	if !bridge.Approve("c1") {
		t.Fatal("approve c1")
	}
	if len(*reqs) != 1 {
		t.Fatalf("resumed with one approval outstanding: %d requests", len(*reqs))
	}
	if !bridge.Approve("c2") {
		t.Fatal("approve c2")
	}
	if len(*reqs) != 2 {
		t.Fatalf("expected resume after second approval, got %d requests", len(*reqs))
	}
	resume := (*reqs)[1]
	if !resume.Resume || len(resume.Outcomes) != 2 {
		t.Fatalf("bad resume request: %+v", resume)
	}
	for _, outcome := range resume.Outcomes {
		if !outcome.Approved || len(outcome.Input) == 0 {
			t.Fatalf("bad outcome: %+v", outcome)
		}
	}

	// 结果已回传过，不再重复续接。
	client.Apply(Delta{Kind: DeltaFinish})
	if client.CanResume() {
		t.Fatal("outcomes already delivered, resume must not fire again")
	}
}

func TestResumeCarriesExternalResultURL(t *testing.T) {
	client, reqs := newTestClient(t)
	bridge := NewBridge(client)

	client.Send(Message{Parts: []Part{TextPart("edit the flyer")}})
	client.Apply(Delta{Kind: DeltaStart, MessageID: "a1", Role: RoleAssistant})
	client.Apply(Delta{Kind: DeltaTool, MessageID: "a1", Tool: &ToolInvocation{
		ToolCallID: "c1", ToolName: "edit_image", State: ToolApprovalRequested,
	}})
	client.Apply(Delta{Kind: DeltaFinish})

	ok := bridge.ConsumeExternalEdit(PendingExternalEdit{
		ToolCallID: "c1", Approved: true, ImageURL: "https://img/new.png",
	})
	if !ok {
		t.Fatal("consume external edit")
	}
	if len(*reqs) != 2 {
		t.Fatalf("expected resume, got %d requests", len(*reqs))
	}
	outcome := (*reqs)[1].Outcomes[0]
	if outcome.ResultURL != "https://img/new.png" {
		t.Fatalf("result url %q", outcome.ResultURL)
	}
}
