package chat

import (
	"encoding/json"
	"fmt"

	"studio-cli/internal/logger"

	"github.com/google/uuid"
)

// Client 是消息流客户端：持有转录和状态，向代理服务发起/续接回合，
// 并把到达的增量按序落进转录。所有方法都假定运行在宿主的单一更新
// 队列上，不做内部加锁——正确性靠到达序与幂等保证。
type Client struct {
	transcript  *Transcript
	status      Status
	sessionID   string
	system      string
	start       TurnStarter
	outcomeSent map[string]bool
	log         *logger.LogEntry
}

type ClientOptions struct {
	SessionID string
	System    string
	Start     TurnStarter
	Log       *logger.LogEntry
}

func NewClient(opts ClientOptions) *Client {
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	log := opts.Log
	if log == nil {
		log = logger.Named("chat")
	}
	return &Client{
		transcript:  NewTranscript(),
		status:      StatusIdle,
		sessionID:   sessionID,
		system:      opts.System,
		start:       opts.Start,
		outcomeSent: map[string]bool{},
		log:         log,
	}
}

func (c *Client) Transcript() *Transcript {
	return c.transcript
}

func (c *Client) Status() Status {
	return c.status
}

func (c *Client) SessionID() string {
	return c.sessionID
}

// SetSystem 更新后续回合使用的 system 提示（品牌切换场景）。
func (c *Client) SetSystem(system string) {
	c.system = system
}

// Send 追加一条用户消息并打开新的流式回合。
func (c *Client) Send(msg Message) error {
	if c.status == StatusSubmitted || c.status == StatusStreaming {
		return fmt.Errorf("turn already in flight")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Role = RoleUser
	if _, err := c.transcript.Append(msg); err != nil {
		return err
	}
	c.status = StatusSubmitted
	c.fire(TurnRequest{
		SessionID: c.sessionID,
		System:    c.system,
		Messages:  c.transcript.Snapshot(),
	})
	return nil
}

// Apply 按到达序落一条增量。submitted 在首个内容增量时翻转为 streaming；
// 失败保留已产出的部分消息。
func (c *Client) Apply(d Delta) error {
	switch d.Kind {
	case DeltaStart:
		c.ensureMessage(d.MessageID, d.Role)
		c.markStreaming()
		return nil
	case DeltaText:
		c.ensureMessage(d.MessageID, RoleAssistant)
		c.markStreaming()
		return c.transcript.AppendText(d.MessageID, d.Text)
	case DeltaFile:
		if d.File == nil {
			return fmt.Errorf("file delta without payload")
		}
		c.ensureMessage(d.MessageID, RoleAssistant)
		c.markStreaming()
		return c.transcript.AppendFile(d.MessageID, *d.File)
	case DeltaTool:
		if d.Tool == nil {
			return fmt.Errorf("tool delta without payload")
		}
		c.ensureMessage(d.MessageID, RoleAssistant)
		c.markStreaming()
		return c.transcript.UpsertTool(d.MessageID, *d.Tool)
	case DeltaFinish:
		if c.status != StatusError {
			c.status = StatusIdle
		}
		return nil
	case DeltaFailure:
		c.status = StatusError
		c.log.WithField("session_id", c.sessionID).Warnf("stream failed: %s", d.Err)
		return nil
	default:
		return fmt.Errorf("unknown delta kind %q", d.Kind)
	}
}

// CanResume 是续接判据：最近一条 assistant 消息的工具调用全部为终态、
// 或处于 approval-requested 且审批均已作答；且至少有一个结果尚未回传。
// 审批仍有未作答的绝不自动续接。
func (c *Client) CanResume() bool {
	if c.status == StatusSubmitted || c.status == StatusStreaming {
		return false
	}
	last, ok := c.transcript.LastAssistant()
	if !ok {
		return false
	}
	sawTool := false
	pendingOutcome := false
	for i := range last.Parts {
		inv := last.Parts[i].Tool
		if last.Parts[i].Kind != PartTool || inv == nil {
			continue
		}
		sawTool = true
		switch {
		case inv.State.Terminal():
		case inv.State == ToolApprovalRequested || inv.State == ToolApproved:
			if inv.Approval == nil || !inv.Approval.Decided {
				return false
			}
		default:
			return false
		}
		if inv.Approval != nil && inv.Approval.Decided && !c.outcomeSent[inv.ToolCallID] {
			pendingOutcome = true
		}
	}
	return sawTool && pendingOutcome
}

// Resume 续接被审批暂停的回合，把已决的审批结果作为工具输出回传。
// 返回是否真正发起了续接。
func (c *Client) Resume() bool {
	if !c.CanResume() {
		return false
	}
	last, _ := c.transcript.LastAssistant()
	outcomes := make([]ToolOutcome, 0, len(last.Parts))
	for i := range last.Parts {
		inv := last.Parts[i].Tool
		if last.Parts[i].Kind != PartTool || inv == nil {
			continue
		}
		if inv.Approval == nil || !inv.Approval.Decided || c.outcomeSent[inv.ToolCallID] {
			continue
		}
		outcome := ToolOutcome{
			ToolCallID: inv.ToolCallID,
			ToolName:   inv.ToolName,
			Input:      inv.Input,
			Approved:   inv.Approval.Approved,
			Reason:     inv.Approval.Reason,
		}
		if inv.State == ToolOutputAvailable {
			outcome.ResultURL = resultURL(inv.Output)
		}
		outcomes = append(outcomes, outcome)
		c.outcomeSent[inv.ToolCallID] = true
	}
	if len(outcomes) == 0 {
		return false
	}
	c.status = StatusSubmitted
	c.fire(TurnRequest{
		SessionID: c.sessionID,
		System:    c.system,
		Messages:  c.transcript.Snapshot(),
		Resume:    true,
		Outcomes:  outcomes,
	})
	return true
}

func (c *Client) markStreaming() {
	if c.status == StatusSubmitted {
		c.status = StatusStreaming
	}
}

func (c *Client) ensureMessage(id string, role Role) {
	if id == "" {
		return
	}
	if _, ok := c.transcript.Message(id); ok {
		return
	}
	if role == "" {
		role = RoleAssistant
	}
	_, _ = c.transcript.Append(Message{ID: id, Role: role})
}

func (c *Client) fire(req TurnRequest) {
	if c.start == nil {
		c.status = StatusError
		c.log.Warnf("no turn starter configured")
		return
	}
	c.start(req)
}

// resultURL 从工具输出 JSON 中提取 url 字段。
func resultURL(output json.RawMessage) string {
	if len(output) == 0 {
		return ""
	}
	var payload struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(output, &payload); err != nil {
		return ""
	}
	return payload.URL
}
