package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"studio-cli/internal/agent"
	"studio-cli/internal/chat"
	"studio-cli/internal/gallery"
	"studio-cli/internal/logger"
	"studio-cli/internal/sidechannel"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	ImageModel string
	Gallery    *gallery.Store
	Feed       *sidechannel.Feed
}

// Client 基于 chat completions 流式接口实现 agent.StreamClient，并用
// Images 接口作为图像工具的执行后端。
type Client struct {
	api        *openai.Client
	model      string
	imageModel string
	gallery    *gallery.Store
	feed       *sidechannel.Feed
	log        *logger.LogEntry
}

// 确保Client实现了agent.StreamClient接口
var _ agent.StreamClient = (*Client)(nil)

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	cfg := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg = append(cfg, option.WithBaseURL(strings.TrimRight(base, "/")))
	}
	client := openai.NewClient(cfg...)

	return &Client{
		api:        &client,
		model:      opts.Model,
		imageModel: opts.ImageModel,
		gallery:    opts.Gallery,
		feed:       opts.Feed,
		log:        logger.Named("openai"),
	}, nil
}

// Stream 执行一个回合：流式产出文本与工具调用增量。需要审批的工具
// 调用停在 approval-requested，回合挂起；续接回合先兑现审批结果
// （执行已批准的工具），再让模型继续产出后续内容。
func (c *Client) Stream(ctx context.Context, req chat.TurnRequest, onDelta func(chat.Delta)) error {
	msgs := buildChatMessages(req)
	assistantID := uuid.NewString()
	onDelta(chat.Delta{Kind: chat.DeltaStart, MessageID: assistantID, Role: chat.RoleAssistant})
	if req.Resume {
		for _, outcome := range req.Outcomes {
			summary := c.settleOutcome(ctx, assistantID, outcome, onDelta)
			msgs = append(msgs, openai.SystemMessage(summary))
		}
	}

	const maxRounds = 4
	for round := 0; round < maxRounds; round++ {
		calls, err := c.streamOnce(ctx, msgs, assistantID, onDelta)
		if err != nil {
			return err
		}
		if len(calls) == 0 {
			return nil
		}
		paused := false
		for _, call := range calls {
			if agent.RequiresApproval(call.Name) {
				onDelta(chat.Delta{
					Kind:      chat.DeltaTool,
					MessageID: assistantID,
					Tool: &chat.ToolInvocation{
						ToolCallID: call.ID,
						ToolName:   call.Name,
						State:      chat.ToolApprovalRequested,
						Input:      json.RawMessage(call.Args),
					},
				})
				paused = true
				continue
			}
			output := c.runTool(ctx, assistantID, call, onDelta)
			msgs = append(msgs, openai.SystemMessage(
				fmt.Sprintf("Tool %s (call %s) returned: %s", call.Name, call.ID, output)))
		}
		if paused {
			// 等待人工审批；审批落定后由续接回合推进。
			return nil
		}
	}
	return nil
}

// settleOutcome 兑现一条审批结果：已批准且尚无产物的执行工具，
// 外部编辑已给出产物的直接转述，被拒绝的转述拒绝原因。
func (c *Client) settleOutcome(ctx context.Context, assistantID string, outcome chat.ToolOutcome, onDelta func(chat.Delta)) string {
	if !outcome.Approved {
		reason := outcome.Reason
		if reason == "" {
			reason = "denied by user"
		}
		return fmt.Sprintf("Tool call %s (%s) was denied by the user: %s. Do not retry it unprompted.", outcome.ToolCallID, outcome.ToolName, reason)
	}
	if outcome.ResultURL != "" {
		return fmt.Sprintf("Tool call %s (%s) was completed in the external editor. Result image URL: %s", outcome.ToolCallID, outcome.ToolName, outcome.ResultURL)
	}
	output := c.runTool(ctx, assistantID, toolCall{ID: outcome.ToolCallID, Name: outcome.ToolName, Args: string(outcome.Input)}, onDelta)
	return fmt.Sprintf("Tool %s (call %s) was approved and executed. Result: %s", outcome.ToolName, outcome.ToolCallID, output)
}

// streamOnce 跑一轮流式补全，返回模型在这一轮收集到的工具调用。
func (c *Client) streamOnce(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion, assistantID string, onDelta func(chat.Delta)) ([]toolCall, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: msgs,
	}
	params.Tools = toChatTools(agent.DefaultTools())

	stream := c.api.Chat.Completions.NewStreaming(ctx, params)
	collector := newToolCallCollector()

	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				onDelta(chat.Delta{Kind: chat.DeltaText, MessageID: assistantID, Text: choice.Delta.Content})
			}
			for _, call := range choice.Delta.ToolCalls {
				first := collector.Add(call.ID, call.Function.Name, call.Function.Arguments)
				if first && call.Function.Name != "" {
					onDelta(chat.Delta{
						Kind:      chat.DeltaTool,
						MessageID: assistantID,
						Tool: &chat.ToolInvocation{
							ToolCallID: collector.effectiveID(call.ID),
							ToolName:   call.Function.Name,
							State:      chat.ToolInputStreaming,
						},
					})
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, wrapHTTPError(err)
	}

	calls := collector.Flush()
	for _, call := range calls {
		onDelta(chat.Delta{
			Kind:      chat.DeltaTool,
			MessageID: assistantID,
			Tool: &chat.ToolInvocation{
				ToolCallID: call.ID,
				ToolName:   call.Name,
				State:      chat.ToolInputAvailable,
				Input:      json.RawMessage(call.Args),
			},
		})
	}
	return calls, nil
}

// buildChatMessages 把转录渲染为模型消息。文件与工具片段以文本形式
// 内联，避免把二进制塞进对话。
func buildChatMessages(req chat.TurnRequest) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.System) != "" {
		out = append(out, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		content := renderParts(msg.Parts)
		if strings.TrimSpace(content) == "" {
			continue
		}
		switch msg.Role {
		case chat.RoleAssistant:
			out = append(out, openai.AssistantMessage(content))
		default:
			out = append(out, openai.UserMessage(content))
		}
	}
	return out
}

func renderParts(parts []chat.Part) string {
	var lines []string
	for _, part := range parts {
		switch part.Kind {
		case chat.PartText:
			if part.Text != "" {
				lines = append(lines, part.Text)
			}
		case chat.PartFile:
			if part.File != nil {
				lines = append(lines, fmt.Sprintf("[image %s: %s]", part.File.ImageID, part.File.URL))
			}
		case chat.PartTool:
			if part.Tool != nil {
				line := fmt.Sprintf("[tool %s call %s state=%s", part.Tool.ToolName, part.Tool.ToolCallID, part.Tool.State)
				if len(part.Tool.Input) > 0 {
					line += " input=" + string(part.Tool.Input)
				}
				if len(part.Tool.Output) > 0 {
					line += " output=" + string(part.Tool.Output)
				}
				lines = append(lines, line+"]")
			}
		}
	}
	return strings.Join(lines, "\n")
}

func toChatTools(specs []agent.ToolSpec) []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			continue
		}
		fn := shared.FunctionDefinitionParam{
			Name:       name,
			Parameters: spec.Parameters,
			Strict:     openai.Bool(true),
		}
		if desc := strings.TrimSpace(spec.Description); desc != "" {
			fn.Description = openai.String(desc)
		}
		tools = append(tools, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: fn,
			},
		})
	}
	return tools
}

func wrapHTTPError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		respDump := strings.TrimSpace(string(apiErr.DumpResponse(true)))
		if respDump != "" {
			return fmt.Errorf("http_%d: %s", apiErr.StatusCode, respDump)
		}
		raw := strings.TrimSpace(apiErr.RawJSON())
		if raw != "" {
			return fmt.Errorf("http_%d: %s", apiErr.StatusCode, raw)
		}
		return fmt.Errorf("http_%d: %v", apiErr.StatusCode, err)
	}
	return err
}

type toolCall struct {
	ID   string
	Name string
	Args string
}

// toolCallCollector 按到达序累积流中的工具调用参数碎片。
type toolCallCollector struct {
	order []string
	calls map[string]*pendingToolCall
}

type pendingToolCall struct {
	ID   string
	Name string
	Args strings.Builder
}

func newToolCallCollector() *toolCallCollector {
	return &toolCallCollector{
		calls: make(map[string]*pendingToolCall),
	}
}

// Add 合并一个碎片，返回是否首次见到该调用。
func (c *toolCallCollector) Add(id, name, args string) bool {
	if strings.TrimSpace(id) == "" && strings.TrimSpace(name) == "" && args == "" {
		return false
	}
	callID := c.effectiveID(id)
	entry, seen := c.calls[callID]
	if !seen {
		entry = &pendingToolCall{ID: callID}
		c.calls[callID] = entry
		c.order = append(c.order, callID)
	}
	if name != "" {
		entry.Name = name
	}
	if args != "" {
		entry.Args.WriteString(args)
	}
	return !seen
}

func (c *toolCallCollector) effectiveID(id string) string {
	if id != "" {
		return id
	}
	if n := len(c.order); n > 0 {
		return c.order[n-1]
	}
	return fmt.Sprintf("call-%d", len(c.calls)+1)
}

// Flush 返回已完整收集的调用并清空收集器，保持到达序。
func (c *toolCallCollector) Flush() []toolCall {
	if len(c.calls) == 0 {
		return nil
	}
	out := make([]toolCall, 0, len(c.calls))
	for _, id := range c.order {
		call := c.calls[id]
		if call == nil || strings.TrimSpace(call.Name) == "" {
			continue
		}
		args := strings.TrimSpace(call.Args.String())
		if args == "" {
			args = "{}"
		}
		out = append(out, toolCall{ID: call.ID, Name: call.Name, Args: args})
	}
	c.calls = make(map[string]*pendingToolCall)
	c.order = nil
	return out
}
