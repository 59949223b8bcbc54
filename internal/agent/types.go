package agent

import (
	"context"

	"studio-cli/internal/chat"
)

// StreamClient 打开一次面向代理服务的流式回合，把增量按到达序回灌给
// onDelta。同一消息 id 内的增量保序。返回错误表示流失败，已回灌的
// 部分增量保留。
type StreamClient interface {
	Stream(ctx context.Context, req chat.TurnRequest, onDelta func(chat.Delta)) error
}

// ToolSpec 描述可供模型调用的工具定义，遵循 function 工具的通用 schema 约定。
type ToolSpec struct {
	Name             string
	Description      string
	Parameters       map[string]any
	RequiresApproval bool
}
