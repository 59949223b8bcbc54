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
	"studio-cli/internal/sidechannel"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
)

// runTool 执行一个已放行的工具调用：产出 executing/output-available
// 增量、落图库、发带外事件，并返回给模型看的结果摘要。
func (c *Client) runTool(ctx context.Context, messageID string, call toolCall, onDelta func(chat.Delta)) string {
	emitState := func(state chat.ToolState, output json.RawMessage) {
		onDelta(chat.Delta{
			Kind:      chat.DeltaTool,
			MessageID: messageID,
			Tool: &chat.ToolInvocation{
				ToolCallID: call.ID,
				ToolName:   call.Name,
				State:      state,
				Output:     output,
			},
		})
	}
	emitState(chat.ToolExecuting, nil)

	var (
		output json.RawMessage
		err    error
	)
	switch call.Name {
	case agent.ToolCreateImage:
		output, err = c.runCreateImage(ctx, messageID, call, onDelta)
	case agent.ToolEditImage:
		output, err = c.runEditImage(ctx, messageID, call, onDelta)
	case agent.ToolGenerateLogo:
		output, err = c.runGenerateLogo(ctx, messageID, call, onDelta)
	case agent.ToolListGallery:
		output, err = c.runListGallery()
	default:
		err = fmt.Errorf("unknown tool %q", call.Name)
	}
	if err != nil {
		c.log.WithField("tool", call.Name).Warnf("tool execution failed: %v", err)
		output, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	emitState(chat.ToolOutputAvailable, output)
	return string(output)
}

func (c *Client) runCreateImage(ctx context.Context, messageID string, call toolCall, onDelta func(chat.Delta)) (json.RawMessage, error) {
	var args struct {
		Prompt string `json:"prompt"`
		Size   string `json:"size"`
	}
	if err := json.Unmarshal([]byte(call.Args), &args); err != nil {
		return nil, fmt.Errorf("bad create_image arguments: %w", err)
	}
	if strings.TrimSpace(args.Prompt) == "" {
		return nil, errors.New("create_image requires a prompt")
	}

	id := uuid.NewString()
	c.notify(sidechannel.Event{Kind: sidechannel.ImageGenerating, ImageID: id, Message: args.Prompt})
	src, err := c.generate(ctx, args.Prompt, args.Size)
	if err != nil {
		c.notify(sidechannel.Event{Kind: sidechannel.ImageError, ImageID: id, Message: err.Error()})
		return nil, err
	}
	c.record(gallery.Image{ID: id, Src: src, Prompt: args.Prompt, Kind: "image"})
	c.notify(sidechannel.Event{Kind: sidechannel.ImageCreated, ImageID: id, URL: src})
	c.emitFile(messageID, id, src, onDelta)
	return json.Marshal(map[string]string{"id": id, "url": src})
}

func (c *Client) runEditImage(ctx context.Context, messageID string, call toolCall, onDelta func(chat.Delta)) (json.RawMessage, error) {
	var args struct {
		ImageID      string `json:"image_id"`
		Instructions string `json:"instructions"`
	}
	if err := json.Unmarshal([]byte(call.Args), &args); err != nil {
		return nil, fmt.Errorf("bad edit_image arguments: %w", err)
	}
	existing, err := c.lookupImage(args.ImageID)
	if err != nil {
		return nil, err
	}

	c.notify(sidechannel.Event{Kind: sidechannel.ImageEditing, ImageID: existing.ID, Message: args.Instructions})
	prompt := args.Instructions
	if existing.Prompt != "" {
		prompt = fmt.Sprintf("%s\n\nApply this edit to an image originally described as: %s", args.Instructions, existing.Prompt)
	}
	src, err := c.generate(ctx, prompt, "")
	if err != nil {
		c.notify(sidechannel.Event{Kind: sidechannel.ImageError, ImageID: existing.ID, Message: err.Error()})
		return nil, err
	}
	// 同 id 换 src：旧引用由同步器重映射。
	existing.Src = src
	c.record(existing)
	c.notify(sidechannel.Event{Kind: sidechannel.ImageEdited, ImageID: existing.ID, URL: src})
	c.emitFile(messageID, existing.ID, src, onDelta)
	return json.Marshal(map[string]string{"id": existing.ID, "url": src})
}

func (c *Client) runGenerateLogo(ctx context.Context, messageID string, call toolCall, onDelta func(chat.Delta)) (json.RawMessage, error) {
	var args struct {
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal([]byte(call.Args), &args); err != nil {
		return nil, fmt.Errorf("bad generate_logo arguments: %w", err)
	}
	if strings.TrimSpace(args.Prompt) == "" {
		return nil, errors.New("generate_logo requires a prompt")
	}

	id := uuid.NewString()
	c.notify(sidechannel.Event{Kind: sidechannel.LogoGenerating, ImageID: id, Message: args.Prompt})
	src, err := c.generate(ctx, "Minimal vector-style brand logo: "+args.Prompt, "")
	if err != nil {
		c.notify(sidechannel.Event{Kind: sidechannel.LogoError, ImageID: id, Message: err.Error()})
		return nil, err
	}
	c.record(gallery.Image{ID: id, Src: src, Prompt: args.Prompt, Kind: "logo"})
	c.notify(sidechannel.Event{Kind: sidechannel.LogoCreated, ImageID: id, URL: src})
	c.emitFile(messageID, id, src, onDelta)
	return json.Marshal(map[string]string{"id": id, "url": src})
}

func (c *Client) runListGallery() (json.RawMessage, error) {
	if c.gallery == nil {
		return json.Marshal([]any{})
	}
	images, err := c.gallery.List()
	if err != nil {
		return nil, err
	}
	type entry struct {
		ID     string `json:"id"`
		Src    string `json:"src"`
		Prompt string `json:"prompt,omitempty"`
		Kind   string `json:"kind,omitempty"`
	}
	out := make([]entry, 0, len(images))
	for _, img := range images {
		out = append(out, entry{ID: img.ID, Src: img.Src, Prompt: img.Prompt, Kind: img.Kind})
	}
	return json.Marshal(out)
}

// generate 调用 Images 接口并返回结果 URL（无 URL 时回退为 data URL）。
func (c *Client) generate(ctx context.Context, prompt, size string) (string, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(c.imageModel),
		N:      openai.Int(1),
	}
	if size != "" {
		params.Size = openai.ImageGenerateParamsSize(size)
	}
	resp, err := c.api.Images.Generate(ctx, params)
	if err != nil {
		return "", wrapHTTPError(err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return "", errors.New("image api returned no data")
	}
	if url := resp.Data[0].URL; url != "" {
		return url, nil
	}
	if b64 := resp.Data[0].B64JSON; b64 != "" {
		return "data:image/png;base64," + b64, nil
	}
	return "", errors.New("image api returned neither url nor payload")
}

func (c *Client) lookupImage(id string) (gallery.Image, error) {
	if strings.TrimSpace(id) == "" {
		return gallery.Image{}, errors.New("edit_image requires image_id")
	}
	if c.gallery == nil {
		return gallery.Image{}, errors.New("gallery store not configured")
	}
	images, err := c.gallery.List()
	if err != nil {
		return gallery.Image{}, err
	}
	for _, img := range images {
		if img.ID == id {
			return img, nil
		}
	}
	return gallery.Image{}, fmt.Errorf("image %s not found in gallery", id)
}

func (c *Client) record(img gallery.Image) {
	if c.gallery == nil {
		return
	}
	if err := c.gallery.Put(img); err != nil {
		c.log.WithField("image_id", img.ID).Warnf("gallery write failed: %v", err)
	}
}

func (c *Client) notify(ev sidechannel.Event) {
	if c.feed == nil {
		return
	}
	c.feed.Append(ev)
}

func (c *Client) emitFile(messageID, imageID, src string, onDelta func(chat.Delta)) {
	if messageID == "" {
		return
	}
	onDelta(chat.Delta{
		Kind:      chat.DeltaFile,
		MessageID: messageID,
		File: &chat.FilePart{
			MediaType: "image/png",
			Name:      imageID + ".png",
			URL:       src,
			ImageID:   imageID,
		},
	})
}
