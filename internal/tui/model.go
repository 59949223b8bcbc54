package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"studio-cli/internal/agent"
	"studio-cli/internal/brand"
	"studio-cli/internal/chat"
	"studio-cli/internal/gallery"
	"studio-cli/internal/logger"
	"studio-cli/internal/sidechannel"
	"studio-cli/internal/tui/render"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

type Options struct {
	Stream    agent.StreamClient
	Feed      *sidechannel.Feed
	Gallery   *gallery.Store
	Brand     brand.Profile
	Model     string
	SessionID string
	Uploader  Uploader
}

// 来自各异步源的 tea.Msg。四个来源（网络流、用户按键、外部编辑回传、
// 带外事件）都汇入同一个 Update 队列，转录状态不需要锁。
type deltaMsg struct {
	Delta chat.Delta
}

type feedMsg struct{}

type galleryLoadedMsg struct {
	Images []gallery.Image
	Err    error
}

type attachResultMsg struct {
	Ref chat.ReferenceImage
	Err error
}

type noticeExpireMsg struct {
	Seq int
}

// ExternalEditMsg 由外部编辑流程通过 program.Send 投递：全屏编辑器
// 对某次 edit_image 调用给出了批准/拒绝结果。
type ExternalEditMsg struct {
	Edit chat.PendingExternalEdit
}

type feedLine struct {
	Kind string
	Text string
}

type Model struct {
	textarea textarea.Model
	viewport viewport.Model
	spin     spinner.Model

	client     *chat.Client
	bridge     *chat.Bridge
	stream     agent.StreamClient
	deltaCh    chan chat.Delta
	feed       *sidechannel.Feed
	feedSub    <-chan struct{}
	dispatcher *sidechannel.Dispatcher
	store      *gallery.Store
	uploader   Uploader

	brandProfile brand.Profile
	modelName    string
	images       []gallery.Image
	galleryDirty bool

	attachment   *chat.ReferenceImage
	externalEdit *chat.PendingExternalEdit
	history      promptHistory
	picker       galleryPicker
	picking      bool
	events       []feedLine

	notice    string
	noticeSeq int

	width           int
	height          int
	transcriptDirty bool
	log             *logger.LogEntry
}

func New(opts Options) *Model {
	ti := textarea.New()
	ti.Placeholder = "Describe the flyer, campaign image or logo you need…"
	ti.Prompt = "› "
	ti.CharLimit = 0
	ti.SetWidth(90)
	ti.SetHeight(1)
	ti.ShowLineNumbers = false
	ti.Focus()

	vp := viewport.New(90, 14)
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	uploader := opts.Uploader
	if uploader == nil {
		uploader = dataURLUploader{}
	}

	m := &Model{
		textarea:        ti,
		viewport:        vp,
		spin:            spin,
		stream:          opts.Stream,
		deltaCh:         make(chan chat.Delta, 64),
		feed:            opts.Feed,
		store:           opts.Gallery,
		uploader:        uploader,
		brandProfile:    opts.Brand,
		modelName:       opts.Model,
		width:           90,
		height:          24,
		transcriptDirty: true,
		log:             logger.Named("tui"),
	}
	m.client = chat.NewClient(chat.ClientOptions{
		SessionID: opts.SessionID,
		System:    opts.Brand.SystemPrompt(),
		Start:     m.startTurn,
	})
	m.bridge = chat.NewBridge(m.client)
	if m.feed != nil {
		m.feedSub = m.feed.Subscribe()
	}
	m.dispatcher = sidechannel.NewDispatcher()
	refresh := func(ev sidechannel.Event) {
		m.logFeed(ev)
		m.galleryDirty = true
	}
	m.dispatcher.Handle(sidechannel.ImageCreated, refresh)
	m.dispatcher.Handle(sidechannel.ImageEdited, refresh)
	m.dispatcher.Handle(sidechannel.LogoCreated, refresh)
	m.dispatcher.HandleDefault(m.logFeed)
	return m
}

// startTurn 是注入给流客户端的回合启动器：在后台 goroutine 里跑流，
// 增量经 deltaCh 回到 Update 队列。流返回后补一条 finish/error 增量。
func (m *Model) startTurn(req chat.TurnRequest) {
	go func() {
		err := m.stream.Stream(context.Background(), req, func(d chat.Delta) {
			m.deltaCh <- d
		})
		if err != nil {
			m.deltaCh <- chat.Delta{Kind: chat.DeltaFailure, Err: err.Error()}
			return
		}
		m.deltaCh <- chat.Delta{Kind: chat.DeltaFinish}
	}()
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listenDelta(), m.spin.Tick, m.loadGallery()}
	if cmd := m.listenFeed(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m *Model) listenDelta() tea.Cmd {
	return func() tea.Msg {
		return deltaMsg{Delta: <-m.deltaCh}
	}
}

func (m *Model) listenFeed() tea.Cmd {
	if m.feedSub == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-m.feedSub; !ok {
			return nil
		}
		return feedMsg{}
	}
}

func (m *Model) loadGallery() tea.Cmd {
	if m.store == nil {
		return nil
	}
	store := m.store
	return func() tea.Msg {
		images, err := store.List()
		return galleryLoadedMsg{Images: images, Err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m.finish(cmds...)
	case deltaMsg:
		if err := m.client.Apply(msg.Delta); err != nil {
			m.log.Warnf("apply delta: %v", err)
		}
		m.refreshTranscript()
		if msg.Delta.Kind == chat.DeltaFailure {
			cmds = append(cmds, m.showNotice("stream error: "+msg.Delta.Err))
		}
		// 外部编辑可能先于目标调用到达，转录变化后再试一次。
		m.consumeExternalEdit()
		cmds = append(cmds, m.listenDelta())
		return m.finish(cmds...)
	case feedMsg:
		m.dispatcher.Dispatch(m.feed.Snapshot())
		if m.galleryDirty {
			m.galleryDirty = false
			if cmd := m.loadGallery(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		if cmd := m.listenFeed(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m.finish(cmds...)
	case galleryLoadedMsg:
		if msg.Err != nil {
			m.log.Warnf("gallery load: %v", msg.Err)
			return m.finish(cmds...)
		}
		m.images = msg.Images
		if patched := gallery.SyncTranscript(m.client.Transcript(), m.images); patched > 0 {
			m.refreshTranscript()
		}
		gallery.SyncReference(m.attachment, m.images)
		m.picker.SetImages(m.images)
		return m.finish(cmds...)
	case attachResultMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.showNotice("attach failed: "+msg.Err.Error()))
			return m.finish(cmds...)
		}
		ref := msg.Ref
		m.attachment = &ref
		cmds = append(cmds, m.showNotice("attached "+shortID(ref.ID)))
		return m.finish(cmds...)
	case ExternalEditMsg:
		edit := msg.Edit
		m.externalEdit = &edit
		m.consumeExternalEdit()
		m.refreshTranscript()
		return m.finish(cmds...)
	case noticeExpireMsg:
		if msg.Seq == m.noticeSeq {
			m.notice = ""
		}
		return m.finish(cmds...)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		return m.finish(cmds...)
	case tea.KeyMsg:
		return m.updateKey(msg, cmds)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	return m.finish(cmds...)
}

func (m *Model) updateKey(msg tea.KeyMsg, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	if m.picking {
		switch msg.String() {
		case "esc", "ctrl+c":
			m.picking = false
			return m.finish(cmds...)
		case "enter":
			if img, ok := m.picker.Selected(); ok {
				m.attachment = &chat.ReferenceImage{ID: img.ID, Src: img.Src}
				cmds = append(cmds, m.showNotice("attached "+shortID(img.ID)))
			}
			m.picking = false
			return m.finish(cmds...)
		case "up":
			m.picker.Move(-1)
			return m.finish(cmds...)
		case "down":
			m.picker.Move(1)
			return m.finish(cmds...)
		case "backspace":
			m.picker.Backspace()
			return m.finish(cmds...)
		}
		if msg.Type == tea.KeyRunes {
			for _, r := range msg.Runes {
				m.picker.Type(r)
			}
		}
		return m.finish(cmds...)
	}

	// 有待审批时按键只用于决策，输入框冻结。
	if approvals := chat.PendingApprovals(m.client.Transcript()); len(approvals) > 0 {
		switch msg.String() {
		case "y", "Y", "enter":
			m.bridge.Approve(approvals[0].ApprovalID)
			m.refreshTranscript()
		case "n", "N", "esc":
			m.bridge.Deny(approvals[0].ApprovalID, "denied by user")
			m.refreshTranscript()
		case "ctrl+c":
			cmds = append(cmds, tea.Quit)
		}
		return m.finish(cmds...)
	}

	switch msg.String() {
	case "ctrl+c":
		cmds = append(cmds, tea.Quit)
		return m.finish(cmds...)
	case "pgup":
		m.viewport.HalfViewUp()
		return m.finish(cmds...)
	case "pgdown":
		m.viewport.HalfViewDown()
		return m.finish(cmds...)
	case "up":
		if m.textarea.LineCount() <= 1 {
			if text, ok := m.history.Prev(m.textarea.Value()); ok {
				m.textarea.SetValue(text)
				m.textarea.CursorEnd()
			}
			return m.finish(cmds...)
		}
	case "down":
		if m.textarea.LineCount() <= 1 || m.history.Browsing() {
			if text, ok := m.history.Next(); ok {
				m.textarea.SetValue(text)
				m.textarea.CursorEnd()
			}
			return m.finish(cmds...)
		}
	case "esc":
		if m.attachment != nil {
			m.attachment = nil
			cmds = append(cmds, m.showNotice("attachment removed"))
			return m.finish(cmds...)
		}
	case "enter":
		input := strings.TrimSpace(m.textarea.Value())
		if input == "" {
			return m.finish(cmds...)
		}
		if strings.HasPrefix(input, "/") {
			m.textarea.Reset()
			m.setComposerHeight()
			if cmd := m.handleSlash(input); cmd != nil {
				cmds = append(cmds, cmd)
			}
			return m.finish(cmds...)
		}
		if cmd := m.sendMessage(input); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m.finish(cmds...)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.setComposerHeight()
	cmds = append(cmds, cmd)
	return m.finish(cmds...)
}

// sendMessage 组装用户消息并开新回合。附件在入消息的瞬间清空。
func (m *Model) sendMessage(input string) tea.Cmd {
	if m.client.Status() == chat.StatusSubmitted || m.client.Status() == chat.StatusStreaming {
		return m.showNotice("a turn is already running")
	}
	parts := []chat.Part{chat.TextPart(input)}
	if m.attachment != nil {
		parts = append(parts, chat.FileRef("image/png", m.attachment.ID+".png", m.attachment.Src, m.attachment.ID))
		m.attachment = nil
	}
	if err := m.client.Send(chat.Message{Parts: parts}); err != nil {
		return m.showNotice(err.Error())
	}
	m.history.Add(input)
	m.textarea.Reset()
	m.setComposerHeight()
	m.refreshTranscript()
	return nil
}

// consumeExternalEdit 尝试消费单槽的外部编辑记录。消费成功即置空槽位；
// 目标调用还没流入时保留，等下一次转录变化再试。
func (m *Model) consumeExternalEdit() {
	if m.externalEdit == nil {
		return
	}
	if m.bridge.ConsumeExternalEdit(*m.externalEdit) {
		m.externalEdit = nil
		m.refreshTranscript()
	}
}

func (m *Model) handleSlash(input string) tea.Cmd {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	switch parts[0] {
	case "/quit", "/exit":
		return tea.Quit
	case "/clear":
		m.client = chat.NewClient(chat.ClientOptions{
			System: m.brandProfile.SystemPrompt(),
			Start:  m.startTurn,
		})
		m.bridge = chat.NewBridge(m.client)
		m.externalEdit = nil
		m.refreshTranscript()
		return m.showNotice("conversation cleared")
	case "/status":
		return m.showNotice(fmt.Sprintf("model=%s brand=%s status=%s session=%s",
			m.modelName, m.brandProfile.Name, m.client.Status(), shortID(m.client.SessionID())))
	case "/brand":
		if len(parts) < 2 {
			return m.showNotice("usage: /brand <name>")
		}
		profile, err := brand.Load(parts[1])
		if err != nil {
			return m.showNotice("brand load failed: " + err.Error())
		}
		m.brandProfile = profile
		m.client.SetSystem(profile.SystemPrompt())
		return m.showNotice("brand " + profile.Name + " active")
	case "/brands":
		names, err := brand.List()
		if err != nil {
			return m.showNotice("brands: " + err.Error())
		}
		if len(names) == 0 {
			return m.showNotice("no brand profiles under ~/.studio/brands")
		}
		return m.showNotice("brands: " + strings.Join(names, ", "))
	case "/gallery":
		m.picker.SetImages(m.images)
		m.picker.Reset()
		m.picking = true
		return nil
	case "/attach":
		if len(parts) < 2 {
			return m.showNotice("usage: /attach <image-file>")
		}
		path := parts[1]
		if imageMediaType(path) == "" {
			// 非图片不进转录，只给瞬态提示。
			return m.showNotice("only image files can be attached")
		}
		uploader := m.uploader
		return func() tea.Msg {
			url, err := uploader.Upload(path)
			if err != nil {
				return attachResultMsg{Err: err}
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			return attachResultMsg{Ref: chat.ReferenceImage{ID: uuid.NewString() + "-" + name, Src: url}}
		}
	case "/copy":
		if len(m.images) == 0 {
			return m.showNotice("gallery is empty")
		}
		if err := clipboard.WriteAll(m.images[0].Src); err != nil {
			return m.showNotice("clipboard: " + err.Error())
		}
		return m.showNotice("copied " + shortID(m.images[0].ID) + " url to clipboard")
	}
	return m.showNotice("unknown command " + parts[0])
}

func (m *Model) showNotice(text string) tea.Cmd {
	m.notice = text
	m.noticeSeq++
	seq := m.noticeSeq
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return noticeExpireMsg{Seq: seq}
	})
}

func (m *Model) logFeed(ev sidechannel.Event) {
	text := ev.Message
	if text == "" {
		text = ev.URL
	}
	m.events = append(m.events, feedLine{Kind: string(ev.Kind), Text: text})
	if len(m.events) > 50 {
		m.events = m.events[len(m.events)-50:]
	}
}

func (m *Model) refreshTranscript() {
	m.transcriptDirty = true
}

func (m *Model) finish(cmds ...tea.Cmd) (tea.Model, tea.Cmd) {
	if m.transcriptDirty {
		m.transcriptDirty = false
		atBottom := m.viewport.AtBottom()
		lines := render.RenderMessages(m.client.Transcript().Snapshot(), m.viewport.Width)
		if len(lines) == 0 {
			lines = []string{"Welcome to studio-cli. Describe the marketing asset you need."}
		}
		m.viewport.SetContent(strings.Join(lines, "\n"))
		if atBottom {
			m.viewport.GotoBottom()
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	composerHeight := m.textarea.Height() + 2
	chrome := 5 + 1 + 1 + 1 // banner, events line, status, hints
	mainHeight := height - composerHeight - chrome
	if mainHeight < 5 {
		mainHeight = 5
	}
	m.viewport.Width = width
	m.viewport.Height = mainHeight
	m.textarea.SetWidth(width - 2)
	m.refreshTranscript()
}

func (m *Model) setComposerHeight() {
	lines := strings.Count(m.textarea.Value(), "\n") + 1
	if lines > 6 {
		lines = 6
	}
	if m.textarea.Height() != lines {
		m.textarea.SetHeight(lines)
		m.resize(m.width, m.height)
	}
}

func (m *Model) View() string {
	banner := m.renderBanner()
	body := m.viewport.View()
	sections := []string{banner, body}
	if line := m.renderEventsLine(); line != "" {
		sections = append(sections, line)
	}
	if cluster := m.renderApprovals(); cluster != "" {
		sections = append(sections, cluster)
	}
	sections = append(sections, m.renderComposer(), m.renderStatus(), renderHints(m.width))
	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.picking {
		overlay := modalStyle.Render(m.picker.View(m.viewport.Height - 4))
		return lipgloss.JoinVertical(lipgloss.Left, content, overlay)
	}
	return content
}

const tuiVersion = "v0.3.0"

func (m *Model) renderBanner() string {
	line1 := fmt.Sprintf(">_ studio (%s)", tuiVersion)
	line2 := fmt.Sprintf("model: %s   brand: %s", m.modelName, orDash(m.brandProfile.Name))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7D56F4")).
		Padding(0, 1).
		Width(maxInt(40, m.width)).
		Render(line1 + "\n" + line2)
}

// renderApprovals 在输入框上方渲染唯一的待审批区，逐条列出等待决策的
// 工具调用。区域与消息位置解耦，滚动也不会把它滚走。
func (m *Model) renderApprovals() string {
	approvals := chat.PendingApprovals(m.client.Transcript())
	if len(approvals) == 0 {
		return ""
	}
	lines := make([]string, 0, len(approvals)+1)
	for i, ap := range approvals {
		marker := "  "
		if i == 0 {
			marker = "▶ "
		}
		input := strings.Join(strings.Fields(string(ap.Input)), " ")
		if len(input) > 60 {
			input = input[:59] + "…"
		}
		lines = append(lines, fmt.Sprintf("%s%s %s", marker, ap.ToolName, input))
	}
	lines = append(lines, "[y] approve · [n] deny")
	return approvalStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderComposer() string {
	body := m.textarea.View()
	if m.attachment != nil {
		tag := attachmentStyle.Render("📎 " + shortID(m.attachment.ID) + " (Esc 移除)")
		body = lipgloss.JoinVertical(lipgloss.Left, tag, body)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#5E6472")).
		Padding(0, 1).
		Width(maxInt(20, m.width)).
		Render(body)
}

// renderStatus：同一时刻要么显示思考中，要么显示待审批，绝不同时。
func (m *Model) renderStatus() string {
	parts := []string{fmt.Sprintf("Model: %s", m.modelName)}
	if m.brandProfile.Name != "" {
		parts = append(parts, "Brand: "+m.brandProfile.Name)
	}
	status := m.client.Status()
	approvals := chat.PendingApprovals(m.client.Transcript())
	switch {
	case len(approvals) > 0:
		parts = append(parts, fmt.Sprintf("Waiting for approval (%d)", len(approvals)))
	case status == chat.StatusSubmitted || status == chat.StatusStreaming:
		parts = append(parts, "Working… "+m.spin.View())
	case status == chat.StatusError:
		parts = append(parts, "Error (partial reply kept)")
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D7A85")).
		Padding(0, 1).
		Width(maxInt(20, m.width)).
		Render(strings.Join(parts, " • "))
}

func (m *Model) renderEventsLine() string {
	if len(m.events) == 0 {
		return ""
	}
	last := m.events[len(m.events)-1]
	prefix := "•"
	switch sidechannel.EventKind(last.Kind) {
	case sidechannel.ImageGenerating, sidechannel.LogoGenerating, sidechannel.ImageEditing:
		prefix = ">"
	case sidechannel.ImageCreated, sidechannel.ImageEdited, sidechannel.LogoCreated:
		prefix = "✓"
	case sidechannel.ImageError, sidechannel.LogoError:
		prefix = "✗"
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D7A85")).
		Padding(0, 1).
		Width(maxInt(20, m.width)).
		Render(fmt.Sprintf("%s %s %s", prefix, last.Kind, last.Text))
}

func renderHints(width int) string {
	hint := "Enter 发送 • ↑/↓ 历史 • /gallery 图库 • /attach 附图 • /brand 切换品牌 • Ctrl+C 退出"
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D7A85")).
		Padding(0, 1).
		Width(maxInt(20, width)).
		Render(hint)
}

var (
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1).
			BorderForeground(lipgloss.Color("#FFB454"))
	approvalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFB454")).
			Padding(0, 1)
	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB454")).
			Padding(0, 1)
	attachmentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#16a34a"))
)

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
