package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/combat"
	"github.com/jwebster45206/rules-engine/pkg/state"
	"github.com/muesli/reflow/wordwrap"
)

const PlaceHolderText = "Describe your move, or /help..."

var genres = []state.Genre{state.GenreFantasy, state.GenreCultivation, state.GenreSystem}

type entryKind int

const (
	entryInfo entryKind = iota
	entryUser
	entryRound
	entryEvent
	entryError
)

type logEntry struct {
	kind entryKind
	text string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	player       *actor.Character
	gameState    *state.GameState
	target       string
	entries      []logEntry
	events       chan SSEEvent
	stopEvents   context.CancelFunc
	logViewport  viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	showGenreModal bool
	selectedGenre  int

	showQuitModal bool

	progressTick int
}

type sessionCreatedMsg struct {
	gameState *state.GameState
	err       error
}

type gameStateMsg struct {
	gameState *state.GameState
	err       error
}

type actionResultMsg struct {
	resp   *ActionResponse
	combat bool
	err    error
}

type updateQueuedMsg struct {
	requestID string
	err       error
}

type sheetMsg struct {
	sheet *actor.Sheet
	err   error
}

type sseMsg struct {
	event SSEEvent
}

type progressTickMsg struct{}

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	roundStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")) // purple

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

const helpText = `Commands:
• <text> - combat move against the current target
• /attack, /defend, /flee [text] - explicit combat move
• /skill <id> - use a skill in combat
• /target <id> - pick the opponent
• /action <kind> [json] - apply a reducer action
• /update <json> - queue a knowledge update
• /sheet [id] - show a character sheet
• /refresh - reload the game state
• /copy - copy the game state JSON
• Ctrl+C - quit`

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, player *actor.Character) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 2000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:         cfg,
		client:         client,
		player:         player,
		textarea:       ta,
		logViewport:    logVp,
		metaViewport:   viewport.New(20, 20),
		showGenreModal: true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m *ConsoleUI) addEntry(kind entryKind, text string) {
	m.entries = append(m.entries, logEntry{kind: kind, text: text})
	m.writeLogContent()
}

// writeLogContent renders every entry for the current viewport width.
func (m *ConsoleUI) writeLogContent() {
	width := m.logViewport.Width - 6
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("RULES ENGINE") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, e := range m.entries {
		wrapped := wordwrap.String(e.text, width)
		switch e.kind {
		case entryUser:
			content.WriteString(userStyle.Render("You: ") + wrapped)
		case entryRound:
			content.WriteString(roundStyle.Render(wrapped))
		case entryEvent:
			content.WriteString(eventStyle.Render(wrapped))
		case entryError:
			content.WriteString(errorStyle.Render(wrapped))
		default:
			content.WriteString(wrapped)
		}
		content.WriteString("\n\n")
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.logViewport.SetContent(content.String())
	m.logViewport.GotoBottom()
}

func writeMetadata(gs *state.GameState, target string) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("GAME STATE") + "\n\n")

	fmt.Fprintf(&content, "Game ID:\n%s...\n\n", gs.ID.String()[:8])
	fmt.Fprintf(&content, "Genre: %s\nTurn: %d\n\n", gs.Genre, gs.Turn)

	if p := gs.Player; p != nil {
		fmt.Fprintf(&content, "%s\n", p.Label())
		fmt.Fprintf(&content, "HP %d/%d  MP %d/%d\n", p.Health.Current, p.Health.Max, p.Mana.Current, p.Mana.Max)
		keys := make([]string, 0, len(p.Stats))
		for k := range p.Stats {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&content, "• %s: %d\n", k, p.Stats[k])
		}
		fmt.Fprintf(&content, "Currency: %d\n\n", p.Currency)
	}

	content.WriteString("Combat:\n")
	if gs.Combat.Active {
		fmt.Fprintf(&content, "%s (round %d)\n\n", gs.Combat.Status, gs.Combat.Turn)
	} else {
		content.WriteString("none\n\n")
	}

	content.WriteString("Opponents:\n")
	opponents := append(slices.Clone(gs.Monsters), gs.NPCs...)
	if len(opponents) == 0 {
		content.WriteString("none\n")
	}
	for _, o := range opponents {
		marker := "  "
		if o.ID == target {
			marker = "▶ "
		}
		status := fmt.Sprintf("%d/%d", o.Health.Current, o.Health.Max)
		if o.Dead {
			status = "dead"
		}
		fmt.Fprintf(&content, "%s%s [%s]\n", marker, o.ID, status)
	}
	return content.String()
}

func (m *ConsoleUI) resize() {
	logWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - logWidth - 6
	m.logViewport.Width = logWidth - 2
	m.logViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(logWidth - 4)
}

func (m *ConsoleUI) refreshMeta() {
	if m.gameState != nil {
		m.metaViewport.SetContent(writeMetadata(m.gameState, m.target))
	}
}

// pickTarget keeps the current target while it is alive, otherwise the first living opponent.
func pickTarget(gs *state.GameState, current string) string {
	if gs == nil {
		return ""
	}
	if o := gs.FindOpponent(current); o != nil && !o.Dead {
		return current
	}
	for _, list := range [][]actor.Character{gs.Monsters, gs.NPCs} {
		for _, c := range list {
			if !c.Dead {
				return c.ID
			}
		}
	}
	return ""
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showGenreModal {
		return m.updateGenreModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeLogContent()
		m.refreshMeta()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m.handleInput(input)
		}

	case actionResultMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry(entryError, "Error: "+msg.err.Error())
			break
		}
		m.gameState = msg.resp.GameState
		if msg.resp.Rejection != nil {
			m.addEntry(entryError, fmt.Sprintf("Rejected (%s): %s", msg.resp.Rejection.Code, msg.resp.Rejection.Message))
		} else if msg.combat {
			m.addEntry(entryRound, formatRound(msg.resp.Round))
		} else {
			m.addEntry(entryInfo, "Applied.")
		}
		m.target = pickTarget(m.gameState, m.target)
		m.refreshMeta()

	case updateQueuedMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry(entryError, "Error: "+msg.err.Error())
		} else {
			m.addEntry(entryInfo, "Update queued as "+msg.requestID)
		}

	case sheetMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry(entryError, "Error: "+msg.err.Error())
		} else {
			m.addEntry(entryInfo, formatSheet(msg.sheet))
		}

	case gameStateMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry(entryError, "Error: "+msg.err.Error())
		} else if msg.gameState != nil {
			m.gameState = msg.gameState
			m.target = pickTarget(m.gameState, m.target)
			m.refreshMeta()
		}

	case sseMsg:
		if text := formatEvent(msg.event); text != "" {
			m.addEntry(entryEvent, text)
		}
		cmds := []tea.Cmd{waitForEvent(m.events)}
		if msg.event.Type == "game.state_updated" {
			cmds = append(cmds, m.refreshGameState())
		}
		return m, tea.Batch(cmds...)

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeLogContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.logViewport, vpCmd = m.logViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m ConsoleUI) handleInput(input string) (tea.Model, tea.Cmd) {
	cmd, err := parseInput(input)
	if err != nil {
		m.addEntry(entryError, err.Error())
		return m, nil
	}

	switch cmd.kind {
	case cmdHelp:
		m.addEntry(entryInfo, helpText)
		return m, nil

	case cmdTarget:
		if m.gameState.FindOpponent(cmd.target) == nil {
			m.addEntry(entryError, "No opponent with id "+cmd.target)
			return m, nil
		}
		m.target = cmd.target
		m.refreshMeta()
		return m, nil

	case cmdCopy:
		data, err := json.MarshalIndent(m.gameState, "", "  ")
		if err == nil {
			err = clipboard.WriteAll(string(data))
		}
		if err != nil {
			m.addEntry(entryError, "Copy failed: "+err.Error())
		} else {
			m.addEntry(entryInfo, "Game state copied to clipboard.")
		}
		return m, nil

	case cmdCombat:
		if m.target == "" {
			m.addEntry(entryError, "No opponent to fight. Add one with /update or pick one with /target.")
			return m, nil
		}
		m.entries = append(m.entries, logEntry{kind: entryUser, text: input})
		return m.startLoading(m.sendCombat(cmd.combat, m.target))

	case cmdAction:
		m.entries = append(m.entries, logEntry{kind: entryUser, text: input})
		return m.startLoading(m.sendAction(cmd.envelope))

	case cmdUpdate:
		return m.startLoading(m.sendUpdate(cmd.update))

	case cmdSheet:
		return m.startLoading(m.fetchSheet(cmd.arg))

	case cmdRefresh:
		return m.startLoading(m.refreshGameState())
	}
	return m, nil
}

func (m ConsoleUI) startLoading(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.loading = true
	m.progressTick = 0
	m.writeLogContent()
	return m, tea.Batch(cmd, progressTick())
}

func formatRound(r combat.RoundResult) string {
	var b strings.Builder
	for _, line := range r.Log {
		b.WriteString(line + "\n")
	}
	if r.Outcome != "" {
		fmt.Fprintf(&b, "Outcome: %s", r.Outcome)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSheet(s *actor.Sheet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", s.Name)
	if s.Title != "" {
		fmt.Fprintf(&b, ", %s", s.Title)
	}
	fmt.Fprintf(&b, "\nHP %d/%d  AC %d\n", s.HP, s.MaxHP, s.AC)
	keys := make([]string, 0, len(s.Attributes))
	for k := range s.Attributes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "• %s %d\n", k, s.Attributes[k])
	}
	for _, sk := range s.Skills {
		fmt.Fprintf(&b, "• %s (level %d, %s)\n", sk.Name, sk.Level, sk.Mastery)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatEvent(e SSEEvent) string {
	switch e.Type {
	case "request.completed":
		if applied, _ := e.Data["applied"].(bool); applied {
			return "Queued request applied."
		}
		return fmt.Sprintf("Queued request rejected: %v", e.Data["rejection"])
	case "request.failed":
		return fmt.Sprintf("Queued request failed: %v", e.Data["error"])
	case "connected":
		return "Listening for session events."
	}
	return ""
}

func (m ConsoleUI) sendCombat(action combat.Action, opponentID string) tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		resp, err := sendCombat(m.client, m.config.APIBaseURL, id, action, opponentID)
		return actionResultMsg{resp: resp, combat: true, err: err}
	}
}

func (m ConsoleUI) sendAction(env state.Envelope) tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		resp, err := sendAction(m.client, m.config.APIBaseURL, id, env)
		return actionResultMsg{resp: resp, err: err}
	}
}

func (m ConsoleUI) sendUpdate(u *state.KnowledgeUpdate) tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		reqID, err := sendUpdate(m.client, m.config.APIBaseURL, id, u)
		return updateQueuedMsg{requestID: reqID, err: err}
	}
}

func (m ConsoleUI) fetchSheet(characterID string) tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		sheet, err := getSheet(m.client, m.config.APIBaseURL, id, characterID)
		return sheetMsg{sheet: sheet, err: err}
	}
}

func (m ConsoleUI) refreshGameState() tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		gs, err := getGameState(m.client, m.config.APIBaseURL, id)
		return gameStateMsg{gs, err}
	}
}

func (m ConsoleUI) createSession(genre state.Genre) tea.Cmd {
	return func() tea.Msg {
		gs, err := createSession(m.client, m.config.APIBaseURL, genre, m.player)
		return sessionCreatedMsg{gs, err}
	}
}

// subscribe streams session events into m.events until stop is called.
// The stream client has no timeout since the connection is long-lived.
func (m *ConsoleUI) subscribe() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.stopEvents = cancel
	m.events = make(chan SSEEvent, 16)

	events := m.events
	baseURL := m.config.APIBaseURL
	id := m.gameState.ID
	go func() {
		if err := listenToSSE(ctx, &http.Client{}, baseURL, id, events); err != nil && ctx.Err() == nil {
			events <- SSEEvent{Type: "request.failed", Data: map[string]any{"error": err.Error()}}
		}
	}()
	return waitForEvent(events)
}

func waitForEvent(events <-chan SSEEvent) tea.Cmd {
	return func() tea.Msg {
		return sseMsg{event: <-events}
	}
}

func (m ConsoleUI) quit() (tea.Model, tea.Cmd) {
	if m.stopEvents != nil {
		m.stopEvents()
	}
	return m, tea.Quit
}

func (m ConsoleUI) updateGenreModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case sessionCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.gameState = msg.gameState
		m.showGenreModal = false
		if m.width > 0 && m.height > 0 {
			m.resize()
		}
		m.ready = true
		m.target = pickTarget(m.gameState, "")
		m.addEntry(entryInfo, fmt.Sprintf("Session %s started as %s. Type /help for commands.", m.gameState.ID, m.gameState.Player.Label()))
		m.refreshMeta()
		m.textarea.Focus()
		listen := m.subscribe()
		return m, tea.Batch(textarea.Blink, listen)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}
		if m.loading || m.err != nil {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyUp:
			if m.selectedGenre > 0 {
				m.selectedGenre--
			}
		case tea.KeyDown:
			if m.selectedGenre < len(genres)-1 {
				m.selectedGenre++
			}
		case tea.KeyEnter:
			m.loading = true
			return m, m.createSession(genres[m.selectedGenre])
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m.quit()
		}
		switch msg.String() {
		case "y", "Y":
			return m.quit()
		case "n", "N":
			m.showQuitModal = false
			if m.showGenreModal {
				return m, nil
			}
			m.textarea.Focus()
			return m, textarea.Blink
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to quit?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderGenreModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	switch {
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to create session: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Creating Session..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Rolling up your character..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a Genre"))
		content.WriteString("\n\n")
		for i, g := range genres {
			if i == m.selectedGenre {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", g)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", g)))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showGenreModal {
		return m.renderGenreModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	logWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - logWidth - 6

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.logViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(logWidth-4, 0))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.logViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	usable = min(max(usable, 10), 80)

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
