// Package tui hosts the sync core in a terminal. Input becomes intents
// for the dispatcher; components draw into a Store that the program
// re-reads whenever it signals a change.
package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/emilythestrangee/devcove/internal/intent"
	"github.com/emilythestrangee/devcove/internal/models"
	"github.com/emilythestrangee/devcove/internal/notify"
	"github.com/emilythestrangee/devcove/internal/vote"
)

// Emitter accepts user intents. *app.App satisfies it.
type Emitter interface {
	Emit(i intent.Intent) bool
}

// redrawMsg tells the program the store changed.
type redrawMsg struct{}

type Model struct {
	emit  Emitter
	store *Store
	keys  keyMap

	posts  []models.PostView
	cursor int

	width  int
	height int
}

func NewModel(emit Emitter, store *Store, posts []models.PostView) Model {
	return Model{
		emit:  emit,
		store: store,
		keys:  defaultKeyMap(),
		posts: posts,
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m Model) waitForChange() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		if !store.wait() {
			return nil
		}
		return redrawMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case redrawMsg:
		return m, m.waitForChange()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Button != tea.MouseButtonLeft || msg.Action != tea.MouseActionPress {
			return m, nil
		}
		region := regionAt(msg.X, msg.Y, computeLayout(m.width, m.store.snapshot()))
		m.emit.Emit(intent.Clicked{Region: region})
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.store.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.posts)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Upvote):
		m.vote(models.DirectionUp)
	case key.Matches(msg, m.keys.Downvote):
		m.vote(models.DirectionDown)
	case key.Matches(msg, m.keys.Panel):
		m.emit.Emit(intent.PanelToggled{})
	case key.Matches(msg, m.keys.Close):
		m.emit.Emit(intent.KeyPressed{Key: msg.String()})
	case key.Matches(msg, m.keys.MarkRead):
		m.emit.Emit(intent.MarkAllReadRequested{})
	case key.Matches(msg, m.keys.Dismiss):
		m.emit.Emit(intent.AlertDismissed{})
	}
	return m, nil
}

func (m Model) vote(dir models.Direction) {
	if len(m.posts) == 0 {
		return
	}
	m.emit.Emit(intent.VoteRequested{
		Target:    vote.Target{Kind: models.TargetPost, ID: m.posts[m.cursor].ID},
		Direction: dir,
	})
}

// layout records where clickable regions were drawn. Rows are
// zero-based terminal lines; panelBottom is exclusive and equals
// panelTop while the panel is closed.
type layout struct {
	toggleStart int
	panelTop    int
	panelBottom int
}

// regionAt maps a click to the panel region it landed in.
func regionAt(x, y int, l layout) notify.Region {
	switch {
	case y == 0 && x >= l.toggleStart:
		return notify.RegionToggle
	case y >= l.panelTop && y < l.panelBottom:
		return notify.RegionPanel
	default:
		return notify.RegionOutside
	}
}
