package vote

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/emilythestrangee/devcove/internal/alert"
	"github.com/emilythestrangee/devcove/internal/apiclient"
	"github.com/emilythestrangee/devcove/internal/models"
)

// Outcome is how a click settled.
type Outcome int

const (
	// OutcomeIgnored covers clicks that never reach the server: a request
	// already in flight, an unmounted or malformed target, or no credential.
	OutcomeIgnored Outcome = iota
	OutcomeLoginRequired
	OutcomeAccepted
	OutcomeRejected
	OutcomeSessionExpired
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoginRequired:
		return "login_required"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeSessionExpired:
		return "session_expired"
	case OutcomeFailed:
		return "failed"
	default:
		return "ignored"
	}
}

// ButtonState is the projection of one target. At most one of Up and
// Down is set. Pending disables both buttons.
type ButtonState struct {
	Score   int
	Up      bool
	Down    bool
	Pending bool
}

// Active returns the direction currently highlighted, or "".
func (s ButtonState) Active() models.Direction {
	switch {
	case s.Up:
		return models.DirectionUp
	case s.Down:
		return models.DirectionDown
	default:
		return ""
	}
}

// Voter performs the vote mutation.
type Voter interface {
	Vote(ctx context.Context, target Target, dir models.Direction) (Result, error)
}

// Alerter shows user-facing feedback.
type Alerter interface {
	Show(a alert.Alert)
}

// View redraws a target's buttons.
type View interface {
	RenderVote(target Target, state ButtonState)
}

type Config struct {
	// Authenticated reports whether a user is signed in.
	Authenticated func() bool
	LoginURL      string
	Logger        *slog.Logger
}

type Controller struct {
	voter  Voter
	alerts Alerter
	view   View
	cfg    Config
	log    *slog.Logger

	mu     sync.Mutex
	states map[Target]*ButtonState
}

func NewController(voter Voter, alerts Alerter, view View, cfg Config) *Controller {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Authenticated == nil {
		cfg.Authenticated = func() bool { return false }
	}
	return &Controller{
		voter:  voter,
		alerts: alerts,
		view:   view,
		cfg:    cfg,
		log:    log.With("component", "vote"),
		states: make(map[Target]*ButtonState),
	}
}

// Mount starts tracking target with the state the server last reported.
// Remounting replaces score and direction but keeps an in-flight request.
func (c *Controller) Mount(target Target, score int, current models.Direction) {
	c.mu.Lock()
	s, ok := c.states[target]
	if !ok {
		s = &ButtonState{}
		c.states[target] = s
	}
	s.Score = score
	s.Up = current == models.DirectionUp
	s.Down = current == models.DirectionDown
	snapshot := *s
	c.mu.Unlock()

	c.view.RenderVote(target, snapshot)
}

// Unmount drops target. A response still in flight for it is discarded.
func (c *Controller) Unmount(target Target) {
	c.mu.Lock()
	delete(c.states, target)
	c.mu.Unlock()
}

func (c *Controller) State(target Target) (ButtonState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[target]
	if !ok {
		return ButtonState{}, false
	}
	return *s, true
}

// Click handles one press of a direction button and blocks until the
// vote settles.
func (c *Controller) Click(ctx context.Context, target Target, dir models.Direction) Outcome {
	if !c.cfg.Authenticated() {
		c.alerts.Show(alert.Alert{
			Message:  "Please login to vote!",
			Link:     &alert.Link{Text: "login", URL: c.cfg.LoginURL},
			Severity: alert.Warning,
			Duration: 5 * time.Second,
		})
		return OutcomeLoginRequired
	}

	if !target.Valid() || !validDirection(dir) {
		c.log.Error("malformed vote click", "target", target.String(), "direction", dir)
		return OutcomeIgnored
	}

	c.mu.Lock()
	s, ok := c.states[target]
	if !ok {
		c.mu.Unlock()
		c.log.Warn("vote click on unmounted target", "target", target.String())
		return OutcomeIgnored
	}
	if s.Pending {
		c.mu.Unlock()
		return OutcomeIgnored
	}
	s.Pending = true
	snapshot := *s
	c.mu.Unlock()
	c.view.RenderVote(target, snapshot)

	res, err := c.voter.Vote(ctx, target, dir)

	outcome := c.settle(target, dir, res, err)
	if err != nil {
		c.report(target, err)
	}
	return outcome
}

// settle clears Pending and applies a successful result in one step.
func (c *Controller) settle(target Target, dir models.Direction, res Result, err error) Outcome {
	c.mu.Lock()
	s, ok := c.states[target]
	if !ok {
		c.mu.Unlock()
		if err != nil {
			return classify(err)
		}
		return OutcomeAccepted
	}
	s.Pending = false
	if err == nil {
		s.Score = res.Score
		active := res.Action != Removed
		s.Up = active && dir == models.DirectionUp
		s.Down = active && dir == models.DirectionDown
	}
	snapshot := *s
	c.mu.Unlock()

	c.view.RenderVote(target, snapshot)
	if err != nil {
		return classify(err)
	}
	return OutcomeAccepted
}

func classify(err error) Outcome {
	var appErr *apiclient.ApplicationError
	switch {
	case errors.Is(err, apiclient.ErrNoCredential):
		return OutcomeIgnored
	case errors.As(err, &appErr):
		return OutcomeRejected
	case errors.Is(err, apiclient.ErrSessionExpired):
		return OutcomeSessionExpired
	default:
		return OutcomeFailed
	}
}

func (c *Controller) report(target Target, err error) {
	var appErr *apiclient.ApplicationError
	switch classify(err) {
	case OutcomeIgnored:
		c.log.Error("vote aborted", "target", target.String(), "error", err)
	case OutcomeRejected:
		errors.As(err, &appErr)
		c.alerts.Show(alert.Alert{
			Message:  "Error: " + appErr.Message,
			Severity: alert.Error,
			Duration: 3 * time.Second,
		})
	case OutcomeSessionExpired:
		c.log.Warn("vote rejected, session expired", "target", target.String())
		c.alerts.Show(alert.Alert{
			Message:  "Your session has expired. Please log in again.",
			Link:     &alert.Link{Text: "log in", URL: c.cfg.LoginURL},
			Severity: alert.Warning,
			Duration: 5 * time.Second,
		})
	default:
		c.log.Error("vote failed", "target", target.String(), "error", err)
		c.alerts.Show(alert.Alert{
			Message:  "Something went wrong while voting. Please try again!",
			Severity: alert.Error,
			Duration: 3 * time.Second,
		})
	}
}
