// Package app assembles the sync core from client settings: one API
// client, one alert presenter, the vote controller, the notification
// badge, panel and poller, and the dispatcher that drives them.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/devcove/internal/alert"
	"github.com/emilythestrangee/devcove/internal/apiclient"
	"github.com/emilythestrangee/devcove/internal/config"
	"github.com/emilythestrangee/devcove/internal/intent"
	"github.com/emilythestrangee/devcove/internal/models"
	"github.com/emilythestrangee/devcove/internal/notify"
	"github.com/emilythestrangee/devcove/internal/vote"
)

// Views is everything a front end draws.
type Views interface {
	vote.View
	notify.BadgeView
	notify.PanelView
	alert.Surface
}

type App struct {
	cfg config.ClientConfig
	log *slog.Logger

	API        *apiclient.Client
	Alerts     *alert.Presenter
	Votes      *vote.Controller
	Badge      *notify.Badge
	Panel      *notify.Panel
	Poller     *notify.Poller
	MarkRead   *notify.MarkReader
	Dispatcher *intent.Dispatcher
}

// New validates cfg and builds every component. Nothing runs until Run.
func New(cfg config.ClientConfig, views Views, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	api := apiclient.New(cfg.BaseURL, cfg.RequestTimeout, apiclient.Credentials{
		BearerToken: cfg.Token,
		CSRFToken:   cfg.CSRFToken,
	})
	alerts := alert.NewPresenter(views)
	votes := vote.NewController(vote.NewClient(api, cfg.VotePath), alerts, views, vote.Config{
		Authenticated: api.Authenticated,
		LoginURL:      loginURL(cfg),
		Logger:        log,
	})

	notifications := notify.NewClient(api, cfg.NotificationsPath, cfg.MarkAllReadPath)
	seq := &notify.Sequencer{}
	badge := notify.NewBadge(views)
	panel := notify.NewPanel(notifications, seq, badge, views, notify.WithPanelLogger(log))
	poller := notify.NewPoller(notifications, seq, badge, panel, cfg.PollInterval, log)
	markRead := notify.NewMarkReader(notifications, panel, poller, log)

	dispatcher := intent.NewDispatcher(intent.Deps{
		Votes:    votes,
		Panel:    panel,
		MarkRead: markRead,
		Alerts:   alerts,
		Logger:   log,
	}, intent.DefaultBuffer)

	return &App{
		cfg:        cfg,
		log:        log,
		API:        api,
		Alerts:     alerts,
		Votes:      votes,
		Badge:      badge,
		Panel:      panel,
		Poller:     poller,
		MarkRead:   markRead,
		Dispatcher: dispatcher,
	}, nil
}

// loginURL resolves a relative login path against the API host.
func loginURL(cfg config.ClientConfig) string {
	if strings.HasPrefix(cfg.LoginURL, "/") {
		return strings.TrimRight(cfg.BaseURL, "/") + cfg.LoginURL
	}
	return cfg.LoginURL
}

// Emit forwards an intent to the dispatcher.
func (a *App) Emit(i intent.Intent) bool {
	return a.Dispatcher.Emit(i)
}

// LoadPosts fetches the feed and mounts a vote control for every post.
func (a *App) LoadPosts(ctx context.Context) ([]models.PostView, error) {
	var posts []models.PostView
	if err := a.API.Do(ctx, http.MethodGet, a.cfg.PostsPath, nil, &posts); err != nil {
		return nil, fmt.Errorf("loading posts: %w", err)
	}
	for _, p := range posts {
		a.Votes.Mount(vote.Target{Kind: models.TargetPost, ID: p.ID}, p.Score, p.UserVote)
	}
	return posts, nil
}

// Run starts the dispatcher and, for signed-in users, the poller. It
// returns when ctx is done and every started request has settled.
func (a *App) Run(ctx context.Context) error {
	if a.API.Authenticated() && a.API.Credentials().CSRFToken == "" {
		if err := a.API.FetchCSRF(ctx, a.cfg.CSRFPath); err != nil {
			a.log.Warn("could not obtain csrf token, mutations are disabled", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Dispatcher.Run(gctx)
	})

	if a.API.Authenticated() {
		if err := a.Poller.Start(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			a.Poller.Stop()
			return nil
		})
	}

	err := g.Wait()
	a.Alerts.Dismiss()
	return err
}
