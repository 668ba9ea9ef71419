// Package main is the entry point for the Beacon broadcast tool.
package main

import (
	"Beacon/pkg/core"
	"Beacon/pkg/db"
	"Beacon/pkg/dispatch"
	"Beacon/pkg/groups"
	"Beacon/pkg/logging"
	"Beacon/pkg/login"
	"Beacon/pkg/metrics"
	"Beacon/pkg/models"
	"Beacon/pkg/session"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// App struct
type App struct {
	cfg  core.Config
	logs *logging.Registry
	log  zerolog.Logger

	conn        *gorm.DB
	store       *db.Store
	groups      *groups.Manager
	coordinator *dispatch.Coordinator
	gate        *session.Gate
	registry    *prometheus.Registry
}

// NewApp creates a new App application struct
func NewApp(cfg core.Config, logs *logging.Registry) *App {
	return &App{
		cfg:  cfg,
		logs: logs,
		log:  logs.Get("app"),
	}
}

// startup opens the database and builds the components. The context bounds
// the metrics server and the migration retries.
func (a *App) startup(ctx context.Context) error {
	conn, err := db.Open(ctx, db.Options{
		Path:   a.cfg.DBPath,
		Driver: a.cfg.DBDriver,
		Logger: a.logs.Get("store"),
	})
	if err != nil {
		return core.NewStoreError("open database", err)
	}
	a.conn = conn
	a.store = db.NewStore(conn, a.logs.Get("store"))
	a.groups = groups.NewManager(a.store, a.logs.Get("groups"))
	a.gate = session.NewGate(a.cfg.StatusFile, a.logs.Get("session"))

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.coordinator = dispatch.NewCoordinator(a.store, dispatch.Options{
		ResourceDir:    a.cfg.ResourceDir,
		SenderBasename: a.cfg.SenderBasename,
		RequestFile:    a.cfg.RequestFile,
		MessagesLog:    a.cfg.MessagesLog,
		PollInterval:   a.cfg.PollInterval,
	}, metrics.NewDispatch(a.registry), a.logs.Get("dispatch"))

	if a.cfg.MetricsAddr != "" {
		metrics.Serve(ctx, a.cfg.MetricsAddr, a.registry, a.log)
	}
	return nil
}

// shutdown is called at application closure.
func (a *App) shutdown() {
	if a.coordinator != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.coordinator.Shutdown(ctx); err != nil {
			a.log.Error().Err(err).Msg("send did not stop in time")
		}
	}
	db.Close(a.conn)
}

// --- Methods used by the commands ---

// Mode reports whether the main mode is available or a login is needed.
func (a *App) Mode() session.Mode {
	return a.gate.Decide()
}

// Contacts returns every contact in storage order.
func (a *App) Contacts(ctx context.Context) ([]models.Contact, error) {
	return a.store.ListContacts(ctx)
}

// ImportContacts loads a JSON array of {"name","phone"} objects into the store.
func (a *App) ImportContacts(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	var contacts []models.Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return 0, fmt.Errorf("%w: %s is not a contact list: %v", core.ErrValidation, path, err)
	}
	return a.store.SaveContacts(ctx, contacts)
}

// Groups returns the group tree, with members when expand is set.
func (a *App) Groups(ctx context.Context, expand bool) ([]groups.Node, error) {
	if expand {
		nodes, err := a.groups.Tree(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if _, err := a.groups.Expand(ctx, n.Group.ID); err != nil {
				return nil, err
			}
		}
	}
	return a.groups.Tree(ctx)
}

// CreateGroup builds a group from the selected contact ids.
func (a *App) CreateGroup(ctx context.Context, name string, selected []uint) (models.Group, error) {
	draft, err := a.groups.PrepareGroupCreation(selected)
	if err != nil {
		return models.Group{}, err
	}
	return a.groups.CreateGroup(ctx, draft, name)
}

// Members returns the contacts of one group.
func (a *App) Members(ctx context.Context, groupID uint) ([]models.Contact, error) {
	return a.groups.Expand(ctx, groupID)
}

// Send broadcasts richText to a group.
func (a *App) Send(ctx context.Context, groupID uint, richText string) (*dispatch.Run, error) {
	return a.coordinator.Send(ctx, groupID, richText)
}

// Login runs the QR login executable.
func (a *App) Login(ctx context.Context, updates chan<- login.Update) (login.State, error) {
	flow := login.NewFlow(login.Options{
		ResourceDir:  a.cfg.ResourceDir,
		Basename:     a.cfg.LoginBasename,
		QRImage:      a.cfg.QRImage,
		QRLog:        a.cfg.QRLog,
		PollInterval: a.cfg.PollInterval,
		Grace:        a.cfg.LoginGrace,
	}, a.logs.Get("login"))
	return flow.Run(ctx, updates)
}
