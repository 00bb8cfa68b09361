// Package cli wires the addrhub client together and drives it from a
// small REPL.
package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dkotenko/addrhub/internal/client/account"
	"github.com/dkotenko/addrhub/internal/client/api"
	"github.com/dkotenko/addrhub/internal/client/auth"
	"github.com/dkotenko/addrhub/internal/client/config"
	"github.com/dkotenko/addrhub/internal/client/content"
	"github.com/dkotenko/addrhub/internal/client/models"
	"github.com/dkotenko/addrhub/internal/client/repositories"
	"github.com/dkotenko/addrhub/internal/client/repositories/records"
	"github.com/dkotenko/addrhub/internal/client/secure"
	"github.com/dkotenko/addrhub/internal/client/session"
	"github.com/dkotenko/addrhub/internal/logging"

	_ "modernc.org/sqlite"
)

// contentRepo is the vertical-independent surface the CLI uses. Every
// content.Repository instantiation satisfies it.
type contentRepo interface {
	Fetch(ctx context.Context, address string) error
	Resync(ctx context.Context, address string) error
	Save(ctx context.Context, rec records.Record) error
	Delete(ctx context.Context, rec records.Record) error
	Observe(ctx context.Context, address string) <-chan []records.Record
	Reconcile(ctx context.Context, address string) error
}

type App struct {
	config *config.Config
	log    logging.Logger

	authEngine    *session.AuthEngine
	sessionEngine *session.Engine
	authRepo      *auth.Repository
	accountRepo   *account.Repository

	verticals map[string]contentRepo
}

// NewApp builds the full client. A secure-store failure here is fatal:
// without session persistence the client cannot run.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewDefault(slog.LevelInfo)

	store, err := secure.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	db, err := repositories.InitDatabase(ctx, filepath.Join(cfg.DataDir, cfg.DatabaseFile))
	if err != nil {
		return nil, err
	}

	authEngine := session.NewAuthEngine(secure.NewTokenStore(store, secure.KeyAccessToken), log)
	sessionEngine := session.NewEngine(
		secure.NewArchiver[models.Account](store, secure.KeyAccount),
		secure.NewArchiver[models.Address](store, secure.KeySelectedAddress),
		log,
	)

	apiClient := api.New(cfg.APIEndpoint, authEngine.AccessToken, log)

	a := &App{
		config:        cfg,
		log:           log,
		authEngine:    authEngine,
		sessionEngine: sessionEngine,
		authRepo:      auth.NewRepository(apiClient, authEngine, log),
		accountRepo:   account.NewRepository(apiClient, authEngine, sessionEngine, log),
		verticals: map[string]contentRepo{
			"statuses": content.Statuses(apiClient, authEngine, records.NewSQLiteRepository(db, "statuses"), log),
			"now":      content.Now(apiClient, authEngine, records.NewSQLiteRepository(db, "now_pages"), log),
			"pastes":   content.Pastes(apiClient, authEngine, records.NewSQLiteRepository(db, "pastes"), log),
			"pics":     content.Pictures(apiClient, authEngine, records.NewSQLiteRepository(db, "pictures"), log),
			"purls":    content.PURLs(apiClient, authEngine, records.NewSQLiteRepository(db, "purls"), log),
			"page":     content.Pages(apiClient, authEngine, records.NewSQLiteRepository(db, "pages"), log),
			"weblog":   content.Weblog(apiClient, authEngine, records.NewSQLiteRepository(db, "weblog_entries"), log),
		},
	}
	return a, nil
}

// Run starts the background workers and the REPL, returning when the
// user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context, scanner lineScanner) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.accountRepo.WatchLogouts(ctx)
	go a.startReconcileLoop(ctx, a.config.ReconcileInterval)

	runREPL(ctx, a, a.statusLine, scanner)
}

// startReconcileLoop periodically retries pending offline writes for the
// selected address across every vertical.
func (a *App) startReconcileLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = config.DefaultReconcileInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			addr, ok := a.sessionEngine.SelectedAddress()
			if !ok || !a.authEngine.IsLoggedIn() {
				continue
			}
			for name, repo := range a.verticals {
				if err := repo.Reconcile(ctx, addr.Handle); err != nil {
					a.log.Debug(ctx, "reconcile pass incomplete", "vertical", name, "error", err)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.authEngine.IsLoggedIn()
}

// statusLine renders the REPL prompt prefix.
func (a *App) statusLine() string {
	if !a.isLoggedIn() {
		return "logged out"
	}
	sess := a.sessionEngine.Current()
	if sess.State != models.SessionActive {
		return "logged in"
	}
	return sess.Address.Handle
}
