package cli

import (
	"context"
	"fmt"

	"github.com/dkotenko/addrhub/internal/client/content"
	"github.com/dkotenko/addrhub/internal/client/models"
	"github.com/dkotenko/addrhub/internal/client/repositories/records"
)

// Command handlers. Each prints its own result/error through printlnFn
// so the REPL loop stays pure dispatch.

func (a *App) Login(ctx context.Context, callbackURL string) error {
	if err := a.authRepo.HandleCallbackURL(ctx, callbackURL); err != nil {
		printlnFn("Login failed:", err)
		return err
	}
	if err := a.accountRepo.Refresh(ctx); err != nil {
		printlnFn("Logged in, but account fetch failed:", err)
		return err
	}
	printlnFn("Logged in.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authRepo.RemoveAccessToken(ctx); err != nil {
		printlnFn("Logout failed:", err)
		return err
	}
	printlnFn("Logged out.")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	sess := a.sessionEngine.Current()
	switch sess.State {
	case models.SessionActive:
		printlnFn(fmt.Sprintf("%s <%s>, address %q", sess.Account.Name, sess.Account.Email, sess.Address.Handle))
	case models.SessionNotAvailable:
		if a.isLoggedIn() {
			printlnFn("Logged in; account or address not set yet. Try 'refresh' and 'use <address>'.")
		} else {
			printlnFn("Not logged in.")
		}
	}
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.accountRepo.Refresh(ctx); err != nil {
		printlnFn("Account refresh failed:", err)
		return err
	}
	printlnFn("Account refreshed.")
	return nil
}

func (a *App) Addresses(ctx context.Context) error {
	acct, ok := a.sessionEngine.Account()
	if !ok {
		printlnFn("No account synchronized. Try 'refresh'.")
		return nil
	}
	selected, _ := a.sessionEngine.SelectedAddress()
	for _, addr := range acct.Addresses {
		marker := " "
		if addr.Handle == selected.Handle {
			marker = "*"
		}
		printlnFn(fmt.Sprintf("%s %s (expires %s)", marker, addr.Handle, addr.ExpiresAt.Format("2006-01-02")))
	}
	return nil
}

func (a *App) Use(ctx context.Context, handle string) error {
	if err := a.accountRepo.SelectAddress(ctx, handle); err != nil {
		printlnFn("Cannot select address:", err)
		return err
	}
	printlnFn("Using address", handle)
	return nil
}

func (a *App) Fetch(ctx context.Context, vertical string) error {
	repo, addr, err := a.verticalFor(vertical)
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	if err := repo.Fetch(ctx, addr); err != nil {
		printlnFn("Fetch failed:", err)
		return err
	}
	printlnFn("Fetched", vertical, "for", addr)
	return nil
}

func (a *App) Resync(ctx context.Context, vertical string) error {
	repo, addr, err := a.verticalFor(vertical)
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	if err := repo.Resync(ctx, addr); err != nil {
		printlnFn("Resync failed:", err)
		return err
	}
	printlnFn("Resynced", vertical, "for", addr)
	return nil
}

func (a *App) List(ctx context.Context, vertical string) error {
	repo, addr, err := a.verticalFor(vertical)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	list := currentSnapshot(ctx, repo, addr)
	if len(list) == 0 {
		printlnFn("Nothing cached. Try 'fetch " + vertical + "'.")
		return nil
	}
	for _, rec := range list {
		flag := ""
		if !rec.Submitted {
			flag = " [not submitted]"
		}
		printlnFn(fmt.Sprintf("%s  %s  %s%s", rec.CreatedAt.Format("2006-01-02 15:04"), rec.Key, firstLine(rec.Content), flag))
	}
	return nil
}

func (a *App) AddStatus(ctx context.Context, text string) error {
	return a.save(ctx, "statuses", content.NewLocalRecord("", text))
}

func (a *App) AddPaste(ctx context.Context, title, text string) error {
	return a.save(ctx, "pastes", content.NewKeyedRecord("", title, text))
}

func (a *App) AddPURL(ctx context.Context, name, target string) error {
	return a.save(ctx, "purls", content.NewKeyedRecord("", name, target))
}

func (a *App) Reconcile(ctx context.Context) error {
	addr, ok := a.sessionEngine.SelectedAddress()
	if !ok {
		printlnFn("No address selected.")
		return nil
	}
	for name, repo := range a.verticals {
		if err := repo.Reconcile(ctx, addr.Handle); err != nil {
			printlnFn(fmt.Sprintf("%s: %v", name, err))
		}
	}
	printlnFn("Reconcile pass finished.")
	return nil
}

// save routes a freshly minted record (address filled in here) through
// the vertical's optimistic write path.
func (a *App) save(ctx context.Context, vertical string, rec records.Record) error {
	repo, addr, err := a.verticalFor(vertical)
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	rec.Address = addr

	if err := repo.Save(ctx, rec); err != nil {
		printlnFn("Saved locally; upload pending:", err)
		return err
	}
	printlnFn("Saved.")
	return nil
}

func (a *App) verticalFor(name string) (contentRepo, string, error) {
	repo, ok := a.verticals[name]
	if !ok {
		return nil, "", fmt.Errorf("unknown vertical %q", name)
	}
	addr, ok := a.sessionEngine.SelectedAddress()
	if !ok {
		return nil, "", fmt.Errorf("no address selected")
	}
	return repo, addr.Handle, nil
}

// currentSnapshot reads the seed value of an observe stream and tears
// the subscription down again.
func currentSnapshot(ctx context.Context, repo contentRepo, address string) []records.Record {
	obsCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	return <-repo.Observe(obsCtx, address)
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
