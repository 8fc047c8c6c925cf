package app

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/engine"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/navigation"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/remote"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/search"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/session"
	"github.com/cerealmilkdev/Sahq-SHOPIFY/internal/view"
)

// newSession builds one visitor's widgets. Each session has its own cookie
// jar, so the remote service sees one cart per visitor, while the transport
// and its breakers are shared.
func (a *App) newSession(id string) (*session.Session, error) {
	jar, err := remote.NewCookieJar()
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	client, err := remote.NewCartClient(a.cfg.RemoteBaseURL, a.cartDoer, jar, a.logger)
	if err != nil {
		return nil, fmt.Errorf("cart client: %w", err)
	}

	drawer := view.NewDrawer()
	eng := engine.New(client, a.renderer, drawer, engine.Config{
		MutationTimeout:      a.cfg.MutationTimeout,
		NotifyChangeFailures: a.cfg.NotifyChangeFailures,
		Observer:             a.observer,
	}, a.logger)

	limiter := rate.NewLimiter(rate.Limit(a.cfg.SearchRatePerSec), a.cfg.SearchBurst)
	overlay := search.NewOverlay(a.search, a.searchCache, a.renderer, limiter, a.logger)

	return &session.Session{
		ID:     id,
		Engine: eng,
		Widgets: view.Widgets{
			Drawer: drawer,
			Menu:   navigation.NewMenu(),
			Search: overlay,
		},
	}, nil
}
