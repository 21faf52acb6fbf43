// Package api provides the HTTP API for the application
package api

import (
	"nextreel/internal/platform/config"
	"nextreel/internal/platform/logger"
	phttp "nextreel/internal/platform/net/http"
	"nextreel/internal/platform/store"

	"nextreel/internal/modkit"
	"nextreel/internal/modkit/httpkit"
	"nextreel/internal/modkit/module"

	discovermod "nextreel/internal/services/discover/module"
	"nextreel/internal/services/discover/tier"
	metamod "nextreel/internal/services/meta/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Tiers          *tier.Registry
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
	}

	mods := []module.Module{
		metamod.New(deps),
		discovermod.New(deps, discovermod.Options{Tiers: opt.Tiers}),
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}
