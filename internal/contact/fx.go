package contact

import (
	"github.com/smallbiznis/kontera/internal/cache"
	"github.com/smallbiznis/kontera/internal/contact/repository"
	"github.com/smallbiznis/kontera/internal/contact/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contact.service",
	fx.Provide(cache.NewContactTagCache),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
