package costcenter

import (
	"github.com/smallbiznis/kontera/internal/costcenter/repository"
	"github.com/smallbiznis/kontera/internal/costcenter/service"
	"go.uber.org/fx"
)

var Module = fx.Module("costcenter.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
