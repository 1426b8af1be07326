package assignmentrule

import (
	"github.com/smallbiznis/kontera/internal/assignmentrule/repository"
	"github.com/smallbiznis/kontera/internal/assignmentrule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("assignmentrule.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
