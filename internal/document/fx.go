package document

import (
	"github.com/smallbiznis/kontera/internal/document/repository"
	"github.com/smallbiznis/kontera/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
