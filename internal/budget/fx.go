package budget

import (
	"github.com/smallbiznis/kontera/internal/budget/repository"
	"github.com/smallbiznis/kontera/internal/budget/service"
	"go.uber.org/fx"
)

var Module = fx.Module("budget.service",
	fx.Provide(
		repository.Provide,
		service.New,
		service.ProvideService,
		service.ProvideRecalculator,
	),
)
