package exchangerate

import (
	"github.com/smallbiznis/salesdesk/internal/exchangerate/repository"
	"github.com/smallbiznis/salesdesk/internal/exchangerate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("exchangerate.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewRateCache),
	fx.Provide(service.NewLookup),
)
