package catalog

import (
	"github.com/smallbiznis/salesdesk/internal/catalog/repository"
	"github.com/smallbiznis/salesdesk/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewLookup),
)
