package tax

import (
	"github.com/smallbiznis/salesdesk/internal/config"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
	"github.com/smallbiznis/salesdesk/internal/tax/repository"
	"github.com/smallbiznis/salesdesk/internal/tax/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tax.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(provideRulesSource),
	fx.Provide(service.NewResolver),
	fx.Provide(service.NewService),
)

func provideRulesSource(holder *config.TaxRulesHolder) taxdomain.RulesSource {
	return holder
}
