package invoice

import (
	"fmt"

	"github.com/smallbiznis/salesdesk/internal/config"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	"github.com/smallbiznis/salesdesk/internal/invoice/format"
	"github.com/smallbiznis/salesdesk/internal/invoice/render"
	"github.com/smallbiznis/salesdesk/internal/invoice/repository"
	"github.com/smallbiznis/salesdesk/internal/invoice/service"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("invoice.service",
	fx.Provide(provideRepository),
	fx.Provide(render.NewRenderer),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) invoicedomain.Service { return s }),
)

func provideRepository(db *gorm.DB, cfg config.Config) (invoicedomain.Repository, error) {
	if cfg.InvoiceNumberTemplate != "" {
		if err := format.ValidateTemplate(cfg.InvoiceNumberTemplate); err != nil {
			return nil, fmt.Errorf("INVOICE_NUMBER_TEMPLATE: %w", err)
		}
	}
	return repository.NewRepositoryWithTemplate(db, cfg.InvoiceNumberTemplate), nil
}
