package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesdesk/internal/config"
	"github.com/smallbiznis/salesdesk/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		if err := Run(conn); err != nil {
			return err
		}
		if cfg.DefaultOrgID == 0 {
			return nil
		}
		created, err := seed.EnsureLedgerAccounts(context.Background(), conn, node, snowflake.ID(cfg.DefaultOrgID))
		if err != nil {
			return err
		}
		if created > 0 {
			log.Info("seeded ledger accounts", zap.Int64("org_id", cfg.DefaultOrgID), zap.Int("accounts", created))
		}
		return nil
	}),
)
