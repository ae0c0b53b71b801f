package migration

import (
	"strings"

	auditdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/domain"
	catalogdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/events"
	inventorydomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	productiondomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/production/domain"
	purchasingdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/purchasing/domain"
	salesdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		return Apply(conn, cfg, log.Named("migration"))
	}),
)

// Apply runs the embedded SQL migrations on Postgres. Other drivers fall back
// to gorm AutoMigrate when DB_AUTO_MIGRATE is on.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if strings.EqualFold(cfg.DBType, "postgres") {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		state, err := RunMigrations(sqlDB)
		if err != nil {
			return err
		}
		log.Info("schema ready",
			zap.Uint("version", state.Version),
			zap.Bool("changed", state.Changed),
			zap.Bool("dirty", state.Dirty),
		)
		return nil
	}

	if !cfg.DBAutoMigrate {
		log.Info("auto migrate disabled", zap.String("db_type", cfg.DBType))
		return nil
	}
	log.Info("auto migrating models", zap.String("db_type", cfg.DBType))
	return conn.AutoMigrate(Models()...)
}

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&catalogdomain.Variant{},
		&inventorydomain.Record{},
		&inventorydomain.LedgerEntry{},
		&events.OutboxEvent{},
		&auditdomain.AuditLog{},
		&productiondomain.Ticket{},
		&productiondomain.Detail{},
		&productiondomain.DetailStatusLog{},
		&purchasingdomain.Ticket{},
		&purchasingdomain.Detail{},
		&purchasingdomain.DetailStatusLog{},
		&salesdomain.Order{},
		&salesdomain.OrderDetail{},
		&salesdomain.DetailStatusLog{},
	}
}
