package inventory

import (
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/engine"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/repository"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("inventory.service",
	fx.Provide(repository.Provide),
	fx.Provide(engine.New),
	fx.Provide(service.New),
)
