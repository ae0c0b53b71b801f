package sales

import (
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales/repository"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sales.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
