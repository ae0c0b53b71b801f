package catalog

import (
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/repository"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
