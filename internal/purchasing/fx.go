package purchasing

import (
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/purchasing/repository"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/purchasing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchasing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
