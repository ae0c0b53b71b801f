package production

import (
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/production/repository"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/production/service"
	"go.uber.org/fx"
)

var Module = fx.Module("production.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
