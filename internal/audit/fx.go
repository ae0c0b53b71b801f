package audit

import (
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/repository"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
