package employee

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/workforce/internal/employee/repository"
	"github.com/smallbiznis/workforce/internal/employee/service"
)

var Module = fx.Module("employee",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
