package department

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/workforce/internal/department/repository"
	"github.com/smallbiznis/workforce/internal/department/service"
)

var Module = fx.Module("department",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
