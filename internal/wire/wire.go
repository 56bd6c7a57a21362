//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"mtl-refine-api/internal/config"
	"mtl-refine-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		ApplicationSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化批量润色后台进程
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		ApplicationSet,
		ProvideConsumer,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}
