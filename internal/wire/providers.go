// Package wire 提供依赖注入配置
package wire

import (
	"fmt"
	"os"

	"github.com/google/wire"

	"mtl-refine-api/internal/application/analysis"
	"mtl-refine-api/internal/application/glossary"
	"mtl-refine-api/internal/application/refine"
	"mtl-refine-api/internal/config"
	"mtl-refine-api/internal/domain/repository"
	"mtl-refine-api/internal/infrastructure/messaging"
	"mtl-refine-api/internal/infrastructure/persistence/postgres"
	"mtl-refine-api/internal/infrastructure/persistence/redis"
	"mtl-refine-api/internal/infrastructure/rewriter"
	"mtl-refine-api/internal/interfaces/http/handler"
	"mtl-refine-api/internal/interfaces/http/router"
)

// Worker 批量润色后台进程的依赖容器
type Worker struct {
	Orchestrator *refine.Orchestrator
	Consumer     *messaging.Consumer
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewNovelRepository,
	postgres.NewChapterRepository,
	postgres.NewGlossaryRepository,
	postgres.NewRefineJobRepository,
	postgres.NewProcessingLogRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.NovelRepository), new(*postgres.NovelRepository)),
	wire.Bind(new(repository.ChapterRepository), new(*postgres.ChapterRepository)),
	wire.Bind(new(repository.GlossaryRepository), new(*postgres.GlossaryRepository)),
	wire.Bind(new(repository.JobRepository), new(*postgres.RefineJobRepository)),
	wire.Bind(new(repository.ProcessingLogRepository), new(*postgres.ProcessingLogRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
)

// ApplicationSet 应用层提供者集合
var ApplicationSet = wire.NewSet(
	ProvideRewriter,
	ProvideEngine,
	ProvideGlossaryService,
	refine.NewService,
	ProvideOrchestrator,
	analysis.NewRuleTagger,
	wire.Bind(new(analysis.EntityTagger), new(*analysis.RuleTagger)),
	analysis.NewExtractor,
	ProvideClusterer,
	ProvideAnalyzer,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewNovelHandler,
	handler.NewGlossaryHandler,
	handler.NewRefineHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// ProvidePostgresClient 提供 PostgreSQL 客户端并执行表结构迁移
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := client.AutoMigrate(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideRewriter 提供外部改写服务客户端
func ProvideRewriter(cfg *config.Config, limiter *redis.RateLimiter) refine.Rewriter {
	return rewriter.NewClient(&cfg.Refine.Rewriter, limiter)
}

// ProvideEngine 提供润色引擎
func ProvideEngine(cfg *config.Config, rw refine.Rewriter) *refine.Engine {
	return refine.NewEngine(rw, cfg.Refine.MinTextLength, cfg.Refine.MaxTextLength)
}

// ProvideGlossaryService 提供词汇表服务
func ProvideGlossaryService(
	novelRepo repository.NovelRepository,
	glossaryRepo repository.GlossaryRepository,
	cache *redis.Cache,
	cfg *config.Config,
) *glossary.Service {
	return glossary.NewService(novelRepo, glossaryRepo, cache, cfg.Cache.GlossaryTTL)
}

// ProvideOrchestrator 提供批量润色编排器
func ProvideOrchestrator(
	novelRepo repository.NovelRepository,
	chapterRepo repository.ChapterRepository,
	jobRepo repository.JobRepository,
	logRepo repository.ProcessingLogRepository,
	service *refine.Service,
	producer *messaging.Producer,
	cfg *config.Config,
) *refine.Orchestrator {
	return refine.NewOrchestrator(
		novelRepo, chapterRepo, jobRepo, logRepo,
		service, producer,
		cfg.Refine.WorkerConcurrency, cfg.Refine.RecentLogs,
	)
}

// ProvideClusterer 提供变体聚类器
func ProvideClusterer(cfg *config.Config) *analysis.Clusterer {
	return analysis.NewClusterer(cfg.Analysis.SimilarityThreshold)
}

// ProvideAnalyzer 提供一致性分析器
func ProvideAnalyzer(
	novelRepo repository.NovelRepository,
	chapterRepo repository.ChapterRepository,
	glossaryRepo repository.GlossaryRepository,
	extractor *analysis.Extractor,
	clusterer *analysis.Clusterer,
	cfg *config.Config,
) *analysis.Analyzer {
	return analysis.NewAnalyzer(
		novelRepo, chapterRepo, glossaryRepo,
		extractor, clusterer,
		cfg.Analysis.MaxEntitiesPerMap,
	)
}

// ProvideConsumer 提供批量润色消息消费者
func ProvideConsumer(redisClient *redis.Client, cfg *config.Config) *messaging.Consumer {
	sc := cfg.Messaging.RedisStream
	return messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamBatchRefine,
		Group:         messaging.ConsumerGroupRefineWorker,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  sc.BlockTimeout,
		ClaimInterval: sc.ClaimInterval,
		RetryLimit:    sc.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    sc.RetryBackoff.Initial,
			Max:        sc.RetryBackoff.Max,
			Multiplier: sc.RetryBackoff.Multiplier,
		},
	})
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
