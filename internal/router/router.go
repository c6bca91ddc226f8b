// Package router 组装 HTTP 路由，serve 命令与处理器测试共用
package router

import (
	"github.com/bingooyong/apphub/internal/config"
	"github.com/bingooyong/apphub/internal/handler"
	"github.com/bingooyong/apphub/internal/metrics"
	"github.com/bingooyong/apphub/internal/middleware"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/internal/service"
	"github.com/bingooyong/apphub/internal/storage"
	"github.com/bingooyong/apphub/pkg/jwt"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 路由依赖的全部业务服务
type Services struct {
	Auth          service.AuthService
	Apps          service.AppService
	Moderation    service.ModerationService
	Media         service.MediaService
	Catalog       service.CatalogService
	Organisations service.OrganisationService
	Channels      service.ChannelService
	Audit         service.AuditService
	APIKeys       service.APIKeyService
}

// NewServices 基于同一个 Store 创建全部业务服务
func NewServices(cfg *config.Config, store repository.Store, blobs storage.Storage, m *metrics.Metrics, jwtManager *jwt.Manager, log *zap.Logger) *Services {
	return &Services{
		Auth:          service.NewAuthService(store, jwtManager, log),
		Apps:          service.NewAppService(store, blobs, m, cfg.Moderation, log),
		Moderation:    service.NewModerationService(store, m, log),
		Media:         service.NewMediaService(store, blobs, m, log),
		Catalog:       service.NewCatalogService(store, blobs, m, log),
		Organisations: service.NewOrganisationService(store, log),
		Channels:      service.NewChannelService(store, log),
		Audit:         service.NewAuditService(store, log),
		APIKeys:       service.NewAPIKeyService(store, log),
	}
}

// Options 路由构建参数
type Options struct {
	Config   *config.Config
	DB       *gorm.DB
	JWT      *jwt.Manager
	Metrics  *metrics.Metrics
	Services *Services
	Logger   *zap.Logger
}

// New 创建 gin 引擎并注册全部路由
func New(opts Options) *gin.Engine {
	cfg := opts.Config
	log := opts.Logger
	svc := opts.Services

	// 初始化Handler层
	authHandler := handler.NewAuthHandler(svc.Auth, log)
	appHandler := handler.NewAppHandler(svc.Apps, svc.Moderation, log)
	catalogHandler := handler.NewCatalogHandler(svc.Catalog, cfg.Server.PublicURL, log)
	mediaHandler := handler.NewMediaHandler(svc.Media, cfg.Server.PublicURL, log)
	organisationHandler := handler.NewOrganisationHandler(svc.Organisations, log)
	channelHandler := handler.NewChannelHandler(svc.Channels, log)
	auditHandler := handler.NewAuditHandler(svc.Audit, log)
	apiKeyHandler := handler.NewAPIKeyHandler(svc.APIKeys, log)
	systemHandler := handler.NewSystemHandler(opts.DB, log)

	router := gin.New()

	// 注册全局中间件
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.Metrics(opts.Metrics))
	router.Use(middleware.Audit(svc.Audit))

	// 登录与下载接口限流
	var limited gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		limited = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log).Handler()
	}
	bodyLimit := middleware.BodyLimit(cfg.Server.MaxUploadSize)
	auth := middleware.JWTAuth(opts.JWT, svc.Auth)
	optionalAuth := middleware.OptionalAuth(opts.JWT, svc.Auth)
	// 上传应用与新版本也可使用 API Key
	publishAuth := middleware.JWTOrAPIKeyAuth(opts.JWT, svc.Auth, svc.APIKeys)
	manager := middleware.RequireManager()

	// 运维接口
	router.GET("/health", systemHandler.Health)
	router.GET("/version", systemHandler.Version)
	router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))

	v1 := router.Group("/v1")
	{
		// 认证相关
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", limited, authHandler.Login)
			authGroup.POST("/refresh", authHandler.RefreshToken)
			authGroup.GET("/profile", auth, authHandler.GetProfile)
			authGroup.POST("/change-password", auth, authHandler.ChangePassword)
		}

		// 应用目录与发布
		apps := v1.Group("/apps")
		{
			apps.GET("", optionalAuth, catalogHandler.List)
			apps.GET("/all", auth, manager, catalogHandler.All)
			apps.GET("/myapps", auth, catalogHandler.MyApps)
			apps.GET("/download/:organisation_slug/:appver_slug/:app_version/app.zip", limited, catalogHandler.Download)
			apps.POST("", publishAuth, bodyLimit, appHandler.Create)

			apps.GET("/:appId", optionalAuth, catalogHandler.Get)
			apps.DELETE("/:appId", auth, appHandler.Delete)
			apps.POST("/:appId/versions", publishAuth, bodyLimit, appHandler.AddVersion)
			apps.PUT("/:appId/owner", auth, manager, appHandler.TransferOwnership)
			apps.GET("/:appId/status", auth, appHandler.StatusHistory)
			apps.POST("/:appId/status", auth, manager, appHandler.SetStatus)

			apps.POST("/:appId/images", auth, bodyLimit, mediaHandler.Upload)
			apps.PUT("/:appId/images/:mediaId/logo", auth, mediaHandler.SetLogo)
			apps.PUT("/:appId/images/:mediaId", auth, mediaHandler.UpdateMeta)
			apps.DELETE("/:appId/images/:mediaId", auth, mediaHandler.Delete)
		}

		v1.GET("/media/:mediaId", optionalAuth, mediaHandler.Get)

		// 当前用户的 API Key
		key := v1.Group("/key")
		key.Use(auth)
		{
			key.GET("", apiKeyHandler.Status)
			key.POST("", apiKeyHandler.Generate)
			key.DELETE("", apiKeyHandler.Delete)
		}

		// 发布渠道
		v1.GET("/channels", channelHandler.List)
		v1.POST("/channels", auth, manager, channelHandler.Create)

		// 管理员相关（需要审核员权限）
		admin := v1.Group("/admin")
		admin.Use(auth, manager)
		{
			admin.GET("/users", authHandler.ListUsers)
			admin.POST("/users/:id/role", authHandler.SetRole)
			admin.POST("/users/:id/disable", authHandler.DisableUser)
			admin.POST("/users/:id/enable", authHandler.EnableUser)
			admin.GET("/audit-logs", auditHandler.Search)
		}
	}

	v2 := router.Group("/v2")
	{
		orgs := v2.Group("/organisations")
		{
			orgs.GET("", organisationHandler.List)
			orgs.POST("", auth, organisationHandler.Create)
			orgs.GET("/:orgId", auth, organisationHandler.Get)
			orgs.POST("/:orgId/add", auth, organisationHandler.AddMember)
			orgs.DELETE("/:orgId", auth, manager, organisationHandler.Delete)
		}
	}

	return router
}
