// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casinha-go/internal/config"
	"casinha-go/internal/handler"
	"casinha-go/internal/middleware"
	"casinha-go/internal/model"
	"casinha-go/internal/pipeline"
	"casinha-go/internal/repository"
	"casinha-go/internal/service"
	"casinha-go/pkg/database"
	"casinha-go/pkg/embedding"
	"casinha-go/pkg/es"
	"casinha-go/pkg/kafka"
	"casinha-go/pkg/llm"
	"casinha-go/pkg/log"
	"casinha-go/pkg/storage"
	"casinha-go/pkg/tika"
	"casinha-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 与外部依赖
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	database.Migrate(
		&model.User{},
		&model.RegistrationRequest{},
		&model.ActionType{},
		&model.TagTemplate{},
		&model.Tag{},
		&model.UserPoints{},
		&model.EnterprisePoints{},
		&model.Solicitation{},
		&model.Report{},
		&model.Room{},
		&model.EquipmentItem{},
		&model.Reservation{},
		&model.PlanningContent{},
		&model.KnowledgeChunk{},
	)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	requestRepo := repository.NewRequestRepository(database.DB)
	templateRepo := repository.NewTemplateRepository(database.DB)
	pointsRepo := repository.NewPointsRepository(database.DB)
	reservationRepo := repository.NewReservationRepository(database.DB)
	planningRepo := repository.NewPlanningRepository(database.DB)
	knowledgeRepo := repository.NewKnowledgeRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.RDB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	userService := service.NewUserService(userRepo, requestRepo, jwtManager, database.RDB)
	adminService := service.NewAdminService(userRepo, requestRepo, templateRepo)
	pointsService := service.NewPointsService(
		pointsRepo, templateRepo, userRepo, database.RDB,
		cfg.Points.AssignmentPolicy, cfg.Points.EnterpriseKey,
		time.Duration(cfg.Points.RankingCacheTTLSeconds)*time.Second,
	)
	reviewService := service.NewReviewService(requestRepo, templateRepo, userRepo, pointsRepo, pointsService)
	reservationService := service.NewReservationService(reservationRepo)
	planningService := service.NewPlanningService(planningRepo, knowledgeRepo, kafka.ProduceIndexTask)
	searchService := service.NewSearchService(embeddingClient, es.ESClient, planningRepo, cfg.Elasticsearch.IndexName)
	chatService := service.NewChatService(searchService, llmClient, conversationRepo)

	// 6. 初始化知识索引管道并启动后台 Kafka 消费者
	processor := pipeline.NewProcessor(
		tikaClient,
		embeddingClient,
		cfg.Elasticsearch,
		cfg.MinIO,
		cfg.Embedding,
		planningRepo,
		knowledgeRepo,
	)
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService, pointsService)
	pointsHandler := handler.NewPointsHandler(pointsService)
	requestHandler := handler.NewRequestHandler(reviewService)
	reservationHandler := handler.NewReservationHandler(reservationService)
	planningHandler := handler.NewPlanningHandler(planningService)
	searchHandler := handler.NewSearchHandler(searchService)
	chatHandler := handler.NewChatHandler(chatService, userService, jwtManager)
	adminHandler := handler.NewAdminHandler(adminService)

	authRequired := middleware.AuthMiddleware(jwtManager, userService)
	directorOnly := middleware.DirectorAuthMiddleware()

	// 8. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组（公开访问）
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refreshToken", authHandler.Refresh)
			auth.POST("/logout", authRequired, authHandler.Logout)
		}

		// 用户路由组
		users := apiV1.Group("/users")
		users.Use(authRequired)
		{
			users.GET("/me", userHandler.GetProfile)
			users.PUT("/me", userHandler.UpdateProfile)
			users.GET("/me/points", userHandler.GetMyPoints)
		}

		// 积分台账路由组
		points := apiV1.Group("/points")
		points.Use(authRequired)
		{
			points.GET("/jr-points-data", pointsHandler.GetJRPointsData)

			// 台账写操作仅限董事
			points.POST("/tags/add-to-users", directorOnly, pointsHandler.AssignTags)
			points.POST("/enterprise-points/add-tags", directorOnly, pointsHandler.AttachTagsToEnterprise)
			points.POST("/tags", directorOnly, pointsHandler.CreateTag)
			points.PATCH("/tags/:id", directorOnly, pointsHandler.PatchTag)
			points.DELETE("/tags/:id", directorOnly, pointsHandler.DeleteTag)
		}

		// 积分申请路由组
		solicitations := apiV1.Group("/solicitations")
		solicitations.Use(authRequired)
		{
			solicitations.POST("", requestHandler.CreateSolicitation)
			solicitations.GET("/mine", requestHandler.MySolicitations)
			solicitations.GET("", directorOnly, requestHandler.ListSolicitations)
			solicitations.POST("/:id/review", directorOnly, requestHandler.ReviewSolicitation)
		}

		// 申诉路由组
		reports := apiV1.Group("/reports")
		reports.Use(authRequired)
		{
			reports.POST("", requestHandler.CreateReport)
			reports.GET("/mine", requestHandler.MyReports)
			reports.GET("/to-review", directorOnly, requestHandler.ReportsToReview)
			reports.POST("/:id/review", directorOnly, requestHandler.ReviewReport)
		}

		// 附件路由组
		attachments := apiV1.Group("/attachments")
		attachments.Use(authRequired)
		{
			attachments.POST("", requestHandler.UploadAttachment)
			attachments.GET("/presign", requestHandler.PresignAttachment)
		}

		// 预订路由组
		reservations := apiV1.Group("/reservations")
		reservations.Use(authRequired)
		{
			reservations.GET("/rooms", reservationHandler.ListRooms)
			reservations.POST("/rooms", directorOnly, reservationHandler.CreateRoom)
			reservations.GET("/equipment", reservationHandler.ListEquipment)
			reservations.POST("/equipment", directorOnly, reservationHandler.CreateEquipment)
			reservations.PUT("/equipment/:id/availability", directorOnly, reservationHandler.SetEquipmentAvailability)

			reservations.POST("", reservationHandler.Reserve)
			reservations.GET("", reservationHandler.ListReservations)
			reservations.GET("/mine", reservationHandler.MyReservations)
			reservations.POST("/:id/cancel", reservationHandler.CancelReservation)
		}

		// 战略规划路由组
		planning := apiV1.Group("/planning")
		planning.Use(authRequired)
		{
			planning.GET("", planningHandler.List)
			planning.GET("/:id", planningHandler.Get)
			planning.POST("", directorOnly, planningHandler.Create)
			planning.POST("/document", directorOnly, planningHandler.CreateFromDocument)
			planning.PUT("/:id", directorOnly, planningHandler.Update)
			planning.DELETE("/:id", directorOnly, planningHandler.Delete)
		}

		// 搜索路由组
		search := apiV1.Group("/search")
		search.Use(authRequired)
		{
			search.GET("/hybrid", searchHandler.HybridSearch)
		}

		// Chat 路由 (WebSocket)
		chatGroup := apiV1.Group("/chat")
		chatGroup.Use(authRequired)
		{
			chatGroup.GET("/websocket-token", chatHandler.GetWebsocketStopToken)
			chatGroup.GET("/history", chatHandler.GetHistory)
		}

		// 管理路由组：注册审核与模板管理对董事开放，用户角色调整仅限管理员
		admin := apiV1.Group("/admin")
		admin.Use(authRequired, directorOnly)
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/registrations", adminHandler.ListPendingRegistrations)
			admin.POST("/registrations/review", adminHandler.ReviewRegistrations)
			admin.POST("/users/:id/deactivate", adminHandler.DeactivateUser)
			admin.PUT("/users/:id/role", middleware.AdminAuthMiddleware(), adminHandler.SetUserRole)

			admin.POST("/action-types", adminHandler.CreateActionType)
			admin.GET("/action-types", adminHandler.ListActionTypes)
			admin.DELETE("/action-types/:id", adminHandler.DeleteActionType)

			admin.POST("/templates", adminHandler.CreateTemplate)
			admin.GET("/templates", adminHandler.ListTemplates)
			admin.PUT("/templates/:id", adminHandler.UpdateTemplate)
			admin.DELETE("/templates/:id", adminHandler.DeleteTemplate)
		}
	}
	// WebSocket 连接不经过标准认证中间件，token 走路径参数
	r.GET("/chat/:token", chatHandler.Handle)

	// 9. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
