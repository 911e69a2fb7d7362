package app

import (
	"exam_prep_backend/docs"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/middleware"
	"exam_prep_backend/internal/model"

	"exam_prep_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

// registerStudentRoutes 学生/通用 授权接口
func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/me", c.auth.Me)
	rg.PUT("/profile", c.user.UpdateProfile)
	rg.GET("/dashboard", c.dashboard.GetStats)

	rg.GET("/subjects", c.subject.ListSubjects)
	rg.GET("/subjects/:id", c.subject.GetSubject)
	rg.GET("/subjects/:id/topics", c.subject.ListTopics)

	rg.GET("/videos", c.video.ListVideos)
	rg.GET("/videos/:id", c.video.GetVideo)

	// 测验生命周期
	rg.POST("/quizzes", c.quiz.CreateQuiz)
	rg.GET("/quizzes", c.quiz.ListQuizzes)
	rg.GET("/quizzes/:id/result", c.quiz.GetResult)

	// 同步接口：客户端本地答题引擎直连仓储语义
	rg.GET("/quizzes/:id/snapshot", c.sync.GetSnapshot)
	rg.POST("/quizzes/:id/answers", c.sync.SubmitAnswer)
	rg.PUT("/quizzes/:id/questions/:questionId/mark", c.sync.SetMark)
	rg.POST("/quizzes/:id/finish", c.sync.Finish)

	// 答题会话命令
	session := rg.Group("/quizzes/:id/session")
	{
		session.POST("", c.quiz.OpenSession)
		session.GET("", c.quiz.GetSession)
		session.DELETE("", c.quiz.CloseSession)
		session.POST("/select", c.quiz.SelectChoice)
		session.POST("/confirm", c.quiz.ConfirmAnswer)
		session.POST("/mark", c.quiz.ToggleMark)
		session.POST("/navigate", c.quiz.Navigate)
		session.POST("/finish", c.quiz.FinishQuiz)
		session.POST("/input", c.quiz.HandleInput)
	}
}

// registerTeacherRoutes 教师相关接口：题库和视频管理
func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.GET("/questions", c.question.ListQuestions)
		teacher.GET("/questions/:id", c.question.GetQuestion)
		teacher.POST("/questions", c.question.CreateQuestion)
		teacher.PUT("/questions/:id", c.question.UpdateQuestion)
		teacher.DELETE("/questions/:id", c.question.DeleteQuestion)

		teacher.POST("/subjects", c.subject.CreateSubject)
		teacher.PUT("/subjects/:id", c.subject.UpdateSubject)
		teacher.DELETE("/subjects/:id", c.subject.DeleteSubject)
		teacher.POST("/topics", c.subject.CreateTopic)
		teacher.DELETE("/topics/:id", c.subject.DeleteTopic)

		teacher.POST("/videos", c.video.UploadVideo)
		teacher.PUT("/videos/:id/published", c.video.SetPublished)
		teacher.DELETE("/videos/:id", c.video.DeleteVideo)
	}
}

// registerAdminRoutes 管理员相关接口：用户管理
func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.user.ListUsers)
		admin.PUT("/users/:id/disabled", c.user.SetDisabled)
		admin.PUT("/users/:id/role", c.user.SetRole)
		admin.PUT("/users/:id/password", c.user.ResetPassword)
	}
}
