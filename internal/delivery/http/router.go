package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/auth"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/course"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/enrollment"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/middleware"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers/upload"
	"github.com/ShaanSolanki/lms/internal/service"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

type Options struct {
	AllowOrigins  []string
	PublicBaseURL string
	SecureCookies bool
	Checks        []controllers.Check
}

func InitRoutes(l logger.Log, u service.Collection, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	config := cors.Config{
		AllowOrigins:     opts.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(config))

	views := course.NewViews(opts.PublicBaseURL)
	gate := middleware.NewAuthMiddlewareProvider(u.Gate)

	statusController := controllers.NewStatusHandler(opts.Checks...)
	authController := auth.NewAuthHandler(l, u.AuthService, opts.SecureCookies)
	courseQuery := course.NewQueryHandler(l, u.CourseService, views)
	courseManagement := course.NewManagementHandler(l, u.CourseService, views)
	enrollmentController := enrollment.NewHandler(l, u.EnrollmentService)
	uploadController := upload.NewHandler(l, u.UploadService, opts.PublicBaseURL)

	v1 := r.Group("/v1", middleware.LoggingMiddleware(l))
	{
		v1.GET("/status", statusController.Status)

		v1.GET("/me", gate.RequireSession, authController.Me)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authController.Register)
			authGroup.POST("/otp/send", authController.SendOTP)
			authGroup.POST("/otp/verify", authController.VerifyOTP)
			authGroup.POST("/login", authController.Login)
			authGroup.POST("/refresh", authController.Refresh)
			authGroup.POST("/logout", gate.RequireSession, authController.Logout)
			authGroup.GET("/github", authController.GitHubLogin)
			authGroup.GET("/github/callback", authController.GitHubCallback)
		}

		courses := v1.Group("/courses")
		{
			courses.GET("", gate.OptionalSession, courseQuery.ListCourses)
			courses.GET("/search", courseQuery.SearchCourses)
			courses.GET("/:id", gate.OptionalSession, courseQuery.CourseByID)

			admin := courses.Group("", gate.RequireAdmin)
			{
				admin.POST("", courseManagement.CreateCourse)
				admin.PUT("/:id", courseManagement.UpdateCourse)
				admin.DELETE("/:id", courseManagement.DeleteCourse)
			}

			student := courses.Group("", gate.RequireSession)
			{
				student.POST("/:id/enroll", enrollmentController.Enroll)
				student.GET("/:id/enrollment", enrollmentController.CourseEnrollment)
			}
		}

		enrollments := v1.Group("/enrollments")
		{
			enrollments.POST("/:id/final-project/review", gate.RequireAdmin, enrollmentController.ReviewFinalProject)

			student := enrollments.Group("", gate.RequireSession)
			{
				student.GET("", enrollmentController.MyEnrollments)
				student.POST("/:id/test-results", enrollmentController.RecordTestResult)
				student.POST("/:id/final-project", enrollmentController.SubmitFinalProject)
				student.PATCH("/:id/active", enrollmentController.SetActive)
			}
		}

		uploads := v1.Group("/uploads")
		{
			uploads.POST("/thumbnails", gate.RequireAdmin, uploadController.UploadThumbnail)
			uploads.DELETE("/thumbnails/:key", gate.RequireAdmin, uploadController.DeleteThumbnail)
			uploads.POST("/submissions", gate.RequireSession, uploadController.UploadSubmission)
		}

		files := v1.Group("/files")
		{
			files.GET("/thumbnails/:key", uploadController.Thumbnail)
			files.GET("/submissions/*key", gate.RequireSession, uploadController.Submission)
		}

		users := v1.Group("/admin/users", gate.RequireAdmin)
		{
			users.PATCH("/:id/role", authController.SetRole)
			users.POST("/:id/ban", authController.Ban)
			users.DELETE("/:id/ban", authController.Unban)
		}
	}
	return r
}
