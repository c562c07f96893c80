package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ShaanSolanki/lms/internal/app/server"
	"github.com/ShaanSolanki/lms/internal/config"
	"github.com/ShaanSolanki/lms/internal/delivery/http"
	"github.com/ShaanSolanki/lms/internal/delivery/http/controllers"
	"github.com/ShaanSolanki/lms/internal/mailer"
	"github.com/ShaanSolanki/lms/internal/service"
	"github.com/ShaanSolanki/lms/internal/service/auth"
	"github.com/ShaanSolanki/lms/internal/service/course"
	"github.com/ShaanSolanki/lms/internal/service/enrollment"
	"github.com/ShaanSolanki/lms/internal/service/upload"
	"github.com/ShaanSolanki/lms/internal/storage/elastic"
	"github.com/ShaanSolanki/lms/internal/storage/minio_storage"
	"github.com/ShaanSolanki/lms/internal/storage/postgres"
	"github.com/ShaanSolanki/lms/internal/storage/redis_storage"
	"github.com/ShaanSolanki/lms/internal/validation"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

func Run(cfg *config.Config) {
	ctx := context.Background()

	log := logger.New(cfg.Env)
	log.Info("Starting with Env: " + cfg.Env)

	pg, err := postgres.NewPostgresPool(ctx, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.DBName)
	if err != nil {
		log.FatalErr("error connecting to database", err)
	}
	defer pg.Close()
	if err := pg.EnsureSchema(ctx); err != nil {
		log.FatalErr("error applying database schema", err)
	}

	rdb, err := redis_storage.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.FatalErr("error connecting to redis", err)
	}
	defer rdb.Close()

	objects, err := minio_storage.NewMinioStorage(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
	if err != nil {
		log.FatalErr("error creating minio client", err)
	}
	thumbnails, err := objects.Bucket(ctx, cfg.Minio.Buckets[config.BucketThumbnails])
	if err != nil {
		log.FatalErr("error preparing thumbnails bucket", err)
	}
	submissions, err := objects.Bucket(ctx, cfg.Minio.Buckets[config.BucketSubmissions])
	if err != nil {
		log.FatalErr("error preparing submissions bucket", err)
	}

	es, err := elastic.NewElasticClient(cfg.ES.Password, cfg.ES.Hosts)
	if err != nil {
		log.FatalErr("error creating elasticsearch client", err)
	}
	courseSearch := elastic.NewCourseSearchRepository(es, cfg.ES.Index)
	if err := courseSearch.CreateIndexIfNotExist(ctx); err != nil {
		// search degrades until the cluster is back, writes still go to postgres
		log.ErrorErr("error creating course index", err, "index", cfg.ES.Index)
	}

	var mail interface {
		SendOTP(ctx context.Context, to, code string) error
	}
	if cfg.SendGrid.APIKey == "" {
		log.Warn("sendgrid api key is empty, verification codes are written to the log")
		mail = mailer.NewLogMailer(log)
	} else {
		mail = mailer.NewSendGrid(cfg.SendGrid.APIKey, cfg.SendGrid.FromName, cfg.SendGrid.FromEmail)
	}

	if err := validation.RegisterGin(); err != nil {
		log.FatalErr("error registering validators", err)
	}
	v := validation.New()

	store := postgres.NewCoursePostgres(pg.Pool)
	enrollments := postgres.NewEnrollmentPostgres(pg.Pool)
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	authService := auth.NewAuthService(
		log,
		jwtManager,
		postgres.NewUserPostgres(pg.Pool),
		postgres.NewTokensPostgres(pg.Pool),
		redis_storage.NewVerificationStore(rdb),
		mail,
		auth.NewGitHubClient(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.RedirectURL),
		v,
		auth.OTPConfig{TTL: cfg.OTP.TTL, MaxAttempts: cfg.OTP.MaxAttempts},
	)

	u := service.Collection{
		AuthService:       authService,
		Gate:              auth.NewGate(authService),
		CourseService:     course.NewCourseService(log, store, courseSearch, thumbnails, v, course.DeletePolicy(cfg.Courses.DeletePolicy)),
		EnrollmentService: enrollment.NewEnrollmentService(log, enrollments, store, submissions, v),
		UploadService:     upload.NewUploadService(log, thumbnails, submissions),
	}

	r := http.InitRoutes(log, u, http.Options{
		AllowOrigins:  cfg.CORS.AllowOrigins,
		PublicBaseURL: cfg.PublicBaseURL,
		SecureCookies: cfg.Env != "local",
		Checks: []controllers.Check{
			{Name: "postgres", Ping: pingPostgres(pg.Pool)},
			{Name: "redis", Ping: pingRedis(rdb)},
			{Name: "elasticsearch", Ping: courseSearch.Ping},
		},
	})

	srv := server.New(cfg.HTTPServer.Address, cfg.HTTPServer.Timeout, cfg.HTTPServer.IdleTimeout, r)
	srv.Start()
	log.Info("http server started", "address", cfg.HTTPServer.Address)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		log.Info("app signal: " + s.String())
	case err := <-srv.Notify():
		log.ErrorErr("http server stopped", err)
	}
	if err := srv.Shutdown(); err != nil {
		log.ErrorErr("error shutting down http server", err)
	}
}

func pingPostgres(pool *pgxpool.Pool) func(context.Context) error {
	return pool.Ping
}

func pingRedis(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
