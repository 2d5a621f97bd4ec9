package main // Entry point package

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/oauth"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/rbac"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/router"
	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/token"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Env == "dev" {
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		// Redis backs revocation and single-use tokens; without it every
		// issued token would stay valid until expiry.
		log.Fatal("redis is required but unreachable")
	}

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := repository.Seed(seedCtx, db); err != nil {
		cancel()
		log.WithError(err).Fatal("seed roles and permissions")
	}
	cancel()

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	perms := repository.NewPermissionRepo(db)
	sessions := repository.NewSessionRepo(db)
	accounts := repository.NewOAuthAccountRepo(db)
	revocations := repository.NewRevocationRepo(rdb)
	eventLog := repository.NewEventLogRepo(db)
	directory := repository.NewOAuthDirectory(db, users, accounts)

	eval := rbac.NewEvaluator(nil, nil)
	codec := token.NewCodec(cfg.JWTSecret)
	jwts := service.NewJWTManager(codec, revocations, sessions,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour)
	sessionMgr := service.NewSessionManager(sessions, eval)
	publisher := service.NewPublisher(log, eventLog)
	broker := oauth.NewBroker(oauth.NewRegistry(cfg.OAuth), revocations, directory)

	go func() {
		err := queue.StartEmailConsumer(log, queue.EmailConsumerConfig{
			FromName:    cfg.EmailFromName,
			FromAddress: cfg.EmailFromAddress,
			BaseURL:     cfg.PublicBaseURL,
		})
		if err != nil {
			log.WithError(err).Error("email consumer stopped")
		}
	}()

	authHandler := handler.NewAuthHandler(cfg, db, users, revocations, sessionMgr, sessions, jwts, publisher)
	h := router.Handlers{
		Auth:        authHandler,
		OAuth:       handler.NewOAuthHandler(authHandler, broker, accounts),
		Users:       handler.NewUserHandler(users, roles, perms, revocations, eval, jwts),
		Roles:       handler.NewRoleHandler(roles, perms, revocations, eval),
		Permissions: handler.NewPermissionHandler(perms, revocations, eval),
		Sessions:    handler.NewSessionHandler(sessionMgr, sessions),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	router.Register(e, h, jwts, eval, rdb)

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
