package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Yatube/internal/config"
	"Yatube/internal/middleware"
	"Yatube/internal/pkg"
	"Yatube/internal/repository/database"
	"Yatube/internal/repository/redis"
	"Yatube/internal/router"
	"Yatube/internal/service"
	"Yatube/internal/web"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := pkg.NewLogger(os.Stdout, cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN, cfg.Debug)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	// 自动建表
	if err = database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// 连接redis
	rdb, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	media := pkg.NewMediaStore(cfg.MediaDir, "/media/")
	renderer, err := web.NewRenderer(media)
	if err != nil {
		log.Fatalf("parse templates: %v", err)
	}

	smtp := pkg.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
	tokens := pkg.NewTokenIssuer(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	emailSvc := service.NewEmailService(pkg.NewSMTPMailer(smtp), redis.NewEmailRepository(rdb), logger)

	deps := router.Deps{
		Users:    service.NewUserService(db, redis.NewUserRepository(rdb, cfg.AccessTTL, cfg.RefreshTTL), tokens, emailSvc, logger),
		Groups:   service.NewGroupService(db),
		Profiles: service.NewProfileService(db),
		Follows:  service.NewFollowService(db),
		Renderer: renderer,
		Cookies:  middleware.Cookies{AccessTTL: cfg.AccessTTL, RefreshTTL: cfg.RefreshTTL},
		MediaDir: cfg.MediaDir,
		Log:      logger,
	}
	// TTL 为 0 时关闭首页缓存；此时不能把 nil 指针当作 Invalidator 传入
	if cfg.IndexCacheTTL > 0 {
		cache := redis.NewPageCache(rdb)
		deps.Posts = service.NewPostService(db, media, cache, logger)
		deps.Cache = cache
		deps.Lock = redis.NewDistLock(rdb)
		deps.CacheTTL = cfg.IndexCacheTTL
	} else {
		deps.Posts = service.NewPostService(db, media, nil, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// outbox 投递：配置了 kafka 就写 kafka，否则只打日志
	sender := service.LogSender(logger)
	if len(cfg.KafkaBrokers) > 0 {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			WriteTimeout: 5 * time.Second,
		})
		defer producer.Close()
		sender = service.KafkaSender(producer)
	}
	relayerDone := make(chan struct{})
	go func() {
		defer close(relayerDone)
		service.NewOutboxRelayer(db, sender, logger).Run(ctx)
	}()

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router.InitRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("main", "listening on "+cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("main", "http server", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("main", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main", "shutdown", err)
	}
	<-relayerDone
}
