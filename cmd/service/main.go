package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/brokerjohn/internal/config"
	"github.com/dropDatabas3/brokerjohn/internal/delivery"
	"github.com/dropDatabas3/brokerjohn/internal/engine/embedded"
	"github.com/dropDatabas3/brokerjohn/internal/gate"
	brokerhttp "github.com/dropDatabas3/brokerjohn/internal/http"
	"github.com/dropDatabas3/brokerjohn/internal/http/handlers"
	"github.com/dropDatabas3/brokerjohn/internal/identity"
	"github.com/dropDatabas3/brokerjohn/internal/kv"
	"github.com/dropDatabas3/brokerjohn/internal/metrics"
	"github.com/dropDatabas3/brokerjohn/internal/observability/logger"
	"github.com/dropDatabas3/brokerjohn/internal/provider"
	"github.com/dropDatabas3/brokerjohn/internal/rate"
	"github.com/dropDatabas3/brokerjohn/internal/security/password"
	"github.com/dropDatabas3/brokerjohn/internal/session"
	"github.com/dropDatabas3/brokerjohn/internal/store/adapters/pg"
	"github.com/dropDatabas3/brokerjohn/internal/store/factory"
	"github.com/dropDatabas3/brokerjohn/internal/tenant"

	rdb "github.com/redis/go-redis/v9"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path al config YAML")
	flag.Parse()

	// .env primero: los overrides de env del config dependen de esto
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		// logger todavía no inicializado
		panic(err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "brokerjohn",
		Version:     cfg.App.Version,
	})
	defer func() { _ = logger.Sync() }()

	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Storage ───
	repos, closeStore, err := factory.Open(ctx, factory.Config{
		Driver: cfg.Storage.Driver,
		KV: kv.Config{
			Addr:     cfg.KV.Addr,
			Password: cfg.KV.Password,
			DB:       cfg.KV.DB,
			Prefix:   cfg.KV.Prefix,
		},
		Postgres: pg.Config{
			DSN:          cfg.Storage.Postgres.DSN,
			MaxOpenConns: cfg.Storage.Postgres.MaxConns,
			MaxIdleConns: cfg.Storage.Postgres.MinConns,
		},
	})
	if err != nil {
		log.Fatal("store open failed", logger.Err(err))
	}
	defer closeStore()

	// KV propio del motor embebido (códigos, credenciales, state, rate)
	kvStore, err := kv.New(kv.Config{
		Driver:   cfg.KV.Driver,
		Addr:     cfg.KV.Addr,
		Password: cfg.KV.Password,
		DB:       cfg.KV.DB,
		Prefix:   cfg.KV.Prefix,
	})
	if err != nil {
		log.Fatal("kv open failed", logger.Err(err))
	}
	defer func() { _ = kvStore.Close() }()

	// ─── Motor de protocolo ───
	blacklist, err := password.LoadBlacklist(cfg.Engine.PasswordBlacklist)
	if err != nil {
		log.Fatal("password blacklist load failed", logger.Err(err))
	}
	eng, err := embedded.New(embedded.Config{
		Issuer:    cfg.Engine.Issuer,
		Secret:    cfg.Engine.Secret,
		AccessTTL: cfg.Engine.AccessTTL,
		CodeTTL:   cfg.Engine.CodeTTL,
		StateTTL:  cfg.Engine.StateTTL,
		Policy:    password.Policy{MinLength: cfg.Engine.PasswordMinLength},
		Blacklist: blacklist,
	}, kvStore)
	if err != nil {
		log.Fatal("engine init failed", logger.Err(err))
	}

	// ─── Services ───
	dlv := delivery.New(delivery.Config{
		Email: delivery.SMTPConfig{
			Host:               cfg.Delivery.Email.Host,
			Port:               cfg.Delivery.Email.Port,
			Username:           cfg.Delivery.Email.Username,
			Password:           cfg.Delivery.Email.Password,
			FromEmail:          cfg.Delivery.Email.FromEmail,
			TLSMode:            cfg.Delivery.Email.TLSMode,
			InsecureSkipVerify: cfg.Delivery.Email.InsecureSkipVerify,
		},
		SMS: delivery.SMSConfig{
			VendorURL: cfg.Delivery.SMS.VendorURL,
			APIKey:    cfg.Delivery.SMS.APIKey,
			From:      cfg.Delivery.SMS.From,
		},
	})

	dir := tenant.NewDirectory(repos.Tenants, cfg.Tenant.CacheTTL)

	deps := &handlers.Deps{
		Dir:          dir,
		Gate:         gate.New(dir, eng),
		Sessions:     session.NewService(repos.Users),
		Identity:     identity.NewService(repos, cfg.AdminEmails),
		Factory:      provider.NewFactory(eng, dlv),
		Engine:       eng,
		Repos:        repos,
		BuildVersion: cfg.App.Version,
	}

	// ─── Rate limiting ───
	var limiter rate.Limiter = rate.NopLimiter{}
	if cfg.Rate.Enabled {
		if cfg.KV.Driver == "redis" {
			client := rdb.NewClient(&rdb.Options{
				Addr:     cfg.KV.Addr,
				Password: cfg.KV.Password,
				DB:       cfg.KV.DB,
			})
			limiter = rate.NewRedisLimiter(client, "rl:", cfg.Rate.MaxRequests, cfg.RateWindow())
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.RateWindow())
		}
	}

	if err := metrics.Register(nil); err != nil {
		log.Fatal("metrics register failed", logger.Err(err))
	}

	// ─── HTTP ───
	srv := brokerhttp.NewServer(cfg.Server.Addr, brokerhttp.NewRouter(deps, limiter))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", logger.Err(err))
		os.Exit(1)
	}
	log.Info("bye")
}
