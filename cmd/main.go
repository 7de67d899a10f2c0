package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/bugsnag/panicwrap"
	"go.uber.org/zap"

	"github.com/petstead/api/internal/api/rest"
	"github.com/petstead/api/internal/configure"
	"github.com/petstead/api/internal/events"
	"github.com/petstead/api/internal/global"
	"github.com/petstead/api/internal/health"
	"github.com/petstead/api/internal/lifecycle"
	"github.com/petstead/api/internal/monitoring"
	"github.com/petstead/api/internal/mongo"
	"github.com/petstead/api/internal/navigation"
	"github.com/petstead/api/internal/svc/auth"
	"github.com/petstead/api/internal/svc/docstore"
	"github.com/petstead/api/internal/svc/notifications"
	"github.com/petstead/api/internal/svc/presence"
	"github.com/petstead/api/internal/svc/profiles"
	"github.com/petstead/api/internal/svc/prometheus"
	"github.com/petstead/api/internal/svc/session"
	"github.com/petstead/api/internal/svc/storage"
)

var (
	Version = "development"
	Unix    = ""
	Time    = "unknown"
	User    = "unknown"
)

func init() {
	debug.SetGCPercent(2000)
	if i, err := strconv.Atoi(Unix); err == nil {
		Time = time.Unix(int64(i), 0).Format(time.RFC3339)
	}
}

func main() {
	config := configure.New()

	exitStatus, err := panicwrap.BasicWrap(func(s string) {
		zap.S().Errorw("panic detected",
			"panic", s,
		)
	})
	if err != nil {
		zap.S().Errorw("failed to setup panic handler",
			"error", err,
		)
		os.Exit(2)
	}

	if exitStatus >= 0 {
		os.Exit(exitStatus)
	}

	if !config.NoHeader {
		zap.S().Info("Petstead API")
		zap.S().Infof("Version: %s", Version)
		zap.S().Infof("build.Time: %s", Time)
		zap.S().Infof("build.User: %s", User)
	}

	zap.S().Debugf("MaxProcs: %d", runtime.GOMAXPROCS(0))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	gCtx, cancel := global.WithCancel(global.New(context.Background(), config))

	{
		gCtx.Inst().Mongo, err = mongo.Setup(gCtx, mongo.SetupOptions{
			URI:      config.Mongo.URI,
			Username: config.Mongo.Username,
			Password: config.Mongo.Password,
			DB:       config.Mongo.DB,
			Direct:   config.Mongo.Direct,
		})
		if err != nil {
			zap.S().Fatalw("failed to setup mongo handler",
				"error", err,
			)
		}
	}

	{
		if config.Nats.Enabled {
			gCtx.Inst().Events, err = events.New(events.Options{
				URL: config.Nats.URL,
			})
			if err != nil {
				zap.S().Fatalw("failed to setup events handler",
					"error", err,
				)
			}
		} else {
			gCtx.Inst().Events = events.NewNoop()
		}
	}

	{
		gCtx.Inst().Prometheus = prometheus.New(prometheus.Options{
			Labels: config.Monitoring.Labels.ToPrometheus(),
		})
	}

	{
		gCtx.Inst().Store = docstore.New(docstore.Options{
			Mongo:        gCtx.Inst().Mongo,
			Prometheus:   gCtx.Inst().Prometheus,
			PollInterval: config.Mongo.PollInterval,
		})
	}

	{
		gCtx.Inst().Session = session.New()
		gCtx.Inst().Lifecycle = lifecycle.New()
	}

	{
		if config.Storage.DeviceFile != "" {
			gCtx.Inst().Storage, err = storage.New(storage.Options{
				File: config.Storage.DeviceFile,
			})
			if err != nil {
				zap.S().Fatalw("failed to setup device storage",
					"error", err,
				)
			}
		} else {
			gCtx.Inst().Storage = storage.NewMemory()
		}
	}

	{
		gCtx.Inst().Auth = auth.New(auth.Options{
			JWTSecret:  config.Auth.JWTSecret,
			SessionTTL: config.Auth.SessionTTL,
			Store:      gCtx.Inst().Store,
			Session:    gCtx.Inst().Session,
		})
	}

	{
		gCtx.Inst().Presence = presence.New(presence.Options{
			Session:    gCtx.Inst().Session,
			Store:      gCtx.Inst().Store,
			Lifecycle:  gCtx.Inst().Lifecycle,
			Events:     gCtx.Inst().Events,
			Prometheus: gCtx.Inst().Prometheus,
		})
	}

	{
		gCtx.Inst().Notifications = notifications.New(notifications.Options{
			Session: gCtx.Inst().Session,
			Store:   gCtx.Inst().Store,
		})
	}

	{
		gCtx.Inst().Profiles = profiles.New(profiles.Options{
			Session:    gCtx.Inst().Session,
			Store:      gCtx.Inst().Store,
			Auth:       gCtx.Inst().Auth,
			Navigator:  navigation.Logger{},
			Storage:    gCtx.Inst().Storage,
			Prometheus: gCtx.Inst().Prometheus,
		})
	}

	wg := sync.WaitGroup{}

	if gCtx.Config().Health.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-health.New(gCtx)
		}()
	}
	if gCtx.Config().Monitoring.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-monitoring.New(gCtx)
		}()
	}

	done := make(chan struct{})
	go func() {
		<-sig
		cancel()
		go func() {
			select {
			case <-time.After(time.Minute):
			case <-sig:
			}
			zap.S().Fatal("force shutdown")
		}()

		zap.S().Info("shutting down")

		wg.Wait()

		sCtx, sCancel := context.WithTimeout(context.Background(), time.Second*10)
		if err := gCtx.Inst().Shutdown(sCtx); err != nil {
			zap.S().Errorw("failed to shut down cleanly",
				"error", err,
			)
		}
		sCancel()

		close(done)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := rest.New(gCtx); err != nil {
			zap.S().Fatalw("rest failed",
				"error", err,
			)
		}
	}()

	zap.S().Info("running")

	<-done

	zap.S().Info("shutdown")
	os.Exit(0)
}
