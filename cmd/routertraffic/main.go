package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irctrakz/routertraffic/pkg/config"
	"github.com/irctrakz/routertraffic/pkg/logging"
	"github.com/irctrakz/routertraffic/pkg/poller"
	"github.com/irctrakz/routertraffic/pkg/rate"
	"github.com/irctrakz/routertraffic/pkg/routerapi"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	check := flag.Bool("check", false, "log into the router once and exit")
	writeConfig := flag.String("write-config", "", "write the effective configuration to this YAML or JSON file and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logging.Fatalf("config: %v", err)
	}
	if *writeConfig != "" {
		if err := cfg.SaveToFile(*writeConfig); err != nil {
			logging.Fatalf("config: %v", err)
		}
		logging.Infof("configuration written to %s", *writeConfig)
		return
	}
	if err := cfg.ApplyLogging(); err != nil {
		logging.Fatalf("logging: %v", err)
	}

	client := routerapi.NewClient(cfg.Router.Credentials(), cfg.ClientConfig())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *check {
		if err := client.Authenticate(ctx); err != nil {
			logging.Errorf("credential check against %s failed: %v", cfg.Router.Host, err)
			os.Exit(1)
		}
		logging.Infof("credential check against %s succeeded", cfg.Router.Host)
		return
	}

	pcfg := poller.Config{Interval: cfg.PollInterval()}
	if cfg.Report.Enabled {
		unit, _ := rate.ParseUnit(cfg.Report.Unit)
		pcfg.OnUpdate = newReporter(cfg.Report.Format, unit)
	}
	p := poller.New(client, pcfg)

	if err := p.FirstRefresh(ctx); err != nil {
		logging.Fatalf("failed to connect to router at %s: %v", cfg.Router.Host, err)
	}
	logging.Infof("polling %s every %s", cfg.Router.Host, cfg.PollInterval())
	go p.Run(ctx)

	if cfg.HTTP.Listen == "" {
		<-ctx.Done()
		return
	}

	if level, _ := logging.ParseLevel(cfg.Logging.Level); level != logging.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           newRouter(p),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Infof("serving stats on %s", cfg.HTTP.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatalf("http server: %v", err)
	}
}

// loadConfig layers the file at path (when set) and the environment over the
// defaults, then validates the result.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		if err := config.LoadFromFile(path, cfg); err != nil {
			return nil, err
		}
	}
	config.LoadFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
