package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/agentplane/agentplane/authorization"
	"github.com/agentplane/agentplane/config"
	"github.com/agentplane/agentplane/faults"
	"github.com/agentplane/agentplane/internal/providers/authorization/httpclient"
	"github.com/agentplane/agentplane/internal/providers/authorization/staticpolicy"
	"github.com/agentplane/agentplane/internal/providers/events/memqueue"
	"github.com/agentplane/agentplane/internal/providers/resources/agentprovider"
	"github.com/agentplane/agentplane/internal/providers/resources/promptprovider"
	"github.com/agentplane/agentplane/internal/providers/resources/vectorizationprovider"
	"github.com/agentplane/agentplane/internal/providers/storage/fsstore"
	"github.com/agentplane/agentplane/internal/providers/storage/gitstore"
	"github.com/agentplane/agentplane/internal/providers/storage/memstore"
	"github.com/agentplane/agentplane/provider"
	"github.com/agentplane/agentplane/server"
	"github.com/agentplane/agentplane/storage"
	"github.com/agentplane/agentplane/telemetry"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: groupUserFacing,
		Short:   "Run the management server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cmd)
			log.Info("configuration loaded", "path", path, "instance", cfg.InstanceID)
			return runServe(cmd.Context(), cfg, log)
		},
	}
	return cmd
}

func runServe(parent context.Context, cfg config.Config, log logr.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryProvider, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := telemetryProvider.Shutdown(context.Background()); err != nil {
			log.Error(err, "telemetry shutdown failed")
		}
	}()

	objectStore, err := buildObjectStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	authClient, err := buildAuthorizationClient(cfg.Authorization)
	if err != nil {
		return err
	}

	registerer := prometheus.NewRegistry()
	metrics := provider.NewMetrics(registerer)
	broker := memqueue.NewBroker()
	cycle := time.Duration(cfg.Events.CycleSeconds) * time.Second

	registry := provider.NewRegistry()
	providers := []struct {
		name      string
		namespace string
		handler   provider.Handler
	}{
		{promptprovider.ProviderName, promptprovider.EventNamespace, promptprovider.NewPromptHandler(objectStore, log)},
		{agentprovider.ProviderName, agentprovider.EventNamespace, agentprovider.NewAgentHandler(objectStore, log)},
		{vectorizationprovider.ProviderName, vectorizationprovider.EventNamespace, vectorizationprovider.NewVectorizationHandler(objectStore, log)},
	}
	for _, entry := range providers {
		if !providerEnabled(cfg.Providers, entry.name) {
			log.Info("resource provider disabled by configuration", "provider", entry.name)
			continue
		}
		p, err := provider.New(provider.Options{
			Name:             entry.name,
			InstanceID:       cfg.InstanceID,
			Handler:          entry.handler,
			Authorization:    authClient,
			EventSource:      broker.Subscribe(entry.namespace),
			EventNamespaces:  []string{entry.namespace},
			EventCycle:       cycle,
			EventPublisher:   broker,
			PublishNamespace: entry.namespace,
			Logger:           log,
			Metrics:          metrics,
		})
		if err != nil {
			return err
		}
		if err := p.Start(ctx); err != nil {
			return err
		}
		defer p.Stop()
		if err := registry.Register(p); err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/instances/", server.NewManagementHandler(cfg.InstanceID, registry, log))
	mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return server.New(cfg.Server.Listen, mux, log).Run(ctx)
}

func buildObjectStore(ctx context.Context, cfg config.Storage) (storage.ObjectStore, error) {
	switch cfg.Backend {
	case config.StorageBackendFilesystem:
		store := fsstore.NewFileObjectStore(cfg.BaseDir)
		if err := store.Init(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageBackendGit:
		store := gitstore.NewGitObjectStore(cfg.BaseDir)
		if err := store.Init(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageBackendMemory:
		return memstore.NewMemoryObjectStore(), nil
	default:
		return nil, faults.Validation(fmt.Sprintf("the storage backend %q is not supported", cfg.Backend), nil)
	}
}

func buildAuthorizationClient(cfg config.Authorization) (authorization.Client, error) {
	if cfg.Endpoint != "" {
		options := []httpclient.Option{}
		if cfg.APIKey != "" {
			options = append(options, httpclient.WithAPIKey(cfg.APIKey))
		}
		if cfg.RequestsPerSecond > 0 {
			options = append(options, httpclient.WithRateLimit(cfg.RequestsPerSecond, 1))
		}
		return httpclient.NewHTTPAuthorizationClient(cfg.Endpoint, options...), nil
	}
	if cfg.RulesFile != "" {
		rules, err := staticpolicy.LoadRulesFile(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		return staticpolicy.NewStaticPolicyClient(rules), nil
	}
	// No policy source configured: deny everything rather than guess.
	return staticpolicy.NewStaticPolicyClient(nil), nil
}

func providerEnabled(enabled []string, name string) bool {
	if len(enabled) == 0 {
		return true
	}
	for _, candidate := range enabled {
		if candidate == name {
			return true
		}
	}
	return false
}
