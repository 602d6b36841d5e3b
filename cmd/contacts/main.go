package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"contactfix/internal/contacts"
	"contactfix/internal/contacts/handler"
	"contactfix/pkg/app"
	"contactfix/pkg/config"
)

const ServiceName = "contacts"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	components, err := contacts.NewComponents(cfg, ServiceName, registry)
	if err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Failed to initialize contacts", "error", err)
	}

	application := app.NewApplication()
	application.SetApp(
		cfg,
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
		handler.NewContactHandler(components.Service, components.Validator, cfg.Log),
		registry,
	)
	application.Run()
}
