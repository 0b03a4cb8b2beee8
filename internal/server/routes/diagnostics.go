package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/locality-hub/locality-hub/internal/events"
	"github.com/locality-hub/locality-hub/internal/registry"
	"github.com/locality-hub/locality-hub/internal/version"
)

// RegisterDiagnostics 暴露 /-/ 前缀下的运维接口：注册表概况与
// Prometheus 指标。该前缀与上报/查询面隔离，SRE 专用。
func RegisterDiagnostics(app *fiber.App, reg *registry.CacheLocationRegistry, bus *events.Bus, gatherer prometheus.Gatherer) {
	if app == nil || reg == nil {
		return
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		files, executors := reg.Summary()
		payload := fiber.Map{
			"version":           version.Full(),
			"tracked_files":     files,
			"tracked_executors": executors,
		}
		if bus != nil {
			payload["listener_kinds"] = bus.Kinds()
		}
		return c.JSON(payload)
	})

	if gatherer != nil {
		app.Get("/-/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}
