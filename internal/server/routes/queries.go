package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/locality-hub/locality-hub/internal/logging"
	"github.com/locality-hub/locality-hub/internal/registry"
)

// RegisterQueryRoutes 暴露调度器与监控消费的只读查询面。
func RegisterQueryRoutes(app *fiber.App, reg *registry.CacheLocationRegistry, logger *logrus.Logger) {
	if app == nil || reg == nil || logger == nil {
		return
	}

	app.Get("/v1/locality/hosts", func(c fiber.Ctx) error {
		file := c.Query("file")
		if file == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "file_required",
			})
		}

		hosts := reg.HostsForFile(file)
		if hosts == nil {
			hosts = []string{}
		}
		logger.WithFields(logging.QueryFields("locality_lookup", file, len(hosts))).Debug("调度器查询缓存位置")

		return c.JSON(fiber.Map{
			"file":  file,
			"hosts": hosts,
		})
	})

	app.Get("/v1/executors/stats", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"executors": reg.ExecutorStats(),
		})
	})
}
