package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/locality-hub/locality-hub/internal/events"
	"github.com/locality-hub/locality-hub/internal/metrics"
	"github.com/locality-hub/locality-hub/internal/registry"
	"github.com/locality-hub/locality-hub/internal/server/routes"
)

// AppOptions controls how the Fiber application is assembled. All
// collaborators are injected explicitly; nothing reaches for globals.
type AppOptions struct {
	Logger          *logrus.Logger
	Registry        *registry.CacheLocationRegistry
	Bus             *events.Bus
	Metrics         *metrics.Set
	ListenPort      int
	MaxPayloadBytes int
}

const contextKeyRequestID = "_localityhub_request_id"

// NewApp builds a Fiber application with recover + request-ID middleware
// and the report/query surface attached. Diagnostics under /-/ are optional
// and registered separately by the caller.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("cache location registry is required")
	}
	if opts.Bus == nil {
		return nil, errors.New("heartbeat bus is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	cfg := fiber.Config{
		CaseSensitive: true,
	}
	if opts.MaxPayloadBytes > 0 {
		cfg.BodyLimit = opts.MaxPayloadBytes
	}

	app := fiber.New(cfg)
	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	routes.RegisterReportRoutes(app, routes.ReportDeps{
		Logger:  opts.Logger,
		Bus:     opts.Bus,
		Metrics: opts.Metrics,
	})
	routes.RegisterQueryRoutes(app, opts.Registry, opts.Logger)

	return app, nil
}

// requestIDMiddleware 为每个请求生成 X-Request-ID，供日志与排障串联。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
