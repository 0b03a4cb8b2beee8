package routes

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/locality-hub/locality-hub/internal/events"
	"github.com/locality-hub/locality-hub/internal/logging"
	"github.com/locality-hub/locality-hub/internal/metrics"
)

// ReportDeps 汇总上报路由需要的协作对象。
type ReportDeps struct {
	Logger  *logrus.Logger
	Bus     *events.Bus
	Metrics *metrics.Set
}

// reportEnvelope 是 worker 心跳上报的 HTTP 信封。payload 原样承载
// 自定义载荷文本，由事件监听器按 Kind 解释。
type reportEnvelope struct {
	ExecutorID string `json:"executor_id"`
	Host       string `json:"host"`
	Payload    string `json:"payload"`
}

// RegisterReportRoutes 暴露两个上报入口：
//   - POST /v1/reports/fiber-status —— 解码失败返回 400（整包拒绝）；
//   - POST /v1/reports/cache-stats —— 载荷问题就地消化，恒定 204。
func RegisterReportRoutes(app *fiber.App, deps ReportDeps) {
	if app == nil || deps.Logger == nil || deps.Bus == nil {
		return
	}

	app.Post("/v1/reports/fiber-status", handleReport(deps, events.KindFiberStatus))
	app.Post("/v1/reports/cache-stats", handleReport(deps, events.KindCacheStats))
}

func handleReport(deps ReportDeps, kind events.Kind) fiber.Handler {
	return func(c fiber.Ctx) error {
		var env reportEnvelope
		if err := json.Unmarshal(c.Body(), &env); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "envelope_malformed",
			})
		}
		if env.ExecutorID == "" || env.Host == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "executor_id_and_host_required",
			})
		}

		if deps.Metrics != nil {
			deps.Metrics.ReportsReceived.WithLabelValues(string(kind)).Inc()
		}

		err := deps.Bus.Publish(events.Heartbeat{
			Kind:           kind,
			ExecutorID:     env.ExecutorID,
			HostName:       env.Host,
			CustomizedInfo: []byte(env.Payload),
		})
		if err != nil {
			if errors.Is(err, events.ErrUnknownKind) {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "listener_missing",
				})
			}
			// 只有 fiber 状态的解码失败会走到这里：统计监听器从不返回错误
			deps.Logger.WithFields(logging.ReportFields(string(kind), env.ExecutorID, env.Host, len(env.Payload))).
				WithError(err).Warn("上报载荷被拒绝")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "status_decode_failed",
				"detail": err.Error(),
			})
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
