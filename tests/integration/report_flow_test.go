package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/locality-hub/locality-hub/internal/events"
	"github.com/locality-hub/locality-hub/internal/fiberstatus"
	"github.com/locality-hub/locality-hub/internal/metrics"
	"github.com/locality-hub/locality-hub/internal/registry"
	"github.com/locality-hub/locality-hub/internal/server"
	"github.com/locality-hub/locality-hub/internal/server/routes"
)

// env 按 main.go 的启动顺序组装一套完整服务，供集成用例复用。
type env struct {
	app *fiber.App
	reg *registry.CacheLocationRegistry
}

func newEnv(t *testing.T) *env {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	promRegistry := prometheus.NewRegistry()
	set := metrics.New(promRegistry)
	reg := registry.New(logger, set)
	bus := events.NewBus()
	if err := reg.Attach(bus); err != nil {
		t.Fatalf("挂载监听器失败: %v", err)
	}

	app, err := server.NewApp(server.AppOptions{
		Logger:          logger,
		Registry:        reg,
		Bus:             bus,
		Metrics:         set,
		ListenPort:      7070,
		MaxPayloadBytes: 1 << 20,
	})
	if err != nil {
		t.Fatalf("构建 app 失败: %v", err)
	}
	routes.RegisterDiagnostics(app, reg, bus, promRegistry)

	return &env{app: app, reg: reg}
}

func (e *env) postReport(t *testing.T, path, executorID, host, payload string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"executor_id": executorID,
		"host":        host,
		"payload":     payload,
	})
	if err != nil {
		t.Fatalf("序列化请求失败: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	return resp
}

func (e *env) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, body
}

func statusPayload(t *testing.T, file string, cached, total int) string {
	t.Helper()
	mask := make(fiberstatus.FiberBitSet, (total+7)/8)
	for i := 0; i < cached; i++ {
		mask.Set(i)
	}
	encoded, err := fiberstatus.EncodeStatusBatch([]fiberstatus.FileCacheStatus{
		{File: file, Bitmask: mask, GroupCount: 1, FieldCount: total},
	})
	if err != nil {
		t.Fatalf("构造状态载荷失败: %v", err)
	}
	return string(encoded)
}

func queryHosts(t *testing.T, e *env, file string) []string {
	t.Helper()
	resp, body := e.get(t, "/v1/locality/hosts?file="+file)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("查询失败: %d (%s)", resp.StatusCode, string(body))
	}
	var payload struct {
		Hosts []string `json:"hosts"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("解析响应失败: %v\nbody: %s", err, string(body))
	}
	return payload.Hosts
}

// TestLocationReplacementFlow 走完整 HTTP 链路复现规格示例：
// 5/10 → 8/10 替换，2/10 不替换。
func TestLocationReplacementFlow(t *testing.T) {
	e := newEnv(t)
	const file = "/data/t.parquet"

	if resp := e.postReport(t, "/v1/reports/fiber-status", "3", "worker1", statusPayload(t, file, 5, 10)); resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("首次上报失败: %d", resp.StatusCode)
	}
	if hosts := queryHosts(t, e, file); len(hosts) != 1 || hosts[0] != "OAP_HOST_worker1_OAP_EXECUTOR_3" {
		t.Fatalf("期望 worker1 记录, got %v", hosts)
	}

	if resp := e.postReport(t, "/v1/reports/fiber-status", "7", "worker2", statusPayload(t, file, 8, 10)); resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("第二次上报失败: %d", resp.StatusCode)
	}
	if hosts := queryHosts(t, e, file); hosts[0] != "OAP_HOST_worker2_OAP_EXECUTOR_7" {
		t.Fatalf("更完整上报应替换记录, got %v", hosts)
	}

	if resp := e.postReport(t, "/v1/reports/fiber-status", "9", "worker3", statusPayload(t, file, 2, 10)); resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("第三次上报失败: %d", resp.StatusCode)
	}
	if hosts := queryHosts(t, e, file); hosts[0] != "OAP_HOST_worker2_OAP_EXECUTOR_7" {
		t.Fatalf("更差上报不应替换记录, got %v", hosts)
	}
}

func TestStatsFlowAndDiagnostics(t *testing.T) {
	e := newEnv(t)

	if resp := e.postReport(t, "/v1/reports/cache-stats", "3", "worker1", `{"hit_count":90,"miss_count":10}`); resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("统计上报失败: %d", resp.StatusCode)
	}
	// 空载荷与坏载荷都不改变已有统计
	if resp := e.postReport(t, "/v1/reports/cache-stats", "3", "worker1", ""); resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("空载荷应返回 204: %d", resp.StatusCode)
	}
	if resp := e.postReport(t, "/v1/reports/cache-stats", "3", "worker1", "broken"); resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("坏载荷应返回 204: %d", resp.StatusCode)
	}

	resp, body := e.get(t, "/v1/executors/stats")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("统计查询失败: %d", resp.StatusCode)
	}
	var payload struct {
		Executors map[string]struct {
			HitCount  int64 `json:"hit_count"`
			MissCount int64 `json:"miss_count"`
		} `json:"executors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("解析失败: %v\nbody: %s", err, string(body))
	}
	if payload.Executors["3"].HitCount != 90 || payload.Executors["3"].MissCount != 10 {
		t.Fatalf("统计应保持首次上报的值: %+v", payload.Executors["3"])
	}

	// 诊断接口反映注册表概况
	resp, body = e.get(t, "/-/status")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("诊断查询失败: %d", resp.StatusCode)
	}
	var status struct {
		Version          string   `json:"version"`
		TrackedFiles     int64    `json:"tracked_files"`
		TrackedExecutors int64    `json:"tracked_executors"`
		ListenerKinds    []string `json:"listener_kinds"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("解析诊断响应失败: %v\nbody: %s", err, string(body))
	}
	if status.TrackedExecutors != 1 {
		t.Fatalf("诊断应显示 1 个 executor, got %d", status.TrackedExecutors)
	}
	if len(status.ListenerKinds) != 2 {
		t.Fatalf("应挂载两类监听器, got %v", status.ListenerKinds)
	}
	if status.Version == "" {
		t.Fatalf("诊断应输出版本信息")
	}
}

func TestMetricsEndpointCountsReports(t *testing.T) {
	e := newEnv(t)

	e.postReport(t, "/v1/reports/fiber-status", "3", "worker1", statusPayload(t, "/data/a.parquet", 4, 8))
	e.postReport(t, "/v1/reports/fiber-status", "3", "worker1", "{{{")
	e.postReport(t, "/v1/reports/cache-stats", "3", "worker1", "broken")

	resp, body := e.get(t, "/-/metrics")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("指标接口失败: %d", resp.StatusCode)
	}
	text := string(body)
	for _, metric := range []string{
		`locality_hub_reports_received_total{kind="fiber_status"} 2`,
		`locality_hub_reports_received_total{kind="cache_stats"} 1`,
		`locality_hub_status_decode_failures_total 1`,
		`locality_hub_stats_parse_failures_total 1`,
		`locality_hub_tracked_files 1`,
	} {
		if !bytes.Contains(body, []byte(metric)) {
			t.Fatalf("指标输出缺少 %q:\n%s", metric, text)
		}
	}
}

func TestMalformedEnvelopeRejected(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest("POST", "/v1/reports/fiber-status", bytes.NewReader([]byte("not-json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("非法信封应返回 400, got %d", resp.StatusCode)
	}
}
