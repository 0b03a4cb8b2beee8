package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/locality-hub/locality-hub/internal/config"
	"github.com/locality-hub/locality-hub/internal/events"
	"github.com/locality-hub/locality-hub/internal/logging"
	"github.com/locality-hub/locality-hub/internal/metrics"
	"github.com/locality-hub/locality-hub/internal/registry"
	"github.com/locality-hub/locality-hub/internal/server"
	"github.com/locality-hub/locality-hub/internal/server/routes"
	"github.com/locality-hub/locality-hub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["listen_port"] = cfg.Global.ListenPort
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序固定为"配置 → 指标 → 注册表 → 心跳总线 → Fiber server"，
	// 注册表在进程内只创建一次，所有上报与查询共享同一实例。
	promRegistry := prometheus.NewRegistry()
	set := metrics.New(promRegistry)
	reg := registry.New(logger, set)
	bus := events.NewBus()
	if err := reg.Attach(bus); err != nil {
		fmt.Fprintf(stdErr, "挂载心跳监听器失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, reg, bus, set, promRegistry, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("locality-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 LOCALITY_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("LOCALITY_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, reg *registry.CacheLocationRegistry, bus *events.Bus, set *metrics.Set, gatherer prometheus.Gatherer, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:          logger,
		Registry:        reg,
		Bus:             bus,
		Metrics:         set,
		ListenPort:      port,
		MaxPayloadBytes: cfg.Global.MaxPayloadBytes,
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnostics(app, reg, bus, gatherer)

	go watchShutdownSignal(app, cfg, logger)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}

// watchShutdownSignal 在收到 SIGINT/SIGTERM 后按配置的超时优雅退出。
func watchShutdownSignal(app *fiber.App, cfg *config.Config, logger *logrus.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	received := <-sig

	logger.WithFields(logrus.Fields{
		"action": "shutdown",
		"signal": received.String(),
	}).Info("收到退出信号，开始优雅关闭")

	if err := app.ShutdownWithTimeout(cfg.Global.ShutdownTimeout.DurationValue()); err != nil {
		logger.WithFields(logrus.Fields{
			"action": "shutdown",
		}).WithError(err).Warn("优雅关闭超时")
	}
}
