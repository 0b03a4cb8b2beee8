package registry

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/locality-hub/locality-hub/internal/fiberstatus"
	"github.com/locality-hub/locality-hub/internal/metrics"
)

// HostPrefix/ExecutorPrefix 拼接派生 host 标识的固定模板，是调度器与
// 上报方共同依赖的复合主键格式，不可变更。
const (
	HostPrefix     = "OAP_HOST_"
	ExecutorPrefix = "_OAP_EXECUTOR_"
)

// HostID 按固定模板拼接 host 名与 executor 标识，
// 例如 HostID("worker1", "3") = "OAP_HOST_worker1_OAP_EXECUTOR_3"。
func HostID(hostName, executorID string) string {
	return HostPrefix + hostName + ExecutorPrefix + executorID
}

// CacheLocationRegistry 是进程级注册表，在 driver 启动时创建一次并贯穿
// 整个生命周期。所有方法都可被任意 goroutine 并发调用。
type CacheLocationRegistry struct {
	// files: file path → *fiberstatus.HostCacheRecord
	files sync.Map
	// stats: executor id → fiberstatus.CacheStats
	stats sync.Map

	fileCount     atomic.Int64
	executorCount atomic.Int64

	logger  *logrus.Logger
	metrics *metrics.Set
}

// New 构建空注册表。logger/metrics 为 nil 时退化为独立实例，
// 方便测试直接 New(nil, nil)。
func New(logger *logrus.Logger, set *metrics.Set) *CacheLocationRegistry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if set == nil {
		set = metrics.New(prometheus.NewRegistry())
	}
	return &CacheLocationRegistry{
		logger:  logger,
		metrics: set,
	}
}

// RecordLocationUpdate 应用一批 fiber 状态上报。载荷解码失败时原样返回
// 错误且不写入任何条目（整包全有或全无）；解码成功后逐文件执行
// "更完整才替换"，各文件之间相互独立。
func (r *CacheLocationRegistry) RecordLocationUpdate(hostName, executorID string, payload []byte) error {
	statuses, err := fiberstatus.DecodeStatusBatch(payload)
	if err != nil {
		r.metrics.DecodeFailures.Inc()
		return err
	}

	host := HostID(hostName, executorID)
	for _, status := range statuses {
		r.storeIfMoreComplete(host, status)
	}
	return nil
}

// storeIfMoreComplete 对单个文件执行原子的"读-比较-写"。
// CompareAndSwap 失败意味着有并发写抢先更新，此时重读最新记录再比较，
// 保证并发上报下最终留下的一定是覆盖数最大的记录。
func (r *CacheLocationRegistry) storeIfMoreComplete(host string, status fiberstatus.FileCacheStatus) {
	candidate := &fiberstatus.HostCacheRecord{Host: host, Status: status}

	for {
		current, loaded := r.files.Load(status.File)
		if !loaded {
			if _, raced := r.files.LoadOrStore(status.File, candidate); raced {
				continue
			}
			r.fileCount.Add(1)
			r.metrics.TrackedFiles.Inc()
			r.metrics.LocationReplaced.Inc()
			return
		}

		existing := current.(*fiberstatus.HostCacheRecord)
		if !status.MoreCompleteThan(existing.Status) {
			// 平局或更差：保留已有记录
			r.metrics.LocationKept.Inc()
			return
		}
		if r.files.CompareAndSwap(status.File, current, candidate) {
			r.metrics.LocationReplaced.Inc()
			return
		}
	}
}

// RecordStatsUpdate 记录 executor 的最新缓存统计。空载荷直接忽略；
// 解析失败仅记日志与指标，保留该 executor 的旧统计，绝不向调用方抛错，
// 避免单个坏载荷影响事件投递层的其余上报。
func (r *CacheLocationRegistry) RecordStatsUpdate(executorID, hostName string, payload []byte) {
	if len(payload) == 0 {
		return
	}

	stats, err := fiberstatus.ParseCacheStats(payload)
	if err != nil {
		r.metrics.StatsParseFailures.Inc()
		r.logger.WithFields(logrus.Fields{
			"action":      "stats_update",
			"executor_id": executorID,
			"host":        hostName,
		}).WithError(err).Warn("丢弃无法解析的缓存统计载荷")
		return
	}

	if _, replaced := r.stats.Swap(executorID, stats); !replaced {
		r.executorCount.Add(1)
		r.metrics.TrackedExecutors.Inc()
	}
}

// HostsForFile 返回当前记录的最优缓存位置。返回切片是为未来多副本
// 预留的形态，目前最多一个元素；从未上报过的文件返回空。
func (r *CacheLocationRegistry) HostsForFile(path string) []string {
	value, ok := r.files.Load(path)
	if !ok {
		return nil
	}
	record := value.(*fiberstatus.HostCacheRecord)
	return []string{record.Host}
}

// ExecutorStats 返回统计映射的拷贝，供监控只读消费，拷贝规模受
// executor 总数约束。
func (r *CacheLocationRegistry) ExecutorStats() map[string]fiberstatus.CacheStats {
	result := make(map[string]fiberstatus.CacheStats, r.executorCount.Load())
	r.stats.Range(func(key, value any) bool {
		result[key.(string)] = value.(fiberstatus.CacheStats)
		return true
	})
	return result
}

// Summary 返回当前跟踪的文件数与 executor 数，供诊断接口输出。
func (r *CacheLocationRegistry) Summary() (files, executors int64) {
	return r.fileCount.Load(), r.executorCount.Load()
}
