package fiberstatus

import (
	"encoding/json"
	"fmt"
)

// CacheStats 是单个 executor 在某一时刻的缓存利用率快照。
// 字段全部为计数器语义，注册表按 executor 粒度整体覆盖，不做合并。
type CacheStats struct {
	HitCount       int64 `json:"hit_count"`
	MissCount      int64 `json:"miss_count"`
	LoadCount      int64 `json:"load_count"`
	TotalLoadTime  int64 `json:"total_load_time_ns"`
	EvictionCount  int64 `json:"eviction_count"`
	CacheSizeBytes int64 `json:"cache_size_bytes"`
	FiberCount     int64 `json:"fiber_count"`
}

// HitRate 返回命中率，无请求时为 0，供监控展示使用。
func (s CacheStats) HitRate() float64 {
	total := s.HitCount + s.MissCount
	if total == 0 {
		return 0
	}
	return float64(s.HitCount) / float64(total)
}

// ParseCacheStats 解析统计载荷并做基本校验。负数计数器视为非法载荷，
// 与 JSON 语法错误同样返回 error，由调用方决定是否吞掉。
func ParseCacheStats(raw []byte) (CacheStats, error) {
	var stats CacheStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return CacheStats{}, fmt.Errorf("解析缓存统计载荷失败: %w", err)
	}

	counters := map[string]int64{
		"hit_count":          stats.HitCount,
		"miss_count":         stats.MissCount,
		"load_count":         stats.LoadCount,
		"total_load_time_ns": stats.TotalLoadTime,
		"eviction_count":     stats.EvictionCount,
		"cache_size_bytes":   stats.CacheSizeBytes,
		"fiber_count":        stats.FiberCount,
	}
	for field, value := range counters {
		if value < 0 {
			return CacheStats{}, fmt.Errorf("缓存统计字段 %s 不允许为负: %d", field, value)
		}
	}
	return stats, nil
}
