// Package registry 实现 driver 侧的缓存位置注册表（CacheLocationRegistry）。
//
// 注册表维护两张相互独立的并发映射：
//   - file → 已知 fiber 覆盖最完整的 HostCacheRecord；
//   - executor → 最近一次上报的 CacheStats。
//
// 写入来自各 worker 的心跳回调，读取来自调度器热路径与监控轮询，
// 二者完全并发。file 映射的"读-比较-写"必须按 key 线性化：两个并发
// 上报各自看到"比现有更完整"时，不允许互相覆盖而丢掉真正最完整的
// 一条，因此写路径使用 LoadOrStore + CompareAndSwap 循环而非朴素的
// get-then-put。条目只增不删，容量由历史上出现过的 file/executor
// 数量决定，这是预期行为而非泄漏。
package registry
