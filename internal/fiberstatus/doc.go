// Package fiberstatus 定义 fiber 缓存层的上报数据模型：单文件的 fiber
// 命中位图（FileCacheStatus）、派生的 host 缓存记录（HostCacheRecord）
// 以及 executor 级别的缓存统计快照（CacheStats）。
//
// 同时提供两类解码入口：
//  1. DecodeStatusBatch —— 把 worker 心跳里的 fiber 状态批量载荷解成
//     []FileCacheStatus，整包成功或整包失败；
//  2. ParseCacheStats —— 把统计载荷解成 CacheStats，并做字段校验。
//
// 所有类型均为不可变值对象，注册表只整体替换、从不原地修改。
package fiberstatus
