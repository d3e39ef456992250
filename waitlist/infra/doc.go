// Package infra contém implementações concretas para os contratos definidos em
// waitlist/domain.
//
//   - RedisKV: domain.KV sobre github.com/redis/go-redis/v9
//   - MemoryKV: domain.KV em memória, para desenvolvimento e testes
//   - RedisStatsStore / MemoryStatsStore: contadores de eventos da waitlist
package infra
