// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - WindowStore: janela fixa por chave em memória (N tentativas por janela)
//   - RedisWindowStore: a mesma regra num script Lua, compartilhada entre instâncias
//   - BucketStore: token bucket por chave usando golang.org/x/time/rate
//   - SemaphorePool: semáforo simples para limite de concorrência
package infra
