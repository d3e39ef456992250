// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas, o que
// permite trocar o backend do limiter (memória, Redis) sem tocar nos middlewares.
package domain
