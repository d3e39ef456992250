// Package domain define os tipos e contratos da waitlist: a entrada de cada
// participante, a porta para o key-value store, a porta de estatísticas e a
// taxonomia de erros.
//
// Não depende de net/http nem de Redis.
package domain
