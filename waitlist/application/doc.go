// Package application contém o Engine da waitlist (Join, Status, List, Delete,
// Count) e as regras auxiliares: validação de email e geração de códigos de
// indicação.
//
// Ele depende apenas do pacote domain; o KV concreto (Redis, memória) é injetado.
//
// O Engine não segura lock entre chamadas ao KV. Consequências conhecidas e
// aceitas (posições são um ranking indicativo, não chave primária):
//
//   - Join lê o contador e grava count+1 depois: dois joins simultâneos podem
//     receber a mesma posição.
//   - As três gravações do Join (entrada, índice reverso, contador) são
//     independentes; uma queda no meio pode deixar uma sem a outra.
//   - O crédito de indicação lê e regrava o registro inteiro do referrer: duas
//     indicações simultâneas do mesmo referrer podem perder uma atualização.
package application
