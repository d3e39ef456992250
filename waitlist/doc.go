// Package waitlist expõe o Engine da waitlist por HTTP (net/http).
//
// Rotas:
//
//	POST /api/waitlist/join      {email, referredBy?} -> {message, referralCode, position}
//	GET  /api/waitlist/status    ?ref=CODE -> {position, referralCount, totalCount, referralCode}
//	GET  /api/waitlist/count     -> {count} (nunca falha: {count: 0} se o KV cair)
//	GET  /api/waitlist/list      ?secret=... -> {users, count}
//	POST /api/waitlist/delete    {email} + Authorization: Bearer <segredo> (ou o segredo cru)
//	GET  /api/waitlist/stats     ?secret=...[&window=15m] -> {totals[, window, recent]}
//	GET  /healthz
//
// Erros sempre saem como {"error": "..."}, sem detalhes internos.
// O join passa pelo rate limit por IP (middleware/ratelimit) antes do handler.
package waitlist
