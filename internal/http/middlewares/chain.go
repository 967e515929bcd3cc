package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/dataledger/internal/domain/repository"
)

// Middleware tiene la misma forma que los de chi, así que entra directo en
// Router.Use.
type Middleware func(http.Handler) http.Handler

// Chain envuelve h con mws. El primero queda afuera: Chain(h, A, B) corre A, B, h.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := range mws {
		h = mws[len(mws)-1-i](h)
	}
	return h
}

// ClusterAdmin es la guarda de /v1/cluster: token de operador con scope
// cluster:admin y, recién después, nodo líder para las escrituras. Un
// follower responde 409 solo a quien ya se autenticó.
func ClusterAdmin(secret []byte, log repository.CommitLog) Middleware {
	auth := RequireOpsToken(secret, ScopeClusterAdmin)
	leader := RequireLeader(log)
	return func(next http.Handler) http.Handler {
		return Chain(next, auth, leader)
	}
}
