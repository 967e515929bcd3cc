package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/http/errors"
)

// RequireLeader asegura que las escrituras solo se ejecuten en el líder.
//   - Lecturas, o commit log nil => pasa.
//   - Follower => 409 con header X-Leader.
func RequireLeader(log repository.CommitLog) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}
			if log == nil {
				next.ServeHTTP(w, r)
				return
			}

			isLeader, err := log.IsLeader(r.Context())
			if err != nil || isLeader {
				next.ServeHTTP(w, r)
				return
			}

			if leaderID, _ := log.GetLeaderID(r.Context()); leaderID != "" {
				w.Header().Set("X-Leader", leaderID)
			}
			errors.WriteError(w, errors.ErrNotLeader.WithDetail("this node is a follower, not the leader"))
		})
	}
}
