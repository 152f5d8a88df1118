// Package actor reads the caller identity set by the upstream auth proxy.
package actor

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
)

const (
	HeaderID      = "X-Actor-ID"
	HeaderRole    = "X-Actor-Role"
	HeaderBuyerID = "X-Actor-Buyer-ID"
)

// Middleware stores the request actor in the context. Requests without headers act as staff
// identified as anonymous; a buyer role without a buyer id is rejected.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := auditlog.Actor{
			ID:        strings.TrimSpace(r.Header.Get(HeaderID)),
			Role:      strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderRole))),
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
		}
		if a.ID == "" {
			a.ID = "anonymous"
		}
		if a.Role == "" {
			a.Role = auditlog.RoleStaff
		}

		if a.IsBuyer() {
			buyerID, err := strconv.ParseInt(r.Header.Get(HeaderBuyerID), 10, 64)
			if err != nil || buyerID <= 0 {
				render.Error(w, r, errs.Forbidden("buyer actor requires %s", HeaderBuyerID))

				return
			}
			a.BuyerID = buyerID
		}

		next.ServeHTTP(w, r.WithContext(auditlog.WithActor(r.Context(), a)))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")

		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
