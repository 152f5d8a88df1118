// Package auditlog serves the audit trail of one entity.
package auditlog

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/corray333/backend-labs/trade/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/trade/internal/transport/http/render"
	"github.com/gorilla/schema"
)

type service interface {
	History(ctx context.Context, entityType, entityID string) ([]auditlog.Entry, error)
}

type historyRequest struct {
	EntityType string `schema:"entityType,required"`
	EntityID   string `schema:"entityId,required"`
}

// History handles GET /audit-log. Buyer actors have no access to the trail.
func History(w http.ResponseWriter, r *http.Request, service service) {
	if auditlog.ActorFromContext(r.Context()).IsBuyer() {
		render.Error(w, r, errs.Forbidden("audit log is not available to buyers"))

		return
	}

	query := &historyRequest{}
	if err := schema.NewDecoder().Decode(query, r.URL.Query()); err != nil {
		render.BadRequest(w, err)

		return
	}

	entries, err := service.History(r.Context(), query.EntityType, query.EntityID)
	if err != nil {
		render.Error(w, r, err)

		return
	}

	render.OK(w, entries)
}
