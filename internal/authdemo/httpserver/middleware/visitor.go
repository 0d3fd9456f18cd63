package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/authdemo/internal/authdemo/observability"
	"finitefield.org/authdemo/internal/authdemo/session"
	"finitefield.org/authdemo/internal/authdemo/visitor"
)

type visitorContextKey string

const requestVisitorKey visitorContextKey = "authdemo.visitor"

// TicketStore abstracts the cookie manager for middleware integration.
type TicketStore interface {
	Load(*http.Request) (*session.Ticket, error)
	New() *session.Ticket
	Save(http.ResponseWriter, *session.Ticket) error
	Destroy(http.ResponseWriter)
}

// VisitorSource looks up and registers visitors.
type VisitorSource interface {
	Get(id string) (*visitor.Visitor, bool)
	Create() *visitor.Visitor
}

// Visitors resolves the cookie to an in-memory visitor, creating one when the cookie is
// missing, expired or points at a visitor that no longer exists. The refreshed cookie is
// written before the handler runs.
func Visitors(store TicketStore, registry VisitorSource) func(http.Handler) http.Handler {
	if store == nil || registry == nil {
		panic("visitor middleware requires a ticket store and a registry")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())

			ticket, err := store.Load(r)
			if errors.Is(err, session.ErrExpired) {
				logger.Debug("visitor ticket expired: resetting")
				store.Destroy(w)
				ticket = store.New()
			} else if err != nil || ticket == nil {
				if err != nil {
					logger.Warn("visitor ticket load failed", zap.Error(err))
				}
				ticket = store.New()
			}

			v, ok := registry.Get(ticket.VisitorID())
			if !ok {
				v = registry.Create()
				ticket.SetVisitorID(v.ID())
			}

			if err := store.Save(w, ticket); err != nil {
				logger.Error("visitor ticket save failed", zap.Error(err))
			}

			ctx := context.WithValue(r.Context(), requestVisitorKey, v)
			ctx = observability.WithLogger(ctx, logger.With(zap.String("visitor_id", v.ID())))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VisitorFromContext retrieves the visitor attached to this request.
func VisitorFromContext(ctx context.Context) (*visitor.Visitor, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(requestVisitorKey).(*visitor.Visitor)
	return v, ok && v != nil
}
