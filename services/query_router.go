package services

import (
	"context"

	"github.com/itish2003/docqa/models"
)

// QueryRouter sends questions to the chain of their session.
type QueryRouter struct {
	registry *SessionRegistry
}

func NewQueryRouter(registry *SessionRegistry) *QueryRouter {
	return &QueryRouter{registry: registry}
}

// Answer returns ErrSessionNotFound unchanged when the session is unknown.
// The question itself is passed through without validation.
func (q *QueryRouter) Answer(ctx context.Context, sessionID, question string) (*models.QueryResult, error) {
	chain, err := q.registry.Lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return chain.Ask(ctx, question)
}
