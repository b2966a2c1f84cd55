package mongodb

import (
	"context"

	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
)

// Transactor implements repositories.Transactor with client sessions
type Transactor struct {
	client  *mongo.Client
	enabled bool
}

// NewTransactor creates a Transactor. When disabled, fn runs without a
// transaction and each write stands on its own.
func NewTransactor(client *mongo.Client, enabled bool) repositories.Transactor {
	return &Transactor{client: client, enabled: enabled}
}

// WithinTransaction runs fn inside a session transaction
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
