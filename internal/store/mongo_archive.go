package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventArchive mirrors Events and SimulatedEmails into MongoDB as a
// secondary, best-effort audit trail, called inline from postgresTx's
// AppendEvent/AppendEmail right after each row is newly inserted. Postgres
// remains the sole authoritative store; a mirror write failure is logged
// and swallowed, never propagated back into the triggering transaction. A
// transaction that mirrors a row and then rolls back (a Postgres
// serialization failure, for instance) can leave an orphan record in the
// archive with no corresponding row in Postgres — acceptable for a
// best-effort trail, not acceptable if this were ever treated as
// authoritative.
type EventArchive struct {
	client *mongo.Client
	events *mongo.Collection
	emails *mongo.Collection
}

// NewEventArchive connects to MongoDB and prepares the archive collections.
// A nil *EventArchive is a valid no-op archive: MirrorEvent, MirrorEmail
// and Close return immediately on a nil receiver.
func NewEventArchive(connectionString, database string) (*EventArchive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	archive := &EventArchive{
		client: client,
		events: db.Collection("event_archive"),
		emails: db.Collection("email_archive"),
	}
	if err := archive.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return archive, nil
}

func (a *EventArchive) createIndexes(ctx context.Context) error {
	_, err := a.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "dedupe_key", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create event archive indexes: %w", err)
	}
	_, err = a.emails.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "dedupe_key", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create email archive indexes: %w", err)
	}
	return nil
}

// MirrorEvent writes e to the archive, logging (never returning) failures.
func (a *EventArchive) MirrorEvent(ctx context.Context, e Event) {
	if a == nil {
		return
	}
	doc := bson.M{
		"id":          e.ID,
		"type":        e.Type,
		"user_id":     e.UserID,
		"book_id":     e.BookID,
		"borrow_id":   e.BorrowID,
		"purchase_id": e.PurchaseID,
		"job_id":      e.JobID,
		"metadata":    e.Metadata,
		"dedupe_key":  e.DedupeKey,
		"created_at":  e.CreatedAt,
	}
	if _, err := a.events.InsertOne(ctx, doc); err != nil && !mongo.IsDuplicateKeyError(err) {
		log.Error().Err(err).Str("event_type", e.Type).Msg("archive.mirror_event_failed")
	}
}

// MirrorEmail writes e to the archive, logging (never returning) failures.
func (a *EventArchive) MirrorEmail(ctx context.Context, e SimulatedEmail) {
	if a == nil {
		return
	}
	doc := bson.M{
		"id":         e.ID,
		"recipient":  e.Recipient,
		"subject":    e.Subject,
		"type":       e.Type,
		"dedupe_key": e.DedupeKey,
		"created_at": e.CreatedAt,
	}
	if _, err := a.emails.InsertOne(ctx, doc); err != nil && !mongo.IsDuplicateKeyError(err) {
		log.Error().Err(err).Str("email_type", string(e.Type)).Msg("archive.mirror_email_failed")
	}
}

// Close disconnects the underlying Mongo client.
func (a *EventArchive) Close() error {
	if a == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}
