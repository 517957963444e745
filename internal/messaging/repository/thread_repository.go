package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental_messaging_service/internal/messaging/domain"
	errprocess "rental_messaging_service/pkg/err"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ThreadRepository durable CRUD over conversation threads. All mutations are
// single-document updates, so mongo's per-document atomicity is what
// serializes concurrent appends on the same thread.
type ThreadRepository interface {
	// FindByConversationID look up a thread by its deterministic id
	FindByConversationID(ctx context.Context, conversationID string) (*domain.ConversationThread, error)
	// FindOrCreate return the existing thread or create an empty one; created
	// reports whether this call inserted it. Safe under concurrent first contact.
	FindOrCreate(ctx context.Context, conversationID string, participants []string, propertyID string) (*domain.ConversationThread, bool, error)
	// AppendMessage validate sender membership, assign the server timestamp and
	// append atomically together with the last_message_at update
	AppendMessage(ctx context.Context, conversationID, senderID, content string) (*domain.ChatMessage, error)
	// MarkReadExcludingSender flip read=true on every message not sent by readerID
	MarkReadExcludingSender(ctx context.Context, conversationID, readerID string) error
	// ListForParticipant threads for one user, most recent message first
	ListForParticipant(ctx context.Context, userID string) ([]domain.ConversationThread, error)
}

type threadRepository struct {
	coll *mongo.Collection
}

// NewMongoThreadRepository create a ThreadRepository on the conversations collection
func NewMongoThreadRepository(db *mongo.Database) ThreadRepository {
	return &threadRepository{
		coll: db.Collection("conversations"),
	}
}

func (r *threadRepository) FindByConversationID(ctx context.Context, conversationID string) (*domain.ConversationThread, error) {
	var thread domain.ConversationThread
	err := r.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&thread)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errprocess.ErrThreadNotFound
		}
		return nil, errprocess.Wrap(errprocess.ErrStorageUnavailable, err)
	}
	return &thread, nil
}

func (r *threadRepository) FindOrCreate(ctx context.Context, conversationID string, participants []string, propertyID string) (*domain.ConversationThread, bool, error) {
	if len(participants) != 2 || participants[0] == participants[1] {
		return nil, false, fmt.Errorf("%w: a thread needs exactly two distinct participants", errprocess.ErrInvalidArgument)
	}

	now := time.Now().Unix()
	newThread := domain.ConversationThread{
		ConversationID: conversationID,
		Participants:   participants,
		PropertyID:     propertyID,
		Messages:       []domain.ChatMessage{},
		LastMessageAt:  0,
		CreatedAt:      now,
	}

	// Upsert with $setOnInsert: an existing thread is returned untouched,
	// concurrent first contact from both participants inserts exactly once.
	filter := bson.M{"_id": conversationID}
	update := bson.M{"$setOnInsert": newThread}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var existing domain.ConversationThread
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&existing)
	if err == nil {
		return &existing, false, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		// no previous document: this call inserted the thread
		return &newThread, true, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		// lost the insert race, the other participant's thread is ours too
		thread, ferr := r.FindByConversationID(ctx, conversationID)
		if ferr != nil {
			return nil, false, ferr
		}
		return thread, false, nil
	}
	return nil, false, errprocess.Wrap(errprocess.ErrStorageUnavailable, err)
}

func (r *threadRepository) AppendMessage(ctx context.Context, conversationID, senderID, content string) (*domain.ChatMessage, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", errprocess.ErrInvalidArgument)
	}

	msg := domain.ChatMessage{
		ID:        uuid.New().String(),
		SenderID:  senderID,
		Content:   content,
		Timestamp: time.Now().Unix(),
		Read:      false,
	}

	// The filter also matches the sender against the participant list, so a
	// foreign sender matches nothing and the thread is never mutated. Push and
	// last_message_at land in one document update.
	filter := bson.M{"_id": conversationID, "participants": senderID}
	update := bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"last_message_at": msg.Timestamp},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, errprocess.Wrap(errprocess.ErrStorageUnavailable, err)
	}
	if res.MatchedCount == 0 {
		// missing thread and foreign sender both match nothing; look again to
		// tell them apart
		if _, ferr := r.FindByConversationID(ctx, conversationID); ferr != nil {
			return nil, ferr
		}
		return nil, fmt.Errorf("%w: sender %s is not a participant", errprocess.ErrForbidden, senderID)
	}
	return &msg, nil
}

func (r *threadRepository) MarkReadExcludingSender(ctx context.Context, conversationID, readerID string) error {
	filter := bson.M{"_id": conversationID}
	update := bson.M{"$set": bson.M{"messages.$[elem].read": true}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.sender_id": bson.M{"$ne": readerID}, "elem.read": false},
		},
	})

	res, err := r.coll.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return errprocess.Wrap(errprocess.ErrStorageUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return errprocess.ErrThreadNotFound
	}
	// ModifiedCount == 0 means everything was already read; repeated calls are no-ops
	return nil
}

func (r *threadRepository) ListForParticipant(ctx context.Context, userID string) ([]domain.ConversationThread, error) {
	filter := bson.M{"participants": userID}
	opts := options.Find().SetSort(bson.M{"last_message_at": -1})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errprocess.Wrap(errprocess.ErrStorageUnavailable, err)
	}
	var threads []domain.ConversationThread
	if err := cur.All(ctx, &threads); err != nil {
		return nil, errprocess.Wrap(errprocess.ErrStorageUnavailable, err)
	}
	return threads, nil
}
