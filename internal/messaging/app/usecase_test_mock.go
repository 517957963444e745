package app

import (
	"context"

	"rental_messaging_service/internal/messaging/domain"

	"github.com/stretchr/testify/mock"
)

// MockThreadRepository Mock ThreadRepository
type MockThreadRepository struct {
	mock.Mock
}

// FindByConversationID mock find thread by conversation id
func (m *MockThreadRepository) FindByConversationID(ctx context.Context, conversationID string) (*domain.ConversationThread, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ConversationThread), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindOrCreate mock find or create thread
func (m *MockThreadRepository) FindOrCreate(ctx context.Context, conversationID string, participants []string, propertyID string) (*domain.ConversationThread, bool, error) {
	args := m.Called(ctx, conversationID, participants, propertyID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ConversationThread), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

// AppendMessage mock append message
func (m *MockThreadRepository) AppendMessage(ctx context.Context, conversationID, senderID, content string) (*domain.ChatMessage, error) {
	args := m.Called(ctx, conversationID, senderID, content)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkReadExcludingSender mock mark read
func (m *MockThreadRepository) MarkReadExcludingSender(ctx context.Context, conversationID, readerID string) error {
	args := m.Called(ctx, conversationID, readerID)
	return args.Error(0)
}

// ListForParticipant mock list threads for user
func (m *MockThreadRepository) ListForParticipant(ctx context.Context, userID string) ([]domain.ConversationThread, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ConversationThread), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserDirectory Mock UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

// Exists mock user existence check
func (m *MockUserDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// Profile mock profile lookup
func (m *MockUserDirectory) Profile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockBroadcastBus Mock BroadcastBus
type MockBroadcastBus struct {
	mock.Mock
}

// Publish mock publisher
func (m *MockBroadcastBus) Publish(channel string, message interface{}) error {
	args := m.Called(channel, message)
	return args.Error(0)
}

// Subscribe mock subscriber
func (m *MockBroadcastBus) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	args := m.Called(channel, handler)
	return args.Error(0)
}
