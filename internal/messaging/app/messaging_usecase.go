package app

import (
	"context"
	"fmt"

	"rental_messaging_service/internal/messaging/domain"
	"rental_messaging_service/internal/messaging/repository"
	errprocess "rental_messaging_service/pkg/err"
	"rental_messaging_service/pkg/logger"

	"go.uber.org/zap"
)

// MessagingUseCase conversation bootstrap, catch-up and the shared send path.
// The REST facade and the websocket gateway both go through here, so thread
// identity is always derived by the same resolver.
type MessagingUseCase struct {
	threadRepo repository.ThreadRepository
	users      repository.UserDirectory
}

// NewMessagingUseCase init messaging use case
func NewMessagingUseCase(threadRepo repository.ThreadRepository, users repository.UserDirectory) *MessagingUseCase {
	return &MessagingUseCase{
		threadRepo: threadRepo,
		users:      users,
	}
}

// StartOrGetConversation find or lazily create the thread between caller and
// recipient, optionally scoped to a property. initialMessage is appended only
// when this call created the thread.
func (uc *MessagingUseCase) StartOrGetConversation(ctx context.Context, callerID, recipientID, propertyID, initialMessage string) (*domain.ThreadView, error) {
	conversationID, err := domain.ResolveConversationID(callerID, recipientID, propertyID)
	if err != nil {
		return nil, err
	}

	ok, err := uc.users.Exists(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: recipient %s", errprocess.ErrUserNotFound, recipientID)
	}

	thread, created, err := uc.threadRepo.FindOrCreate(ctx, conversationID, sortedPair(callerID, recipientID), propertyID)
	if err != nil {
		return nil, err
	}

	if created && initialMessage != "" {
		msg, err := uc.threadRepo.AppendMessage(ctx, conversationID, callerID, initialMessage)
		if err != nil {
			return nil, err
		}
		thread.Messages = append(thread.Messages, *msg)
		thread.LastMessageAt = msg.Timestamp
	}

	return uc.toView(ctx, thread), nil
}

// ListThreads caller's threads ordered by most recent message
func (uc *MessagingUseCase) ListThreads(ctx context.Context, callerID string) ([]domain.ThreadView, error) {
	threads, err := uc.threadRepo.ListForParticipant(ctx, callerID)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ThreadView, 0, len(threads))
	for i := range threads {
		views = append(views, *uc.toView(ctx, &threads[i]))
	}
	return views, nil
}

// GetConversationHistory full thread for a participant; Forbidden for anyone else
func (uc *MessagingUseCase) GetConversationHistory(ctx context.Context, callerID, conversationID string) (*domain.ThreadView, error) {
	thread, err := uc.threadRepo.FindByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(callerID) {
		return nil, fmt.Errorf("%w: %s is not a participant of %s", errprocess.ErrForbidden, callerID, conversationID)
	}
	return uc.toView(ctx, thread), nil
}

// MarkConversationRead flip read=true on every message the caller did not send
func (uc *MessagingUseCase) MarkConversationRead(ctx context.Context, callerID, conversationID string) error {
	thread, err := uc.threadRepo.FindByConversationID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !thread.HasParticipant(callerID) {
		return fmt.Errorf("%w: %s is not a participant of %s", errprocess.ErrForbidden, callerID, conversationID)
	}
	return uc.threadRepo.MarkReadExcludingSender(ctx, conversationID, callerID)
}

// SendMessage the gateway send path: resolve identity, find-or-create,
// persist. The caller-supplied conversation id, when present, must agree
// with the resolver so the REST and realtime paths can never diverge.
func (uc *MessagingUseCase) SendMessage(ctx context.Context, senderID, recipientID, conversationID, propertyID, content string) (string, *domain.ChatMessage, error) {
	resolvedID, err := domain.ResolveConversationID(senderID, recipientID, propertyID)
	if err != nil {
		return "", nil, err
	}
	if conversationID != "" && conversationID != resolvedID {
		return "", nil, fmt.Errorf("%w: conversation id %s does not match its participants", errprocess.ErrInvalidArgument, conversationID)
	}

	ok, err := uc.users.Exists(ctx, recipientID)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, fmt.Errorf("%w: recipient %s", errprocess.ErrUserNotFound, recipientID)
	}

	if _, _, err := uc.threadRepo.FindOrCreate(ctx, resolvedID, sortedPair(senderID, recipientID), propertyID); err != nil {
		return "", nil, err
	}

	msg, err := uc.threadRepo.AppendMessage(ctx, resolvedID, senderID, content)
	if err != nil {
		return "", nil, err
	}
	return resolvedID, msg, nil
}

// AuthorizeJoin check the user may join the conversation's broadcast room
func (uc *MessagingUseCase) AuthorizeJoin(ctx context.Context, userID, conversationID string) error {
	thread, err := uc.threadRepo.FindByConversationID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !thread.HasParticipant(userID) {
		return fmt.Errorf("%w: %s is not a participant of %s", errprocess.ErrForbidden, userID, conversationID)
	}
	return nil
}

// toView decorates a thread with participant display data. Profile lookups
// are best effort; a missing profile never fails the request.
func (uc *MessagingUseCase) toView(ctx context.Context, thread *domain.ConversationThread) *domain.ThreadView {
	view := domain.ThreadView{ConversationThread: *thread}
	for _, id := range thread.Participants {
		profile, err := uc.users.Profile(ctx, id)
		if err != nil {
			logger.Log.Warn("profile lookup failed", zap.String("userID", id), zap.Error(err))
			continue
		}
		view.ParticipantProfiles = append(view.ParticipantProfiles, *profile)
	}
	return &view
}

func sortedPair(a, b string) []string {
	if a > b {
		a, b = b, a
	}
	return []string{a, b}
}
