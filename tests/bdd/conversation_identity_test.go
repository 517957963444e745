package bdd

import (
	"errors"
	"fmt"
	"testing"

	"rental_messaging_service/internal/messaging/domain"
	errprocess "rental_messaging_service/pkg/err"
	"rental_messaging_service/pkg/logger"

	"github.com/cucumber/godog"
)

type conversationIdentityState struct {
	conversationID string
	err            error
}

func (s *conversationIdentityState) opensAConversationWith(userA, userB string) error {
	s.conversationID, s.err = domain.ResolveConversationID(userA, userB, "")
	return nil
}

func (s *conversationIdentityState) opensAConversationWithAboutProperty(userA, userB, propertyID string) error {
	s.conversationID, s.err = domain.ResolveConversationID(userA, userB, propertyID)
	return nil
}

func (s *conversationIdentityState) theConversationIDShouldBe(expected string) error {
	if s.err != nil {
		return fmt.Errorf("expected conversation id %q but got error: %v", expected, s.err)
	}
	if s.conversationID != expected {
		return fmt.Errorf("expected conversation id %q but got %q", expected, s.conversationID)
	}
	return nil
}

func (s *conversationIdentityState) theConversationIDShouldNotBe(unexpected string) error {
	if s.err != nil {
		return fmt.Errorf("unexpected error: %v", s.err)
	}
	if s.conversationID == unexpected {
		return fmt.Errorf("conversation id %q should differ from %q", s.conversationID, unexpected)
	}
	return nil
}

func (s *conversationIdentityState) theRequestShouldBeRejectedAsInvalid() error {
	if !errors.Is(s.err, errprocess.ErrInvalidArgument) {
		return fmt.Errorf("expected invalid argument, got %v", s.err)
	}
	return nil
}

func InitializeConversationIdentityScenario(ctx *godog.ScenarioContext) {
	state := &conversationIdentityState{}

	ctx.Step(`^"([^"]*)" opens a conversation with "([^"]*)"$`, state.opensAConversationWith)
	ctx.Step(`^"([^"]*)" opens a conversation with "([^"]*)" about property "([^"]*)"$`, state.opensAConversationWithAboutProperty)
	ctx.Step(`^the conversation id should be "([^"]*)"$`, state.theConversationIDShouldBe)
	ctx.Step(`^the conversation id should not be "([^"]*)"$`, state.theConversationIDShouldNotBe)
	ctx.Step(`^the request should be rejected as invalid$`, state.theRequestShouldBeRejectedAsInvalid)
}

func TestConversationIdentityFeature(t *testing.T) {
	logger.SetNewNop()

	suite := godog.TestSuite{
		ScenarioInitializer: InitializeConversationIdentityScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"featureFiles/conversation_identity.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
