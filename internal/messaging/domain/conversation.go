package domain

import "rental_messaging_service/pkg"

// ConversationThread is the durable aggregate: two participants plus their
// ordered message log. The document id is the deterministic conversation id,
// so a thread is found directly by the pair (and optional property) with no
// lookup table.
type ConversationThread struct {
	ConversationID string        `bson:"_id" json:"conversation_id"`
	Participants   []string      `bson:"participants" json:"participants"`
	PropertyID     string        `bson:"property_id,omitempty" json:"property_id,omitempty"`
	Messages       []ChatMessage `bson:"messages" json:"messages"`
	LastMessageAt  int64         `bson:"last_message_at" json:"last_message_at"`
	CreatedAt      int64         `bson:"created_at" json:"created_at"`
}

// ChatMessage is owned exclusively by its thread. Array order is the
// authoritative ordering; Timestamp is informational.
type ChatMessage struct {
	ID        string `bson:"id" json:"id"`
	SenderID  string `bson:"sender_id" json:"sender_id"`
	Content   string `bson:"content" json:"content"`
	Timestamp int64  `bson:"timestamp" json:"timestamp"`
	Read      bool   `bson:"read" json:"read"`
}

// UserProfile displayable fields resolved from the user service
type UserProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ThreadView is a thread with participant profile data populated for display
type ThreadView struct {
	ConversationThread
	ParticipantProfiles []UserProfile `json:"participant_profiles,omitempty"`
}

// HasParticipant reports whether userID belongs to the thread
func (t *ConversationThread) HasParticipant(userID string) bool {
	return pkg.Contains(t.Participants, userID)
}

// OtherParticipant returns the peer of userID, or "" when userID is not a participant
func (t *ConversationThread) OtherParticipant(userID string) string {
	for _, p := range t.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
