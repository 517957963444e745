package domain

// Action websocket request action
type Action string

const (
	// JoinConversation websocket action join_conversation
	JoinConversation Action = "join_conversation"
	// LeaveConversation websocket action leave_conversation
	LeaveConversation Action = "leave_conversation"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"

	// ReceiveMessage websocket push action receive_message
	ReceiveMessage Action = "receive_message"
	// ErrorAction websocket push action error
	ErrorAction Action = "error"
)

// WSRequest websocket Request
type WSRequest struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id"`
	RecipientID    string `json:"recipient_id"`
	PropertyID     string `json:"property_id"`
	Content        string `json:"content"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// BroadcastEnvelope carries a room broadcast across gateway instances over
// the relay bus. Origin is the publishing gateway's instance id so it can
// skip its own relayed copy.
type BroadcastEnvelope struct {
	Origin         string     `json:"origin"`
	ConversationID string     `json:"conversation_id"`
	Response       WSResponse `json:"response"`
}
