package bot

import "time"

// MessageEvent is an inbound chat message.
type MessageEvent struct {
	ConversationID string
	SenderID       string
	Text           string
	Timestamp      time.Time
}

// MembersAddedEvent reports participants that joined a conversation.
// RecipientID is the bot's own identifier on the channel.
type MembersAddedEvent struct {
	ConversationID string
	MemberIDs      []string
	RecipientID    string
}

// Reply is an outbound message. Speak carries the same text for
// voice-capable channels.
type Reply struct {
	ID             string
	ConversationID string
	Text           string
	Speak          string
}
