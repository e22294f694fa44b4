package httpapi

import (
	"time"

	"github.com/j0lvera/echobot/internal/bot"
)

// Activity types accepted on /api/messages.
const (
	ActivityMessage            = "message"
	ActivityConversationUpdate = "conversationUpdate"
)

type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type ConversationAccount struct {
	ID string `json:"id"`
}

// Activity is the JSON envelope exchanged with HTTP channel clients.
type Activity struct {
	Type         string              `json:"type"`
	ID           string              `json:"id,omitempty"`
	Timestamp    time.Time           `json:"timestamp,omitempty"`
	ChannelID    string              `json:"channelId,omitempty"`
	Conversation ConversationAccount `json:"conversation"`
	From         ChannelAccount      `json:"from"`
	Recipient    ChannelAccount      `json:"recipient"`
	Text         string              `json:"text,omitempty"`
	Speak        string              `json:"speak,omitempty"`
	MembersAdded []ChannelAccount    `json:"membersAdded,omitempty"`
	ReplyToID    string              `json:"replyToId,omitempty"`
}

type activitiesResponse struct {
	Activities []Activity `json:"activities"`
}

func toMessageEvent(a Activity) bot.MessageEvent {
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return bot.MessageEvent{
		ConversationID: a.Conversation.ID,
		SenderID:       a.From.ID,
		Text:           a.Text,
		Timestamp:      ts,
	}
}

func toMembersAddedEvent(a Activity, botID string) bot.MembersAddedEvent {
	ids := make([]string, 0, len(a.MembersAdded))
	for _, m := range a.MembersAdded {
		ids = append(ids, m.ID)
	}
	recipient := a.Recipient.ID
	if recipient == "" {
		recipient = botID
	}
	return bot.MembersAddedEvent{
		ConversationID: a.Conversation.ID,
		MemberIDs:      ids,
		RecipientID:    recipient,
	}
}

// replyActivity addresses r back to the sender of in.
func replyActivity(in Activity, r bot.Reply) Activity {
	return Activity{
		Type:         ActivityMessage,
		ID:           r.ID,
		Timestamp:    time.Now().UTC(),
		ChannelID:    in.ChannelID,
		Conversation: in.Conversation,
		From:         in.Recipient,
		Recipient:    in.From,
		Text:         r.Text,
		Speak:        r.Speak,
		ReplyToID:    in.ID,
	}
}
