package consts

const (
	// DefaultDBName is the default database name.
	DefaultDBName = "echobot"

	// TableNameConversations is the table/collection name for conversation records.
	TableNameConversations = "conversation_memories"

	// Column names
	ColConversationID = "conversation_id"
	ColHistory        = "history"
	ColUpdatedAt      = "updated_at"

	// Neo4j specific
	LabelConversation = "Conversation"
)
