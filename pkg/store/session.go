package store

// SessionState is the hot, in-memory conversational state of a chat
// session: the last question asked and the document scope it ran against.
// It lets a follow-up question inherit the previous scope when the caller
// does not re-select documents. Persistent history lives in the database;
// this state is disposable.
type SessionState struct {
	ID          string   `json:"id"` // chat session id
	UserID      string   `json:"user_id"`
	LastQuery   string   `json:"last_query"`
	DocumentIDs []string `json:"document_ids"` // scope of the last answer
}
