package social

const (
	TypeMessageAdded   = "social.message.added"
	TypePostLiked      = "social.post.liked"
	TypePostUnliked    = "social.post.unliked"
	TypeMessageLiked   = "social.message.liked"
	TypeMessageUnliked = "social.message.unliked"
	TypeFriendAdded    = "social.friend.added"
	TypeProfileUpdated = "social.profile.updated"
	TypeFeeDenied      = "social.fee.denied"
)

// MessageAdded is emitted when a message (top-level or threaded) is applied.
type MessageAdded struct {
	Account   string
	PostID    string
	MsgIdx    uint64
	ParentIdx *uint64
}

// EventType implements the events.Event interface.
func (MessageAdded) EventType() string { return TypeMessageAdded }

// PostLiked is emitted when a post like is applied.
type PostLiked struct {
	Account string
	PostID  string
}

// EventType implements the events.Event interface.
func (PostLiked) EventType() string { return TypePostLiked }

// PostUnliked is emitted when a post like is removed.
type PostUnliked struct {
	Account string
	PostID  string
}

// EventType implements the events.Event interface.
func (PostUnliked) EventType() string { return TypePostUnliked }

// MessageLiked is emitted when a message like is applied.
type MessageLiked struct {
	Account string
	PostID  string
	MsgIdx  uint64
}

// EventType implements the events.Event interface.
func (MessageLiked) EventType() string { return TypeMessageLiked }

// MessageUnliked is emitted when a message like is removed.
type MessageUnliked struct {
	Account string
	PostID  string
	MsgIdx  uint64
}

// EventType implements the events.Event interface.
func (MessageUnliked) EventType() string { return TypeMessageUnliked }

// FriendAdded is emitted when a friendship edge is applied.
type FriendAdded struct {
	Account  string
	FriendID string
}

// EventType implements the events.Event interface.
func (FriendAdded) EventType() string { return TypeFriendAdded }

// ProfileUpdated is emitted when a profile mutation is applied.
type ProfileUpdated struct {
	Account string
}

// EventType implements the events.Event interface.
func (ProfileUpdated) EventType() string { return TypeProfileUpdated }

// FeeDenied is emitted when the fee ledger refuses the debit and the action
// is aborted without mutating state.
type FeeDenied struct {
	Account string
	Kind    CallKind
	Reason  string
}

// EventType implements the events.Event interface.
func (FeeDenied) EventType() string { return TypeFeeDenied }
