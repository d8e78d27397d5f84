package social

// Identifier bounds for incoming call arguments. Account identifiers shorter
// than two bytes cannot exist on the host, which anchors the calibration
// baselines below.
const (
	MinAccountIDLen = 2
	MinPostIDLen    = 1
	MaxPostIDLen    = 100
	MinMessageLen   = 1
)

// MessageID identifies a message by its post and zero-based append position.
type MessageID struct {
	PostID string `json:"post_id"`
	MsgIdx uint64 `json:"msg_idx"`
}

// Message is the stored message record. Messages are immutable once written
// except for their like set, which lives in its own collection.
type Message struct {
	Account   string
	HasParent bool
	ParentIdx uint64
	Text      string
	Timestamp uint64
}

// AccountLike is a single entry of an account's recent-likes history. It is a
// tagged union: a post like carries only the post id, a message like also
// carries the message index.
type AccountLike struct {
	PostID string
	IsMsg  bool
	MsgIdx uint64
}

// NewPostLike builds a recent-likes entry for a post like.
func NewPostLike(postID string) AccountLike {
	return AccountLike{PostID: postID}
}

// NewMessageLike builds a recent-likes entry for a message like.
func NewMessageLike(id MessageID) AccountLike {
	return AccountLike{PostID: id.PostID, IsMsg: true, MsgIdx: id.MsgIdx}
}

// Equal reports structural equality between two like entries.
func (l AccountLike) Equal(other AccountLike) bool {
	if l.IsMsg != other.IsMsg {
		return false
	}
	if l.PostID != other.PostID {
		return false
	}
	return !l.IsMsg || l.MsgIdx == other.MsgIdx
}

// AccountProfile is the stored profile record. The image blob is persisted
// lazily under its own key; ImageLen tracks its current size for fee
// purposes so updates can be billed by their marginal bytes.
type AccountProfile struct {
	JSONMetadata string
	ImageLen     uint64
	ImageURL     string
}

// ProfileUpdate carries the caller-supplied profile fields. Nil fields leave
// the stored value untouched.
type ProfileUpdate struct {
	JSONMetadata *string `json:"json_metadata,omitempty"`
	Image        []byte  `json:"image,omitempty"`
	ImageURL     *string `json:"image_url,omitempty"`
}

// AdminSettings is the owner-mutable contract configuration: the recent-likes
// ring capacity and the per-action fee surcharge percentages.
type AdminSettings struct {
	AccountRecentLikesLimit          uint8 `json:"account_recent_likes_limit"`
	AddMessageExtraFeePercent        uint8 `json:"add_message_extra_fee_percent"`
	LikePostExtraFeePercent          uint8 `json:"like_post_extra_fee_percent"`
	LikeMessageExtraFeePercent       uint8 `json:"like_message_extra_fee_percent"`
	AddFriendExtraFeePercent         uint8 `json:"add_friend_extra_fee_percent"`
	UpdateProfileExtraFeePercent     uint8 `json:"update_profile_extra_fee_percent"`
	AccountRecentLikeExtraFeePercent uint8 `json:"account_recent_like_extra_fee_percent"`
}

// AdminSettingsUpdate is the partial-update form of AdminSettings. Nil fields
// keep the current value.
type AdminSettingsUpdate struct {
	AccountRecentLikesLimit          *uint8 `json:"account_recent_likes_limit,omitempty"`
	AddMessageExtraFeePercent        *uint8 `json:"add_message_extra_fee_percent,omitempty"`
	LikePostExtraFeePercent          *uint8 `json:"like_post_extra_fee_percent,omitempty"`
	LikeMessageExtraFeePercent       *uint8 `json:"like_message_extra_fee_percent,omitempty"`
	AddFriendExtraFeePercent         *uint8 `json:"add_friend_extra_fee_percent,omitempty"`
	UpdateProfileExtraFeePercent     *uint8 `json:"update_profile_extra_fee_percent,omitempty"`
	AccountRecentLikeExtraFeePercent *uint8 `json:"account_recent_like_extra_fee_percent,omitempty"`
}

// StorageUsageSettings holds the empirically measured per-schema storage
// constants. They are derived exactly once, by the calibration pass in the
// constructor, and never recomputed afterwards.
type StorageUsageSettings struct {
	MinMessageSize                   uint64 `json:"min_message_size"`
	MessagesCollectionSize           uint64 `json:"messages_collection_size"`
	MinPostLikeSize                  uint64 `json:"min_post_like_size"`
	PostLikesCollectionSize          uint64 `json:"post_likes_collection_size"`
	MinMessageLikeSize               uint64 `json:"min_message_like_size"`
	MessageLikesCollectionSize       uint64 `json:"message_likes_collection_size"`
	MinAccountFriendSize             uint64 `json:"min_account_friend_size"`
	AccountFriendsCollectionSize     uint64 `json:"account_friends_collection_size"`
	MinAccountProfileSize            uint64 `json:"min_account_profile_size"`
	MinAccountRecentLikeSize         uint64 `json:"min_account_recent_like_size"`
	AccountRecentLikesCollectionSize uint64 `json:"account_recent_likes_collection_size"`
}

// ContractRecord is the persisted root state of the contract. Its presence
// guards against re-initialization.
type ContractRecord struct {
	Owner           string
	FeeLedger       string
	Admin           AdminSettings
	StorageSettings StorageUsageSettings
}

// CallKind enumerates the mutating actions that pass through the fee-gated
// pipeline.
type CallKind uint8

const (
	CallAddMessageToPost CallKind = iota + 1
	CallAddMessageToMessage
	CallLikePost
	CallUnlikePost
	CallLikeMessage
	CallUnlikeMessage
	CallAddFriend
	CallUpdateProfile
)

// String returns the wire name of the call kind.
func (k CallKind) String() string {
	switch k {
	case CallAddMessageToPost:
		return "add_message_to_post"
	case CallAddMessageToMessage:
		return "add_message_to_message"
	case CallLikePost:
		return "like_post"
	case CallUnlikePost:
		return "unlike_post"
	case CallLikeMessage:
		return "like_message"
	case CallUnlikeMessage:
		return "unlike_message"
	case CallAddFriend:
		return "add_friend"
	case CallUpdateProfile:
		return "update_profile"
	default:
		return "unknown"
	}
}

// Call is the validated action payload carried across the fee-debit
// suspension point, keyed by a correlation id until the callback fires.
type Call struct {
	Kind     CallKind
	PostID   string
	MsgIdx   uint64
	Text     string
	FriendID string
	Profile  ProfileUpdate
}

// MessageDTO is the query-surface projection of a stored message.
type MessageDTO struct {
	MsgIdx     uint64  `json:"msg_idx"`
	ParentIdx  *uint64 `json:"parent_idx,omitempty"`
	Account    string  `json:"account"`
	Text       string  `json:"text"`
	Timestamp  uint64  `json:"timestamp"`
	LikesCount uint64  `json:"likes_count"`
}

// LikesInfo summarises a like set with respect to one account.
type LikesInfo struct {
	LikesCount uint64 `json:"likes_count"`
	IsLiked    bool   `json:"is_liked"`
}

// RecentLikeDTO is the query-surface projection of a recent-likes entry. A
// nil MsgIdx denotes a post like.
type RecentLikeDTO struct {
	PostID string  `json:"post_id"`
	MsgIdx *uint64 `json:"msg_idx,omitempty"`
}
