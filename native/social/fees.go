package social

import (
	"math"
	"math/big"
)

const (
	// feeTokenExchangeRate converts host currency into fee-token units.
	feeTokenExchangeRate = 100
	// minimalFee is charged for actions that free storage; the asynchronous
	// debit call itself is never free.
	minimalFee = 1
	// msgIdxBytes is the structural overhead of a numeric message index in a
	// stored record.
	msgIdxBytes = 8
)

// Byte arithmetic saturates instead of wrapping: fee inputs are
// untrusted-adjacent and must never panic or overflow into tiny fees.

func satAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return math.MaxUint64
	}
	return sum
}

func satSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// storageFee converts a byte count into fee-token units at the host's
// prevailing storage price and applies the per-action surcharge percentage.
func (e *Engine) storageFee(storageSize uint64, extraFeePercent uint8) *big.Int {
	fee := new(big.Int).SetUint64(storageSize)
	fee.Mul(fee, e.runtime.StorageByteCost())
	fee.Mul(fee, big.NewInt(feeTokenExchangeRate))
	if extraFeePercent != 0 {
		extra := new(big.Int).Mul(fee, big.NewInt(int64(extraFeePercent)))
		extra.Div(extra, big.NewInt(100))
		fee.Add(fee, extra)
	}
	return fee
}

// addMessageToPostFee prices a top-level message: the calibrated minimum
// record plus the caller/post/text bytes beyond their minimums, plus the
// one-time collection overhead when this is the post's first message.
func (e *Engine) addMessageToPostFee(caller, postID, text string) (*big.Int, error) {
	_, exists, err := e.state.PostMessageCount(postID)
	if err != nil {
		return nil, err
	}
	accountExtra := satSub(uint64(len(caller)), MinAccountIDLen)
	textExtra := satSub(uint64(len(text)), MinMessageLen)
	var postIDExtra, collectionBytes uint64
	if !exists {
		postIDExtra = satSub(uint64(len(postID)), MinPostIDLen)
		collectionBytes = e.storageSettings.MessagesCollectionSize
	}

	size := satAdd(e.storageSettings.MinMessageSize, accountExtra)
	size = satAdd(size, postIDExtra)
	size = satAdd(size, textExtra)
	size = satAdd(size, collectionBytes)
	return e.storageFee(size, e.admin.AddMessageExtraFeePercent), nil
}

// addMessageToMessageFee prices a threaded reply; the parent reference costs
// a fixed index overhead and the post's collection already exists.
func (e *Engine) addMessageToMessageFee(caller, text string) (*big.Int, error) {
	accountExtra := satSub(uint64(len(caller)), MinAccountIDLen)
	textExtra := satSub(uint64(len(text)), MinMessageLen)

	size := satAdd(e.storageSettings.MinMessageSize, accountExtra)
	size = satAdd(size, textExtra)
	size = satAdd(size, msgIdxBytes)
	return e.storageFee(size, e.admin.AddMessageExtraFeePercent), nil
}

func (e *Engine) likePostFee(caller, postID string) (*big.Int, error) {
	_, exists, err := e.state.PostLikes(postID)
	if err != nil {
		return nil, err
	}
	accountExtra := satSub(uint64(len(caller)), MinAccountIDLen)
	var postIDExtra, collectionBytes uint64
	if !exists {
		postIDExtra = satSub(uint64(len(postID)), MinPostIDLen)
		collectionBytes = e.storageSettings.PostLikesCollectionSize
	}

	size := satAdd(e.storageSettings.MinPostLikeSize, accountExtra)
	size = satAdd(size, postIDExtra)
	size = satAdd(size, collectionBytes)
	return e.storageFee(size, e.admin.LikePostExtraFeePercent), nil
}

func (e *Engine) likeMessageFee(caller string, id MessageID) (*big.Int, error) {
	_, exists, err := e.state.MessageLikes(id)
	if err != nil {
		return nil, err
	}
	accountExtra := satSub(uint64(len(caller)), MinAccountIDLen)
	var postIDExtra, collectionBytes uint64
	if !exists {
		postIDExtra = satSub(uint64(len(id.PostID)), MinPostIDLen)
		collectionBytes = e.storageSettings.MessageLikesCollectionSize
	}

	size := satAdd(e.storageSettings.MinMessageLikeSize, accountExtra)
	size = satAdd(size, postIDExtra)
	size = satAdd(size, collectionBytes)
	return e.storageFee(size, e.admin.LikeMessageExtraFeePercent), nil
}

// recentLikeFee prices the ring bookkeeping that accompanies a like. When the
// ring is full the new entry only pays for the bytes it needs beyond those
// freed by the evicted head; when the ring is disabled there is nothing to
// charge.
func (e *Engine) recentLikeFee(caller, postID string, isMsg bool) (*big.Int, error) {
	if e.admin.AccountRecentLikesLimit == 0 {
		return big.NewInt(0), nil
	}
	likes, found, err := e.state.RecentLikes(caller)
	if err != nil {
		return nil, err
	}
	limit := uint64(e.admin.AccountRecentLikesLimit)
	length := uint64(len(likes))

	var idxBytes uint64
	if isMsg {
		idxBytes = msgIdxBytes
	}

	var accountExtra, likeExtra, collectionBytes, minSize uint64
	switch {
	case !found:
		accountExtra = satSub(uint64(len(caller)), MinAccountIDLen)
		likeExtra = satAdd(satSub(uint64(len(postID)), MinPostIDLen), idxBytes)
		collectionBytes = e.storageSettings.AccountRecentLikesCollectionSize
		minSize = e.storageSettings.MinAccountRecentLikeSize
	case length == limit:
		evicted := likes[0]
		if evicted.IsMsg {
			likeExtra = satSub(uint64(len(postID)), uint64(len(evicted.PostID)))
		} else {
			likeExtra = satAdd(satSub(uint64(len(postID)), uint64(len(evicted.PostID))), idxBytes)
		}
	case length < limit:
		likeExtra = satAdd(satSub(uint64(len(postID)), MinPostIDLen), idxBytes)
		minSize = e.storageSettings.MinAccountRecentLikeSize
	}

	size := satAdd(minSize, accountExtra)
	size = satAdd(size, likeExtra)
	size = satAdd(size, collectionBytes)
	return e.storageFee(size, e.admin.AccountRecentLikeExtraFeePercent), nil
}

func (e *Engine) addFriendFee(caller, friendID string) (*big.Int, error) {
	_, exists, err := e.state.AccountFriends(caller)
	if err != nil {
		return nil, err
	}
	friendExtra := satSub(uint64(len(friendID)), MinAccountIDLen)
	var accountExtra, collectionBytes uint64
	if !exists {
		accountExtra = satSub(uint64(len(caller)), MinAccountIDLen)
		collectionBytes = e.storageSettings.AccountFriendsCollectionSize
	}

	size := satAdd(e.storageSettings.MinAccountFriendSize, accountExtra)
	size = satAdd(size, friendExtra)
	size = satAdd(size, collectionBytes)
	return e.storageFee(size, e.admin.AddFriendExtraFeePercent), nil
}

// updateProfileFee prices a profile update by the marginal growth of each
// supplied field over its currently stored size. Shrinking fields contribute
// zero rather than a refund.
func (e *Engine) updateProfileFee(caller string, update ProfileUpdate) (*big.Int, error) {
	existing, found, err := e.state.Profile(caller)
	if err != nil {
		return nil, err
	}

	var accountExtra, minSize uint64
	if !found {
		accountExtra = satSub(uint64(len(caller)), MinAccountIDLen)
		minSize = e.storageSettings.MinAccountProfileSize
		existing = &AccountProfile{}
	}

	var metadataExtra, imageExtra, urlExtra uint64
	if update.JSONMetadata != nil {
		metadataExtra = satSub(uint64(len(*update.JSONMetadata)), uint64(len(existing.JSONMetadata)))
	}
	if update.Image != nil {
		imageExtra = satSub(uint64(len(update.Image)), existing.ImageLen)
	}
	if update.ImageURL != nil {
		urlExtra = satSub(uint64(len(*update.ImageURL)), uint64(len(existing.ImageURL)))
	}

	size := satAdd(minSize, accountExtra)
	size = satAdd(size, metadataExtra)
	size = satAdd(size, imageExtra)
	size = satAdd(size, urlExtra)
	return e.storageFee(size, e.admin.UpdateProfileExtraFeePercent), nil
}
