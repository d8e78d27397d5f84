package social

import (
	"fmt"
	"strings"
)

// The calibration pass replaces hand-computed serialization constants with
// empirically measured ones: for each schema family it writes a minimal
// synthetic record, reads the real storage-usage delta, writes a second
// record into the same collection to separate the per-record cost from the
// one-time collection overhead, then erases everything it wrote. A non-zero
// residual after teardown means the measurement leaked, and the contract
// refuses to come into existence: a wrong calibration would mis-charge every
// call for the contract's lifetime.

func (e *Engine) calibrateStorageSettings() error {
	steps := []func() error{
		e.measureMessageStorage,
		e.measurePostLikesStorage,
		e.measureMessageLikesStorage,
		e.measureAccountFriendsStorage,
		e.measureAccountProfileStorage,
		e.measureRecentLikesStorage,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) checkMeasurementClosure(family string, initial uint64) error {
	if final := e.state.StorageUsage(); final != initial {
		return fmt.Errorf("social engine: measurement of %s storage aborted due to data leak (%d bytes)", family, int64(final)-int64(initial))
	}
	return nil
}

func (e *Engine) measureMessageStorage() error {
	account := strings.Repeat("a", MinAccountIDLen)
	postID := strings.Repeat("a", MinPostIDLen)
	text := strings.Repeat("a", MinMessageLen)

	initial := e.state.StorageUsage()

	if _, err := e.executeAddMessageToPost(account, postID, text); err != nil {
		return err
	}
	afterFirst := e.state.StorageUsage()

	if _, err := e.executeAddMessageToPost(account, postID, text); err != nil {
		return err
	}
	afterSecond := e.state.StorageUsage()

	e.storageSettings.MinMessageSize = afterSecond - afterFirst
	e.storageSettings.MessagesCollectionSize = afterFirst - initial - e.storageSettings.MinMessageSize

	if err := e.state.RemovePostMessages(postID); err != nil {
		return err
	}
	return e.checkMeasurementClosure("message", initial)
}

func (e *Engine) measurePostLikesStorage() error {
	postID := strings.Repeat("a", MinPostIDLen)
	firstAccount := strings.Repeat("a", MinAccountIDLen)
	secondAccount := strings.Repeat("b", MinAccountIDLen)

	initial := e.state.StorageUsage()

	if _, err := e.executeLikePost(firstAccount, postID); err != nil {
		return err
	}
	afterFirst := e.state.StorageUsage()

	if _, err := e.executeLikePost(secondAccount, postID); err != nil {
		return err
	}
	afterSecond := e.state.StorageUsage()

	e.storageSettings.MinPostLikeSize = afterSecond - afterFirst
	e.storageSettings.PostLikesCollectionSize = afterFirst - initial - e.storageSettings.MinPostLikeSize

	if err := e.state.RemovePostLikes(postID); err != nil {
		return err
	}
	return e.checkMeasurementClosure("post likes", initial)
}

func (e *Engine) measureMessageLikesStorage() error {
	id := MessageID{PostID: strings.Repeat("a", MinPostIDLen), MsgIdx: 1}
	firstAccount := strings.Repeat("a", MinAccountIDLen)
	secondAccount := strings.Repeat("b", MinAccountIDLen)

	initial := e.state.StorageUsage()

	if _, err := e.executeLikeMessage(firstAccount, id); err != nil {
		return err
	}
	afterFirst := e.state.StorageUsage()

	if _, err := e.executeLikeMessage(secondAccount, id); err != nil {
		return err
	}
	afterSecond := e.state.StorageUsage()

	e.storageSettings.MinMessageLikeSize = afterSecond - afterFirst
	e.storageSettings.MessageLikesCollectionSize = afterFirst - initial - e.storageSettings.MinMessageLikeSize

	if err := e.state.RemoveMessageLikes(id); err != nil {
		return err
	}
	return e.checkMeasurementClosure("message likes", initial)
}

func (e *Engine) measureAccountFriendsStorage() error {
	account := strings.Repeat("a", MinAccountIDLen)
	firstFriend := strings.Repeat("b", MinAccountIDLen)
	secondFriend := strings.Repeat("c", MinAccountIDLen)

	initial := e.state.StorageUsage()

	if err := e.executeAddFriend(account, firstFriend); err != nil {
		return err
	}
	afterFirst := e.state.StorageUsage()

	if err := e.executeAddFriend(account, secondFriend); err != nil {
		return err
	}
	afterSecond := e.state.StorageUsage()

	e.storageSettings.MinAccountFriendSize = afterSecond - afterFirst
	e.storageSettings.AccountFriendsCollectionSize = afterFirst - initial - e.storageSettings.MinAccountFriendSize

	if err := e.state.RemoveAccountFriends(account); err != nil {
		return err
	}
	return e.checkMeasurementClosure("account friends", initial)
}

func (e *Engine) measureAccountProfileStorage() error {
	account := strings.Repeat("a", MinAccountIDLen)
	empty := ""

	initial := e.state.StorageUsage()

	if err := e.executeUpdateProfile(account, ProfileUpdate{
		JSONMetadata: &empty,
		Image:        []byte{},
		ImageURL:     &empty,
	}); err != nil {
		return err
	}
	e.storageSettings.MinAccountProfileSize = e.state.StorageUsage() - initial

	if err := e.state.RemoveProfile(account); err != nil {
		return err
	}
	return e.checkMeasurementClosure("account profile", initial)
}

// measureRecentLikesStorage writes the ring record directly rather than
// through the ring helpers, so the measurement does not depend on the
// configured ring capacity.
func (e *Engine) measureRecentLikesStorage() error {
	account := strings.Repeat("a", MinAccountIDLen)
	firstLike := NewPostLike(strings.Repeat("a", MinPostIDLen))
	secondLike := NewPostLike(strings.Repeat("b", MinPostIDLen))

	initial := e.state.StorageUsage()

	if err := e.state.PutRecentLikes(account, []AccountLike{firstLike}); err != nil {
		return err
	}
	afterFirst := e.state.StorageUsage()

	if err := e.state.PutRecentLikes(account, []AccountLike{firstLike, secondLike}); err != nil {
		return err
	}
	afterSecond := e.state.StorageUsage()

	e.storageSettings.MinAccountRecentLikeSize = afterSecond - afterFirst
	e.storageSettings.AccountRecentLikesCollectionSize = afterFirst - initial - e.storageSettings.MinAccountRecentLikeSize

	if err := e.state.RemoveRecentLikes(account); err != nil {
		return err
	}
	return e.checkMeasurementClosure("account recent likes", initial)
}
