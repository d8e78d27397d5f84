package social

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationError rejects a malformed or semantically invalid action before
// any fee is computed or charged. It is always safe for the caller to retry
// with corrected input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *Engine) assertPostID(postID string) error {
	if strings.TrimSpace(postID) == "" {
		return validationErrorf("'post_id' is empty or whitespace")
	}
	if len(postID) < MinPostIDLen {
		return validationErrorf("'post_id' length is too small")
	}
	if len(postID) > MaxPostIDLen {
		return validationErrorf("'post_id' cannot exceed %d bytes", MaxPostIDLen)
	}
	return nil
}

// TODO: enforce an upper bound on message text length.
func (e *Engine) assertText(text string) error {
	if strings.TrimSpace(text) == "" {
		return validationErrorf("'text' is empty or whitespace")
	}
	if len(text) < MinMessageLen {
		return validationErrorf("'text' length is too small")
	}
	return nil
}

func (e *Engine) assertMessageExists(id MessageID) error {
	count, found, err := e.state.PostMessageCount(id.PostID)
	if err != nil {
		return err
	}
	if !found || id.MsgIdx >= count {
		return validationErrorf("message does not exist")
	}
	return nil
}

func (e *Engine) validateAddMessageToPost(postID, text string) error {
	if err := e.assertText(text); err != nil {
		return err
	}
	return e.assertPostID(postID)
}

func (e *Engine) validateAddMessageToMessage(parent MessageID, text string) error {
	if err := e.assertText(text); err != nil {
		return err
	}
	if err := e.assertPostID(parent.PostID); err != nil {
		return err
	}
	count, found, err := e.state.PostMessageCount(parent.PostID)
	if err != nil {
		return err
	}
	if !found {
		return validationErrorf("post does not exist")
	}
	if parent.MsgIdx >= count {
		return validationErrorf("parent message does not exist")
	}
	return nil
}

func (e *Engine) validateLikePost(caller, postID string) error {
	if err := e.assertPostID(postID); err != nil {
		return err
	}
	likes, found, err := e.state.PostLikes(postID)
	if err != nil {
		return err
	}
	if found && containsString(likes, caller) {
		return validationErrorf("post is liked already")
	}
	return nil
}

func (e *Engine) validateUnlikePost(caller, postID string) error {
	if err := e.assertPostID(postID); err != nil {
		return err
	}
	likes, found, err := e.state.PostLikes(postID)
	if err != nil {
		return err
	}
	if !found || !containsString(likes, caller) {
		return validationErrorf("post is not liked")
	}
	return nil
}

func (e *Engine) validateLikeMessage(caller string, id MessageID) error {
	if err := e.assertPostID(id.PostID); err != nil {
		return err
	}
	if err := e.assertMessageExists(id); err != nil {
		return err
	}
	likes, found, err := e.state.MessageLikes(id)
	if err != nil {
		return err
	}
	if found && containsString(likes, caller) {
		return validationErrorf("message is liked already")
	}
	return nil
}

func (e *Engine) validateUnlikeMessage(caller string, id MessageID) error {
	if err := e.assertPostID(id.PostID); err != nil {
		return err
	}
	if err := e.assertMessageExists(id); err != nil {
		return err
	}
	likes, found, err := e.state.MessageLikes(id)
	if err != nil {
		return err
	}
	if !found || !containsString(likes, caller) {
		return validationErrorf("message is not liked")
	}
	return nil
}

func (e *Engine) validateAddFriend(caller, friendID string) error {
	friends, found, err := e.state.AccountFriends(caller)
	if err != nil {
		return err
	}
	if found && containsString(friends, friendID) {
		return validationErrorf("friend is added already")
	}
	return nil
}

// validateUpdateProfile only checks that supplied metadata is well-formed
// JSON; the semantic content of the document is deliberately not inspected.
func (e *Engine) validateUpdateProfile(update ProfileUpdate) error {
	if update.JSONMetadata != nil {
		if !json.Valid([]byte(*update.JSONMetadata)) {
			return validationErrorf("metadata is not a valid json string")
		}
	}
	return nil
}

func containsString(list []string, member string) bool {
	for _, existing := range list {
		if existing == member {
			return true
		}
	}
	return false
}
