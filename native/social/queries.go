package social

// Read-only query surface. All paginated queries take (fromIndex, limit) and
// clamp the end of range to the underlying sequence length.

func paginate(from, limit, length uint64) (uint64, uint64) {
	if from > length {
		from = length
	}
	end := satAdd(from, limit)
	if end > length {
		end = length
	}
	return from, end
}

func (e *Engine) messageDTO(id MessageID, msg *Message) (*MessageDTO, error) {
	likes, _, err := e.state.MessageLikes(id)
	if err != nil {
		return nil, err
	}
	dto := &MessageDTO{
		MsgIdx:     id.MsgIdx,
		Account:    msg.Account,
		Text:       msg.Text,
		Timestamp:  msg.Timestamp,
		LikesCount: uint64(len(likes)),
	}
	if msg.HasParent {
		parent := msg.ParentIdx
		dto.ParentIdx = &parent
	}
	return dto, nil
}

// GetPostMessages returns a page of the post's messages.
func (e *Engine) GetPostMessages(postID string, fromIndex, limit uint64) ([]MessageDTO, error) {
	count, found, err := e.state.PostMessageCount(postID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, validationErrorf("post is not found")
	}
	from, end := paginate(fromIndex, limit, count)
	page := make([]MessageDTO, 0, end-from)
	for idx := from; idx < end; idx++ {
		msg, ok, err := e.state.PostMessage(postID, idx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, validationErrorf("message is not found")
		}
		dto, err := e.messageDTO(MessageID{PostID: postID, MsgIdx: idx}, msg)
		if err != nil {
			return nil, err
		}
		page = append(page, *dto)
	}
	return page, nil
}

// GetPostMessage returns a single message by id.
func (e *Engine) GetPostMessage(id MessageID) (*MessageDTO, error) {
	_, found, err := e.state.PostMessageCount(id.PostID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, validationErrorf("post is not found")
	}
	msg, ok, err := e.state.PostMessage(id.PostID, id.MsgIdx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, validationErrorf("message is not found")
	}
	return e.messageDTO(id, msg)
}

func paginateStrings(list []string, fromIndex, limit uint64) []string {
	from, end := paginate(fromIndex, limit, uint64(len(list)))
	return append([]string(nil), list[from:end]...)
}

// GetPostLikes returns a page of accounts liking the post; an unknown post
// yields an empty page.
func (e *Engine) GetPostLikes(postID string, fromIndex, limit uint64) ([]string, error) {
	likes, _, err := e.state.PostLikes(postID)
	if err != nil {
		return nil, err
	}
	return paginateStrings(likes, fromIndex, limit), nil
}

// GetPostLikesInfo summarises the post's like set for one account.
func (e *Engine) GetPostLikesInfo(postID, account string) (LikesInfo, error) {
	likes, _, err := e.state.PostLikes(postID)
	if err != nil {
		return LikesInfo{}, err
	}
	return LikesInfo{
		LikesCount: uint64(len(likes)),
		IsLiked:    containsString(likes, account),
	}, nil
}

// GetMessageLikes returns a page of accounts liking the message.
func (e *Engine) GetMessageLikes(id MessageID, fromIndex, limit uint64) ([]string, error) {
	likes, _, err := e.state.MessageLikes(id)
	if err != nil {
		return nil, err
	}
	return paginateStrings(likes, fromIndex, limit), nil
}

// GetMessageLikesInfo summarises the message's like set for one account.
func (e *Engine) GetMessageLikesInfo(id MessageID, account string) (LikesInfo, error) {
	likes, _, err := e.state.MessageLikes(id)
	if err != nil {
		return LikesInfo{}, err
	}
	return LikesInfo{
		LikesCount: uint64(len(likes)),
		IsLiked:    containsString(likes, account),
	}, nil
}

// GetAccountLastLikes returns a page of the account's recent-likes ring in
// insertion order, oldest first.
func (e *Engine) GetAccountLastLikes(account string, fromIndex, limit uint64) ([]RecentLikeDTO, error) {
	likes, _, err := e.state.RecentLikes(account)
	if err != nil {
		return nil, err
	}
	from, end := paginate(fromIndex, limit, uint64(len(likes)))
	page := make([]RecentLikeDTO, 0, end-from)
	for _, like := range likes[from:end] {
		dto := RecentLikeDTO{PostID: like.PostID}
		if like.IsMsg {
			idx := like.MsgIdx
			dto.MsgIdx = &idx
		}
		page = append(page, dto)
	}
	return page, nil
}

// GetAccountFriends returns a page of the account's friend set.
func (e *Engine) GetAccountFriends(account string, fromIndex, limit uint64) ([]string, error) {
	friends, _, err := e.state.AccountFriends(account)
	if err != nil {
		return nil, err
	}
	return paginateStrings(friends, fromIndex, limit), nil
}

// GetProfile returns the account's profile with its image blob, or nil when
// no profile exists.
func (e *Engine) GetProfile(account string) (*ProfileUpdate, error) {
	profile, found, err := e.state.Profile(account)
	if err != nil || !found {
		return nil, err
	}
	image, _, err := e.state.ProfileImage(account)
	if err != nil {
		return nil, err
	}
	metadata := profile.JSONMetadata
	url := profile.ImageURL
	return &ProfileUpdate{
		JSONMetadata: &metadata,
		Image:        image,
		ImageURL:     &url,
	}, nil
}

// GetAdminSettings returns the current admin settings.
func (e *Engine) GetAdminSettings() AdminSettings { return e.admin }

// GetStorageSettings returns the calibrated storage constants.
func (e *Engine) GetStorageSettings() StorageUsageSettings { return e.storageSettings }
