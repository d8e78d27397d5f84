package social

// pushRecentLike appends a like to the ring, evicting the oldest entries
// until the configured capacity holds. Eviction is strictly FIFO: insertion
// order decides, never access. A capacity of zero disables the ring entirely
// and clears anything already stored.
func pushRecentLike(likes []AccountLike, like AccountLike, limit uint8) []AccountLike {
	if limit == 0 {
		return []AccountLike{}
	}
	capacity := int(limit)
	for len(likes) >= capacity {
		likes = likes[1:]
	}
	return append(likes, like)
}

// removeRecentLike excises the first structurally-equal entry. Removing an
// entry that is not present is a no-op.
func removeRecentLike(likes []AccountLike, like AccountLike) []AccountLike {
	for i, existing := range likes {
		if existing.Equal(like) {
			return append(likes[:i:i], likes[i+1:]...)
		}
	}
	return likes
}

// addLikeToRecentLikes records the like in the caller's ring, materialising
// the per-account record on first use.
func (e *Engine) addLikeToRecentLikes(account string, like AccountLike) error {
	likes, _, err := e.state.RecentLikes(account)
	if err != nil {
		return err
	}
	return e.state.PutRecentLikes(account, pushRecentLike(likes, like, e.admin.AccountRecentLikesLimit))
}

// removeLikeFromRecentLikes drops the like from the caller's ring if present.
func (e *Engine) removeLikeFromRecentLikes(account string, like AccountLike) error {
	likes, _, err := e.state.RecentLikes(account)
	if err != nil {
		return err
	}
	return e.state.PutRecentLikes(account, removeRecentLike(likes, like))
}
