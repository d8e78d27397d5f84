package state

import "encoding/binary"

// Logical key prefixes for the social schema families. Each family lives
// under its own namespace; nested per-entity sub-collections embed either the
// raw natural key (so its length is billed) or its keccak hash (when the
// length must stay constant).
var (
	postMessageCountPrefix = []byte("social/posts/")
	postMessagePrefix      = []byte("social/messages/")
	postLikesPrefix        = []byte("social/post-likes/")
	messageLikesPrefix     = []byte("social/message-likes/")
	accountFriendsPrefix   = []byte("social/friends/")
	accountProfilePrefix   = []byte("social/profiles/")
	profileImagePrefix     = []byte("social/profile-images/")
	recentLikesPrefix      = []byte("social/recent-likes/")
	contractRecordKey      = []byte("social/contract")
	storageUsageKey        = []byte("meta/storage-usage")
)

func appendUint64(buf []byte, v uint64) []byte {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], v)
	return append(buf, idx[:]...)
}

func composeKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return buf
}
