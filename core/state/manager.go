package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"feedchain/native/social"
	"feedchain/storage"
)

// Manager is the sole mutator of the persisted social collections. Logical
// keys compose a namespace prefix with the entity's natural key; the physical
// key written to the backing store is the keccak256 hash of the logical key,
// which bounds key length while keeping distinct logical entities on distinct
// storage keys.
//
// The manager meters storage the way the host bills it: every record costs
// its logical key bytes plus its value bytes. The running counter backs both
// fee estimation and the one-time calibration pass.
type Manager struct {
	db    storage.Database
	usage uint64
}

// NewManager opens a state manager over the provided database, restoring the
// persisted storage-usage counter if one exists.
func NewManager(db storage.Database) (*Manager, error) {
	m := &Manager{db: db}
	raw, err := db.Get(kvKey(storageUsageKey))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return m, nil
		}
		return nil, fmt.Errorf("state: load storage usage: %w", err)
	}
	if len(raw) == 8 {
		m.usage = binary.BigEndian.Uint64(raw)
	}
	return m, nil
}

// StorageUsage returns the number of billed bytes currently persisted.
func (m *Manager) StorageUsage() uint64 { return m.usage }

func kvKey(logical []byte) []byte {
	return ethcrypto.Keccak256(logical)
}

func (m *Manager) rawGet(logical []byte) ([]byte, bool, error) {
	data, err := m.db.Get(kvKey(logical))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (m *Manager) rawPut(logical, value []byte) error {
	old, found, err := m.rawGet(logical)
	if err != nil {
		return err
	}
	if err := m.db.Put(kvKey(logical), value); err != nil {
		return err
	}
	if found {
		m.adjustUsage(int64(len(value)) - int64(len(old)))
	} else {
		m.adjustUsage(int64(len(logical)) + int64(len(value)))
	}
	return m.persistUsage()
}

func (m *Manager) rawDelete(logical []byte) error {
	old, found, err := m.rawGet(logical)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := m.db.Delete(kvKey(logical)); err != nil {
		return err
	}
	m.adjustUsage(-(int64(len(logical)) + int64(len(old))))
	return m.persistUsage()
}

func (m *Manager) adjustUsage(delta int64) {
	if delta < 0 && uint64(-delta) > m.usage {
		m.usage = 0
		return
	}
	m.usage = uint64(int64(m.usage) + delta)
}

func (m *Manager) persistUsage() error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], m.usage)
	return m.db.Put(kvKey(storageUsageKey), buf[:])
}

func (m *Manager) putRLP(logical []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.rawPut(logical, encoded)
}

func (m *Manager) getRLP(logical []byte, out interface{}) (bool, error) {
	data, found, err := m.rawGet(logical)
	if err != nil || !found {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// --- contract root record ---

// HasContractRecord reports whether the root record exists without decoding
// it.
func (m *Manager) HasContractRecord() (bool, error) {
	return m.db.Has(kvKey(contractRecordKey))
}

// ContractRecord loads the persisted root state, reporting whether the
// contract has been initialised.
func (m *Manager) ContractRecord() (*social.ContractRecord, bool, error) {
	rec := new(social.ContractRecord)
	found, err := m.getRLP(contractRecordKey, rec)
	if err != nil || !found {
		return nil, found, err
	}
	return rec, true, nil
}

// PutContractRecord persists the root state.
func (m *Manager) PutContractRecord(rec *social.ContractRecord) error {
	return m.putRLP(contractRecordKey, rec)
}

// --- post messages ---

func postMessageCountKey(postID string) []byte {
	return composeKey(postMessageCountPrefix, []byte(postID))
}

func postMessageKey(postID string, idx uint64) []byte {
	key := composeKey(postMessagePrefix, ethcrypto.Keccak256([]byte(postID)))
	return appendUint64(key, idx)
}

// PostMessageCount returns the number of messages on the post. The boolean
// reports whether the post's message collection exists at all.
func (m *Manager) PostMessageCount(postID string) (uint64, bool, error) {
	var count uint64
	found, err := m.getRLP(postMessageCountKey(postID), &count)
	if err != nil || !found {
		return 0, found, err
	}
	return count, true, nil
}

// AppendPostMessage appends the message to the post's sequence, materialising
// the collection on first use, and returns the assigned index.
func (m *Manager) AppendPostMessage(postID string, msg *social.Message) (uint64, error) {
	count, _, err := m.PostMessageCount(postID)
	if err != nil {
		return 0, err
	}
	if err := m.putRLP(postMessageKey(postID, count), msg); err != nil {
		return 0, err
	}
	if err := m.putRLP(postMessageCountKey(postID), count+1); err != nil {
		return 0, err
	}
	return count, nil
}

// PostMessage loads a single message by its index.
func (m *Manager) PostMessage(postID string, idx uint64) (*social.Message, bool, error) {
	msg := new(social.Message)
	found, err := m.getRLP(postMessageKey(postID, idx), msg)
	if err != nil || !found {
		return nil, found, err
	}
	return msg, true, nil
}

// RemovePostMessages erases the post's message sequence and its count record.
func (m *Manager) RemovePostMessages(postID string) error {
	count, found, err := m.PostMessageCount(postID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("state: post messages collection not found")
	}
	for idx := uint64(0); idx < count; idx++ {
		if err := m.rawDelete(postMessageKey(postID, idx)); err != nil {
			return err
		}
	}
	return m.rawDelete(postMessageCountKey(postID))
}

// --- like sets and friend sets ---

func postLikesKey(postID string) []byte {
	return composeKey(postLikesPrefix, []byte(postID))
}

func messageLikesKey(id social.MessageID) []byte {
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(id.PostID)))
	key := composeKey(messageLikesPrefix, size[:], []byte(id.PostID))
	return appendUint64(key, id.MsgIdx)
}

func accountFriendsKey(account string) []byte {
	return composeKey(accountFriendsPrefix, []byte(account))
}

func (m *Manager) stringList(logical []byte) ([]string, bool, error) {
	var list []string
	found, err := m.getRLP(logical, &list)
	if err != nil || !found {
		return nil, found, err
	}
	return list, true, nil
}

func (m *Manager) appendToStringList(logical []byte, member string) error {
	list, _, err := m.stringList(logical)
	if err != nil {
		return err
	}
	return m.putRLP(logical, append(list, member))
}

// removeFromStringList excises the first occurrence of member. The record
// itself stays in place even when the list becomes empty, matching the
// lazily-created collection semantics: only calibration tears collections
// down.
func (m *Manager) removeFromStringList(logical []byte, member string) error {
	list, found, err := m.stringList(logical)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("state: collection not found")
	}
	for i, existing := range list {
		if existing == member {
			return m.putRLP(logical, append(list[:i:i], list[i+1:]...))
		}
	}
	return nil
}

// PostLikes returns the accounts liking the post.
func (m *Manager) PostLikes(postID string) ([]string, bool, error) {
	return m.stringList(postLikesKey(postID))
}

// AddPostLike records the account's like on the post.
func (m *Manager) AddPostLike(postID, account string) error {
	return m.appendToStringList(postLikesKey(postID), account)
}

// RemovePostLike removes the account's like from the post.
func (m *Manager) RemovePostLike(postID, account string) error {
	return m.removeFromStringList(postLikesKey(postID), account)
}

// RemovePostLikes erases the post's like collection.
func (m *Manager) RemovePostLikes(postID string) error {
	return m.rawDelete(postLikesKey(postID))
}

// MessageLikes returns the accounts liking the message.
func (m *Manager) MessageLikes(id social.MessageID) ([]string, bool, error) {
	return m.stringList(messageLikesKey(id))
}

// AddMessageLike records the account's like on the message.
func (m *Manager) AddMessageLike(id social.MessageID, account string) error {
	return m.appendToStringList(messageLikesKey(id), account)
}

// RemoveMessageLike removes the account's like from the message.
func (m *Manager) RemoveMessageLike(id social.MessageID, account string) error {
	return m.removeFromStringList(messageLikesKey(id), account)
}

// RemoveMessageLikes erases the message's like collection.
func (m *Manager) RemoveMessageLikes(id social.MessageID) error {
	return m.rawDelete(messageLikesKey(id))
}

// AccountFriends returns the account's friend set.
func (m *Manager) AccountFriends(account string) ([]string, bool, error) {
	return m.stringList(accountFriendsKey(account))
}

// AddAccountFriend records a one-directional friendship.
func (m *Manager) AddAccountFriend(account, friend string) error {
	return m.appendToStringList(accountFriendsKey(account), friend)
}

// RemoveAccountFriends erases the account's friend collection.
func (m *Manager) RemoveAccountFriends(account string) error {
	return m.rawDelete(accountFriendsKey(account))
}

// --- profiles ---

func accountProfileKey(account string) []byte {
	return composeKey(accountProfilePrefix, []byte(account))
}

func profileImageKey(account string) []byte {
	return composeKey(profileImagePrefix, ethcrypto.Keccak256([]byte(account)))
}

// Profile loads the account's profile record.
func (m *Manager) Profile(account string) (*social.AccountProfile, bool, error) {
	profile := new(social.AccountProfile)
	found, err := m.getRLP(accountProfileKey(account), profile)
	if err != nil || !found {
		return nil, found, err
	}
	return profile, true, nil
}

// PutProfile persists the account's profile record.
func (m *Manager) PutProfile(account string, profile *social.AccountProfile) error {
	return m.putRLP(accountProfileKey(account), profile)
}

// ProfileImage loads the lazily stored image blob.
func (m *Manager) ProfileImage(account string) ([]byte, bool, error) {
	return m.rawGet(profileImageKey(account))
}

// PutProfileImage persists the image blob under its own key so profile reads
// do not pay for it.
func (m *Manager) PutProfileImage(account string, image []byte) error {
	return m.rawPut(profileImageKey(account), image)
}

// RemoveProfile erases the profile record and its image blob.
func (m *Manager) RemoveProfile(account string) error {
	if err := m.rawDelete(profileImageKey(account)); err != nil {
		return err
	}
	return m.rawDelete(accountProfileKey(account))
}

// --- recent likes ---

func recentLikesKey(account string) []byte {
	return composeKey(recentLikesPrefix, []byte(account))
}

// RecentLikes loads the account's recent-likes ring contents.
func (m *Manager) RecentLikes(account string) ([]social.AccountLike, bool, error) {
	var likes []social.AccountLike
	found, err := m.getRLP(recentLikesKey(account), &likes)
	if err != nil || !found {
		return nil, found, err
	}
	return likes, true, nil
}

// PutRecentLikes persists the account's recent-likes ring contents.
func (m *Manager) PutRecentLikes(account string, likes []social.AccountLike) error {
	return m.putRLP(recentLikesKey(account), likes)
}

// RemoveRecentLikes erases the account's recent-likes record.
func (m *Manager) RemoveRecentLikes(account string) error {
	return m.rawDelete(recentLikesKey(account))
}
