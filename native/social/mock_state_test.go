package social

import (
	"fmt"
	"math/big"

	"feedchain/core/events"
	"feedchain/host"
)

// mockState is an in-memory engineState for unit tests that do not need real
// storage metering. Integration tests run against core/state.Manager instead.
type mockState struct {
	usage     uint64
	record    *ContractRecord
	msgCounts map[string]uint64
	messages  map[string]*Message
	postLikes map[string][]string
	msgLikes  map[string][]string
	friends   map[string][]string
	profiles  map[string]*AccountProfile
	images    map[string][]byte
	recent    map[string][]AccountLike
}

func newMockState() *mockState {
	return &mockState{
		msgCounts: make(map[string]uint64),
		messages:  make(map[string]*Message),
		postLikes: make(map[string][]string),
		msgLikes:  make(map[string][]string),
		friends:   make(map[string][]string),
		profiles:  make(map[string]*AccountProfile),
		images:    make(map[string][]byte),
		recent:    make(map[string][]AccountLike),
	}
}

func msgKey(postID string, idx uint64) string {
	return fmt.Sprintf("%s#%d", postID, idx)
}

func (s *mockState) StorageUsage() uint64 { return s.usage }

func (s *mockState) HasContractRecord() (bool, error) {
	return s.record != nil, nil
}

func (s *mockState) ContractRecord() (*ContractRecord, bool, error) {
	if s.record == nil {
		return nil, false, nil
	}
	return s.record, true, nil
}

func (s *mockState) PutContractRecord(rec *ContractRecord) error {
	s.record = rec
	return nil
}

func (s *mockState) PostMessageCount(postID string) (uint64, bool, error) {
	count, ok := s.msgCounts[postID]
	return count, ok, nil
}

func (s *mockState) PostMessage(postID string, idx uint64) (*Message, bool, error) {
	msg, ok := s.messages[msgKey(postID, idx)]
	return msg, ok, nil
}

func (s *mockState) AppendPostMessage(postID string, msg *Message) (uint64, error) {
	idx := s.msgCounts[postID]
	s.messages[msgKey(postID, idx)] = msg
	s.msgCounts[postID] = idx + 1
	return idx, nil
}

func (s *mockState) RemovePostMessages(postID string) error {
	count, ok := s.msgCounts[postID]
	if !ok {
		return fmt.Errorf("mock: post messages collection not found")
	}
	for idx := uint64(0); idx < count; idx++ {
		delete(s.messages, msgKey(postID, idx))
	}
	delete(s.msgCounts, postID)
	return nil
}

func (s *mockState) PostLikes(postID string) ([]string, bool, error) {
	likes, ok := s.postLikes[postID]
	return likes, ok, nil
}

func (s *mockState) AddPostLike(postID, account string) error {
	s.postLikes[postID] = append(s.postLikes[postID], account)
	return nil
}

func (s *mockState) RemovePostLike(postID, account string) error {
	s.postLikes[postID] = removeString(s.postLikes[postID], account)
	return nil
}

func (s *mockState) RemovePostLikes(postID string) error {
	delete(s.postLikes, postID)
	return nil
}

func (s *mockState) MessageLikes(id MessageID) ([]string, bool, error) {
	likes, ok := s.msgLikes[msgKey(id.PostID, id.MsgIdx)]
	return likes, ok, nil
}

func (s *mockState) AddMessageLike(id MessageID, account string) error {
	key := msgKey(id.PostID, id.MsgIdx)
	s.msgLikes[key] = append(s.msgLikes[key], account)
	return nil
}

func (s *mockState) RemoveMessageLike(id MessageID, account string) error {
	key := msgKey(id.PostID, id.MsgIdx)
	s.msgLikes[key] = removeString(s.msgLikes[key], account)
	return nil
}

func (s *mockState) RemoveMessageLikes(id MessageID) error {
	delete(s.msgLikes, msgKey(id.PostID, id.MsgIdx))
	return nil
}

func (s *mockState) AccountFriends(account string) ([]string, bool, error) {
	friends, ok := s.friends[account]
	return friends, ok, nil
}

func (s *mockState) AddAccountFriend(account, friend string) error {
	s.friends[account] = append(s.friends[account], friend)
	return nil
}

func (s *mockState) RemoveAccountFriends(account string) error {
	delete(s.friends, account)
	return nil
}

func (s *mockState) Profile(account string) (*AccountProfile, bool, error) {
	profile, ok := s.profiles[account]
	return profile, ok, nil
}

func (s *mockState) PutProfile(account string, profile *AccountProfile) error {
	s.profiles[account] = profile
	return nil
}

func (s *mockState) ProfileImage(account string) ([]byte, bool, error) {
	image, ok := s.images[account]
	return image, ok, nil
}

func (s *mockState) PutProfileImage(account string, image []byte) error {
	s.images[account] = image
	return nil
}

func (s *mockState) RemoveProfile(account string) error {
	delete(s.profiles, account)
	delete(s.images, account)
	return nil
}

func (s *mockState) RecentLikes(account string) ([]AccountLike, bool, error) {
	likes, ok := s.recent[account]
	return likes, ok, nil
}

func (s *mockState) PutRecentLikes(account string, likes []AccountLike) error {
	s.recent[account] = likes
	return nil
}

func (s *mockState) RemoveRecentLikes(account string) error {
	delete(s.recent, account)
	return nil
}

func removeString(list []string, member string) []string {
	for i, existing := range list {
		if existing == member {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// fakeRuntime records invocations instead of executing them, letting tests
// drive the fee callback by hand.
type fakeRuntime struct {
	byteCost    *big.Int
	now         uint64
	invocations []fakeInvocation
}

type fakeInvocation struct {
	signer   string
	target   string
	msg      any
	callback func(host.CallResult)
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{byteCost: big.NewInt(1), now: 1_700_000_000_000_000_000}
}

func (f *fakeRuntime) Invoke(signer, target string, msg any, callback func(host.CallResult)) {
	f.invocations = append(f.invocations, fakeInvocation{signer: signer, target: target, msg: msg, callback: callback})
}

func (f *fakeRuntime) BlockTimestamp() uint64 { return f.now }

func (f *fakeRuntime) StorageByteCost() *big.Int { return new(big.Int).Set(f.byteCost) }

// newTestEngine wires an engine over mock state with a fixed calibration, so
// unit tests can exercise validation and fee math without the real storage
// metering.
func newTestEngine(state *mockState, runtime *fakeRuntime) *Engine {
	return &Engine{
		state:     state,
		runtime:   runtime,
		emitter:   events.NoopEmitter{},
		address:   "social.test",
		owner:     "owner.test",
		feeLedger: "feetoken.test",
		admin:     AdminSettings{AccountRecentLikesLimit: 3},
		storageSettings: StorageUsageSettings{
			MinMessageSize:                   60,
			MessagesCollectionSize:           20,
			MinPostLikeSize:                  3,
			PostLikesCollectionSize:          22,
			MinMessageLikeSize:               3,
			MessageLikesCollectionSize:       34,
			MinAccountFriendSize:             3,
			AccountFriendsCollectionSize:     19,
			MinAccountProfileSize:            70,
			MinAccountRecentLikeSize:         4,
			AccountRecentLikesCollectionSize: 23,
		},
		pending:       make(map[uint64]pendingCall),
		feesCollected: big.NewInt(0),
	}
}
