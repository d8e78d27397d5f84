package social

import (
	"errors"
	"fmt"
	"math/big"

	"feedchain/core/events"
	"feedchain/host"
	"feedchain/native/feetoken"
)

var (
	errNilState   = errors.New("social engine: state not configured")
	errNilRuntime = errors.New("social engine: host runtime not configured")

	// ErrAlreadyInitialized rejects constructing the contract over existing
	// state. Re-initialization would re-run calibration and silently change
	// every future fee.
	ErrAlreadyInitialized = errors.New("social engine: already initialized")
	// ErrNotInitialized is returned when loading a contract that was never
	// constructed.
	ErrNotInitialized = errors.New("social engine: contract state not found")
	// ErrNotOwner guards the owner-only surface.
	ErrNotOwner = errors.New("social engine: this operation is restricted to the contract owner")
	// ErrFeeNotCharged terminates a call whose fee debit was denied by the
	// fee ledger.
	ErrFeeNotCharged = errors.New("social engine: fee was not charged")
)

// engineState is the storage accessor contract the engine mutates through.
// All reads observe fully committed state; the engine only mutates inside a
// fee-confirmation callback.
type engineState interface {
	StorageUsage() uint64

	HasContractRecord() (bool, error)
	ContractRecord() (*ContractRecord, bool, error)
	PutContractRecord(*ContractRecord) error

	PostMessageCount(postID string) (uint64, bool, error)
	PostMessage(postID string, idx uint64) (*Message, bool, error)
	AppendPostMessage(postID string, msg *Message) (uint64, error)
	RemovePostMessages(postID string) error

	PostLikes(postID string) ([]string, bool, error)
	AddPostLike(postID, account string) error
	RemovePostLike(postID, account string) error
	RemovePostLikes(postID string) error

	MessageLikes(id MessageID) ([]string, bool, error)
	AddMessageLike(id MessageID, account string) error
	RemoveMessageLike(id MessageID, account string) error
	RemoveMessageLikes(id MessageID) error

	AccountFriends(account string) ([]string, bool, error)
	AddAccountFriend(account, friend string) error
	RemoveAccountFriends(account string) error

	Profile(account string) (*AccountProfile, bool, error)
	PutProfile(account string, profile *AccountProfile) error
	ProfileImage(account string) ([]byte, bool, error)
	PutProfileImage(account string, image []byte) error
	RemoveProfile(account string) error

	RecentLikes(account string) ([]AccountLike, bool, error)
	PutRecentLikes(account string, likes []AccountLike) error
	RemoveRecentLikes(account string) error
}

// engineHost is the slice of the host runtime the engine depends on: the
// async call primitive, the block clock and the storage price.
type engineHost interface {
	Invoke(signer, target string, msg any, callback func(host.CallResult))
	BlockTimestamp() uint64
	StorageByteCost() *big.Int
}

type pendingCall struct {
	caller  string
	call    Call
	fee     *big.Int
	receipt *host.Receipt
}

// Engine is the social contract: it validates incoming actions, prices their
// marginal storage, requests the fee debit from the external fee ledger, and
// applies the mutation only once the debit is confirmed.
type Engine struct {
	state   engineState
	runtime engineHost
	emitter events.Emitter

	address   string
	owner     string
	feeLedger string

	admin           AdminSettings
	storageSettings StorageUsageSettings

	pending       map[uint64]pendingCall
	nextCallID    uint64
	feesCollected *big.Int
}

// NewEngine constructs the contract over empty state: it applies the initial
// admin settings, runs the storage-size calibration pass, and persists the
// root record. Construction fails if state already exists or if calibration
// detects a measurement leak.
func NewEngine(st engineState, rt engineHost, address, owner, feeLedger string, settings AdminSettingsUpdate) (*Engine, error) {
	if st == nil {
		return nil, errNilState
	}
	if rt == nil {
		return nil, errNilRuntime
	}
	if exists, err := st.HasContractRecord(); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrAlreadyInitialized
	}
	e := &Engine{
		state:         st,
		runtime:       rt,
		emitter:       events.NoopEmitter{},
		address:       address,
		owner:         owner,
		feeLedger:     feeLedger,
		admin:         applyAdminUpdate(AdminSettings{}, settings),
		pending:       make(map[uint64]pendingCall),
		feesCollected: big.NewInt(0),
	}
	if err := e.calibrateStorageSettings(); err != nil {
		return nil, err
	}
	if err := e.persistRecord(); err != nil {
		return nil, err
	}
	return e, nil
}

// LoadEngine restores a previously constructed contract from its persisted
// root record. Calibration is never re-run.
func LoadEngine(st engineState, rt engineHost, address string) (*Engine, error) {
	if st == nil {
		return nil, errNilState
	}
	if rt == nil {
		return nil, errNilRuntime
	}
	rec, exists, err := st.ContractRecord()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotInitialized
	}
	return &Engine{
		state:           st,
		runtime:         rt,
		emitter:         events.NoopEmitter{},
		address:         address,
		owner:           rec.Owner,
		feeLedger:       rec.FeeLedger,
		admin:           rec.Admin,
		storageSettings: rec.StorageSettings,
		pending:         make(map[uint64]pendingCall),
		feesCollected:   big.NewInt(0),
	}, nil
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) persistRecord() error {
	return e.state.PutContractRecord(&ContractRecord{
		Owner:           e.owner,
		FeeLedger:       e.feeLedger,
		Admin:           e.admin,
		StorageSettings: e.storageSettings,
	})
}

func applyAdminUpdate(settings AdminSettings, update AdminSettingsUpdate) AdminSettings {
	if update.AccountRecentLikesLimit != nil {
		settings.AccountRecentLikesLimit = *update.AccountRecentLikesLimit
	}
	if update.AddMessageExtraFeePercent != nil {
		settings.AddMessageExtraFeePercent = *update.AddMessageExtraFeePercent
	}
	if update.LikePostExtraFeePercent != nil {
		settings.LikePostExtraFeePercent = *update.LikePostExtraFeePercent
	}
	if update.LikeMessageExtraFeePercent != nil {
		settings.LikeMessageExtraFeePercent = *update.LikeMessageExtraFeePercent
	}
	if update.AddFriendExtraFeePercent != nil {
		settings.AddFriendExtraFeePercent = *update.AddFriendExtraFeePercent
	}
	if update.UpdateProfileExtraFeePercent != nil {
		settings.UpdateProfileExtraFeePercent = *update.UpdateProfileExtraFeePercent
	}
	if update.AccountRecentLikeExtraFeePercent != nil {
		settings.AccountRecentLikeExtraFeePercent = *update.AccountRecentLikeExtraFeePercent
	}
	return settings
}

// --- mutating call surface ---

// AddMessageToPost appends a top-level message to the post, materialising the
// post on first use. The returned receipt resolves to the new MessageID.
func (e *Engine) AddMessageToPost(caller, postID, text string) (*host.Receipt, error) {
	if err := e.validateAddMessageToPost(postID, text); err != nil {
		return nil, err
	}
	fee, err := e.addMessageToPostFee(caller, postID, text)
	if err != nil {
		return nil, err
	}
	return e.collectFeeAndExecute(caller, fee, Call{Kind: CallAddMessageToPost, PostID: postID, Text: text}), nil
}

// AddMessageToMessage appends a threaded reply to an existing message in the
// same post. The returned receipt resolves to the new MessageID.
func (e *Engine) AddMessageToMessage(caller string, parent MessageID, text string) (*host.Receipt, error) {
	if err := e.validateAddMessageToMessage(parent, text); err != nil {
		return nil, err
	}
	fee, err := e.addMessageToMessageFee(caller, text)
	if err != nil {
		return nil, err
	}
	return e.collectFeeAndExecute(caller, fee, Call{Kind: CallAddMessageToMessage, PostID: parent.PostID, MsgIdx: parent.MsgIdx, Text: text}), nil
}

// LikePost records the caller's like on the post and in the caller's
// recent-likes ring.
func (e *Engine) LikePost(caller, postID string) (*host.Receipt, error) {
	if err := e.validateLikePost(caller, postID); err != nil {
		return nil, err
	}
	fee, err := e.likePostFee(caller, postID)
	if err != nil {
		return nil, err
	}
	ringFee, err := e.recentLikeFee(caller, postID, false)
	if err != nil {
		return nil, err
	}
	fee.Add(fee, ringFee)
	return e.collectFeeAndExecute(caller, fee, Call{Kind: CallLikePost, PostID: postID}), nil
}

// UnlikePost removes the caller's like. A minimal fixed fee still applies to
// cover the asynchronous call itself.
func (e *Engine) UnlikePost(caller, postID string) (*host.Receipt, error) {
	if err := e.validateUnlikePost(caller, postID); err != nil {
		return nil, err
	}
	return e.collectFeeAndExecute(caller, big.NewInt(minimalFee), Call{Kind: CallUnlikePost, PostID: postID}), nil
}

// LikeMessage records the caller's like on the message and in the caller's
// recent-likes ring.
func (e *Engine) LikeMessage(caller string, id MessageID) (*host.Receipt, error) {
	if err := e.validateLikeMessage(caller, id); err != nil {
		return nil, err
	}
	fee, err := e.likeMessageFee(caller, id)
	if err != nil {
		return nil, err
	}
	ringFee, err := e.recentLikeFee(caller, id.PostID, true)
	if err != nil {
		return nil, err
	}
	fee.Add(fee, ringFee)
	return e.collectFeeAndExecute(caller, fee, Call{Kind: CallLikeMessage, PostID: id.PostID, MsgIdx: id.MsgIdx}), nil
}

// UnlikeMessage removes the caller's like from the message for the minimal
// fixed fee.
func (e *Engine) UnlikeMessage(caller string, id MessageID) (*host.Receipt, error) {
	if err := e.validateUnlikeMessage(caller, id); err != nil {
		return nil, err
	}
	return e.collectFeeAndExecute(caller, big.NewInt(minimalFee), Call{Kind: CallUnlikeMessage, PostID: id.PostID, MsgIdx: id.MsgIdx}), nil
}

// AddFriend records a one-directional friendship edge.
func (e *Engine) AddFriend(caller, friendID string) (*host.Receipt, error) {
	if err := e.validateAddFriend(caller, friendID); err != nil {
		return nil, err
	}
	fee, err := e.addFriendFee(caller, friendID)
	if err != nil {
		return nil, err
	}
	return e.collectFeeAndExecute(caller, fee, Call{Kind: CallAddFriend, FriendID: friendID}), nil
}

// UpdateProfile updates the caller's profile fields; nil fields are left
// untouched. Updates that free storage still pay the minimal fixed fee.
func (e *Engine) UpdateProfile(caller string, update ProfileUpdate) (*host.Receipt, error) {
	if err := e.validateUpdateProfile(update); err != nil {
		return nil, err
	}
	fee, err := e.updateProfileFee(caller, update)
	if err != nil {
		return nil, err
	}
	if fee.Sign() == 0 {
		fee = big.NewInt(minimalFee)
	}
	return e.collectFeeAndExecute(caller, fee, Call{Kind: CallUpdateProfile, Profile: update}), nil
}

// UpdateAdminSettings applies a partial settings update. Owner only,
// synchronous, no fee.
func (e *Engine) UpdateAdminSettings(caller string, update AdminSettingsUpdate) error {
	if err := e.assertOwner(caller); err != nil {
		return err
	}
	e.admin = applyAdminUpdate(e.admin, update)
	return e.persistRecord()
}

// Owner returns the contract owner.
func (e *Engine) Owner() string { return e.owner }

// FeesCollected reports the cumulative fee-token units debited for confirmed
// calls since this engine instance was created. The total is process-local
// and is not persisted.
func (e *Engine) FeesCollected() *big.Int {
	return new(big.Int).Set(e.feesCollected)
}

// SetOwner transfers contract ownership. Owner only.
func (e *Engine) SetOwner(caller, owner string) error {
	if err := e.assertOwner(caller); err != nil {
		return err
	}
	e.owner = owner
	return e.persistRecord()
}

func (e *Engine) assertOwner(caller string) error {
	if caller != e.owner {
		return ErrNotOwner
	}
	return nil
}

// --- two-phase pipeline ---

// collectFeeAndExecute issues the asynchronous fee debit and parks the
// validated call under a fresh correlation id. Nothing is mutated until the
// callback confirms the debit.
func (e *Engine) collectFeeAndExecute(caller string, fee *big.Int, call Call) *host.Receipt {
	receipt := host.NewReceipt()
	id := e.nextCallID
	e.nextCallID++
	e.pending[id] = pendingCall{caller: caller, call: call, fee: fee, receipt: receipt}
	e.runtime.Invoke(caller, e.feeLedger, feetoken.CollectFeeMsg{
		Collector: e.address,
		Amount:    fee,
	}, func(result host.CallResult) {
		e.onFeeCollected(id, result)
	})
	return receipt
}

// onFeeCollected is the exactly-once continuation of a fee debit. On success
// it applies the parked mutation; on failure it aborts the call without
// touching state.
func (e *Engine) onFeeCollected(id uint64, result host.CallResult) {
	pc, ok := e.pending[id]
	if !ok {
		return
	}
	delete(e.pending, id)
	if !result.Success() {
		e.emit(FeeDenied{Account: pc.caller, Kind: pc.call.Kind, Reason: result.Err.Error()})
		pc.receipt.Resolve(nil, fmt.Errorf("%w: %v", ErrFeeNotCharged, result.Err))
		return
	}
	e.feesCollected.Add(e.feesCollected, pc.fee)
	value, err := e.executeCall(pc.caller, pc.call)
	// TODO: add rollback of the collected fee when execution fails after a
	// confirmed debit.
	pc.receipt.Resolve(value, err)
}

func (e *Engine) executeCall(caller string, call Call) (any, error) {
	switch call.Kind {
	case CallAddMessageToPost:
		id, err := e.executeAddMessageToPost(caller, call.PostID, call.Text)
		if err != nil {
			return nil, err
		}
		e.emit(MessageAdded{Account: caller, PostID: id.PostID, MsgIdx: id.MsgIdx})
		return id, nil
	case CallAddMessageToMessage:
		id, err := e.executeAddMessageToMessage(caller, MessageID{PostID: call.PostID, MsgIdx: call.MsgIdx}, call.Text)
		if err != nil {
			return nil, err
		}
		e.emit(MessageAdded{Account: caller, PostID: id.PostID, MsgIdx: id.MsgIdx, ParentIdx: &call.MsgIdx})
		return id, nil
	case CallLikePost:
		like, err := e.executeLikePost(caller, call.PostID)
		if err != nil {
			return nil, err
		}
		if err := e.addLikeToRecentLikes(caller, like); err != nil {
			return nil, err
		}
		e.emit(PostLiked{Account: caller, PostID: call.PostID})
		return nil, nil
	case CallUnlikePost:
		like, err := e.executeUnlikePost(caller, call.PostID)
		if err != nil {
			return nil, err
		}
		if err := e.removeLikeFromRecentLikes(caller, like); err != nil {
			return nil, err
		}
		e.emit(PostUnliked{Account: caller, PostID: call.PostID})
		return nil, nil
	case CallLikeMessage:
		like, err := e.executeLikeMessage(caller, MessageID{PostID: call.PostID, MsgIdx: call.MsgIdx})
		if err != nil {
			return nil, err
		}
		if err := e.addLikeToRecentLikes(caller, like); err != nil {
			return nil, err
		}
		e.emit(MessageLiked{Account: caller, PostID: call.PostID, MsgIdx: call.MsgIdx})
		return nil, nil
	case CallUnlikeMessage:
		like, err := e.executeUnlikeMessage(caller, MessageID{PostID: call.PostID, MsgIdx: call.MsgIdx})
		if err != nil {
			return nil, err
		}
		if err := e.removeLikeFromRecentLikes(caller, like); err != nil {
			return nil, err
		}
		e.emit(MessageUnliked{Account: caller, PostID: call.PostID, MsgIdx: call.MsgIdx})
		return nil, nil
	case CallAddFriend:
		if err := e.executeAddFriend(caller, call.FriendID); err != nil {
			return nil, err
		}
		e.emit(FriendAdded{Account: caller, FriendID: call.FriendID})
		return nil, nil
	case CallUpdateProfile:
		if err := e.executeUpdateProfile(caller, call.Profile); err != nil {
			return nil, err
		}
		e.emit(ProfileUpdated{Account: caller})
		return nil, nil
	default:
		return nil, fmt.Errorf("social engine: unknown call kind %d", call.Kind)
	}
}

// --- execute routines ---

func (e *Engine) executeAddMessageToPost(account, postID, text string) (MessageID, error) {
	idx, err := e.state.AppendPostMessage(postID, &Message{
		Account:   account,
		Text:      text,
		Timestamp: e.runtime.BlockTimestamp(),
	})
	if err != nil {
		return MessageID{}, err
	}
	return MessageID{PostID: postID, MsgIdx: idx}, nil
}

func (e *Engine) executeAddMessageToMessage(account string, parent MessageID, text string) (MessageID, error) {
	idx, err := e.state.AppendPostMessage(parent.PostID, &Message{
		Account:   account,
		HasParent: true,
		ParentIdx: parent.MsgIdx,
		Text:      text,
		Timestamp: e.runtime.BlockTimestamp(),
	})
	if err != nil {
		return MessageID{}, err
	}
	return MessageID{PostID: parent.PostID, MsgIdx: idx}, nil
}

func (e *Engine) executeLikePost(account, postID string) (AccountLike, error) {
	if err := e.state.AddPostLike(postID, account); err != nil {
		return AccountLike{}, err
	}
	return NewPostLike(postID), nil
}

func (e *Engine) executeUnlikePost(account, postID string) (AccountLike, error) {
	if err := e.state.RemovePostLike(postID, account); err != nil {
		return AccountLike{}, err
	}
	return NewPostLike(postID), nil
}

func (e *Engine) executeLikeMessage(account string, id MessageID) (AccountLike, error) {
	if err := e.state.AddMessageLike(id, account); err != nil {
		return AccountLike{}, err
	}
	return NewMessageLike(id), nil
}

func (e *Engine) executeUnlikeMessage(account string, id MessageID) (AccountLike, error) {
	if err := e.state.RemoveMessageLike(id, account); err != nil {
		return AccountLike{}, err
	}
	return NewMessageLike(id), nil
}

func (e *Engine) executeAddFriend(account, friendID string) error {
	return e.state.AddAccountFriend(account, friendID)
}

func (e *Engine) executeUpdateProfile(account string, update ProfileUpdate) error {
	profile, found, err := e.state.Profile(account)
	if err != nil {
		return err
	}
	if !found {
		profile = &AccountProfile{}
	}
	if update.JSONMetadata != nil {
		profile.JSONMetadata = *update.JSONMetadata
	}
	if update.Image != nil {
		if err := e.state.PutProfileImage(account, update.Image); err != nil {
			return err
		}
		profile.ImageLen = uint64(len(update.Image))
	}
	if update.ImageURL != nil {
		profile.ImageURL = *update.ImageURL
	}
	return e.state.PutProfile(account, profile)
}
