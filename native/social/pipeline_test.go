package social

import (
	"errors"
	"math/big"
	"testing"

	"feedchain/core/events"
	"feedchain/host"
	"feedchain/native/feetoken"
)

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func TestAddMessageRequestsFeeBeforeMutating(t *testing.T) {
	st := newMockState()
	rt := newFakeRuntime()
	e := newTestEngine(st, rt)

	receipt, err := e.AddMessageToPost("alice.test", "post-1", "hello world")
	if err != nil {
		t.Fatalf("add message: %v", err)
	}
	if receipt.Resolved() {
		t.Fatal("receipt must stay pending until the fee callback runs")
	}
	if len(rt.invocations) != 1 {
		t.Fatalf("expected one fee invocation, got %d", len(rt.invocations))
	}
	inv := rt.invocations[0]
	if inv.target != e.feeLedger || inv.signer != "alice.test" {
		t.Fatalf("fee call routed to %s for %s", inv.target, inv.signer)
	}
	msg, ok := inv.msg.(feetoken.CollectFeeMsg)
	if !ok {
		t.Fatalf("unexpected fee message %T", inv.msg)
	}
	if msg.Collector != e.address {
		t.Fatalf("collector %s, want %s", msg.Collector, e.address)
	}
	if msg.Amount.Sign() <= 0 {
		t.Fatalf("fee must be positive, got %s", msg.Amount)
	}
	if len(st.messages) != 0 {
		t.Fatal("no state may change before the debit is confirmed")
	}

	inv.callback(host.CallResult{})

	value, err := receipt.Result()
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	id, ok := value.(MessageID)
	if !ok {
		t.Fatalf("unexpected receipt value %T", value)
	}
	if id.PostID != "post-1" || id.MsgIdx != 0 {
		t.Fatalf("unexpected message id %+v", id)
	}
	if got := st.msgCounts["post-1"]; got != 1 {
		t.Fatalf("message count %d after confirmation", got)
	}
	if len(e.pending) != 0 {
		t.Fatalf("pending calls leaked: %d", len(e.pending))
	}
}

func TestDeniedFeeAbortsWithoutMutation(t *testing.T) {
	st := newMockState()
	rt := newFakeRuntime()
	e := newTestEngine(st, rt)
	emitter := &captureEmitter{}
	e.SetEmitter(emitter)

	receipt, err := e.LikePost("alice.test", "post-1")
	if err != nil {
		t.Fatalf("like post: %v", err)
	}

	rt.invocations[0].callback(host.CallResult{Err: feetoken.ErrInsufficientBalance})

	_, err = receipt.Result()
	if !errors.Is(err, ErrFeeNotCharged) {
		t.Fatalf("expected ErrFeeNotCharged, got %v", err)
	}
	if len(st.postLikes["post-1"]) != 0 {
		t.Fatal("denied fee must not record the like")
	}
	if len(st.recent["alice.test"]) != 0 {
		t.Fatal("denied fee must not touch the recent-likes ring")
	}
	if len(e.pending) != 0 {
		t.Fatalf("pending calls leaked: %d", len(e.pending))
	}

	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}
	denied, ok := emitter.events[0].(FeeDenied)
	if !ok {
		t.Fatalf("unexpected event %T", emitter.events[0])
	}
	if denied.Account != "alice.test" || denied.Kind != CallLikePost {
		t.Fatalf("unexpected fee-denied payload %+v", denied)
	}
}

func TestLateCallbackAfterResolutionIsIgnored(t *testing.T) {
	st := newMockState()
	rt := newFakeRuntime()
	e := newTestEngine(st, rt)

	receipt, err := e.AddFriend("alice.test", "bob.test")
	if err != nil {
		t.Fatalf("add friend: %v", err)
	}
	cb := rt.invocations[0].callback
	cb(host.CallResult{})
	if !receipt.Resolved() {
		t.Fatal("receipt not resolved")
	}
	// A duplicate delivery finds no pending call and must be a no-op rather
	// than a double mutation or a receipt panic.
	cb(host.CallResult{})
	if got := len(st.friends["alice.test"]); got != 1 {
		t.Fatalf("friend recorded %d times", got)
	}
}

func TestValidationFailureIssuesNoFeeCall(t *testing.T) {
	st := newMockState()
	rt := newFakeRuntime()
	e := newTestEngine(st, rt)

	if _, err := e.AddMessageToPost("alice.test", "post-1", "   "); err == nil {
		t.Fatal("whitespace text must be rejected")
	}
	if _, err := e.UnlikePost("alice.test", "post-1"); err == nil {
		t.Fatal("unliking a never-liked post must be rejected")
	}
	if len(rt.invocations) != 0 {
		t.Fatalf("rejected calls must not reach the fee ledger, got %d invocations", len(rt.invocations))
	}
}

func TestUnlikeChargesMinimalFee(t *testing.T) {
	st := newMockState()
	rt := newFakeRuntime()
	e := newTestEngine(st, rt)
	st.postLikes["post-1"] = []string{"alice.test"}
	st.recent["alice.test"] = []AccountLike{NewPostLike("post-1")}

	receipt, err := e.UnlikePost("alice.test", "post-1")
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	msg := rt.invocations[0].msg.(feetoken.CollectFeeMsg)
	if msg.Amount.Cmp(big.NewInt(minimalFee)) != 0 {
		t.Fatalf("unlike fee %s, want the minimal fee", msg.Amount)
	}

	rt.invocations[0].callback(host.CallResult{})
	if _, err := receipt.Result(); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if len(st.postLikes["post-1"]) != 0 {
		t.Fatal("like not removed")
	}
	if len(st.recent["alice.test"]) != 0 {
		t.Fatal("ring entry not removed")
	}
}

func TestZeroDeltaProfileUpdateChargesMinimalFee(t *testing.T) {
	st := newMockState()
	rt := newFakeRuntime()
	e := newTestEngine(st, rt)
	metadata := `{"name":"Alice"}`
	st.profiles["alice.test"] = &AccountProfile{JSONMetadata: metadata}

	shorter := `{}`
	if _, err := e.UpdateProfile("alice.test", ProfileUpdate{JSONMetadata: &shorter}); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	msg := rt.invocations[0].msg.(feetoken.CollectFeeMsg)
	if msg.Amount.Cmp(big.NewInt(minimalFee)) != 0 {
		t.Fatalf("shrinking update fee %s, want the minimal fee", msg.Amount)
	}
}

func TestConcurrentPendingCallsKeepDistinctPayloads(t *testing.T) {
	st := newMockState()
	rt := newFakeRuntime()
	e := newTestEngine(st, rt)

	r1, err := e.AddMessageToPost("alice.test", "post-1", "first")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	r2, err := e.AddMessageToPost("bob.test", "post-2", "second")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(e.pending) != 2 {
		t.Fatalf("expected 2 pending calls, got %d", len(e.pending))
	}

	// Resolve out of order.
	rt.invocations[1].callback(host.CallResult{})
	rt.invocations[0].callback(host.CallResult{})

	v1, _ := r1.Result()
	v2, _ := r2.Result()
	if v1.(MessageID).PostID != "post-1" || v2.(MessageID).PostID != "post-2" {
		t.Fatalf("payloads crossed: %+v %+v", v1, v2)
	}
	if st.messages[msgKey("post-1", 0)].Account != "alice.test" {
		t.Fatal("first message attributed to the wrong account")
	}
	if st.messages[msgKey("post-2", 0)].Account != "bob.test" {
		t.Fatal("second message attributed to the wrong account")
	}
}

func TestOwnerOnlySurface(t *testing.T) {
	st := newMockState()
	e := newTestEngine(st, newFakeRuntime())

	limit := uint8(5)
	if err := e.UpdateAdminSettings("mallory.test", AdminSettingsUpdate{AccountRecentLikesLimit: &limit}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := e.UpdateAdminSettings("owner.test", AdminSettingsUpdate{AccountRecentLikesLimit: &limit}); err != nil {
		t.Fatalf("owner update rejected: %v", err)
	}
	if e.GetAdminSettings().AccountRecentLikesLimit != 5 {
		t.Fatalf("limit not applied: %+v", e.GetAdminSettings())
	}
	if st.record == nil || st.record.Admin.AccountRecentLikesLimit != 5 {
		t.Fatal("updated settings not persisted")
	}

	if err := e.SetOwner("mallory.test", "mallory.test"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := e.SetOwner("owner.test", "new-owner.test"); err != nil {
		t.Fatalf("ownership transfer rejected: %v", err)
	}
	if e.Owner() != "new-owner.test" {
		t.Fatalf("owner %s", e.Owner())
	}
}

func TestFeesCollectedTracksConfirmedDebits(t *testing.T) {
	st := newMockState()
	rt := newFakeRuntime()
	e := newTestEngine(st, rt)

	if e.FeesCollected().Sign() != 0 {
		t.Fatalf("fresh engine reports collected fees: %s", e.FeesCollected())
	}

	receipt, err := e.AddMessageToPost("alice.test", "post-1", "hello world")
	if err != nil {
		t.Fatalf("add message: %v", err)
	}
	fee := rt.invocations[0].msg.(feetoken.CollectFeeMsg).Amount
	if e.FeesCollected().Sign() != 0 {
		t.Fatal("fee may not count before the debit is confirmed")
	}

	rt.invocations[0].callback(host.CallResult{})
	if _, err := receipt.Result(); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if e.FeesCollected().Cmp(fee) != 0 {
		t.Fatalf("collected %s, want %s", e.FeesCollected(), fee)
	}

	// A denied debit leaves the total untouched.
	receipt, err = e.LikePost("alice.test", "post-1")
	if err != nil {
		t.Fatalf("like post: %v", err)
	}
	rt.invocations[1].callback(host.CallResult{Err: feetoken.ErrInsufficientBalance})
	if _, err := receipt.Result(); !errors.Is(err, ErrFeeNotCharged) {
		t.Fatalf("expected ErrFeeNotCharged, got %v", err)
	}
	if e.FeesCollected().Cmp(fee) != 0 {
		t.Fatalf("denied debit changed the total: %s", e.FeesCollected())
	}
}
