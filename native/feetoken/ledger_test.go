package feetoken

import (
	"errors"
	"math/big"
	"testing"
)

func TestCollectFee(t *testing.T) {
	l := NewLedger("treasury.feed", big.NewInt(1000))
	if err := l.AddFeeCollector("treasury.feed", "social.feed"); err != nil {
		t.Fatalf("add collector: %v", err)
	}
	if err := l.Mint("treasury.feed", "alice.feed", big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := l.CollectFee("social.feed", "alice.feed", big.NewInt(40)); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got := l.BalanceOf("alice.feed"); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("signer balance %s", got)
	}
	if got := l.BalanceOf("social.feed"); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("collector balance %s", got)
	}
}

func TestCollectFeeFailures(t *testing.T) {
	l := NewLedger("treasury.feed", big.NewInt(1000))
	if err := l.AddFeeCollector("treasury.feed", "social.feed"); err != nil {
		t.Fatalf("add collector: %v", err)
	}
	if err := l.Mint("treasury.feed", "alice.feed", big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := l.CollectFee("rogue.feed", "alice.feed", big.NewInt(1)); !errors.Is(err, ErrNotCollector) {
		t.Fatalf("expected ErrNotCollector, got %v", err)
	}
	if err := l.CollectFee("social.feed", "stranger.feed", big.NewInt(1)); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if err := l.CollectFee("social.feed", "alice.feed", big.NewInt(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	// Failed debits leave balances untouched.
	if got := l.BalanceOf("alice.feed"); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("signer balance moved to %s", got)
	}
}

func TestReceiveDispatch(t *testing.T) {
	l := NewLedger("treasury.feed", big.NewInt(1000))
	if err := l.AddFeeCollector("treasury.feed", "social.feed"); err != nil {
		t.Fatalf("add collector: %v", err)
	}

	if _, err := l.Receive("treasury.feed", CollectFeeMsg{Collector: "social.feed", Amount: big.NewInt(5)}); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got := l.BalanceOf("social.feed"); got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("collector balance %s", got)
	}

	if _, err := l.Receive("treasury.feed", struct{}{}); err == nil {
		t.Fatal("unknown message must be rejected")
	}
}

func TestCollectorRegistrationIsOwnerOnly(t *testing.T) {
	l := NewLedger("treasury.feed", big.NewInt(0))

	if err := l.AddFeeCollector("mallory.feed", "social.feed"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := l.AddFeeCollector("treasury.feed", "social.feed"); err != nil {
		t.Fatalf("add collector: %v", err)
	}
	if err := l.AddFeeCollector("treasury.feed", "social.feed"); err == nil {
		t.Fatal("duplicate registration must be rejected")
	}
	if err := l.RemoveFeeCollector("treasury.feed", "social.feed"); err != nil {
		t.Fatalf("remove collector: %v", err)
	}
	if err := l.RemoveFeeCollector("treasury.feed", "social.feed"); err == nil {
		t.Fatal("removing an unknown collector must be rejected")
	}
}

func TestRegisterOpensZeroBalance(t *testing.T) {
	l := NewLedger("treasury.feed", big.NewInt(1000))
	if err := l.AddFeeCollector("treasury.feed", "social.feed"); err != nil {
		t.Fatalf("add collector: %v", err)
	}

	l.Register("alice.feed")
	if got := l.BalanceOf("alice.feed"); got.Sign() != 0 {
		t.Fatalf("fresh balance %s", got)
	}
	// Registered accounts can be debited zero-amount fees.
	if err := l.CollectFee("social.feed", "alice.feed", big.NewInt(0)); err != nil {
		t.Fatalf("zero fee: %v", err)
	}
	// Blank identifiers are ignored.
	l.Register("   ")
	if got := l.BalanceOf("   "); got.Sign() != 0 {
		t.Fatalf("blank account got a balance: %s", got)
	}
}
