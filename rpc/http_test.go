package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"feedchain/core/state"
	"feedchain/host"
	"feedchain/native/feetoken"
	"feedchain/native/social"
	"feedchain/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db := storage.NewMemDB()
	manager, err := state.NewManager(db)
	if err != nil {
		t.Fatalf("state manager: %v", err)
	}
	runtime := host.NewRuntime(big.NewInt(1))
	ledger := feetoken.NewLedger("treasury.feed", big.NewInt(1_000_000_000))
	runtime.Register("fee.feed", ledger)
	if err := ledger.AddFeeCollector("treasury.feed", "social.feed"); err != nil {
		t.Fatalf("add collector: %v", err)
	}
	if err := ledger.Mint("treasury.feed", "alice.feed", big.NewInt(1_000_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	limit := uint8(3)
	engine, err := social.NewEngine(manager, runtime, "social.feed", "admin.feed", "fee.feed", social.AdminSettingsUpdate{
		AccountRecentLikesLimit: &limit,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	return NewServer(engine, runtime, manager)
}

func call(t *testing.T, s *Server, method string, params any, headers map[string]string) (*RPCResponse, int) {
	t.Helper()

	payload := map[string]any{
		"jsonrpc": jsonRPCVersion,
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []any{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handle(rec, req)

	resp := &RPCResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp, rec.Code
}

func TestAddMessageAndQueryRoundTrip(t *testing.T) {
	s := newTestServer(t)

	resp, status := call(t, s, "social_addMessageToPost", map[string]any{
		"signer":  "alice.feed",
		"post_id": "post-1",
		"text":    "hello world",
	}, nil)
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("add message failed: status=%d err=%+v", status, resp.Error)
	}

	resp, status = call(t, s, "social_getPostMessages", map[string]any{
		"post_id": "post-1",
	}, nil)
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("query failed: status=%d err=%+v", status, resp.Error)
	}
	encoded, _ := json.Marshal(resp.Result)
	var page []social.MessageDTO
	if err := json.Unmarshal(encoded, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page) != 1 || page[0].Account != "alice.feed" || page[0].Text != "hello world" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestValidationErrorsMapToInvalidParams(t *testing.T) {
	s := newTestServer(t)

	resp, status := call(t, s, "social_addMessageToPost", map[string]any{
		"signer":  "alice.feed",
		"post_id": "post-1",
		"text":    "   ",
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("status %d", status)
	}
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("unexpected error %+v", resp.Error)
	}
}

func TestDeniedFeeMapsToFeeDeniedCode(t *testing.T) {
	s := newTestServer(t)

	resp, status := call(t, s, "social_addMessageToPost", map[string]any{
		"signer":  "stranger.feed",
		"post_id": "post-1",
		"text":    "hi",
	}, nil)
	if status != http.StatusPaymentRequired {
		t.Fatalf("status %d", status)
	}
	if resp.Error == nil || resp.Error.Code != codeFeeDenied {
		t.Fatalf("unexpected error %+v", resp.Error)
	}
}

func TestUnknownMethod(t *testing.T) {
	s := newTestServer(t)

	resp, status := call(t, s, "social_doesNotExist", nil, nil)
	if status != http.StatusNotFound {
		t.Fatalf("status %d", status)
	}
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("unexpected error %+v", resp.Error)
	}
}

func TestAdminSettingsRequireBearerToken(t *testing.T) {
	t.Setenv("FEED_RPC_TOKEN", "secret-token")
	s := newTestServer(t)

	params := map[string]any{
		"signer":                     "admin.feed",
		"account_recent_likes_limit": 7,
	}

	resp, status := call(t, s, "social_updateAdminSettings", params, nil)
	if status != http.StatusUnauthorized || resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("missing token accepted: status=%d err=%+v", status, resp.Error)
	}

	resp, status = call(t, s, "social_updateAdminSettings", params, map[string]string{
		"Authorization": "Bearer wrong",
	})
	if status != http.StatusUnauthorized || resp.Error == nil {
		t.Fatalf("wrong token accepted: status=%d err=%+v", status, resp.Error)
	}

	resp, status = call(t, s, "social_updateAdminSettings", params, map[string]string{
		"Authorization": "Bearer secret-token",
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("valid token rejected: status=%d err=%+v", status, resp.Error)
	}
	if got := s.engine.GetAdminSettings().AccountRecentLikesLimit; got != 7 {
		t.Fatalf("limit %d after update", got)
	}

	// Owner check still applies behind the token.
	resp, status = call(t, s, "social_updateAdminSettings", map[string]any{
		"signer":                     "mallory.feed",
		"account_recent_likes_limit": 9,
	}, map[string]string{"Authorization": "Bearer secret-token"})
	if status != http.StatusForbidden || resp.Error == nil {
		t.Fatalf("non-owner accepted: status=%d err=%+v", status, resp.Error)
	}
}

func TestMalformedEnvelope(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.handle(rec, req)
	resp := &RPCResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("unexpected error %+v", resp.Error)
	}

	resp, _ = call(t, s, "", nil, nil)
	if resp.Error == nil || resp.Error.Code != codeInvalidRequest {
		t.Fatalf("empty method accepted: %+v", resp.Error)
	}
}

func TestProfileUpdateOverRPC(t *testing.T) {
	s := newTestServer(t)

	resp, status := call(t, s, "social_updateProfile", map[string]any{
		"signer":        "alice.feed",
		"json_metadata": `{"name":"Alice"}`,
		"image_url":     "https://img.example/alice.png",
	}, nil)
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("update failed: status=%d err=%+v", status, resp.Error)
	}

	resp, status = call(t, s, "social_getProfile", map[string]any{"account": "alice.feed"}, nil)
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("query failed: status=%d err=%+v", status, resp.Error)
	}
	encoded, _ := json.Marshal(resp.Result)
	var profile social.ProfileUpdate
	if err := json.Unmarshal(encoded, &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.JSONMetadata == nil || *profile.JSONMetadata != `{"name":"Alice"}` {
		t.Fatalf("metadata lost: %+v", profile)
	}
}

func TestCallPayloadsKeepSeparateIDs(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp, status := call(t, s, "social_addMessageToPost", map[string]any{
			"signer":  "alice.feed",
			"post_id": "post-1",
			"text":    fmt.Sprintf("message %d", i),
		}, nil)
		if status != http.StatusOK || resp.Error != nil {
			t.Fatalf("add %d failed: %+v", i, resp.Error)
		}
		encoded, _ := json.Marshal(resp.Result)
		var id social.MessageID
		if err := json.Unmarshal(encoded, &id); err != nil {
			t.Fatalf("decode id: %v", err)
		}
		if id.MsgIdx != uint64(i) {
			t.Fatalf("index %d, want %d", id.MsgIdx, i)
		}
	}
}

func TestConcurrentQueriesDoNotRaceUpdates(t *testing.T) {
	t.Setenv("FEED_RPC_TOKEN", "secret-token")
	s := newTestServer(t)

	fire := func(method string, params map[string]any, token string) {
		payload := map[string]any{
			"jsonrpc": jsonRPCVersion,
			"id":      1,
			"method":  method,
		}
		if params != nil {
			payload["params"] = []any{params}
		}
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		s.handle(httptest.NewRecorder(), req)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		limit := i%5 + 1
		wg.Add(3)
		go func(limit int) {
			defer wg.Done()
			fire("social_updateAdminSettings", map[string]any{
				"signer":                     "admin.feed",
				"account_recent_likes_limit": limit,
			}, "secret-token")
		}(limit)
		go func() {
			defer wg.Done()
			fire("social_getAdminSettings", nil, "")
		}()
		go func() {
			defer wg.Done()
			fire("social_getOwner", nil, "")
		}()
	}
	wg.Wait()

	if got := s.engine.GetAdminSettings().AccountRecentLikesLimit; got < 1 || got > 5 {
		t.Fatalf("limit %d after concurrent updates", got)
	}
}

func TestSettleRecordsChargedFees(t *testing.T) {
	s := newTestServer(t)

	if s.feesSeen.Sign() != 0 {
		t.Fatalf("fresh server reports charged fees: %s", s.feesSeen)
	}

	resp, status := call(t, s, "social_addMessageToPost", map[string]any{
		"signer":  "alice.feed",
		"post_id": "post-1",
		"text":    "hello world",
	}, nil)
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("add message failed: status=%d err=%+v", status, resp.Error)
	}
	if s.feesSeen.Sign() <= 0 {
		t.Fatal("applied call did not record its fee")
	}
	if s.feesSeen.Cmp(s.engine.FeesCollected()) != 0 {
		t.Fatalf("fee counter out of sync: seen %s, collected %s", s.feesSeen, s.engine.FeesCollected())
	}

	seen := new(big.Int).Set(s.feesSeen)
	resp, status = call(t, s, "social_addMessageToPost", map[string]any{
		"signer":  "stranger.feed",
		"post_id": "post-1",
		"text":    "hi",
	}, nil)
	if status != http.StatusPaymentRequired || resp.Error == nil {
		t.Fatalf("expected denied fee: status=%d err=%+v", status, resp.Error)
	}
	if s.feesSeen.Cmp(seen) != 0 {
		t.Fatalf("denied call moved the fee counter: %s vs %s", s.feesSeen, seen)
	}
}
