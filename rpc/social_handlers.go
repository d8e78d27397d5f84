package rpc

import (
	"net/http"
	"strings"

	"feedchain/native/social"
)

type signerParams struct {
	Signer string `json:"signer"`
}

func (p signerParams) validate() *RPCError {
	if strings.TrimSpace(p.Signer) == "" {
		return &RPCError{Code: codeInvalidParams, Message: "signer is required"}
	}
	return nil
}

type addMessageToPostParams struct {
	signerParams
	PostID string `json:"post_id"`
	Text   string `json:"text"`
}

type addMessageToMessageParams struct {
	signerParams
	PostID    string `json:"post_id"`
	ParentIdx uint64 `json:"parent_idx"`
	Text      string `json:"text"`
}

type postParams struct {
	signerParams
	PostID string `json:"post_id"`
}

type messageParams struct {
	signerParams
	PostID string `json:"post_id"`
	MsgIdx uint64 `json:"msg_idx"`
}

type addFriendParams struct {
	signerParams
	FriendID string `json:"friend_id"`
}

type updateProfileParams struct {
	signerParams
	social.ProfileUpdate
}

type updateAdminSettingsParams struct {
	signerParams
	social.AdminSettingsUpdate
}

type setOwnerParams struct {
	signerParams
	Owner string `json:"owner"`
}

func (s *Server) handleAddMessageToPost(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addMessageToPostParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	if rpcErr := params.validate(); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	receipt, err := s.engine.AddMessageToPost(params.Signer, params.PostID, params.Text)
	value, err := s.settle(social.CallAddMessageToPost.String(), receipt, err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, value)
}

func (s *Server) handleAddMessageToMessage(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addMessageToMessageParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	if rpcErr := params.validate(); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return
	}
	parent := social.MessageID{PostID: params.PostID, MsgIdx: params.ParentIdx}
	s.mu.Lock()
	defer s.mu.Unlock()
	receipt, err := s.engine.AddMessageToMessage(params.Signer, parent, params.Text)
	value, err := s.settle(social.CallAddMessageToMessage.String(), receipt, err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, value)
}

func (s *Server) handleLikePost(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params postParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	if rpcErr := params.validate(); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	receipt, err := s.engine.LikePost(params.Signer, params.PostID)
	if _, err := s.settle(social.CallLikePost.String(), receipt, err); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleUnlikePost(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params postParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	if rpcErr := params.validate(); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	receipt, err := s.engine.UnlikePost(params.Signer, params.PostID)
	if _, err := s.settle(social.CallUnlikePost.String(), receipt, err); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleLikeMessage(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params messageParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	if rpcErr := params.validate(); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return
	}
	id := social.MessageID{PostID: params.PostID, MsgIdx: params.MsgIdx}
	s.mu.Lock()
	defer s.mu.Unlock()
	receipt, err := s.engine.LikeMessage(params.Signer, id)
	if _, err := s.settle(social.CallLikeMessage.String(), receipt, err); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleUnlikeMessage(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params messageParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	if rpcErr := params.validate(); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return
	}
	id := social.MessageID{PostID: params.PostID, MsgIdx: params.MsgIdx}
	s.mu.Lock()
	defer s.mu.Unlock()
	receipt, err := s.engine.UnlikeMessage(params.Signer, id)
	if _, err := s.settle(social.CallUnlikeMessage.String(), receipt, err); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleAddFriend(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addFriendParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	if rpcErr := params.validate(); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return
	}
	if strings.TrimSpace(params.FriendID) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "friend_id is required", nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	receipt, err := s.engine.AddFriend(params.Signer, params.FriendID)
	if _, err := s.settle(social.CallAddFriend.String(), receipt, err); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params updateProfileParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	if rpcErr := params.validate(); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	receipt, err := s.engine.UpdateProfile(params.Signer, params.ProfileUpdate)
	if _, err := s.settle(social.CallUpdateProfile.String(), receipt, err); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleUpdateAdminSettings(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params updateAdminSettingsParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	if rpcErr := params.validate(); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.UpdateAdminSettings(params.Signer, params.AdminSettingsUpdate); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.engine.GetAdminSettings())
}

func (s *Server) handleSetOwner(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params setOwnerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	if rpcErr := params.validate(); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return
	}
	if strings.TrimSpace(params.Owner) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "owner is required", nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.SetOwner(params.Signer, params.Owner); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.engine.Owner())
}

// --- query surface ---

type pageParams struct {
	FromIndex uint64 `json:"from_index"`
	Limit     uint64 `json:"limit"`
}

func (p *pageParams) normalize() {
	if p.Limit == 0 {
		p.Limit = 100
	}
}

type postPageParams struct {
	PostID string `json:"post_id"`
	pageParams
}

type messagePageParams struct {
	PostID string `json:"post_id"`
	MsgIdx uint64 `json:"msg_idx"`
	pageParams
}

type accountPageParams struct {
	Account string `json:"account"`
	pageParams
}

type postAccountParams struct {
	PostID  string `json:"post_id"`
	Account string `json:"account"`
}

type messageAccountParams struct {
	PostID  string `json:"post_id"`
	MsgIdx  uint64 `json:"msg_idx"`
	Account string `json:"account"`
}

type accountParams struct {
	Account string `json:"account"`
}

func (s *Server) handleGetPostMessages(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params postPageParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	params.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, err := s.engine.GetPostMessages(params.PostID, params.FromIndex, params.Limit)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, page)
}

func (s *Server) handleGetPostMessage(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params messagePageParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, err := s.engine.GetPostMessage(social.MessageID{PostID: params.PostID, MsgIdx: params.MsgIdx})
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, msg)
}

func (s *Server) handleGetPostLikes(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params postPageParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	params.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	likes, err := s.engine.GetPostLikes(params.PostID, params.FromIndex, params.Limit)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, likes)
}

func (s *Server) handleGetPostLikesInfo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params postAccountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, err := s.engine.GetPostLikesInfo(params.PostID, params.Account)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, info)
}

func (s *Server) handleGetMessageLikes(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params messagePageParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	params.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	likes, err := s.engine.GetMessageLikes(social.MessageID{PostID: params.PostID, MsgIdx: params.MsgIdx}, params.FromIndex, params.Limit)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, likes)
}

func (s *Server) handleGetMessageLikesInfo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params messageAccountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, err := s.engine.GetMessageLikesInfo(social.MessageID{PostID: params.PostID, MsgIdx: params.MsgIdx}, params.Account)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, info)
}

func (s *Server) handleGetAccountLastLikes(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params accountPageParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	params.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	likes, err := s.engine.GetAccountLastLikes(params.Account, params.FromIndex, params.Limit)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, likes)
}

func (s *Server) handleGetAccountFriends(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params accountPageParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	params.normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	friends, err := s.engine.GetAccountFriends(params.Account, params.FromIndex, params.Limit)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, friends)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params accountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid request parameters", err.Error())
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, err := s.engine.GetProfile(params.Account)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, profile)
}
