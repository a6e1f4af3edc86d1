package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/warrantypool/internal/poolpb"
	"github.com/dmitrijs2005/warrantypool/internal/server/services"
	"github.com/gorilla/mux"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "store ping failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, poolpb.PingResponse{Status: "UNAVAILABLE"})
			return
		}
	}
	writeJSON(w, http.StatusOK, poolpb.PingResponse{Status: "OK"})
}

func (s *HTTPServer) handleRenew(w http.ResponseWriter, r *http.Request) {
	var req poolpb.RenewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.pool.Renew(r.Context(), req.WarrantyKey)
	if err != nil {
		s.writeServiceError(r.Context(), w, "renew", err)
		return
	}

	writeJSON(w, http.StatusOK, poolpb.RenewResponse{
		Status:  string(res.Status),
		Account: poolpb.NewAccount(res.Account, true),
	})
}

func (s *HTTPServer) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req poolpb.AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.pool.Assign(r.Context(), req.ConsumerName, req.ExpireDate)
	if err != nil {
		s.writeServiceError(r.Context(), w, "assign", err)
		return
	}

	writeJSON(w, http.StatusOK, poolpb.AssignResponse{
		Status:  string(res.Status),
		Account: poolpb.NewAccount(res.Account, true),
	})
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req poolpb.UploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.accounts.Upload(r.Context(), services.UploadRequest{
		Username:     req.Username,
		Secret:       req.Secret,
		SessionToken: req.SessionToken,
		RegisterDate: req.RegisterDate,
		ExpireDate:   req.ExpireDate,
	})
	if err != nil {
		s.writeServiceError(r.Context(), w, "upload", err)
		return
	}

	s.logger.Info(r.Context(), "Account uploaded", "operator", operatorFrom(r.Context()), "account_id", res.AccountID)
	writeJSON(w, http.StatusCreated, poolpb.UploadResponse{AccountID: res.AccountID, WarrantyKey: res.WarrantyKey})
}

func (s *HTTPServer) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.accounts.List(r.Context())
	if err != nil {
		s.writeServiceError(r.Context(), w, "list", err)
		return
	}

	resp := poolpb.ListResponse{Accounts: make([]*poolpb.Account, 0, len(list))}
	for _, a := range list {
		resp.Accounts = append(resp.Accounts, poolpb.NewAccount(a, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleGet(w http.ResponseWriter, r *http.Request) {
	a, err := s.accounts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(r.Context(), w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, poolpb.AccountResponse{Account: poolpb.NewAccount(a, false)})
}

func (s *HTTPServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req poolpb.UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]

	a, err := s.accounts.Update(r.Context(), id, req.Patch())
	if err != nil {
		s.writeServiceError(r.Context(), w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, poolpb.AccountResponse{Account: poolpb.NewAccount(a, false)})
}

func (s *HTTPServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		s.writeServiceError(r.Context(), w, "delete", err)
		return
	}
	s.logger.Info(r.Context(), "Account deleted", "operator", operatorFrom(r.Context()), "account_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleClear(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.accounts.Clear(r.Context(), id); err != nil {
		s.writeServiceError(r.Context(), w, "clear", err)
		return
	}
	s.logger.Info(r.Context(), "Account cleared", "operator", operatorFrom(r.Context()), "account_id", id)
	w.WriteHeader(http.StatusNoContent)
}
