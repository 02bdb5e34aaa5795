package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bilancio/internal/chart"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

var errOwnerLeaving = fmt.Errorf("%w: the owner cannot leave the family", storage.ErrConflict)

func memberKey(familyID, userID int64) string {
	return strconv.FormatInt(familyID, 10) + ":" + strconv.FormatInt(userID, 10)
}

func (s *Server) forgetMembers(familyID int64) {
	s.members.DeletePrefix(strconv.FormatInt(familyID, 10) + ":")
}

func (s *Server) isMember(ctx context.Context, familyID, userID int64) (bool, error) {
	key := memberKey(familyID, userID)
	if ok, hit := s.members.Get(key); hit {
		return ok, nil
	}
	ok, err := s.store.IsMember(ctx, familyID, userID)
	if err != nil {
		return false, err
	}
	s.members.Set(key, ok)
	return ok, nil
}

// requireMember lets only members of {familyID} through.
func (s *Server) requireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fid, err := pathID(r, "familyID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok, err := s.isMember(r.Context(), fid, currentUser(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !ok {
			writeError(w, r, fmt.Errorf("%w: not a member of family %d", errForbidden, fid))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireOwner restricts family changes to the owner. It runs after
// requireMember, so the family ID is already known to be valid.
func (s *Server) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fid, _ := pathID(r, "familyID")
		f, err := s.store.GetFamily(r.Context(), fid)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if f.OwnerID != currentUser(r) {
			writeError(w, r, fmt.Errorf("%w: only the owner can change family %d", errForbidden, fid))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func familyID(r *http.Request) int64 {
	id, _ := pathID(r, "familyID")
	return id
}

func (s *Server) handleCreateFamily(w http.ResponseWriter, r *http.Request) {
	var req familyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := parseBudget(req.MonthlyBudget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f := core.Family{Name: strings.TrimSpace(req.Name), OwnerID: currentUser(r), MonthlyBudget: b}
	if err := f.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.CreateFamily(r.Context(), &f); err != nil {
		writeError(w, r, err)
		return
	}
	s.forgetMembers(f.ID)

	log.FromContext(r.Context()).InfoContext(r.Context(), "Family created",
		log.FieldFamilyID, f.ID,
		log.FieldUserID, f.OwnerID)
	writeJSON(w, http.StatusCreated, toFamilyJSON(f))
}

func (s *Server) handleListFamilies(w http.ResponseWriter, r *http.Request) {
	families, err := s.store.ListFamiliesForUser(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]familyJSON, len(families))
	for i, f := range families {
		out[i] = toFamilyJSON(f)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetFamily(w http.ResponseWriter, r *http.Request) {
	f, err := s.store.GetFamily(r.Context(), familyID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	members, err := s.store.ListMembers(r.Context(), f.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := familyDetailJSON{familyJSON: toFamilyJSON(f), Members: make([]memberJSON, len(members))}
	for i, m := range members {
		out.Members[i] = toMemberJSON(m)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.store.ListMembers(r.Context(), familyID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]memberJSON, len(members))
	for i, m := range members {
		out[i] = toMemberJSON(m)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAddMember enrolls an already registered user by email.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	email := core.NormalizeEmail(req.Email)
	if err := core.ValidateEmail(email); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, fmt.Errorf("user %s: %w", email, err))
		return
	}
	fid := familyID(r)
	if err := s.store.AddMember(r.Context(), fid, u.ID); err != nil {
		writeError(w, r, err)
		return
	}
	s.forgetMembers(fid)

	log.FromContext(r.Context()).InfoContext(r.Context(), "Member added",
		log.FieldFamilyID, fid,
		log.FieldUserID, u.ID)
	writeJSON(w, http.StatusCreated, memberJSON{UserID: u.ID, Email: u.Email, Name: u.Name})
}

// handleRemoveMember lets the owner remove anyone but themselves and lets a
// member leave.
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	target, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	fid := familyID(r)
	f, err := s.store.GetFamily(r.Context(), fid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	caller := currentUser(r)
	switch {
	case target == f.OwnerID:
		writeError(w, r, errOwnerLeaving)
		return
	case caller != f.OwnerID && caller != target:
		writeError(w, r, fmt.Errorf("%w: only the owner can remove other members", errForbidden))
		return
	}

	if err := s.store.RemoveMember(r.Context(), fid, target); err != nil {
		writeError(w, r, err)
		return
	}
	s.forgetMembers(fid)

	log.FromContext(r.Context()).InfoContext(r.Context(), "Member removed",
		log.FieldFamilyID, fid,
		log.FieldUserID, target)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetFamilyBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := parseBudget(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	fid := familyID(r)
	if err := s.store.SetFamilyBudget(r.Context(), fid, b); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := s.store.GetFamily(r.Context(), fid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFamilyJSON(f))
}

func (s *Server) handleListThresholds(w http.ResponseWriter, r *http.Request) {
	thresholds, err := s.store.ListThresholds(r.Context(), familyID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]thresholdJSON, len(thresholds))
	for i, t := range thresholds {
		out[i] = thresholdJSON{Category: t.Category, Limit: amount(t.Limit.Decimal())}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	category, err := pathCategory(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req thresholdRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := parseMoney(req.Limit)
	if err != nil {
		writeError(w, r, core.ErrInvalidBudget)
		return
	}
	t := core.CategoryThreshold{FamilyID: familyID(r), Category: category, Limit: limit}
	if err := t.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.SetThreshold(r.Context(), t); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thresholdJSON{Category: t.Category, Limit: amount(t.Limit.Decimal())})
}

func (s *Server) handleDeleteThreshold(w http.ResponseWriter, r *http.Request) {
	category, err := pathCategory(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteThreshold(r.Context(), familyID(r), category); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFamilyProjection(w http.ResponseWriter, r *http.Request) {
	rep, err := s.budget.FamilyProjection(r.Context(), familyID(r), monthParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFamilyProjectionJSON(rep))
}

func (s *Server) handleThresholdStatus(w http.ResponseWriter, r *http.Request) {
	rep, err := s.budget.ThresholdStatus(r.Context(), familyID(r), monthParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toThresholdStatusJSON(rep))
}

func (s *Server) handleFamilyProjectionChart(w http.ResponseWriter, r *http.Request) {
	rep, err := s.budget.FamilyProjection(r.Context(), familyID(r), monthParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSVG(w, chart.ProjectionSVG(rep.Result))
}

func (s *Server) handleCategoriesChart(w http.ResponseWriter, r *http.Request) {
	rep, err := s.budget.ThresholdStatus(r.Context(), familyID(r), monthParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	bars := make([]chart.Bar, len(rep.Categories))
	for i, c := range rep.Categories {
		bars[i] = chart.Bar{Label: c.Category, Value: c.Spent, Limit: c.Limit}
	}
	title := fmt.Sprintf("%s %s", rep.Family.Name, rep.Month.Key())
	writeSVG(w, chart.CategoriesSVG(title, bars))
}
