package handler

import "net/http"

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	UserID string `json:"userId"`
	CriteriaRequest
}

// Generate handles POST /generate.
// 429 means the user's plan has no generations left this month; a 200 with
// an empty matches list means nothing in the catalog fits the criteria.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		badRequest(w, "userId is required")
		return
	}
	criteria, err := req.Criteria()
	if err != nil {
		badRequest(w, unwrapMessage(err))
		return
	}

	gen, err := s.generator.Generate(r.Context(), req.UserID, criteria)
	if err != nil {
		s.serviceError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, gen)
}
