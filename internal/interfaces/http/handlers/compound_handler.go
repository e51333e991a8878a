package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	compoundApp "github.com/turtacn/ChemStor-Intelligence/internal/application/compound"
	queryApp "github.com/turtacn/ChemStor-Intelligence/internal/application/query"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/search/milvus"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

// CompoundHandler serves the compound resolution, classification, and lookup
// endpoints under /api/v1/compounds.
type CompoundHandler struct {
	compounds compoundApp.Service
	query     queryApp.Service
	logger    logging.Logger
}

// NewCompoundHandler creates the compound endpoint handler.
func NewCompoundHandler(compounds compoundApp.Service, query queryApp.Service, logger logging.Logger) *CompoundHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CompoundHandler{
		compounds: compounds,
		query:     query,
		logger:    logger.Named("http.compounds"),
	}
}

// ResolveRequest is the body of POST /compounds/resolve.
type ResolveRequest struct {
	Name string `json:"name"`
}

// Resolve handles POST /compounds/resolve.  It runs the full lookup pipeline
// for one name and returns the enriched compound record.
func (h *CompoundHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == "" {
		writeError(w, r, errors.New(errors.ErrCodeCompoundInvalidName, "name is required"))
		return
	}

	c, err := h.compounds.Resolve(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.ToDTO())
}

// Classify handles POST /compounds/classify.  It runs the acid/base
// classifier over caller-supplied structure and statements without touching
// upstream resolvers.
func (h *CompoundHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req compoundApp.ClassifyInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == "" {
		writeError(w, r, errors.New(errors.ErrCodeCompoundInvalidName, "name is required"))
		return
	}

	verdict, err := h.compounds.Classify(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

// Search handles GET /compounds/search?statement=...  It performs a full-text
// match over indexed hazard statements.
func (h *CompoundHandler) Search(w http.ResponseWriter, r *http.Request) {
	statement := queryParam(r, "statement")
	page := parsePagination(r)

	result, err := h.query.SearchByStatement(r.Context(), statement, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SimilarResponse is the body of GET /compounds/{cid}/similar.
type SimilarResponse struct {
	CID  string              `json:"cid"`
	Hits []milvus.SimilarHit `json:"hits"`
}

// Similar handles GET /compounds/{cid}/similar?limit=N.  It returns the
// nearest fingerprint neighbours of the addressed compound.
func (h *CompoundHandler) Similar(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")

	limit := 0
	if v := queryParam(r, "limit"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			writeError(w, r, errors.New(errors.ErrCodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	hits, err := h.query.SimilarCompounds(r.Context(), cid, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SimilarResponse{CID: cid, Hits: hits})
}

// Audit handles GET /compounds/audit?name=...  It reports where the named
// compound last landed: shelf neighbours and every group that refused it.
func (h *CompoundHandler) Audit(w http.ResponseWriter, r *http.Request) {
	name := queryParam(r, "name")

	audit, err := h.query.AuditCompound(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, audit)
}

//Personal.AI order the ending
