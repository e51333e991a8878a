package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	queryApp "github.com/turtacn/ChemStor-Intelligence/internal/application/query"
	sortingApp "github.com/turtacn/ChemStor-Intelligence/internal/application/sorting"
	domainSorting "github.com/turtacn/ChemStor-Intelligence/internal/domain/sorting"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

// SortingHandler serves the sort execution, run history, and storage-group
// endpoints under /api/v1.
type SortingHandler struct {
	sorting sortingApp.Service
	query   queryApp.Service
	logger  logging.Logger
}

// NewSortingHandler creates the sorting endpoint handler.
func NewSortingHandler(sorting sortingApp.Service, query queryApp.Service, logger logging.Logger) *SortingHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SortingHandler{
		sorting: sorting,
		query:   query,
		logger:  logger.Named("http.sorting"),
	}
}

// SortRequest is the body of POST /sort and POST /sort/async.
type SortRequest struct {
	Names []string `json:"names"`
}

// Sort handles POST /sort.  It resolves and places the batch synchronously
// and returns the full placement result.
func (h *SortingHandler) Sort(w http.ResponseWriter, r *http.Request) {
	var req SortRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.sorting.SortBatch(r.Context(), sortingApp.SortInput{
		Names:   req.Names,
		Trigger: domainSorting.TriggerAPI,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SortAsync handles POST /sort/async.  It registers a pending run, publishes
// the batch to the event bus for a worker to execute, and answers 202 with
// the run identity.
func (h *SortingHandler) SortAsync(w http.ResponseWriter, r *http.Request) {
	var req SortRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	receipt, err := h.sorting.EnqueueBatch(r.Context(), req.Names, domainSorting.TriggerAPI)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, receipt)
}

// ListRuns handles GET /sort/runs.  Runs are returned newest first.
func (h *SortingHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	page, err := h.query.ListRuns(r.Context(), parsePagination(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// LatestRun handles GET /sort/runs/latest.
func (h *SortingHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	detail, err := h.query.LatestRun(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GetRun handles GET /sort/runs/{runID}.
func (h *SortingHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	detail, err := h.query.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GroupsResponse is the body of GET /storage-groups.
type GroupsResponse struct {
	Groups []sortingApp.GroupOverview `json:"groups"`
}

// Groups handles GET /storage-groups.  The overview always lists the fixed
// groups; occupancy is filled from the most recent run in this process.
func (h *SortingHandler) Groups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GroupsResponse{Groups: h.sorting.GroupsOverview()})
}

// ResidentsResponse is the body of GET /storage-groups/{group}/residents.
type ResidentsResponse struct {
	Group     string   `json:"group"`
	Residents []string `json:"residents"`
}

// GroupResidents handles GET /storage-groups/{group}/residents.  Residents
// come from the compatibility graph, so the answer reflects the last mirrored
// run rather than this process's memory.
func (h *SortingHandler) GroupResidents(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	if group == "" {
		writeError(w, r, errors.New(errors.ErrCodeBadRequest, "group is required"))
		return
	}

	residents, err := h.query.GroupResidents(r.Context(), group)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if residents == nil {
		residents = []string{}
	}
	writeJSON(w, http.StatusOK, ResidentsResponse{Group: group, Residents: residents})
}

//Personal.AI order the ending
