package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	queryApp "github.com/turtacn/ChemStor-Intelligence/internal/application/query"
	sortingApp "github.com/turtacn/ChemStor-Intelligence/internal/application/sorting"
	domainSorting "github.com/turtacn/ChemStor-Intelligence/internal/domain/sorting"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
)

type stubSortingService struct {
	sortFn    func(ctx context.Context, input sortingApp.SortInput) (*sortingApp.SortResult, error)
	enqueueFn func(ctx context.Context, names []string, trigger string) (*sortingApp.EnqueueReceipt, error)
	groups    []sortingApp.GroupOverview
}

func (s *stubSortingService) SortBatch(ctx context.Context, input sortingApp.SortInput) (*sortingApp.SortResult, error) {
	return s.sortFn(ctx, input)
}

func (s *stubSortingService) EnqueueBatch(ctx context.Context, names []string, trigger string) (*sortingApp.EnqueueReceipt, error) {
	return s.enqueueFn(ctx, names, trigger)
}

func (s *stubSortingService) GroupsOverview() []sortingApp.GroupOverview {
	return s.groups
}

func completedRunDetail(t *testing.T, runID, reportURL string) *queryApp.RunDetail {
	t.Helper()
	run, err := domainSorting.NewSortRun([]string{"acetone", "ethanol"}, domainSorting.TriggerAPI)
	require.NoError(t, err)
	run.ID = common.ID(runID)
	run.Status = domainSorting.RunStatusCompleted
	return &queryApp.RunDetail{Run: run, ReportURL: reportURL}
}

// ─────────────────────────────────────────────────────────────────────────────
// Sort / SortAsync
// ─────────────────────────────────────────────────────────────────────────────

func TestSortingHandler_Sort(t *testing.T) {
	sorting := &stubSortingService{
		sortFn: func(ctx context.Context, input sortingApp.SortInput) (*sortingApp.SortResult, error) {
			assert.Equal(t, []string{"acetone", "ethanol"}, input.Names)
			assert.Equal(t, domainSorting.TriggerAPI, input.Trigger)
			assert.Empty(t, input.RunID)
			return &sortingApp.SortResult{
				RunID:   "run-1",
				Status:  string(domainSorting.RunStatusCompleted),
				Trigger: domainSorting.TriggerAPI,
				Groups: []sortingApp.GroupBuckets{
					{Group: "flammable", States: []sortingApp.StateBucket{{State: "liquid"}}},
				},
				Placed: 2,
			}, nil
		},
	}
	h := NewSortingHandler(sorting, &stubQueryService{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/sort", strings.NewReader(`{"names":["acetone","ethanol"]}`))
	h.Sort(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var result sortingApp.SortResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, 2, result.Placed)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "flammable", result.Groups[0].Group)
}

func TestSortingHandler_Sort_EmptyBatch(t *testing.T) {
	sorting := &stubSortingService{
		sortFn: func(ctx context.Context, input sortingApp.SortInput) (*sortingApp.SortResult, error) {
			return nil, errors.New(errors.ErrCodeSortBatchEmpty, "sort batch contains no compounds")
		},
	}
	h := NewSortingHandler(sorting, &stubQueryService{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/sort", strings.NewReader(`{"names":[]}`))
	h.Sort(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SORT_003", decodeErrorBody(t, w).Code)
}

func TestSortingHandler_Sort_MalformedBody(t *testing.T) {
	h := NewSortingHandler(&stubSortingService{}, &stubQueryService{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/sort", strings.NewReader(`{"names":`))
	h.Sort(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSortingHandler_SortAsync(t *testing.T) {
	sorting := &stubSortingService{
		enqueueFn: func(ctx context.Context, names []string, trigger string) (*sortingApp.EnqueueReceipt, error) {
			assert.Equal(t, []string{"toluene"}, names)
			assert.Equal(t, domainSorting.TriggerAPI, trigger)
			return &sortingApp.EnqueueReceipt{RunID: "run-9", Requested: 1}, nil
		},
	}
	h := NewSortingHandler(sorting, &stubQueryService{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/sort/async", strings.NewReader(`{"names":["toluene"]}`))
	h.SortAsync(w, r)

	require.Equal(t, http.StatusAccepted, w.Code)

	var receipt sortingApp.EnqueueReceipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.Equal(t, "run-9", receipt.RunID)
	assert.Equal(t, 1, receipt.Requested)
}

func TestSortingHandler_SortAsync_BusDisabled(t *testing.T) {
	sorting := &stubSortingService{
		enqueueFn: func(ctx context.Context, names []string, trigger string) (*sortingApp.EnqueueReceipt, error) {
			return nil, errors.New(errors.ErrCodeFeatureDisabled, "asynchronous sorting requires the event bus")
		},
	}
	h := NewSortingHandler(sorting, &stubQueryService{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/sort/async", strings.NewReader(`{"names":["toluene"]}`))
	h.SortAsync(w, r)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Run history
// ─────────────────────────────────────────────────────────────────────────────

func TestSortingHandler_ListRuns(t *testing.T) {
	query := &stubQueryService{
		listFn: func(ctx context.Context, page common.Pagination) (*queryApp.RunPage, error) {
			assert.Equal(t, 1, page.Page)
			assert.Equal(t, 20, page.PageSize)
			detail := completedRunDetail(t, "run-1", "")
			return &queryApp.RunPage{
				Runs:       []*domainSorting.SortRun{detail.Run},
				Pagination: common.Pagination{Page: 1, PageSize: 20, Total: 1},
			}, nil
		},
	}
	h := NewSortingHandler(&stubSortingService{}, query, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/sort/runs", nil)
	h.ListRuns(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "run-1")
}

func TestSortingHandler_GetRun(t *testing.T) {
	query := &stubQueryService{
		getRunFn: func(ctx context.Context, runID string) (*queryApp.RunDetail, error) {
			assert.Equal(t, "run-7", runID)
			return completedRunDetail(t, runID, "https://minio.local/reports/run-7.json"), nil
		},
	}
	h := NewSortingHandler(&stubSortingService{}, query, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/sort/runs/run-7", nil)
	h.GetRun(w, withURLParam(r, "runID", "run-7"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "run-7")
	assert.Contains(t, w.Body.String(), "https://minio.local/reports/run-7.json")
}

func TestSortingHandler_GetRun_NotFound(t *testing.T) {
	query := &stubQueryService{
		getRunFn: func(ctx context.Context, runID string) (*queryApp.RunDetail, error) {
			return nil, errors.New(errors.ErrCodeSortRunNotFound, "sort run not found")
		},
	}
	h := NewSortingHandler(&stubSortingService{}, query, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/sort/runs/ghost", nil)
	h.GetRun(w, withURLParam(r, "runID", "ghost"))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSortingHandler_LatestRun(t *testing.T) {
	query := &stubQueryService{
		latestFn: func(ctx context.Context) (*queryApp.RunDetail, error) {
			return completedRunDetail(t, "run-latest", ""), nil
		},
	}
	h := NewSortingHandler(&stubSortingService{}, query, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/sort/runs/latest", nil)
	h.LatestRun(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "run-latest")
}

// ─────────────────────────────────────────────────────────────────────────────
// Storage groups
// ─────────────────────────────────────────────────────────────────────────────

func TestSortingHandler_Groups(t *testing.T) {
	sorting := &stubSortingService{
		groups: []sortingApp.GroupOverview{
			{Name: "none", States: []string{"solid", "liquid", "gas"}},
			{Name: "compressed_gas", States: []string{"gas"}},
		},
	}
	h := NewSortingHandler(sorting, &stubQueryService{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/storage-groups", nil)
	h.Groups(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp GroupsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 2)
	assert.Equal(t, "none", resp.Groups[0].Name)
	assert.Equal(t, []string{"gas"}, resp.Groups[1].States)
}

func TestSortingHandler_GroupResidents(t *testing.T) {
	query := &stubQueryService{
		residentsFn: func(ctx context.Context, group string) ([]string, error) {
			assert.Equal(t, "flammable", group)
			return []string{"acetone", "ethanol"}, nil
		},
	}
	h := NewSortingHandler(&stubSortingService{}, query, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/storage-groups/flammable/residents", nil)
	h.GroupResidents(w, withURLParam(r, "group", "flammable"))

	require.Equal(t, http.StatusOK, w.Code)

	var resp ResidentsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "flammable", resp.Group)
	assert.Equal(t, []string{"acetone", "ethanol"}, resp.Residents)
}

func TestSortingHandler_GroupResidents_EmptyAnswerIsArray(t *testing.T) {
	query := &stubQueryService{
		residentsFn: func(ctx context.Context, group string) ([]string, error) {
			return nil, nil
		},
	}
	h := NewSortingHandler(&stubSortingService{}, query, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/storage-groups/oxidizer/residents", nil)
	h.GroupResidents(w, withURLParam(r, "group", "oxidizer"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"residents":[]`)
}

//Personal.AI order the ending
