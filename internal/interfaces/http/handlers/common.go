// Package handlers contains the HTTP handlers for the ChemStor-Intelligence
// REST API.  Handlers decode requests, delegate to application services, and
// render responses; no business rules live here.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
	"github.com/turtacn/ChemStor-Intelligence/pkg/types/common"
)

// ErrorBody is the inner error object of every non-2xx response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse is the standard error response envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError maps an application error onto the HTTP response.  The status
// and default message come from the error's typed code; server-side codes are
// masked so that internal details never reach the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	body := ErrorBody{
		Code:      string(code),
		Message:   errors.DefaultMessageForCode(code),
		RequestID: chimw.GetReqID(r.Context()),
	}
	if ae, ok := errors.AsAppError(err); ok && !errors.IsServerError(code) {
		body.Message = ae.Message
		body.Detail = ae.Detail
	}

	writeJSON(w, status, ErrorResponse{Error: body})
}

// decodeJSON decodes the request body into dst, translating decoder failures
// into bad-request errors the caller can hand to writeError.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errors.New(errors.ErrCodeBadRequest, "request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err == io.EOF {
			return errors.New(errors.ErrCodeBadRequest, "request body is required")
		}
		return errors.Wrap(err, errors.ErrCodeBadRequest, "malformed JSON body")
	}
	return nil
}

// parsePagination extracts page and page_size query parameters, applying the
// API defaults when they are absent or out of range.
func parsePagination(r *http.Request) common.Pagination {
	page := common.Pagination{Page: 1, PageSize: 20}

	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page.Page = p
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil && ps > 0 && ps <= 100 {
			page.PageSize = ps
		}
	}
	return page
}

// queryParam returns a trimmed query parameter value.
func queryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

// parsePositiveInt parses v as an integer greater than zero.
func parsePositiveInt(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

//Personal.AI order the ending
