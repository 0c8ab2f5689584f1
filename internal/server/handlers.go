package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/svg2avd/pkg/converter"

	errs "github.com/matzehuels/svg2avd/pkg/errors"
)

type healthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
	State   string `json:"state"`
	Pending int    `json:"pending"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sess := s.opts.Session
	resp := healthResponse{Status: "unavailable", State: converter.StateUnstarted.String()}
	if sess != nil {
		resp.Session = sess.SessionID()
		resp.State = sess.State().String()
		resp.Pending = sess.Pending()
		if sess.State() == converter.StateReady {
			resp.Status = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type errorBody struct {
	Code     errs.Code `json:"code"`
	Message  string    `json:"message"`
	Warnings []string  `json:"warnings,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "request.svg"
	} else if err := errs.ValidateFilename(name); err != nil {
		s.writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: errorBody{
				Code:    errs.ErrCodeInvalidInput,
				Message: "request body too large",
			}})
			return
		}
		s.writeError(w, r, errs.Wrap(errs.ErrCodeIO, err, "read request body"))
		return
	}
	if len(body) == 0 {
		s.writeError(w, r, errs.New(errs.ErrCodeInvalidInput, "empty request body"))
		return
	}

	ctx := r.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	res, err := s.opts.Runner.ConvertSource(ctx, name, body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set(HeaderID, res.ID)
	if res.Cached {
		w.Header().Set(HeaderCache, "hit")
	} else {
		w.Header().Set(HeaderCache, "miss")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Code)
}

// writeError maps err to a status code and JSON body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Code: errs.GetCode(err), Message: errs.UserMessage(err)}

	var warnings *errs.WarningsError
	if errors.As(err, &warnings) {
		body.Warnings = warnings.Warnings
	}

	status := statusFor(err)
	if body.Code == "" {
		body.Code = errs.ErrCodeInternal
		if status == http.StatusGatewayTimeout {
			body.Code = errs.ErrCodeTimeout
		}
	}
	if status >= 500 {
		s.logger.Error("conversion request failed", "err", err, "request_id", middleware.GetReqID(r.Context()))
	}
	writeJSON(w, status, errorResponse{Error: body})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	}

	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeIO:
		return http.StatusBadRequest
	case errs.ErrCodeConversionWarnings:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeConversionFailed:
		return http.StatusBadGateway
	case errs.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrCodeNoSession, errs.ErrCodeSessionClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
