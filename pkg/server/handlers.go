package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	oberrors "github.com/vango-dev/observe/internal/errors"
	"github.com/vango-dev/observe/pkg/observable"
)

// maxBodyBytes bounds PUT request bodies.
const maxBodyBytes = 1 << 20

// ValueView is the JSON representation of a bound value.
type ValueView struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Type     string `json:"type"`
	Value    any    `json:"value"`
	Stale    bool   `json:"stale"`
	Disposed bool   `json:"disposed,omitempty"`
}

// viewOf must run on the realm.
func viewOf(b Binding) ValueView {
	o := b.Observable()
	return ValueView{
		Name:     b.Name(),
		Kind:     string(o.Kind()),
		Type:     b.Type().String(),
		Value:    b.Get(),
		Stale:    o.IsStale(),
		Disposed: o.IsDisposed(),
	}
}

type putRequest struct {
	Value json.RawMessage `json:"value"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names := s.registry.Names()
	views := make([]ValueView, 0, len(names))
	err := s.registry.Realm().Sync(r.Context(), func() {
		for _, name := range names {
			if b, ok := s.registry.Lookup(name); ok {
				views = append(views, viewOf(b))
			}
		}
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	b, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var view ValueView
	if err := s.registry.Realm().Sync(r.Context(), func() { view = viewOf(b) }); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	b, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.writeError(w, oberrors.New(oberrors.CodeWriteBudget))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req putRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Value == nil {
		s.writeError(w, oberrors.New(oberrors.CodeTypeMismatch).
			WithDetail(`request body must be {"value": ...}`).
			Wrap(observable.ErrTypeMismatch))
		return
	}

	var (
		view   ValueView
		setErr error
	)
	err = s.registry.Realm().Sync(r.Context(), func() {
		setErr = b.Decode(req.Value)
		view = viewOf(b)
	})
	if err == nil {
		err = setErr
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (Binding, bool) {
	name := chi.URLParam(r, "name")
	b, ok := s.registry.Lookup(name)
	if !ok {
		s.writeError(w, oberrors.New(oberrors.CodeUnknownValue).WithDetail(name))
	}
	return b, ok
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, observable.ErrTypeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, observable.ErrUnsupportedOperation):
		return http.StatusMethodNotAllowed
	case errors.Is(err, observable.ErrChangeVetoed), errors.Is(err, observable.ErrBinding):
		return http.StatusConflict
	case errors.Is(err, observable.ErrDisposed):
		return http.StatusGone
	case errors.Is(err, observable.ErrRealmClosed):
		return http.StatusServiceUnavailable
	}
	var obErr *oberrors.Error
	if errors.As(err, &obErr) {
		switch obErr.Code {
		case oberrors.CodeUnknownValue:
			return http.StatusNotFound
		case oberrors.CodeWriteBudget:
			return http.StatusTooManyRequests
		}
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	body := errorBody{Message: err.Error()}
	var obErr *oberrors.Error
	if errors.As(err, &obErr) {
		body = errorBody{Code: obErr.Code, Message: obErr.Message, Detail: obErr.Detail}
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: body})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", "error", err)
	}
}
