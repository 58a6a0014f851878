package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/user/entity"
)

// OperationObserver records the outcome of one operation call.
type OperationObserver interface {
	ObserveOperation(operation, code string, d time.Duration)
}

// Handler exposes the user operations over HTTP as named query/mutation fields.
type Handler struct {
	svc      *UserService
	logger   *zap.SugaredLogger
	observer OperationObserver
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger, observer OperationObserver) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, logger: logger, observer: observer}
}

// OperationRequest is the request body: the operation name and its arguments.
type OperationRequest struct {
	OperationName string          `json:"operationName"`
	Variables     json.RawMessage `json:"variables"`
}

// OperationResponse mirrors the usual GraphQL envelope.
type OperationResponse struct {
	Data   map[string]any   `json:"data"`
	Errors []OperationError `json:"errors,omitempty"`
}

type OperationError struct {
	Message    string          `json:"message"`
	Extensions ErrorExtensions `json:"extensions"`
}

type ErrorExtensions struct {
	Code Code `json:"code"`
}

// LoginRequest login arguments.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SaveBookRequest saveBook arguments.
type SaveBookRequest struct {
	Input entity.SavedBook `json:"input"`
}

// DeleteBookRequest deleteBook arguments.
type DeleteBookRequest struct {
	BookID string `json:"bookId"`
}

// maxRequestBody caps the operation payload at 1 MiB.
const maxRequestBody = 1 << 20

type operation func(ctx context.Context, sess session.Session, vars json.RawMessage) (any, error)

func (h *Handler) operations() map[string]operation {
	return map[string]operation{
		"me": func(ctx context.Context, sess session.Session, _ json.RawMessage) (any, error) {
			return h.svc.Me(ctx, sess)
		},
		"addUser": func(ctx context.Context, _ session.Session, vars json.RawMessage) (any, error) {
			var in SignupInput
			if err := decodeVariables(vars, &in); err != nil {
				return nil, err
			}
			return h.svc.AddUser(ctx, in)
		},
		"login": func(ctx context.Context, _ session.Session, vars json.RawMessage) (any, error) {
			var in LoginRequest
			if err := decodeVariables(vars, &in); err != nil {
				return nil, err
			}
			return h.svc.Login(ctx, in.Email, in.Password)
		},
		"saveBook": func(ctx context.Context, sess session.Session, vars json.RawMessage) (any, error) {
			var in SaveBookRequest
			if err := decodeVariables(vars, &in); err != nil {
				return nil, err
			}
			return h.svc.SaveBook(ctx, sess, in.Input)
		},
		"deleteBook": func(ctx context.Context, sess session.Session, vars json.RawMessage) (any, error) {
			var in DeleteBookRequest
			if err := decodeVariables(vars, &in); err != nil {
				return nil, err
			}
			return h.svc.DeleteBook(ctx, sess, in.BookID)
		},
	}
}

// ServeHTTP runs one operation with the session placed in the request context.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req OperationRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.logger.Debugw("invalid operation payload", "err", err)
		msg := "invalid payload"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "request body too large"
		}
		h.writeFailure(w, "invalid", badInput(msg), start)
		return
	}
	op, ok := h.operations()[req.OperationName]
	if !ok {
		h.writeFailure(w, "unknown", badInput("unknown operation "+req.OperationName), start)
		return
	}

	result, err := op(r.Context(), session.FromContext(r.Context()), req.Variables)
	if err != nil {
		h.writeFailure(w, req.OperationName, FailureOf(err), start)
		return
	}
	h.observe(req.OperationName, "OK", start)
	h.writeJSON(w, http.StatusOK, OperationResponse{Data: map[string]any{req.OperationName: result}})
}

func (h *Handler) writeFailure(w http.ResponseWriter, opName string, f *Failure, start time.Time) {
	if f.Code == CodeUnavailable {
		h.logger.Warnw("operation failed", "operation", opName, "err", f)
	} else {
		h.logger.Debugw("operation rejected", "operation", opName, "code", f.Code, "err", f)
	}
	h.observe(opName, string(f.Code), start)
	h.writeJSON(w, statusFor(f.Code), OperationResponse{
		Errors: []OperationError{{Message: f.Message, Extensions: ErrorExtensions{Code: f.Code}}},
	})
}

func (h *Handler) observe(opName, code string, start time.Time) {
	if h.observer != nil {
		h.observer.ObserveOperation(opName, code, time.Since(start))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeDuplicateEmail:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadUserInput:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

func decodeVariables(vars json.RawMessage, dst any) error {
	if len(vars) == 0 {
		return nil
	}
	if err := json.Unmarshal(vars, dst); err != nil {
		return badInput("invalid variables")
	}
	return nil
}
