package session

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// TokenVerifier is the part of TokenService the resolver needs.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// RejectionRecorder counts rejected tokens by reason ("expired" or "invalid").
type RejectionRecorder interface {
	RecordTokenRejected(reason string)
}

// Resolver derives the request Session from the Authorization header.
// It never rejects a request; operations decide whether anonymity is allowed.
type Resolver struct {
	verifier TokenVerifier
	recorder RejectionRecorder
	logger   *zap.SugaredLogger
}

func NewResolver(verifier TokenVerifier, recorder RejectionRecorder, logger *zap.SugaredLogger) *Resolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Resolver{verifier: verifier, recorder: recorder, logger: logger}
}

// Resolve returns the session for r, anonymous when the token is absent or rejected.
func (res *Resolver) Resolve(r *http.Request) Session {
	token := bearerToken(r)
	if token == "" {
		return Session{}
	}
	claims, err := res.verifier.Verify(token)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, ErrExpiredToken) {
			reason = "expired"
		}
		res.logger.Debugw("session token rejected", "reason", reason, "err", err)
		if res.recorder != nil {
			res.recorder.RecordTokenRejected(reason)
		}
		return Session{}
	}
	return FromClaims(claims)
}

// Middleware stores the resolved Session in the request context.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithSession(r.Context(), res.Resolve(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) < len("bearer ") || !strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[len("bearer "):])
}
