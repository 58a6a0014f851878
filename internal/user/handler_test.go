package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/session"
)

type observed struct {
	operation string
	code      string
}

type recordingObserver struct{ calls []observed }

func (r *recordingObserver) ObserveOperation(operation, code string, _ time.Duration) {
	r.calls = append(r.calls, observed{operation, code})
}

type rawResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []OperationError           `json:"errors"`
}

func callOperation(t *testing.T, h http.Handler, sess session.Session, body string) (*httptest.ResponseRecorder, rawResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/bookshelf-api/graphql", strings.NewReader(body))
	req = req.WithContext(session.WithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp rawResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return rr, resp
}

func TestHandlerAddUserAndSaveBook(t *testing.T) {
	f := newFixture(t)
	obs := &recordingObserver{}
	h := NewHandler(f.svc, nil, obs)

	rr, resp := callOperation(t, h, session.Session{}, `{"operationName":"addUser","variables":{"username":"reader","email":"a@x.com","password":"p1"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, resp.Errors)
	require.NotContains(t, rr.Body.String(), "password")
	require.NotContains(t, rr.Body.String(), "version")

	var auth Auth
	require.NoError(t, json.Unmarshal(resp.Data["addUser"], &auth))
	require.NotEmpty(t, auth.Token)
	require.Equal(t, "a@x.com", auth.User.Email)

	sess := session.Session{UserID: auth.User.ID}
	rr, resp = callOperation(t, h, sess, `{"operationName":"saveBook","variables":{"input":{"bookId":"B1","title":"Dune","authors":["Frank Herbert"]}}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t,
		`{"_id":"user-1","username":"reader","email":"a@x.com","savedBooks":[{"bookId":"B1","title":"Dune","authors":["Frank Herbert"]}],"bookCount":1}`,
		string(resp.Data["saveBook"]))

	rr, resp = callOperation(t, h, sess, `{"operationName":"deleteBook","variables":{"bookId":"B1"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t,
		`{"_id":"user-1","username":"reader","email":"a@x.com","savedBooks":[],"bookCount":0}`,
		string(resp.Data["deleteBook"]))

	require.Equal(t, []observed{{"addUser", "OK"}, {"saveBook", "OK"}, {"deleteBook", "OK"}}, obs.calls)
}

func TestHandlerUnauthenticated(t *testing.T) {
	f := newFixture(t)
	obs := &recordingObserver{}
	h := NewHandler(f.svc, nil, obs)

	rr, resp := callOperation(t, h, session.Session{}, `{"operationName":"me"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, CodeUnauthenticated, resp.Errors[0].Extensions.Code)
	require.Equal(t, "You must be logged in!", resp.Errors[0].Message)
	require.Equal(t, []observed{{"me", "UNAUTHENTICATED"}}, obs.calls)
}

func TestHandlerLoginFailureMessages(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "p1")
	h := NewHandler(f.svc, nil, nil)

	rr, resp := callOperation(t, h, session.Session{}, `{"operationName":"login","variables":{"email":"a@x.com","password":"nope"}}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "Incorrect Password", resp.Errors[0].Message)

	rr, resp = callOperation(t, h, session.Session{}, `{"operationName":"login","variables":{"email":"z@x.com","password":"p1"}}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "User Not Found", resp.Errors[0].Message)
}

func TestHandlerStatusCodes(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "p1")
	h := NewHandler(f.svc, nil, nil)

	cases := []struct {
		name   string
		body   string
		status int
		code   Code
	}{
		{"malformed body", `{`, http.StatusBadRequest, CodeBadUserInput},
		{"unknown operation", `{"operationName":"dropTables"}`, http.StatusBadRequest, CodeBadUserInput},
		{"bad variables", `{"operationName":"login","variables":"nope"}`, http.StatusBadRequest, CodeBadUserInput},
		{"duplicate email", `{"operationName":"addUser","variables":{"username":"u","email":"a@x.com","password":"p"}}`, http.StatusConflict, CodeDuplicateEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, resp := callOperation(t, h, session.Session{}, tc.body)
			require.Equal(t, tc.status, rr.Code)
			require.Len(t, resp.Errors, 1)
			require.Equal(t, tc.code, resp.Errors[0].Extensions.Code)
		})
	}
}

func TestHandlerStoreDownIsServiceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.store.err = errTestStoreDown
	h := NewHandler(f.svc, nil, nil)

	rr, resp := callOperation(t, h, session.Session{UserID: "user-1"}, `{"operationName":"me"}`)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, CodeUnavailable, resp.Errors[0].Extensions.Code)
	require.NotContains(t, rr.Body.String(), errTestStoreDown.Error())
}

func TestHandlerBookMutationsForVanishedUser(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil, nil)
	gone := session.Session{UserID: "ghost"}

	rr, resp := callOperation(t, h, gone, `{"operationName":"saveBook","variables":{"input":{"bookId":"B1"}}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, resp.Errors)
	require.JSONEq(t, `{"data":{"saveBook":null}}`, rr.Body.String())

	rr, resp = callOperation(t, h, gone, `{"operationName":"deleteBook","variables":{"bookId":"B1"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, resp.Errors)
	require.JSONEq(t, `{"data":{"deleteBook":null}}`, rr.Body.String())
}

func TestHandlerRejectsOversizedBody(t *testing.T) {
	f := newFixture(t)
	obs := &recordingObserver{}
	h := NewHandler(f.svc, nil, obs)

	pad := strings.Repeat("x", maxRequestBody)
	rr, resp := callOperation(t, h, session.Session{}, `{"operationName":"me","variables":{"pad":"`+pad+`"}}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, CodeBadUserInput, resp.Errors[0].Extensions.Code)
	require.Equal(t, "request body too large", resp.Errors[0].Message)
	require.Equal(t, []observed{{"invalid", "BAD_USER_INPUT"}}, obs.calls)
}
