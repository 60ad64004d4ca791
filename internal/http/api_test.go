package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contacts-manager/internal/repository/sqlite"
	"contacts-manager/internal/service"
	"contacts-manager/internal/session"
)

type testServer struct {
	router   *gin.Engine
	handler  *Handler
	sessions *session.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	userRepo := sqlite.NewUserRepository(db)
	contactRepo := sqlite.NewContactRepository(db)
	require.NoError(t, userRepo.Init(ctx))
	require.NoError(t, contactRepo.Init(ctx))

	sessions, err := session.NewStore(session.Options{Secrets: [][]byte{[]byte("test-secret")}})
	require.NoError(t, err)

	handler := NewHandler(
		service.NewAuthService(userRepo),
		service.NewContactService(contactRepo),
		sessions,
		nil, // no object storage in tests
		"",
		"avatars",
	)

	router := gin.New()
	handler.RegisterRoutes(router)
	return &testServer{router: router, handler: handler, sessions: sessions}
}

func (ts *testServer) postForm(t *testing.T, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) get(t *testing.T, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func credentialsForm(username, password, loginType string) url.Values {
	return url.Values{
		"username":  {username},
		"password":  {password},
		"loginType": {loginType},
	}
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == session.DefaultName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

// register signs up a user and returns its session cookie.
func (ts *testServer) register(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	w := ts.postForm(t, "/login", credentialsForm(username, password, "register"))
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/contacts", w.Header().Get("Location"))
	return sessionCookie(t, w)
}

func decodeErrorResponse(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestLogin_ValidationShortUsername(t *testing.T) {
	ts := newTestServer(t)

	w := ts.postForm(t, "/login", credentialsForm("abc", "secret1", "login"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeErrorResponse(t, w)
	assert.NotEmpty(t, resp.FieldErrors["username"])
	assert.Empty(t, resp.FieldErrors["password"])
}

func TestLogin_ValidationLengthSixPasses(t *testing.T) {
	ts := newTestServer(t)

	// "abcdef" is exactly six characters and passes length validation; the
	// request fails further on as unknown credentials, not as a field error.
	w := ts.postForm(t, "/login", credentialsForm("abcdef", "secret1", "login"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeErrorResponse(t, w)
	assert.Empty(t, resp.FieldErrors["username"])
	assert.Contains(t, resp.FormErrors, "Incorrect username or password")
}

func TestLogin_ValidationUnknownField(t *testing.T) {
	ts := newTestServer(t)

	form := credentialsForm("alice6", "secret1", "login")
	form.Set("isAdmin", "true")

	w := ts.postForm(t, "/login", form)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeErrorResponse(t, w)
	assert.Contains(t, resp.FormErrors, "unexpected field: isAdmin")
}

func TestLogin_ValidationBadLoginType(t *testing.T) {
	ts := newTestServer(t)

	w := ts.postForm(t, "/login", credentialsForm("alice6", "secret1", "reset"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeErrorResponse(t, w)
	assert.Contains(t, resp.FormErrors, "login type not allowed")
}

func TestLogin_RegisterThenLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice6", "secret1")

	w := ts.postForm(t, "/login", credentialsForm("alice6", "secret1", "login"))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/contacts", w.Header().Get("Location"))

	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.InDelta(t, 24*60*60, cookie.MaxAge, 2)
}

func TestLogin_RegisterDuplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice6", "secret1")

	w := ts.postForm(t, "/login", credentialsForm("alice6", "anything", "register"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeErrorResponse(t, w)
	assert.Contains(t, resp.FormErrors, "Could not register user, contact the administrator")
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice6", "secret1")

	w := ts.postForm(t, "/login", credentialsForm("alice6", "wrongpw", "login"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeErrorResponse(t, w)
	assert.Contains(t, resp.FormErrors, "Incorrect username or password")
}

func TestContacts_RequiresSession(t *testing.T) {
	ts := newTestServer(t)

	w := ts.get(t, "/contacts")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestContacts_TamperedCookieRedirects(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register(t, "alice6", "secret1")

	raw := []byte(cookie.Value)
	raw[len(raw)-1] ^= 0x01
	tampered := &http.Cookie{Name: cookie.Name, Value: string(raw)}

	w := ts.get(t, "/contacts", tampered)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRequireUser_ExposesUserID(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register(t, "alice6", "secret1")

	wantID, ok := ts.sessions.Decode(cookie.Value).Get("userId")
	require.True(t, ok)
	require.NotEmpty(t, wantID)

	// probe route behind the same middleware
	ts.router.GET("/whoami", ts.handler.RequireUser(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c))
	})

	w := ts.get(t, "/whoami", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, wantID, w.Body.String())
}

func TestContacts_SessionRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register(t, "alice6", "secret1")

	w := ts.get(t, "/contacts", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogout_InvalidatesSession(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice6", "secret1")

	w := ts.postForm(t, "/logout", url.Values{})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	expired := sessionCookie(t, w)
	assert.Equal(t, -1, expired.MaxAge)
	assert.True(t, expired.Expires.Before(time.Now()))

	// the overwrite cookie decodes to an empty session
	_, ok := ts.sessions.Decode(expired.Value).Get("userId")
	assert.False(t, ok)
}

func TestContacts_CRUDFlow(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register(t, "alice6", "secret1")

	// create an empty contact; handler redirects to its edit page
	w := ts.postForm(t, "/contacts", url.Values{}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/contacts/"))
	require.True(t, strings.HasSuffix(location, "/edit"))
	id := strings.TrimSuffix(strings.TrimPrefix(location, "/contacts/"), "/edit")

	// update it
	w = ts.postForm(t, "/contacts/"+id+"/edit", url.Values{
		"first":   {"Ada"},
		"last":    {"Lovelace"},
		"twitter": {"@ada"},
		"notes":   {"mathematician"},
	}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/contacts/"+id, w.Header().Get("Location"))

	// read it back
	w = ts.get(t, "/contacts/"+id, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var contact ContactResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contact))
	assert.Equal(t, "Ada", contact.First)
	assert.Equal(t, "Lovelace", contact.Last)
	assert.Equal(t, "@ada", contact.Twitter)

	// search finds it, a non-matching query does not
	w = ts.get(t, "/contacts?q=love", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var matched []ContactResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matched))
	require.Len(t, matched, 1)

	w = ts.get(t, "/contacts?q=nomatch", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var unmatched []ContactResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &unmatched))
	assert.Empty(t, unmatched)

	// favorite it
	w = ts.postForm(t, "/contacts/"+id+"/favorite", url.Values{"favorite": {"true"}}, cookie)
	require.Equal(t, http.StatusFound, w.Code)

	w = ts.get(t, "/contacts/"+id, cookie)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contact))
	assert.True(t, contact.Favorite)

	// destroy it
	w = ts.postForm(t, "/contacts/"+id+"/destroy", url.Values{}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/contacts", w.Header().Get("Location"))

	w = ts.get(t, "/contacts/"+id, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContacts_GetMissing(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register(t, "alice6", "secret1")

	w := ts.get(t, "/contacts/no-such-id", cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAvatar_StorageNotConfigured(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.register(t, "alice6", "secret1")

	w := ts.postForm(t, "/contacts", url.Values{}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	id := strings.TrimSuffix(strings.TrimPrefix(w.Header().Get("Location"), "/contacts/"), "/edit")

	w = ts.get(t, "/contacts/"+id+"/avatar", cookie)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth_Unauthenticated(t *testing.T) {
	ts := newTestServer(t)

	w := ts.get(t, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidateLoginForm(t *testing.T) {
	t.Parallel()

	form, errResp := validateLoginForm(url.Values{
		"username":  {"abcdef"},
		"password":  {"secret1"},
		"loginType": {"login"},
	})
	assert.Nil(t, errResp)
	assert.Equal(t, "abcdef", form.Username)

	_, errResp = validateLoginForm(url.Values{
		"username":  {"abc"},
		"password":  {"12345"},
		"loginType": {"nope"},
	})
	require.NotNil(t, errResp)
	assert.Len(t, errResp.FieldErrors["username"], 1)
	assert.Len(t, errResp.FieldErrors["password"], 1)
	assert.Contains(t, errResp.FormErrors, "login type not allowed")
}
