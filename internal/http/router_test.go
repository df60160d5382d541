package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cardfile/cardfile/internal/avatar"
	"github.com/cardfile/cardfile/internal/mail"
	"github.com/cardfile/cardfile/internal/service"
	"github.com/cardfile/cardfile/internal/store/drivers/sqlite"
	"github.com/cardfile/cardfile/pkg/cryptox"
	"github.com/cardfile/cardfile/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "http-test-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testEnv struct {
	server *httptest.Server
	auth   *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	issuer := jwtx.NewIssuer(codec, "cardfile", 0, 0, 0)

	dispatcher := mail.NewDispatcher(mail.LogSender{})
	dispatcher.Start()
	t.Cleanup(dispatcher.Stop)

	avatarDir := t.TempDir()
	avatars, err := avatar.NewDiskStore(avatarDir, "/avatars")
	require.NoError(t, err)

	auth := &service.AuthService{
		Store:   st,
		Codec:   codec,
		Tokens:  issuer,
		Mail:    dispatcher,
		BaseURL: "http://cardfile.test",
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(st, logger, "test")
	router.AuthService = auth
	router.UserService = &service.UserService{Store: st, Avatars: avatars}
	router.ContactService = &service.ContactService{Store: st}
	router.AvatarDir = avatarDir
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, auth: auth}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, path, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// signupAndLogin walks an account through signup, confirmation, and login.
func (e *testEnv) signupAndLogin(t *testing.T, email string) tokenResponse {
	t.Helper()

	resp := e.postJSON(t, "/api/authentication/signup", signupRequest{
		Username: "alice", Email: email, Password: "hunter2secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	token, err := e.auth.Tokens.EmailConfirmation(email)
	require.NoError(t, err)
	resp = e.get(t, "/api/authentication/confirmed_email/"+token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	form := url.Values{"username": {email}, "password": {"hunter2secret"}}
	loginResp, err := http.PostForm(e.server.URL+"/api/authentication/login", form)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	return decodeBody[tokenResponse](t, loginResp)
}

func TestSignupEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	t.Run("creates an account", func(t *testing.T) {
		resp := env.postJSON(t, "/api/authentication/signup", signupRequest{
			Username: "alice", Email: "alice@example.com", Password: "hunter2secret",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		body := decodeBody[signupResponse](t, resp)
		require.Equal(t, "alice", body.Username)
		require.Equal(t, "alice@example.com", body.Email)
		require.Contains(t, body.Avatar, "gravatar.com")
		require.Contains(t, body.Detail, "successfully created")
	})

	t.Run("conflicts on duplicate", func(t *testing.T) {
		resp := env.postJSON(t, "/api/authentication/signup", signupRequest{
			Username: "alice2", Email: "alice@example.com", Password: "hunter2secret",
		})
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("validates the payload", func(t *testing.T) {
		for name, req := range map[string]signupRequest{
			"short password": {Username: "bob", Email: "bob@example.com", Password: "short"},
			"huge password":  {Username: "bob", Email: "bob@example.com", Password: strings.Repeat("p", 1<<20)},
			"bad email":      {Username: "bob", Email: "not-an-email", Password: "hunter2secret"},
			"long email":     {Username: "bob", Email: strings.Repeat("b", 250) + "@example.com", Password: "hunter2secret"},
			"no username":    {Email: "bob@example.com", Password: "hunter2secret"},
			"long username":  {Username: strings.Repeat("b", 65), Email: "bob@example.com", Password: "hunter2secret"},
		} {
			resp := env.postJSON(t, "/api/authentication/signup", req)
			require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, name)
			resp.Body.Close()
		}
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	pair := env.signupAndLogin(t, "alice@example.com")
	require.Equal(t, "bearer", pair.TokenType)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	t.Run("wrong password", func(t *testing.T) {
		form := url.Values{"username": {"alice@example.com"}, "password": {"wrong"}}
		resp, err := http.PostForm(env.server.URL+"/api/authentication/login", form)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
	})

	t.Run("unconfirmed account", func(t *testing.T) {
		resp := env.postJSON(t, "/api/authentication/signup", signupRequest{
			Username: "carol", Email: "carol@example.com", Password: "hunter2secret",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()

		form := url.Values{"username": {"carol@example.com"}, "password": {"hunter2secret"}}
		loginResp, err := http.PostForm(env.server.URL+"/api/authentication/login", form)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, loginResp.StatusCode)
		body := decodeBody[map[string]string](t, loginResp)
		require.Equal(t, "Email not confirmed", body["detail"])
	})
}

func TestRefreshEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	pair := env.signupAndLogin(t, "alice@example.com")

	resp := env.get(t, "/api/authentication/refresh_token", pair.RefreshToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	next := decodeBody[tokenResponse](t, resp)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The rotated-out token is dead.
	resp = env.get(t, "/api/authentication/refresh_token", pair.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// An access token is not accepted here.
	resp = env.get(t, "/api/authentication/refresh_token", next.AccessToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Missing header.
	resp = env.get(t, "/api/authentication/refresh_token", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestConfirmAndRequestEmailEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/authentication/signup", signupRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	t.Run("bad token is a verification error", func(t *testing.T) {
		resp := env.get(t, "/api/authentication/confirmed_email/garbage", "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeBody[map[string]string](t, resp)
		require.Equal(t, "Verification error", body["detail"])
	})

	t.Run("confirm then re-confirm", func(t *testing.T) {
		token, err := env.auth.Tokens.EmailConfirmation("alice@example.com")
		require.NoError(t, err)

		resp := env.get(t, "/api/authentication/confirmed_email/"+token, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[messageResponse](t, resp)
		require.Equal(t, "Email confirmed", body.Message)

		resp = env.get(t, "/api/authentication/confirmed_email/"+token, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body = decodeBody[messageResponse](t, resp)
		require.Equal(t, "Your email is already confirmed", body.Message)
	})

	t.Run("request_email does not reveal unknown addresses", func(t *testing.T) {
		resp := env.postJSON(t, "/api/authentication/request_email", requestEmailRequest{Email: "ghost@example.com"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[messageResponse](t, resp)
		require.Equal(t, "Check your email for confirmation", body.Message)
	})
}

func TestUsersEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	pair := env.signupAndLogin(t, "alice@example.com")

	t.Run("me requires a token", func(t *testing.T) {
		resp := env.get(t, "/api/users/me", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		resp.Body.Close()
	})

	t.Run("me returns the profile", func(t *testing.T) {
		resp := env.get(t, "/api/users/me", pair.AccessToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[userResponse](t, resp)
		require.Equal(t, "alice@example.com", body.Email)
		require.NotEmpty(t, body.ID)
	})

	t.Run("avatar upload updates and serves the image", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "me.png")
		require.NoError(t, err)
		_, err = fw.Write([]byte("png-bytes"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPatch, env.server.URL+"/api/users/avatar", &buf)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[userResponse](t, resp)
		require.True(t, strings.HasPrefix(body.Avatar, "/avatars/"))

		img := env.get(t, body.Avatar, "")
		require.Equal(t, http.StatusOK, img.StatusCode)
		data, err := io.ReadAll(img.Body)
		img.Body.Close()
		require.NoError(t, err)
		require.Equal(t, "png-bytes", string(data))
	})
}

func TestContactsEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	pair := env.signupAndLogin(t, "alice@example.com")

	authedJSON := func(t *testing.T, method, path string, body any) *http.Response {
		t.Helper()
		var rd io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			require.NoError(t, err)
			rd = bytes.NewReader(raw)
		}
		req, err := http.NewRequest(method, env.server.URL+path, rd)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	newContact := contactRequest{
		FirstName:      "Bob",
		LastName:       "Builder",
		AdditionalData: "met at conference",
		PhoneNumbers:   []phoneNumberPayload{{PhoneNumber: "+61400000001"}},
		Emails:         []emailPayload{{Email: "bob@example.com"}},
	}
	require.NoError(t, newContact.DateOfBirthday.UnmarshalJSON([]byte(`"1985-03-02"`)))

	t.Run("requires authentication", func(t *testing.T) {
		resp := env.get(t, "/api/contacts", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	var contactID string

	t.Run("create", func(t *testing.T) {
		resp := authedJSON(t, http.MethodPost, "/api/contacts", newContact)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		body := decodeBody[contactResponse](t, resp)
		require.NotEmpty(t, body.ID)
		require.Equal(t, "Bob", body.FirstName)
		require.Len(t, body.PhoneNumbers, 1)
		require.Len(t, body.Emails, 1)
		contactID = body.ID
	})

	t.Run("list and get", func(t *testing.T) {
		resp := authedJSON(t, http.MethodGet, "/api/contacts?skip=0&limit=10", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		list := decodeBody[[]contactResponse](t, resp)
		require.Len(t, list, 1)

		resp = authedJSON(t, http.MethodGet, "/api/contacts/"+contactID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[contactResponse](t, resp)
		require.Equal(t, contactID, body.ID)
	})

	t.Run("update", func(t *testing.T) {
		updated := newContact
		updated.FirstName = "Robert"
		updated.PhoneNumbers = nil

		resp := authedJSON(t, http.MethodPut, "/api/contacts/"+contactID, updated)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[contactResponse](t, resp)
		require.Equal(t, "Robert", body.FirstName)
		require.Empty(t, body.PhoneNumbers)
	})

	t.Run("delete", func(t *testing.T) {
		resp := authedJSON(t, http.MethodDelete, "/api/contacts/"+contactID, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody[map[string]string](t, resp)
		require.Equal(t, "Contact successfully deleted", body["detail"])

		resp = authedJSON(t, http.MethodGet, "/api/contacts/"+contactID, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.get(t, "/livez", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	live := decodeBody[healthResponse](t, resp)
	require.Equal(t, "ok", live.Status)

	resp = env.get(t, "/readyz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ready := decodeBody[healthResponse](t, resp)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
}
