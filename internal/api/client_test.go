package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testerhome/ruby-china-ios/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "client-id", "client-secret", "ios")
}

func TestExchangeCredentials_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, tokenPath, r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "s3cret", r.PostForm.Get("password"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok1","token_type":"Bearer"}`))
	})

	token, err := c.ExchangeCredentials(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "tok1", token)
}

func TestExchangeCredentials_InvalidGrant(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"wrong password"}`))
	})

	_, err := c.ExchangeCredentials(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid_grant", authErr.Code)
	assert.Equal(t, "wrong password", authErr.Description)
}

func TestExchangeCredentials_MalformedErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("not json"))
	})

	_, err := c.ExchangeCredentials(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestExchangeCredentials_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.ExchangeCredentials(context.Background(), "alice", "s3cret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)

	var reqErr *domain.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusInternalServerError, reqErr.Status)
}

func TestExchangeCredentials_ConnectionRefused(t *testing.T) {
	c := New("http://127.0.0.1:1", "client-id", "client-secret", "ios")

	_, err := c.ExchangeCredentials(context.Background(), "alice", "s3cret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)

	var reqErr *domain.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 0, reqErr.Status)
}

func TestExchangeCredentials_MissingAccessToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := c.ExchangeCredentials(context.Background(), "alice", "s3cret")
	var reqErr *domain.RequestError
	require.ErrorAs(t, err, &reqErr)
}

func TestFetchCurrentUser_SendsBearerToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, currentUserPath, r.URL.Path)
		w.Write([]byte(`{"user":{"id":42,"login":"alice","name":"Alice"}}`))
	})
	c.SetBearerToken("tok1")

	user, err := c.FetchCurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Bearer tok1", gotAuth)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "alice", user.Login)
}

func TestFetchCurrentUser_NoUserResolved(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	c.SetBearerToken("tok1")

	user, err := c.FetchCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestFetchCurrentUser_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	c.SetBearerToken("stale")

	_, err := c.FetchCurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsUnauthorized(err))
}

func TestFetchUnreadCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, unreadCountPath, r.URL.Path)
		w.Write([]byte(`{"count":3}`))
	})
	c.SetBearerToken("tok1")

	count, err := c.FetchUnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestFetchUnreadCount_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})
	c.SetBearerToken("tok1")

	for i := 0; i < 5; i++ {
		_, err := c.FetchUnreadCount(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, 5, calls)

	_, err := c.FetchUnreadCount(context.Background())
	require.Error(t, err)
	var reqErr *domain.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 5, calls, "open breaker should not reach the server")
}

func TestRegisterDevice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, devicesPath, r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ios", r.PostForm.Get("platform"))
		assert.Equal(t, "device-token-1", r.PostForm.Get("token"))
		w.WriteHeader(http.StatusCreated)
	})
	c.SetBearerToken("tok1")

	require.NoError(t, c.RegisterDevice(context.Background(), "device-token-1"))
}

func TestUnregisterDevice(t *testing.T) {
	var gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		assert.Equal(t, devicesPath, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	c.SetBearerToken("tok1")

	require.NoError(t, c.UnregisterDevice(context.Background(), "device-token-1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestRegisterDevice_Failure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.RegisterDevice(context.Background(), "device-token-1")
	require.Error(t, err)
	assert.True(t, domain.IsUnauthorized(err))
}

func TestSetBearerToken_ClearRemovesHeader(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"count":0}`))
	})

	c.SetBearerToken("tok1")
	c.SetBearerToken("")

	_, err := c.FetchUnreadCount(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}
