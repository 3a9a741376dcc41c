package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/geocoder89/taskmanager/internal/accounts"
	"github.com/geocoder89/taskmanager/internal/domain/user"
	"github.com/geocoder89/taskmanager/internal/http/handlers"
	"github.com/geocoder89/taskmanager/internal/security"
	"github.com/gin-gonic/gin"
)

type fakeAccounts struct {
	createFn func(ctx context.Context, in accounts.CreateUserInput) (string, error)
	findFn   func(ctx context.Context, username string) (user.User, bool, error)
}

func (f *fakeAccounts) CreateUser(ctx context.Context, in accounts.CreateUserInput) (string, error) {
	if f.createFn != nil {
		return f.createFn(ctx, in)
	}
	return "new-id", nil
}

func (f *fakeAccounts) FindByUsername(ctx context.Context, username string) (user.User, bool, error) {
	if f.findFn != nil {
		return f.findFn(ctx, username)
	}
	return user.User{}, false, nil
}

func (f *fakeAccounts) VerifyPassword(storedHash, candidate string) bool {
	return security.VerifyPassword(storedHash, candidate)
}

type fakeIssuer struct {
	issueFn func(userID, username string, role user.Role) (string, error)
}

func (f *fakeIssuer) Issue(userID, username string, role user.Role) (string, error) {
	if f.issueFn != nil {
		return f.issueFn(userID, username, role)
	}
	return "signed." + userID, nil
}

func newAuthRouter(store handlers.AccountStore, issuer handlers.TokenIssuer) *gin.Engine {
	h := handlers.NewAuthHandler(store, issuer, nil)

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		createErr  error
		wantStatus int
		wantMsg    string
	}{
		{name: "created", body: gin.H{"username": "u1", "email": "u1@x.com", "password": "pw1"}, wantStatus: http.StatusCreated},
		{name: "missing password", body: gin.H{"username": "u1", "email": "u1@x.com"}, wantStatus: http.StatusBadRequest, wantMsg: "Missing required fields"},
		{name: "empty body", body: gin.H{}, wantStatus: http.StatusBadRequest, wantMsg: "Missing required fields"},
		{name: "blank username", body: gin.H{"username": "  ", "email": "u1@x.com", "password": "pw1"}, createErr: user.ErrValidation, wantStatus: http.StatusBadRequest, wantMsg: "Missing required fields"},
		{name: "bad role", body: gin.H{"username": "u1", "email": "u1@x.com", "password": "pw1", "role": "root"}, wantStatus: http.StatusBadRequest, wantMsg: "Invalid role"},
		{name: "username taken", body: gin.H{"username": "u1", "email": "u1@x.com", "password": "pw1"}, createErr: user.ErrUsernameTaken, wantStatus: http.StatusConflict, wantMsg: "Username already exists"},
		{name: "email taken", body: gin.H{"username": "u2", "email": "u1@x.com", "password": "pw1"}, createErr: user.ErrEmailTaken, wantStatus: http.StatusConflict, wantMsg: "Email already exists"},
		{name: "store down", body: gin.H{"username": "u1", "email": "u1@x.com", "password": "pw1"}, createErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantMsg: "Could not create user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeAccounts{createFn: func(_ context.Context, in accounts.CreateUserInput) (string, error) {
				if tt.createErr != nil {
					return "", tt.createErr
				}
				if in.Role != user.RoleUser {
					t.Fatalf("expected default role user, got %q", in.Role)
				}
				return "new-id", nil
			}}

			w := doJSON(t, newAuthRouter(store, &fakeIssuer{}), http.MethodPost, "/auth/register", tt.body)

			if tt.wantStatus == http.StatusCreated {
				if w.Code != http.StatusCreated {
					t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
				}
				resp := decode[map[string]string](t, w)
				if resp["user_id"] != "new-id" || resp["message"] != "User created successfully" {
					t.Fatalf("unexpected body %v", resp)
				}
				return
			}

			code := map[int]string{
				http.StatusBadRequest:          "invalid_request",
				http.StatusConflict:            "conflict",
				http.StatusInternalServerError: "internal_error",
			}[tt.wantStatus]
			expectError(t, w, tt.wantStatus, code, tt.wantMsg)
		})
	}
}

func TestRegister_PassesAdminRole(t *testing.T) {
	var got user.Role
	store := &fakeAccounts{createFn: func(_ context.Context, in accounts.CreateUserInput) (string, error) {
		got = in.Role
		return "id", nil
	}}

	w := doJSON(t, newAuthRouter(store, &fakeIssuer{}), http.MethodPost, "/auth/register",
		gin.H{"username": "root", "email": "r@x.com", "password": "pw", "role": "admin"})

	if w.Code != http.StatusCreated || got != user.RoleAdmin {
		t.Fatalf("expected admin registration, got status %d role %q", w.Code, got)
	}
}

func TestLogin(t *testing.T) {
	hash, err := security.HashPassword("pw1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u1 := user.User{ID: "id-1", Username: "u1", Email: "u1@x.com", PasswordHash: hash, Role: user.RoleUser}

	store := &fakeAccounts{findFn: func(_ context.Context, username string) (user.User, bool, error) {
		switch username {
		case "u1":
			return u1, true, nil
		case "broken":
			return user.User{}, false, errors.New("db down")
		}
		return user.User{}, false, nil
	}}
	r := newAuthRouter(store, &fakeIssuer{})

	t.Run("success", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{"username": "u1", "password": "pw1"})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
		}

		resp := decode[struct {
			Message string          `json:"message"`
			Token   string          `json:"token"`
			User    user.PublicView `json:"user"`
		}](t, w)

		if resp.Message != "Login successful" || resp.Token != "signed.id-1" || resp.User.Username != "u1" {
			t.Fatalf("unexpected body %+v", resp)
		}
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		wrongPw := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{"username": "u1", "password": "nope"})
		unknown := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{"username": "ghost", "password": "pw1"})

		expectError(t, wrongPw, http.StatusUnauthorized, "unauthorized", "Invalid credentials")
		expectError(t, unknown, http.StatusUnauthorized, "unauthorized", "Invalid credentials")
	})

	t.Run("missing credentials", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{"username": "u1"})
		expectError(t, w, http.StatusBadRequest, "invalid_request", "Missing credentials")
	})

	t.Run("store failure", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{"username": "broken", "password": "x"})
		expectError(t, w, http.StatusInternalServerError, "internal_error", "Could not log in")
	})

	t.Run("issuer failure", func(t *testing.T) {
		failing := newAuthRouter(store, &fakeIssuer{issueFn: func(string, string, user.Role) (string, error) {
			return "", errors.New("sign failed")
		}})
		w := doJSON(t, failing, http.MethodPost, "/auth/login", gin.H{"username": "u1", "password": "pw1"})
		expectError(t, w, http.StatusInternalServerError, "internal_error", "Could not generate access token")
	})
}

func TestMe(t *testing.T) {
	h := handlers.NewAuthHandler(&fakeAccounts{}, &fakeIssuer{}, nil)

	r := gin.New()
	r.GET("/me", asUser(user.User{ID: "id-1", Username: "u1", Email: "u1@x.com", Role: user.RoleUser}), h.Me)
	r.GET("/anon", h.Me)

	w := doJSON(t, r, http.MethodGet, "/me", nil)
	resp := decode[struct {
		User user.PublicView `json:"user"`
	}](t, w)
	if w.Code != http.StatusOK || resp.User.ID != "id-1" {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/anon", nil)
	expectError(t, w, http.StatusUnauthorized, "unauthorized", "Token is missing")
}
