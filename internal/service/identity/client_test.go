package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dine_chat/internal/model"
	"dine_chat/pkg/errorx"
)

func newMeServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/me" {
			http.NotFound(w, r)
			return
		}
		if ck, err := r.Cookie("userInfo"); err != nil || ck.Value == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Not authenticated"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

var loggedIn = []*http.Cookie{{Name: "userInfo", Value: "x"}}

func TestResolveAdminByEmail(t *testing.T) {
	srv := newMeServer(t, http.StatusOK, `{"userInfo":{"username":"boss","email":"boss@x.com","isAdmin":true}}`)
	c := NewClient(srv.URL+"/", time.Second)

	id, err := c.Resolve(context.Background(), loggedIn)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != (model.Identity{ID: "boss@x.com", Role: model.RoleAdmin}) {
		t.Fatalf("id=%+v", id)
	}
}

func TestResolveFallsBackToUsername(t *testing.T) {
	srv := newMeServer(t, http.StatusOK, `{"userInfo":{"username":"alice","email":null,"isAdmin":false}}`)
	id, err := NewClient(srv.URL, time.Second).Resolve(context.Background(), loggedIn)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.ID != "alice" || id.Role != model.RoleCustomer {
		t.Fatalf("id=%+v", id)
	}
}

func TestResolveErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		cookies []*http.Cookie
		code    int
	}{
		{"no cookie", http.StatusOK, `{}`, nil, errorx.CodeUnauthorized},
		{"null userInfo", http.StatusOK, `{"userInfo":null}`, loggedIn, errorx.CodeUnauthorized},
		{"bad cookie", http.StatusBadRequest, `{"error":"Invalid userInfo cookie"}`, loggedIn, errorx.CodeUpstream},
		{"message body", http.StatusInternalServerError, `{"message":"boom"}`, loggedIn, errorx.CodeUpstream},
		{"empty identity", http.StatusOK, `{"userInfo":{"username":" "}}`, loggedIn, errorx.CodeNoIdentity},
		{"garbage", http.StatusOK, `<html>`, loggedIn, errorx.CodeUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newMeServer(t, tc.status, tc.body)
			_, err := NewClient(srv.URL, time.Second).Resolve(context.Background(), tc.cookies)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := errorx.GetCode(err); got != tc.code {
				t.Fatalf("code=%d want %d (%v)", got, tc.code, err)
			}
		})
	}
}

func TestUpstreamErrorCarriesMessage(t *testing.T) {
	err := upstreamError(http.StatusBadRequest, []byte(`{"error":"Invalid userInfo cookie"}`))
	var ce *errorx.CodeError
	if !errors.As(err, &ce) || ce.Msg != "/api/me 400: Invalid userInfo cookie" {
		t.Fatalf("err=%v", err)
	}
	err = upstreamError(http.StatusBadGateway, nil)
	if !errors.As(err, &ce) || ce.Msg != "/api/me 502: Bad Gateway" {
		t.Fatalf("err=%v", err)
	}
}
