package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-test/deep"
	"github.com/pkg/errors"
)

type captured struct {
	method string
	path   string
	auth   string
	body   map[string]interface{}
}

func newServer(t *testing.T, code int, response string, c *captured) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.method = r.Method
		c.path = r.URL.Path
		c.auth = r.Header.Get("Authorization")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&c.body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(response))
	}))
}

func TestSendMail(t *testing.T) {
	c := &captured{}
	srv := newServer(t, http.StatusOK, `{"success":true,"reqID":"r-1","message":"queued 2 of 2 recipient(s)"}`, c)
	defer srv.Close()

	res, err := New("key-1", srv.URL+"/").SendMail(context.Background(), Mail{
		From:    "Relay <relay@example.com>",
		To:      []string{"a@example.com, b@example.com"},
		Subject: "Hi",
		Text:    "hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	exp := &SendResult{Success: true, ReqId: "r-1", Message: "queued 2 of 2 recipient(s)"}
	if diff := deep.Equal(res, exp); diff != nil {
		t.Error(diff)
	}

	if c.method != http.MethodPost || c.path != "/requests" {
		t.Errorf("unexpected request %s %s", c.method, c.path)
	}

	if c.auth != "Bearer key-1" {
		t.Errorf("unexpected authorization header %q", c.auth)
	}

	if diff := deep.Equal(c.body["to"], []interface{}{"a@example.com", "b@example.com"}); diff != nil {
		t.Error(diff)
	}
}

func TestSendMailValidation(t *testing.T) {
	tests := []struct {
		name string
		mail Mail
	}{
		{"no body", Mail{From: "a@example.com", To: []string{"b@example.com"}}},
		{"text and html", Mail{From: "a@example.com", To: []string{"b@example.com"}, Text: "x", Html: "y"}},
		{"invalid from", Mail{From: "nope", To: []string{"b@example.com"}, Text: "x"}},
		{"no recipients", Mail{From: "a@example.com", Text: "x"}},
		{"invalid recipient", Mail{From: "a@example.com", To: []string{"b@example.com,bad"}, Text: "x"}},
		{"invalid reply to", Mail{From: "a@example.com", To: []string{"b@example.com"}, ReplyTo: []string{"bad"}, Text: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &captured{}
			srv := newServer(t, http.StatusOK, `{}`, c)
			defer srv.Close()

			_, err := New("key-1", srv.URL).SendMail(context.Background(), tt.mail)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected a validation error, got %v", err)
			}

			if c.method != "" {
				t.Error("expected no request to be sent")
			}
		})
	}
}

func TestSendMailAPIError(t *testing.T) {
	srv := newServer(t, http.StatusForbidden, `{"success":false,"message":"this API key is banned: spam"}`, &captured{})
	defer srv.Close()

	_, err := New("key-1", srv.URL).SendMail(context.Background(), Mail{From: "a@example.com", To: []string{"b@example.com"}, Subject: "Hi", Text: "x"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected an *APIError, got %v", err)
	}

	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", apiErr.StatusCode)
	}
}

func TestGetMailStatus(t *testing.T) {
	c := &captured{}
	srv := newServer(t, http.StatusOK, `{"emails":[{"id":7,"fulfilled":"2024-03-15T10:00:00Z","lasterror":null},{"id":8,"fulfilled":null,"lasterror":"421 try later"}]}`, c)
	defer srv.Close()

	res, err := New("key-1", srv.URL).GetMailStatus(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if c.method != http.MethodGet || c.path != "/requests/r-1" {
		t.Errorf("unexpected request %s %s", c.method, c.path)
	}

	if len(res.Emails) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(res.Emails))
	}

	if res.Emails[0].Fulfilled == nil || res.Emails[0].LastError != nil {
		t.Errorf("expected the first mail to be delivered: %+v", res.Emails[0])
	}

	if res.Emails[1].Fulfilled != nil || *res.Emails[1].LastError != "421 try later" {
		t.Errorf("expected the second mail to be pending with an error: %+v", res.Emails[1])
	}
}

func TestGetMailStatusNotFound(t *testing.T) {
	srv := newServer(t, http.StatusNotFound, `{"success":false,"message":"no mail was found for this request id"}`, &captured{})
	defer srv.Close()

	_, err := New("key-1", srv.URL).GetMailStatus(context.Background(), "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected a 404 *APIError, got %v", err)
	}
}
