package importer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientSubmit_SendsMultipartDocument(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		f, hdr, err := r.FormFile("document")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "acme.pdf" || string(data) != "%PDF-1.4 body" {
			t.Errorf("unexpected upload %s %q", hdr.Filename, data)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"overall":74.2}`)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL + "/"})
	if c.Endpoint() != srv.URL+"/upload" {
		t.Fatalf("endpoint = %s", c.Endpoint())
	}

	body, err := c.Submit(context.Background(), "acme.pdf", strings.NewReader("%PDF-1.4 body"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if string(body) != `{"overall":74.2}` {
		t.Fatalf("body = %s", body)
	}
}

func TestClientSubmit_ErrorBodyIsMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "scoring engine timeout\n")
	}))
	defer srv.Close()

	_, err := NewClient(ClientOptions{BaseURL: srv.URL}).Submit(context.Background(), "a.pdf", strings.NewReader("x"))
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if te.StatusCode != http.StatusInternalServerError || te.Error() != "scoring engine timeout" {
		t.Fatalf("unexpected transport error: %+v", te)
	}
}

func TestClientSubmit_EmptyErrorBodyFallsBackToStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(ClientOptions{BaseURL: srv.URL}).Submit(context.Background(), "a.pdf", strings.NewReader("x"))
	if err == nil || err.Error() != "Bad Gateway" {
		t.Fatalf("err = %v, want Bad Gateway", err)
	}
}

func TestClientSubmit_NetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(ClientOptions{BaseURL: url}).Submit(context.Background(), "a.pdf", strings.NewReader("x"))
	var te *TransportError
	if !errors.As(err, &te) || te.StatusCode != 0 || te.Err == nil {
		t.Fatalf("err = %#v, want network TransportError", err)
	}
	if !strings.HasPrefix(te.Error(), "upload failed: ") {
		t.Fatalf("message = %s", te.Error())
	}
}
