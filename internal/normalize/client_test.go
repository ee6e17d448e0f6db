package normalize

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConvertSendsMultipartFields(t *testing.T) {
	var gotModel, gotF0, gotIndex string
	var gotAudio []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/convert" {
			t.Errorf("path = %q, want /convert", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotF0 = r.FormValue("f0_method")
		gotIndex = r.FormValue("index_rate")
		f, _, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		gotAudio, _ = io.ReadAll(f)
		f.Close()
		w.Write([]byte("converted-bytes"))
	}))
	defer srv.Close()

	c := NewClient(Config{
		BaseURL:   srv.URL,
		Model:     "coach-voice-v1",
		F0Method:  "rmvpe",
		IndexRate: 0.75,
	})
	out, err := c.Convert(context.Background(), []byte("fake-wav"))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if string(out) != "converted-bytes" {
		t.Errorf("converted = %q", out)
	}
	if gotModel != "coach-voice-v1" {
		t.Errorf("model = %q", gotModel)
	}
	if gotF0 != "rmvpe" {
		t.Errorf("f0_method = %q", gotF0)
	}
	if gotIndex != "0.75" {
		t.Errorf("index_rate = %q", gotIndex)
	}
	if string(gotAudio) != "fake-wav" {
		t.Errorf("audio part = %q", gotAudio)
	}
}

func TestConvertOmitsOptionalFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		if _, ok := r.MultipartForm.Value["f0_method"]; ok {
			t.Error("f0_method sent despite empty config")
		}
		if _, ok := r.MultipartForm.Value["index_rate"]; ok {
			t.Error("index_rate sent despite zero config")
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "m"})
	if _, err := c.Convert(context.Background(), []byte("x")); err != nil {
		t.Fatalf("Convert: %v", err)
	}
}

func TestConvertNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "m"})
	_, err := c.Convert(context.Background(), []byte("x"))
	if err == nil {
		t.Fatal("want error on 503")
	}
	var nerr *Error
	if !errors.As(err, &nerr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if nerr.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", nerr.Status)
	}
	if nerr.Reason != "model not loaded" {
		t.Errorf("reason = %q", nerr.Reason)
	}
}

func TestConvertTransportFailure(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Model: "m"})
	_, err := c.Convert(context.Background(), []byte("x"))
	if err == nil {
		t.Fatal("want transport error")
	}
	var nerr *Error
	if !errors.As(err, &nerr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
}

func TestConvertEmptyBodyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "m"})
	if _, err := c.Convert(context.Background(), []byte("x")); err == nil {
		t.Fatal("empty body should be an error")
	}
}

func TestConfigEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("empty config reports enabled")
	}
	if !(Config{BaseURL: "http://x"}).Enabled() {
		t.Error("configured endpoint reports disabled")
	}
}
