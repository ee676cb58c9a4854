package openai_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"voiceqa/internal/domain"
	"voiceqa/internal/infra/openai"
)

func TestWhisperClient_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization: got %q", auth)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
			return
		}
		if model := r.FormValue("model"); model != openai.DefaultTranscriptionModel {
			t.Errorf("model: got %q", model)
		}
		if lang := r.FormValue("language"); lang != "tr" {
			t.Errorf("language: got %q", lang)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("reading file part: %v", err)
			return
		}
		defer file.Close()
		if header.Filename != "question.m4a" {
			t.Errorf("filename: got %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "fake audio" {
			t.Errorf("audio: got %q", data)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"Türkiye'nin başkenti neresi?"}`))
	}))
	defer server.Close()

	client := openai.NewWhisperClient(openai.Config{BaseURL: server.URL, Language: "tr"})

	text, err := client.Transcribe(context.Background(), "test-key", domain.AudioClip{
		Data:     []byte("fake audio"),
		Filename: "question.m4a",
	})
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "Türkiye'nin başkenti neresi?" {
		t.Errorf("text: got %q", text)
	}
}

func TestWhisperClient_DefaultFilenameNoLanguage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
			return
		}
		if _, ok := r.MultipartForm.Value["language"]; ok {
			t.Error("language should be omitted when not configured")
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("reading file part: %v", err)
			return
		}
		if header.Filename != domain.DefaultClipName {
			t.Errorf("filename: got %q", header.Filename)
		}
		w.Write([]byte(`{"text":""}`))
	}))
	defer server.Close()

	client := openai.NewWhisperClient(openai.Config{BaseURL: server.URL + "/"})

	text, err := client.Transcribe(context.Background(), "k", domain.AudioClip{Data: []byte("x")})
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "" {
		t.Errorf("text: got %q", text)
	}
}

func TestWhisperClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := openai.NewWhisperClient(openai.Config{BaseURL: server.URL})

	_, err := client.Transcribe(context.Background(), "k", domain.AudioClip{Data: []byte("x")})

	var rce *domain.RemoteCallError
	if !errors.As(err, &rce) {
		t.Fatalf("expected *RemoteCallError, got %v", err)
	}
	if !rce.Retryable {
		t.Error("503 should be marked retryable")
	}
	if rce.Body != "upstream overloaded\n" {
		t.Errorf("body: got %q", rce.Body)
	}
}
