package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClient_Resolve(t *testing.T) {
	pwm := 180
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Audio) == 0 || req.SampleRate != 16000 || req.CurrentPWM != 42 {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(Response{
			Success:        true,
			Transcription:  "max power",
			Response:       "Going to maximum.",
			IntentDetected: true,
			Confidence:     0.95,
			NewPWM:         &pwm,
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key")
	resp, err := c.Resolve(context.Background(), Request{
		Audio:      []byte{1, 0, 2, 0},
		SampleRate: 16000,
		CurrentPWM: 42,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resp.IntentDetected || resp.NewPWM == nil || *resp.NewPWM != 180 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestHTTPClient_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	if _, err := c.Resolve(context.Background(), Request{}); err == nil {
		t.Fatalf("expected error for 503")
	}
}

func TestHTTPClient_BackendRejectionIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(Response{Success: false, Error: "audio too short"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	resp, err := c.Resolve(context.Background(), Request{})
	if err == nil {
		t.Fatalf("expected error for success=false")
	}
	if resp.Error != "audio too short" {
		t.Fatalf("response error = %q", resp.Error)
	}
}

func TestHTTPClient_MissingEndpoint(t *testing.T) {
	c := NewHTTPClient("", "")
	if _, err := c.Resolve(context.Background(), Request{}); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestResponseOutcomeMapping(t *testing.T) {
	pwm := 33
	r := Response{
		Transcription:    "slower please",
		Response:         "Slowing down.",
		IntentDetected:   true,
		Confidence:       0.7,
		NewPWM:           &pwm,
		DetectedLanguage: "en-US",
		Classification:   "command",
	}
	o := r.Outcome()
	if o.Transcription != r.Transcription || o.SuggestedPWM == nil || *o.SuggestedPWM != 33 {
		t.Fatalf("outcome = %+v", o)
	}
	if string(o.Classification) != "command" || o.DetectedLanguage != "en-US" {
		t.Fatalf("outcome = %+v", o)
	}
}
