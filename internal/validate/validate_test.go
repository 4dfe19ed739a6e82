package validate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adrpadua/battlereport-hud/internal/validate"
	"github.com/adrpadua/battlereport-hud/pkg/types"
)

func TestValidateTerms(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/validate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req validate.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Terms) != 2 || req.Terms[0] != "Wyches" {
			t.Errorf("terms = %v", req.Terms)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []validate.ValidatedTerm{
				{Term: "Wyches", Canonical: "Wyches", Category: types.CategoryUnit, Confidence: 0.97},
				{Term: "Dark Lance", Canonical: "Dark Lance", Category: types.CategoryUnknown, Confidence: 0.9},
			},
		})
	}))
	defer srv.Close()

	c := validate.New(srv.URL)
	got, err := c.ValidateTerms(context.Background(), validate.Request{
		Terms:    []string{"Wyches", "Dark Lance"},
		Factions: []string{"Drukhari"},
	})
	if err != nil {
		t.Fatalf("ValidateTerms: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d, want 2", len(got))
	}
	if got[0].Category != types.CategoryUnit || got[0].Confidence != 0.97 {
		t.Fatalf("first result = %+v", got[0])
	}
}

func TestValidateTermsServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := validate.New(srv.URL)
	if _, err := c.ValidateTerms(context.Background(), validate.Request{Terms: []string{"Wyches"}}); err == nil {
		t.Fatal("want error for non-200 response")
	}
}
