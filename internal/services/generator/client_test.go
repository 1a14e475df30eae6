package generator

import (
	"errors"
	"strings"
	"testing"

	"storyloom/internal/logging"
	"storyloom/internal/services"
	"storyloom/internal/testsupport"
)

func TestNewRequiresAPIKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Generator.APIKey = ""

	_, err := New(cfg, logging.NewNop())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}

	if _, err := New(nil, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("nil config err = %v, want configuration error", err)
	}
}

func TestBuildInputIncludesAllContext(t *testing.T) {
	input := buildInput(Request{
		Brief:            "MAYA climbs the final stair.",
		SeriesContext:    "A lighthouse keeper drama.",
		CharacterContext: []string{"MAYA: the keeper's daughter", "ELI: the keeper"},
		PriorVisualState: `{"setting":"LIGHTHOUSE GALLERY"}`,
		Platform:         "veo",
		TargetSeconds:    10,
	})

	for _, want := range []string{
		"Target platform: veo",
		"Target duration: 10 seconds",
		"A lighthouse keeper drama.",
		"MAYA: the keeper's daughter",
		`{"setting":"LIGHTHOUSE GALLERY"}`,
		"MAYA climbs the final stair.",
	} {
		if !strings.Contains(input, want) {
			t.Errorf("input missing %q:\n%s", want, input)
		}
	}
}

func TestBuildInputOmitsEmptySections(t *testing.T) {
	input := buildInput(Request{Brief: "a brief", Platform: "veo"})
	for _, absent := range []string{"Series context", "Characters:", "Established visual state"} {
		if strings.Contains(input, absent) {
			t.Errorf("input should omit %q:\n%s", absent, input)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		err       string
		rateLimit bool
		server    bool
	}{
		{"POST 429 Too Many Requests", true, false},
		{"rate limit exceeded", true, false},
		{"POST 500 Internal Server Error", false, true},
		{"upstream 503 unavailable", false, true},
		{"invalid request: bad schema", false, false},
	}
	for _, tc := range cases {
		err := errors.New(tc.err)
		if got := isRateLimitError(err); got != tc.rateLimit {
			t.Errorf("isRateLimitError(%q) = %v", tc.err, got)
		}
		if got := isServerError(err); got != tc.server {
			t.Errorf("isServerError(%q) = %v", tc.err, got)
		}
	}
	if isRateLimitError(nil) || isServerError(nil) {
		t.Error("nil error misclassified")
	}
}

func TestResponseSchemaIsStrict(t *testing.T) {
	schema := generateSchema[Response]()
	if schema[typeKey] != "object" {
		t.Fatalf("schema type = %v", schema[typeKey])
	}
	if schema[additionalPropertiesKey] != false {
		t.Error("additionalProperties must be false")
	}
	required, ok := schema[requiredKey].([]string)
	if !ok {
		t.Fatalf("required = %T", schema[requiredKey])
	}
	want := map[string]bool{
		"optimized_prompt": false,
		"discussion":       false,
		"character_count":  false,
		"tags":             false,
	}
	for _, field := range required {
		if _, known := want[field]; !known {
			t.Errorf("unexpected required field %q", field)
			continue
		}
		want[field] = true
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("field %q not required", field)
		}
	}
}
