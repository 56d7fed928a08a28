package models

import (
	"encoding/json"
	"testing"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []TemplateStatus{StatusDraft, StatusPublished, StatusDiscarded} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if TemplateStatus("archived").Valid() {
		t.Error("unknown status should not be valid")
	}
	if TemplateStatus("").Valid() {
		t.Error("empty status should not be valid")
	}
}

func TestStatusCanTransition(t *testing.T) {
	cases := []struct {
		from, to TemplateStatus
		want     bool
	}{
		{StatusDraft, StatusPublished, true},
		{StatusDraft, StatusDiscarded, true},
		{StatusPublished, StatusDiscarded, true},
		{StatusPublished, StatusDraft, false},
		{StatusDiscarded, StatusDraft, false},
		{StatusDiscarded, StatusPublished, false},
		// same-state moves are no-ops
		{StatusDraft, StatusDraft, true},
		{StatusPublished, StatusPublished, true},
		{StatusDiscarded, StatusDiscarded, true},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s→%s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestLanguageValid(t *testing.T) {
	if !LangTypeScript.Valid() || !LangPython.Valid() {
		t.Error("expected known languages to be valid")
	}
	if Language("cobol").Valid() {
		t.Error("unknown language should not be valid")
	}
}

func TestTemplateID(t *testing.T) {
	if got := TemplateID("alice", "react-starter"); got != "alice/react-starter" {
		t.Errorf("unexpected id: %q", got)
	}
}

func TestTemplateJSONRoundTrip(t *testing.T) {
	tpl := Template{
		ID:       "alice/react-starter",
		Name:     "react-starter",
		Version:  "latest",
		Language: LangTypeScript,
		Tags:     []string{"react", "vite"},
		Status:   StatusPublished,
		Args: []Argument{
			{
				Key:  "bundler",
				Type: ArgTypeEnum,
				Values: []ArgumentValue{
					{Value: "vite", Description: "Vite"},
					{Value: "webpack", Description: "Webpack"},
				},
			},
			{
				Key:       "features",
				Type:      ArgTypeString,
				Multiple:  true,
				Delimiter: ",",
			},
		},
		Steps: []Step{
			{
				ID:   "vite-config",
				Type: "file",
				Path: "vite.config.ts",
				Conditions: &ConditionGroup{
					Operator: CombinatorAnd,
					Conditions: []Condition{
						{Field: "bundler", Operator: "equals", Value: "vite"},
					},
				},
			},
		},
		CreatedBy: "alice",
		UpdatedBy: "alice",
	}

	data, err := json.Marshal(tpl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Template
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.ID != tpl.ID || got.Status != tpl.Status {
		t.Errorf("identity fields did not round-trip: %+v", got)
	}
	if len(got.Args) != 2 || len(got.Args[0].Values) != 2 {
		t.Errorf("args did not round-trip: %+v", got.Args)
	}
	if len(got.Steps) != 1 || got.Steps[0].Conditions == nil {
		t.Fatalf("steps did not round-trip: %+v", got.Steps)
	}
	if got.Steps[0].Conditions.Conditions[0].Field != "bundler" {
		t.Errorf("nested condition did not round-trip: %+v", got.Steps[0].Conditions)
	}
}

// Omitted optional fields should not appear in the export wire format.
func TestTemplateJSONOmitsEmpty(t *testing.T) {
	tpl := Template{
		ID:        "bob/minimal",
		Name:      "minimal",
		Version:   "latest",
		Tags:      []string{"misc"},
		Status:    StatusDraft,
		CreatedBy: "bob",
		UpdatedBy: "bob",
	}

	data, err := json.Marshal(tpl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	for _, key := range []string{"args", "steps", "downloads"} {
		if _, ok := raw[key]; ok {
			t.Errorf("expected %q to be omitted when empty", key)
		}
	}
}
