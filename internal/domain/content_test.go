package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestContentMetaSetTags(t *testing.T) {
	t.Parallel()
	meta := NewContentMeta(uuid.New())

	tags := []MetaTag{{ID: 7, Name: "Math"}, {ID: 9, Name: "Science"}}
	if err := meta.SetTags(AssocTaxonomyCourse, tags); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got := meta.Tags(AssocTaxonomyCourse)
	if len(got) != 2 || got[0].ID != 7 || got[1].ID != 9 {
		t.Errorf("Expected tags [7 9], got %v", got)
	}

	if meta.Tags(AssocAudience) != nil {
		t.Error("Expected audience tags to be untouched")
	}

	if err := meta.SetTags("grade", tags); err != ErrInvalidAssocKind {
		t.Errorf("Expected error %v, got %v", ErrInvalidAssocKind, err)
	}
}

func TestContentMetaBagRoundTrip(t *testing.T) {
	t.Parallel()
	meta := NewContentMeta(uuid.New())
	meta.Summary = CourseSummary
	meta.TaxonomyCourse = []MetaTag{{ID: 7, Name: "Math"}}
	meta.Audience = []MetaTag{{ID: 3, Name: "All students"}}
	meta.Extra = map[string]json.RawMessage{
		"grade": json.RawMessage(`["K-5"]`),
	}

	data, err := meta.MarshalBag()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var restored ContentMeta
	if err := restored.UnmarshalBag(data); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if restored.Summary != CourseSummary {
		t.Errorf("Expected summary %q, got %q", CourseSummary, restored.Summary)
	}

	if len(restored.TaxonomyCourse) != 1 || restored.TaxonomyCourse[0].Name != "Math" {
		t.Errorf("Expected taxonomy course tag Math, got %v", restored.TaxonomyCourse)
	}

	if len(restored.Audience) != 1 || restored.Audience[0].ID != 3 {
		t.Errorf("Expected audience tag 3, got %v", restored.Audience)
	}

	// Unrecognized keys survive the round trip
	if string(restored.Extra["grade"]) != `["K-5"]` {
		t.Errorf("Expected residual grade key, got %v", restored.Extra)
	}
}

func TestContentMetaUnmarshalEmpty(t *testing.T) {
	t.Parallel()
	var meta ContentMeta
	if err := meta.UnmarshalBag(nil); err != nil {
		t.Errorf("Expected no error for empty bag, got %v", err)
	}
}
