package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CourseSummary is the fixed summary attached to the metadata of every
// newly created course.
const CourseSummary = "course"

// AssocKind identifies which family of metadata associations a join row
// belongs to. Both kinds share the same replace-all reconciliation
// mechanics; only the external entity they point at differs.
type AssocKind string

// Known association kinds.
const (
	AssocTaxonomyCourse AssocKind = "taxonomy_course"
	AssocAudience       AssocKind = "audience"
)

// IsValid reports whether the association kind is a known value.
func (k AssocKind) IsValid() bool {
	switch k {
	case AssocTaxonomyCourse, AssocAudience:
		return true
	}
	return false
}

// MetaTag is the lightweight projection of an external classification
// entity kept inside content metadata: the entity's ID and display name.
type MetaTag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ContentMeta is the flexible attribute bag attached to a collection's
// backing content record. The reconciled association lists and the summary
// are typed; everything else lives in Extra so unrecognized keys survive a
// round trip through the store unchanged.
type ContentMeta struct {
	ContentID      uuid.UUID                  `json:"-"`
	Summary        string                     `json:"summary,omitempty"`
	TaxonomyCourse []MetaTag                  `json:"taxonomyCourse,omitempty"`
	Audience       []MetaTag                  `json:"audience,omitempty"`
	Extra          map[string]json.RawMessage `json:"-"`
	UpdatedAt      time.Time                  `json:"-"`
}

// NewContentMeta creates an empty metadata bag for the given content record.
func NewContentMeta(contentID uuid.UUID) *ContentMeta {
	return &ContentMeta{
		ContentID: contentID,
		UpdatedAt: time.Now().UTC(),
	}
}

// SetTags replaces the association list for the given kind.
func (m *ContentMeta) SetTags(kind AssocKind, tags []MetaTag) error {
	switch kind {
	case AssocTaxonomyCourse:
		m.TaxonomyCourse = tags
	case AssocAudience:
		m.Audience = tags
	default:
		return ErrInvalidAssocKind
	}
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// Tags returns the association list for the given kind.
func (m *ContentMeta) Tags(kind AssocKind) []MetaTag {
	switch kind {
	case AssocTaxonomyCourse:
		return m.TaxonomyCourse
	case AssocAudience:
		return m.Audience
	}
	return nil
}

// knownMetaKeys are the typed fields of ContentMeta; anything else found in
// the stored bag is preserved in Extra.
var knownMetaKeys = map[string]struct{}{
	"summary":        {},
	"taxonomyCourse": {},
	"audience":       {},
}

// MarshalBag serializes the metadata to the flat JSON object stored in the
// database, merging the typed fields with the residual Extra keys.
func (m *ContentMeta) MarshalBag() ([]byte, error) {
	bag := make(map[string]json.RawMessage, len(m.Extra)+3)
	for k, v := range m.Extra {
		if _, known := knownMetaKeys[k]; known {
			continue
		}
		bag[k] = v
	}

	if m.Summary != "" {
		b, err := json.Marshal(m.Summary)
		if err != nil {
			return nil, err
		}
		bag["summary"] = b
	}
	if m.TaxonomyCourse != nil {
		b, err := json.Marshal(m.TaxonomyCourse)
		if err != nil {
			return nil, err
		}
		bag["taxonomyCourse"] = b
	}
	if m.Audience != nil {
		b, err := json.Marshal(m.Audience)
		if err != nil {
			return nil, err
		}
		bag["audience"] = b
	}

	return json.Marshal(bag)
}

// UnmarshalBag deserializes the stored JSON object back into the typed
// fields plus the residual Extra map.
func (m *ContentMeta) UnmarshalBag(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	var bag map[string]json.RawMessage
	if err := json.Unmarshal(data, &bag); err != nil {
		return err
	}

	for k, v := range bag {
		switch k {
		case "summary":
			if err := json.Unmarshal(v, &m.Summary); err != nil {
				return err
			}
		case "taxonomyCourse":
			if err := json.Unmarshal(v, &m.TaxonomyCourse); err != nil {
				return err
			}
		case "audience":
			if err := json.Unmarshal(v, &m.Audience); err != nil {
				return err
			}
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]json.RawMessage)
			}
			m.Extra[k] = v
		}
	}

	return nil
}
