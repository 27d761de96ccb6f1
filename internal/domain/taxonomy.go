package domain

// TaxonomyCourse is an external taxonomy reference a course can be tagged
// with. The rows are maintained outside this service; we only read them to
// resolve association IDs to display names.
type TaxonomyCourse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MetaTag returns the lightweight projection kept in content metadata.
func (t TaxonomyCourse) MetaTag() MetaTag {
	return MetaTag{ID: t.ID, Name: t.Name}
}

// Audience is an external audience tag, reconciled against course content
// with the same replace-all contract as taxonomy courses.
type Audience struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MetaTag returns the lightweight projection kept in content metadata.
func (a Audience) MetaTag() MetaTag {
	return MetaTag{ID: a.ID, Name: a.Name}
}
