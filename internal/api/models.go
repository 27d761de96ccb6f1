package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/ednovo/shelf-api/internal/domain"
	"github.com/ednovo/shelf-api/internal/service"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CreateCourseRequest defines the payload for course creation. Sharing and
// collection type are not accepted from the caller; new courses are always
// private.
type CreateCourseRequest struct {
	Title           string  `json:"title"`
	TaxonomyCourses []int64 `json:"taxonomy_course_ids,omitempty"`
	Audiences       []int64 `json:"audience_ids,omitempty"`
}

// UpdateCourseRequest defines the payload for a partial course update.
// Absent fields leave the current value untouched; an explicitly empty id
// list clears that association set.
type UpdateCourseRequest struct {
	Title           *string  `json:"title,omitempty"`
	Sharing         *string  `json:"sharing,omitempty"`
	Position        *int     `json:"position,omitempty"`
	TaxonomyCourses *[]int64 `json:"taxonomy_course_ids,omitempty"`
	Audiences       *[]int64 `json:"audience_ids,omitempty"`
}

// CourseResponse is the representation of a course returned by read
// endpoints: the structural fields plus the merged metadata.
type CourseResponse struct {
	ID             uuid.UUID        `json:"id"`
	OwnerID        uuid.UUID        `json:"owner_id"`
	ParentID       *uuid.UUID       `json:"parent_id,omitempty"`
	Title          string           `json:"title"`
	Sharing        string           `json:"sharing"`
	Position       int              `json:"position"`
	Summary        string           `json:"summary,omitempty"`
	TaxonomyCourse []domain.MetaTag `json:"taxonomy_course,omitempty"`
	Audience       []domain.MetaTag `json:"audience,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// CourseListResponse wraps a page of courses.
type CourseListResponse struct {
	Courses []CourseResponse `json:"courses"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// newCourseResponse builds the response representation from the read model.
func newCourseResponse(detail *service.CourseDetail) CourseResponse {
	c := detail.Collection
	resp := CourseResponse{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		ParentID:  c.ParentID,
		Title:     c.Title,
		Sharing:   string(c.Sharing),
		Position:  c.Position,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if detail.Meta != nil {
		resp.Summary = detail.Meta.Summary
		resp.TaxonomyCourse = detail.Meta.TaxonomyCourse
		resp.Audience = detail.Meta.Audience
	}
	return resp
}
