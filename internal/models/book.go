package models

import "time"

type Category string

const (
	CategoryScience     Category = "Science"
	CategoryFiction     Category = "Fiction"
	CategoryMathematics Category = "Mathematics"
	CategoryHistory     Category = "History"
	CategoryTechnology  Category = "Technology"
	CategoryBiography   Category = "Biography"
	CategoryLiterature  Category = "Literature"
	CategoryOther       Category = "Other"

	BookEntity = "book"
)

var ValidCategories = map[string]bool{
	string(CategoryScience):     true,
	string(CategoryFiction):     true,
	string(CategoryMathematics): true,
	string(CategoryHistory):     true,
	string(CategoryTechnology):  true,
	string(CategoryBiography):   true,
	string(CategoryLiterature):  true,
	string(CategoryOther):       true,
}

func IsValidCategory(category string) bool {
	return ValidCategories[category]
}

// Book is the catalog entry a borrowal points at. IssuedTo and IssuedAt are
// set while the book is held by an active borrowal.
type Book struct {
	ID          string     `json:"_id"`
	Name        string     `json:"name"`
	ISBN        string     `json:"isbn"`
	AuthorID    string     `json:"authorId,omitempty"`
	GenreID     string     `json:"genreId,omitempty"`
	Category    Category   `json:"category"`
	IsAvailable bool       `json:"isAvailable"`
	Summary     string     `json:"summary,omitempty"`
	PhotoURL    string     `json:"photoUrl,omitempty"`
	IssuedTo    *string    `json:"issuedTo"`
	IssuedAt    *time.Time `json:"issuedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type BookFilter struct {
	Category  *Category
	Available *bool
}

// BookUpdate lists the catalog fields an update may touch. Availability is
// owned by the lending flow and cannot be patched directly.
type BookUpdate struct {
	Name     *string   `json:"name"`
	ISBN     *string   `json:"isbn"`
	AuthorID *string   `json:"authorId"`
	GenreID  *string   `json:"genreId"`
	Category *Category `json:"category"`
	Summary  *string   `json:"summary"`
	PhotoURL *string   `json:"photoUrl"`
}

func (u BookUpdate) IsEmpty() bool {
	return u.Name == nil && u.ISBN == nil && u.AuthorID == nil && u.GenreID == nil &&
		u.Category == nil && u.Summary == nil && u.PhotoURL == nil
}

// Apply copies the set fields of u onto b.
func (u BookUpdate) Apply(b *Book) {
	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.ISBN != nil {
		b.ISBN = *u.ISBN
	}
	if u.AuthorID != nil {
		b.AuthorID = *u.AuthorID
	}
	if u.GenreID != nil {
		b.GenreID = *u.GenreID
	}
	if u.Category != nil {
		b.Category = *u.Category
	}
	if u.Summary != nil {
		b.Summary = *u.Summary
	}
	if u.PhotoURL != nil {
		b.PhotoURL = *u.PhotoURL
	}
}

// Matches reports whether b passes every criterion set on f.
func (f BookFilter) Matches(b Book) bool {
	if f.Category != nil && b.Category != *f.Category {
		return false
	}
	if f.Available != nil && b.IsAvailable != *f.Available {
		return false
	}
	return true
}
