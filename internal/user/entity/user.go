package entity

// User represents a row in the `users` table. Only the login path reads the
// full row; everything returned to callers goes through Profile.
type User struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Version      int64  `db:"version"`
}

// SavedBook is one entry of a user's saved list. BookID is unique per user;
// the remaining fields are carried as given.
type SavedBook struct {
	BookID      string   `json:"bookId"`
	Title       string   `json:"title,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	Link        string   `json:"link,omitempty"`
}

// Profile is the public projection of a user: no password hash, no version.
type Profile struct {
	ID         string      `json:"_id"`
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	SavedBooks []SavedBook `json:"savedBooks"`
	BookCount  int         `json:"bookCount"`
}

// NewProfile builds the projection and keeps BookCount in step with SavedBooks.
func NewProfile(id, username, email string, books []SavedBook) *Profile {
	if books == nil {
		books = []SavedBook{}
	}
	return &Profile{ID: id, Username: username, Email: email, SavedBooks: books, BookCount: len(books)}
}
