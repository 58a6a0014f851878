package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-bookshelf-go/pkg/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepo provides data access for the users and saved_books tables using sqlx.
// Queries are written with `?` placeholders and rebound for the active driver.
type UserRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db, now: time.Now} }

type savedBookRow struct {
	BookID      string `db:"book_id"`
	Title       string `db:"title"`
	Authors     string `db:"authors"`
	Description string `db:"description"`
	Image       string `db:"image"`
	Link        string `db:"link"`
}

type profileRow struct {
	ID       string `db:"id"`
	Username string `db:"username"`
	Email    string `db:"email"`
}

// Create inserts a new user row. The id and password hash are prepared by the caller.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (*entity.Profile, error) {
	const q = `INSERT INTO users (id, username, email, password_hash, version, created_at, updated_at)
		  VALUES (:id, :username, :email, :password_hash, 0, :created_at, :updated_at)`
	now := toMillis(r.now())
	params := map[string]any{
		"id":            u.ID,
		"username":      u.Username,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
		"created_at":    now,
		"updated_at":    now,
	}
	if _, err := r.db.NamedExecContext(ctx, q, params); err != nil {
		if database.IsUniqueViolationOn(err, "users", "email") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return entity.NewProfile(u.ID, u.Username, u.Email, nil), nil
}

// FindByEmail returns the full row, password hash included. Only the login path uses it.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	const q = `SELECT id, username, email, password_hash, version FROM users WHERE email = ?`
	var u entity.User
	if err := r.db.GetContext(ctx, &u, r.db.Rebind(q), email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

// FindByID returns the public projection of a user with saved books in insertion order.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*entity.Profile, error) {
	return r.loadProfile(ctx, r.db, id)
}

// AddSavedBook adds book unless the user already saved one with the same book id.
// Re-adding is a no-op; the returned profile reflects the state after the call.
// An unknown user id matches nothing and yields a nil profile and a nil error.
func (r *UserRepo) AddSavedBook(ctx context.Context, id string, book entity.SavedBook) (*entity.Profile, error) {
	const q = `INSERT INTO saved_books (user_id, book_id, title, authors, description, image, link)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, book_id) DO NOTHING`
	authors := book.Authors
	if authors == nil {
		authors = []string{}
	}
	raw, err := json.Marshal(authors)
	if err != nil {
		return nil, fmt.Errorf("encode authors: %w", err)
	}
	return r.mutateSavedBooks(ctx, id, func(tx *sqlx.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, tx.Rebind(q), id, book.BookID, book.Title, string(raw), book.Description, book.Image, book.Link)
	})
}

// RemoveSavedBook removes every saved entry with bookID. Removing a book that
// is not saved, or removing from an unknown user id, is a no-op.
func (r *UserRepo) RemoveSavedBook(ctx context.Context, id, bookID string) (*entity.Profile, error) {
	const q = `DELETE FROM saved_books WHERE user_id = ? AND book_id = ?`
	return r.mutateSavedBooks(ctx, id, func(tx *sqlx.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, tx.Rebind(q), id, bookID)
	})
}

// mutateSavedBooks runs one set mutation and the read-back in a single
// transaction. The version column moves only when the set actually changed.
// A missing user row returns (nil, nil) without touching saved_books.
func (r *UserRepo) mutateSavedBooks(ctx context.Context, id string, mutate func(tx *sqlx.Tx) (sql.Result, error)) (*entity.Profile, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var one int
	if err := tx.GetContext(ctx, &one, tx.Rebind(`SELECT 1 FROM users WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	res, err := mutate(tx)
	if err != nil {
		return nil, fmt.Errorf("update saved books: %w", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if changed > 0 {
		const bump = `UPDATE users SET version = version + 1, updated_at = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, tx.Rebind(bump), toMillis(r.now()), id); err != nil {
			return nil, fmt.Errorf("bump version: %w", err)
		}
	}

	p, err := r.loadProfile(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

func (r *UserRepo) loadProfile(ctx context.Context, q sqlx.QueryerContext, id string) (*entity.Profile, error) {
	var head profileRow
	if err := sqlx.GetContext(ctx, q, &head, r.db.Rebind(`SELECT id, username, email FROM users WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}

	const booksQ = `SELECT book_id, title, authors, description, image, link
		FROM saved_books WHERE user_id = ? ORDER BY id`
	var rows []savedBookRow
	if err := sqlx.SelectContext(ctx, q, &rows, r.db.Rebind(booksQ), id); err != nil {
		return nil, fmt.Errorf("list saved books: %w", err)
	}

	books := make([]entity.SavedBook, 0, len(rows))
	for _, row := range rows {
		var authors []string
		if row.Authors != "" {
			if err := json.Unmarshal([]byte(row.Authors), &authors); err != nil {
				return nil, fmt.Errorf("decode authors for book %s: %w", row.BookID, err)
			}
		}
		if len(authors) == 0 {
			authors = nil
		}
		books = append(books, entity.SavedBook{
			BookID:      row.BookID,
			Title:       row.Title,
			Authors:     authors,
			Description: row.Description,
			Image:       row.Image,
			Link:        row.Link,
		})
	}
	return entity.NewProfile(head.ID, head.Username, head.Email, books), nil
}

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}
