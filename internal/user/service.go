package user

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-bookshelf-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-bookshelf-go/pkg/utilities"
)

// Store is the user-record store. *repo.UserRepo implements it.
type Store interface {
	FindByID(ctx context.Context, id string) (*entity.Profile, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	Create(ctx context.Context, u *entity.User) (*entity.Profile, error)
	AddSavedBook(ctx context.Context, id string, book entity.SavedBook) (*entity.Profile, error)
	RemoveSavedBook(ctx context.Context, id, bookID string) (*entity.Profile, error)
}

// TokenIssuer signs session tokens. *session.TokenService implements it.
type TokenIssuer interface {
	Issue(sub session.Subject) (string, error)
}

// IDGenerator hands out new user ids.
type IDGenerator interface {
	NewID() string
}

// Auth is the result of addUser and login.
type Auth struct {
	Token string          `json:"token"`
	User  *entity.Profile `json:"user"`
}

// SignupInput carries the addUser arguments.
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

var emailPattern = regexp.MustCompile(`^.+@.+\..+$`)

// UserService resolves the me query and the addUser, login, saveBook and
// deleteBook mutations. Operations hold no state between calls; the caller's
// identity arrives as an explicit session.Session.
type UserService struct {
	store  Store
	tokens TokenIssuer
	hasher PasswordHasher
	ids    IDGenerator
	logger *zap.SugaredLogger

	decoyOnce sync.Once
	decoyHash string

	// UnifyLoginErrors reports unknown email and wrong password with the same message.
	UnifyLoginErrors bool
}

func NewUserService(store Store, tokens TokenIssuer, hasher PasswordHasher, ids IDGenerator, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: bcrypt.DefaultCost}
	}
	if ids == nil {
		ids = utilities.NewIDGenerator(1)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UserService{store: store, tokens: tokens, hasher: hasher, ids: ids, logger: logger}
}

// Me returns the caller's profile.
func (s *UserService) Me(ctx context.Context, sess session.Session) (*entity.Profile, error) {
	if !sess.Authenticated() {
		return nil, unauthenticated()
	}
	p, err := s.store.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return p, nil
}

// AddUser registers a user and signs them in.
func (s *UserService) AddUser(ctx context.Context, in SignupInput) (*Auth, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	switch {
	case username == "":
		return nil, badInput("username is required")
	case email == "":
		return nil, badInput("email is required")
	case !emailPattern.MatchString(email):
		return nil, badInput("Must use a valid email address")
	case in.Password == "":
		return nil, badInput("password is required")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, badInput("password is too long")
		}
		return nil, unavailable(err)
	}

	p, err := s.store.Create(ctx, &entity.User{
		ID:           s.ids.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, storeFailure(err)
	}
	s.logger.Infow("user created", "user_id", p.ID, "email", p.Email)

	return s.signIn(p)
}

// Login checks email and password and issues a token.
func (s *UserService) Login(ctx context.Context, email, password string) (*Auth, error) {
	u, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			// an unknown email costs one hash comparison, like a wrong password
			s.hasher.Verify(s.decoy(), password)
			return nil, s.loginFailure("User Not Found", ErrUserNotFound)
		}
		return nil, unavailable(err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, s.loginFailure("Incorrect Password", ErrIncorrectPassword)
	}

	p, err := s.store.FindByID(ctx, u.ID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return s.signIn(p)
}

// SaveBook adds book to the caller's saved list. Saving an already saved book id
// is a no-op. A session whose user no longer exists matches nothing: the result
// is a nil profile and no error.
func (s *UserService) SaveBook(ctx context.Context, sess session.Session, book entity.SavedBook) (*entity.Profile, error) {
	if !sess.Authenticated() {
		return nil, unauthenticated()
	}
	book.BookID = strings.TrimSpace(book.BookID)
	if book.BookID == "" {
		return nil, badInput("bookId is required")
	}
	p, err := s.store.AddSavedBook(ctx, sess.UserID, book)
	if err != nil {
		return nil, storeFailure(err)
	}
	return p, nil
}

// DeleteBook removes bookID from the caller's saved list. Deleting an unsaved
// book id is a no-op, as is deleting for a user that no longer exists.
func (s *UserService) DeleteBook(ctx context.Context, sess session.Session, bookID string) (*entity.Profile, error) {
	if !sess.Authenticated() {
		return nil, unauthenticated()
	}
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return nil, badInput("bookId is required")
	}
	p, err := s.store.RemoveSavedBook(ctx, sess.UserID, bookID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return p, nil
}

func (s *UserService) signIn(p *entity.Profile) (*Auth, error) {
	token, err := s.tokens.Issue(session.Subject{ID: p.ID, Username: p.Username, Email: p.Email})
	if err != nil {
		return nil, unavailable(err)
	}
	return &Auth{Token: token, User: p}, nil
}

// decoy returns a hash made with the service's hasher and cost, built on first use.
func (s *UserService) decoy() string {
	s.decoyOnce.Do(func() {
		h, err := s.hasher.Hash("bookshelf-decoy-password")
		if err != nil {
			s.logger.Warnw("decoy hash unavailable", "err", err)
			return
		}
		s.decoyHash = h
	})
	return s.decoyHash
}

func (s *UserService) loginFailure(msg string, kind error) *Failure {
	if s.UnifyLoginErrors {
		msg = "Invalid credentials"
	}
	return &Failure{Code: CodeUnauthenticated, Message: msg, kind: kind}
}

// storeFailure maps store errors onto the failure taxonomy.
func storeFailure(err error) *Failure {
	switch {
	case errors.Is(err, userrepo.ErrNotFound):
		return &Failure{Code: CodeNotFound, Message: "User not found", kind: ErrNotFound}
	case errors.Is(err, userrepo.ErrDuplicateEmail):
		return &Failure{Code: CodeDuplicateEmail, Message: "Email is already registered", kind: ErrDuplicateEmail}
	default:
		return unavailable(err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
