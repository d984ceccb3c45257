package repositories

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/object-registry/object-registry/internal/db/models"
)

var errDB = errors.New("db error")

var userCols = []string{"id", "email", "name", "password_hash", "created_at", "updated_at"}

var membershipCols = []string{
	"organization_id", "organization_name", "created_at", "role_template_name", "role_template_scopes",
}

func sampleUserRow() *sqlmock.Rows {
	return sqlmock.NewRows(userCols).
		AddRow(int64(1), "alice@example.com", "Alice", "$2a$10$hash", time.Now(), time.Now())
}

func emptyUserRow() *sqlmock.Rows {
	return sqlmock.NewRows(userCols)
}

func newUserRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock
}

// ---------------------------------------------------------------------------
// GetUserByID / GetUserByEmail
// ---------------------------------------------------------------------------

func TestGetUserByID_Found(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sampleUserRow())

	user, err := repo.GetUserByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.ID != 1 {
		t.Errorf("ID = %d, want 1", user.ID)
	}
	if user.PasswordHash == nil || *user.PasswordHash != "$2a$10$hash" {
		t.Errorf("PasswordHash = %v, want hash", user.PasswordHash)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(emptyUserRow())

	user, err := repo.GetUserByID(context.Background(), 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user for not found, got %v", user)
	}
}

func TestGetUserByID_DBError(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WithArgs(int64(1)).
		WillReturnError(errDB)

	_, err := repo.GetUserByID(context.Background(), 1)
	if !errors.Is(err, errDB) {
		t.Errorf("error = %v, want wrapped errDB", err)
	}
}

func TestGetUserByEmail_Found(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(sampleUserRow())

	user, err := repo.GetUserByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.Email != "alice@example.com" {
		t.Errorf("user = %v, want alice", user)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(emptyUserRow())

	user, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %v", user)
	}
}

// ---------------------------------------------------------------------------
// CreateUser
// ---------------------------------------------------------------------------

func TestCreateUser_Success(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	u := &models.User{Email: "bob@example.com", Name: "Bob"}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID != 42 {
		t.Errorf("ID = %d, want 42", u.ID)
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateUser(context.Background(), &models.User{Email: "bob@example.com"})
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("error = %v, want ErrDuplicateName", err)
	}
}

// ---------------------------------------------------------------------------
// GetUserWithOrgRoles
// ---------------------------------------------------------------------------

func TestGetUserWithOrgRoles_NotFound(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(emptyUserRow())

	u, err := repo.GetUserWithOrgRoles(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil, got %v", u)
	}
}

func TestGetUserWithOrgRoles_UnknownScope(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sampleUserRow())
	mock.ExpectQuery("SELECT.*FROM organization_members").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(membershipCols).
			AddRow(int64(2), "acme", time.Now(), "publisher", []byte(`["objects:read","modules:publish"]`)))

	u, err := repo.GetUserWithOrgRoles(context.Background(), 1)
	if err == nil || !strings.Contains(err.Error(), "invalid scope: modules:publish") {
		t.Fatalf("error = %v, want invalid scope", err)
	}
	if u != nil {
		t.Errorf("expected nil user, got %v", u)
	}
}

func TestGetUserWithOrgRoles_WithMemberships(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sampleUserRow())
	mock.ExpectQuery("SELECT.*FROM organization_members").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(membershipCols).
			AddRow(int64(2), "acme", time.Now(), "editor", []byte(`["objects:read","objects:write"]`)).
			AddRow(int64(3), "zeta", time.Now(), nil, []byte(`[]`)))

	u, err := repo.GetUserWithOrgRoles(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.Memberships) != 2 {
		t.Fatalf("memberships = %d, want 2", len(u.Memberships))
	}
	if u.Memberships[0].OrganizationID != 2 || len(u.Memberships[0].RoleTemplateScopes) != 2 {
		t.Errorf("first membership = %+v", u.Memberships[0])
	}
	if u.Memberships[1].RoleTemplateName != nil {
		t.Errorf("second membership role = %v, want nil", u.Memberships[1].RoleTemplateName)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetUserWithOrgRoles_BadScopesJSON(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sampleUserRow())
	mock.ExpectQuery("SELECT.*FROM organization_members").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(membershipCols).
			AddRow(int64(2), "acme", time.Now(), "editor", []byte(`not-json`)))

	if _, err := repo.GetUserWithOrgRoles(context.Background(), 1); err == nil {
		t.Error("expected error for malformed scopes JSON")
	}
}

// ---------------------------------------------------------------------------
// SetPasswordHash
// ---------------------------------------------------------------------------

func TestSetPasswordHash(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs(int64(1), "newhash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetPasswordHash(context.Background(), 1, "newhash"); err != nil {
		t.Fatalf("SetPasswordHash: %v", err)
	}
}
