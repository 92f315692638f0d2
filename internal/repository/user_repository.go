package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/exam-registration/internal/model"
	"github.com/iliyamo/exam-registration/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries the fields needed to provision an account.
type NewUser struct {
	Name         string
	Email        string
	Password     string
	Role         string
	Phone        string
	DepartmentID uint64
	MajorID      uint64
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(u.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, phone, password_hash, role, department_id, major_id) VALUES (?,?,?,?,?,?,?)",
		strings.TrimSpace(u.Name), email, nullString(u.Phone), hash, u.Role, nullID(u.DepartmentID), nullID(u.MajorID))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateProfessor attaches a professor profile to a faculty user.
func (r *UserRepo) CreateProfessor(ctx context.Context, userID uint64, title string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO professors (user_id, title) VALUES (?,?)", userID, title)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

const userColumns = "id,name,email,phone,password_hash,role,department_id,major_id,is_active,created_at"

func scanUser(rs rowScanner) (model.User, error) {
	var (
		u       model.User
		phone   sql.NullString
		dept    sql.NullInt64
		major   sql.NullInt64
		created dbTime
	)
	if err := rs.Scan(&u.ID, &u.Name, &u.Email, &phone, &u.PasswordHash, &u.Role,
		&dept, &major, &u.IsActive, &created); err != nil {
		return model.User{}, err
	}
	if phone.Valid {
		u.Phone = &phone.String
	}
	if dept.Valid {
		v := uint64(dept.Int64)
		u.DepartmentID = &v
	}
	if major.Valid {
		v := uint64(major.Int64)
		u.MajorID = &v
	}
	u.CreatedAt = created.Time
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func nullString(s string) any {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return s
}

func nullID(id uint64) any {
	if id == 0 {
		return nil
	}
	return id
}
