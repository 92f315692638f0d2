package model

import "time"

// Role names stored in users.role.
const (
	RoleStudent = "STUDENT"
	RoleFaculty = "FACULTY"
)

// User represents an application user record as stored in the
// `users` table. Students and faculty share the table and are told
// apart by Role. Department and major are optional; faculty members
// usually carry a department only.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name shown on registrations and logs.
//	Email        – unique email address, also the notification recipient.
//	Phone        – optional contact number.
//	PasswordHash – bcrypt hashed password.
//	Role         – STUDENT or FACULTY.
//	DepartmentID – optional reference into departments.
//	MajorID      – optional reference into majors.
//	IsActive     – whether the account may sign in.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	Phone        *string   // users.phone (nullable)
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	DepartmentID *uint64   // users.department_id (nullable)
	MajorID      *uint64   // users.major_id (nullable)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
}

// IsFaculty reports whether the user holds the faculty role.
func (u User) IsFaculty() bool { return u.Role == RoleFaculty }

// Department is a row of the `departments` table.
type Department struct {
	ID   uint64 // departments.id
	Name string // departments.name
}

// Major is a row of the `majors` table.
type Major struct {
	ID           uint64 // majors.id
	Name         string // majors.name
	DepartmentID uint64 // majors.department_id
}

// Professor links a faculty user to the exams they proctor.
type Professor struct {
	ID     uint64 // professors.id
	UserID uint64 // professors.user_id
	Title  string // professors.title
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
