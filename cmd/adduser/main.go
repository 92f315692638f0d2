// Command adduser provisions a student or faculty account. Faculty
// accounts also get a professor profile so they can proctor exams.
//
//	adduser -name "Ana Lopez" -email ana@campus.edu -password secret -role STUDENT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/iliyamo/exam-registration/internal/config"
	"github.com/iliyamo/exam-registration/internal/database"
	"github.com/iliyamo/exam-registration/internal/model"
	"github.com/iliyamo/exam-registration/internal/repository"
)

func main() {
	var (
		name     = flag.String("name", "", "display name")
		email    = flag.String("email", "", "login and notification address")
		password = flag.String("password", "", "initial password")
		role     = flag.String("role", model.RoleStudent, "STUDENT or FACULTY")
		phone    = flag.String("phone", "", "optional phone number")
		dept     = flag.Uint64("department", 0, "optional department id")
		major    = flag.Uint64("major", 0, "optional major id (students)")
		title    = flag.String("title", "", "professor title for faculty, e.g. Dr.")
		migrate  = flag.Bool("migrate", false, "apply the schema before inserting")
	)
	flag.Parse()

	if err := run(*name, *email, *password, strings.ToUpper(strings.TrimSpace(*role)), *phone, *dept, *major, *title, *migrate); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(name, email, password, role, phone string, dept, major uint64, title string, migrate bool) error {
	if name == "" || email == "" || password == "" {
		return errors.New("-name, -email and -password are required")
	}
	if role != model.RoleStudent && role != model.RoleFaculty {
		return fmt.Errorf("unknown role %q", role)
	}

	config.LoadDotEnv()
	cfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	db, err := database.Connect(cfg.DBDriver, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if migrate {
		if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
			return err
		}
	}

	users := repository.NewUserRepo(db)
	id, err := users.Create(ctx, repository.NewUser{
		Name:         name,
		Email:        email,
		Password:     password,
		Role:         role,
		Phone:        phone,
		DepartmentID: dept,
		MajorID:      major,
	}, cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return fmt.Errorf("a user with email %s already exists", email)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	green.Printf("User created: ")
	fmt.Printf("%s <%s> ", name, strings.ToLower(email))
	cyan.Printf("id=%d role=%s\n", id, role)

	if role == model.RoleFaculty {
		pid, err := users.CreateProfessor(ctx, id, title)
		if err != nil {
			return fmt.Errorf("create professor profile: %w", err)
		}
		green.Printf("Professor profile: ")
		cyan.Printf("id=%d\n", pid)
	}
	return nil
}
