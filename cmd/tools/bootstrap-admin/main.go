// Command bootstrap-admin seeds or updates an administrator account in the datastore.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"itspace/internal/models"
	"itspace/internal/storage"
)

func main() {
	var (
		jsonPath    string
		postgresDSN string
		email       string
		name        string
		password    string
	)

	flag.StringVar(&jsonPath, "json", "", "Path to the JSON datastore (store.json)")
	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&email, "email", "", "Email address for the admin account")
	flag.StringVar(&name, "name", "Administrator", "Display name for the admin account")
	flag.StringVar(&password, "password", "", "Password for the admin account")
	flag.Parse()

	if jsonPath == "" && postgresDSN == "" {
		fatalf("either --json or --postgres-dsn must be provided")
	}
	if jsonPath != "" && postgresDSN != "" {
		fatalf("only one datastore option may be provided")
	}
	if strings.TrimSpace(email) == "" {
		fatalf("--email is required")
	}
	if len(password) < 8 {
		fatalf("--password must be at least 8 characters")
	}
	if strings.TrimSpace(name) == "" {
		fatalf("--name cannot be empty")
	}

	repo, err := openRepository(jsonPath, postgresDSN)
	if err != nil {
		fatalf("open datastore: %v", err)
	}
	defer closeRepository(repo)

	user, created, err := bootstrapAdmin(repo, strings.TrimSpace(email), strings.TrimSpace(name), password)
	if err != nil {
		fatalf("bootstrap admin: %v", err)
	}

	state := "updated"
	if created {
		state = "created"
	}
	fmt.Printf("Admin user %s (%s) %s successfully.\n", user.Email, user.Name, state)
	fmt.Println("Remember to rotate this password after the first login.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openRepository(jsonPath, postgresDSN string) (storage.Repository, error) {
	if jsonPath != "" {
		return storage.NewStorage(jsonPath)
	}
	return storage.NewPostgresRepository(postgresDSN)
}

func closeRepository(repo storage.Repository) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = repo.Close(ctx)
}

func bootstrapAdmin(repo storage.Repository, email, name, password string) (models.User, bool, error) {
	normalized := strings.ToLower(email)
	if existing, ok := repo.GetUserByEmail(normalized); ok {
		return updateAdmin(repo, existing, name, password)
	}

	user, err := repo.CreateUser(storage.CreateUserParams{
		Name:     name,
		Email:    normalized,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}

func updateAdmin(repo storage.Repository, existing models.User, name, password string) (models.User, bool, error) {
	var update storage.UserUpdate
	if existing.Name != name {
		update.Name = &name
	}
	if existing.Role != models.RoleAdmin {
		role := models.RoleAdmin
		update.Role = &role
	}

	updated := existing
	var err error
	if update.Name != nil || update.Role != nil {
		updated, err = repo.UpdateUser(existing.ID, update)
		if err != nil {
			return models.User{}, false, err
		}
	}

	if err := repo.SetUserPassword(existing.ID, password); err != nil {
		return models.User{}, false, err
	}
	return updated, false, nil
}
