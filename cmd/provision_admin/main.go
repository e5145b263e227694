package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/config"
	"github.com/2beens/realestate/internal/db"
	"github.com/2beens/realestate/internal/users"

	log "github.com/sirupsen/logrus"
)

// provisioner acts with admin rights, there is no admin yet to log in as
var provisioner = &auth.Identity{Name: "provision_admin", Role: auth.RoleAdmin}

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	email := flag.String("email", "", "account email")
	name := flag.String("name", "Administrator", "account display name")
	role := flag.String("role", string(auth.RoleAdmin), "account role [admin | user]")
	update := flag.Bool("update", false, "reset the password of an existing account")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	password := os.Getenv("REALESTATE_ADMIN_PASSWORD")
	if *email == "" || password == "" {
		log.Fatalln("email and password required: use -email and REALESTATE_ADMIN_PASSWORD")
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("REALESTATE_DB_PASSWORD"),
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	if err := db.RunMigrations(ctx, dbPool); err != nil {
		log.Fatalf("run migrations: %s", err)
	}

	repo := users.NewRepo(dbPool)
	msg, err := provision(ctx, repo, users.NewService(repo), provisionParams{
		email:    *email,
		name:     *name,
		role:     *role,
		password: password,
		update:   *update,
	})
	if err != nil {
		log.Fatalln(err)
	}
	log.Infoln(msg)
}

type credentialLookup interface {
	GetCredentialByEmail(ctx context.Context, email string) (*auth.Credential, error)
}

type accountService interface {
	Create(ctx context.Context, actor *auth.Identity, in users.CreateUserInput) (*users.User, error)
	Update(ctx context.Context, actor *auth.Identity, id int, in users.UpdateUserInput) (*users.User, error)
}

type provisionParams struct {
	email    string
	name     string
	role     string
	password string
	update   bool
}

// provision creates the account, or resets its password when update is set.
func provision(ctx context.Context, lookup credentialLookup, service accountService, p provisionParams) (string, error) {
	email := users.NormalizeEmail(p.email)

	existing, err := lookup.GetCredentialByEmail(ctx, email)
	switch {
	case errors.Is(err, auth.ErrCredentialNotFound):
		user, err := service.Create(ctx, provisioner, users.CreateUserInput{
			Name:     p.name,
			Email:    email,
			Password: p.password,
			Role:     p.role,
		})
		if err != nil {
			return "", fmt.Errorf("create account: %w", err)
		}
		return fmt.Sprintf("account %d created for [%s] with role [%s]", user.ID, user.Email, user.Role), nil
	case err != nil:
		return "", fmt.Errorf("look up account: %w", err)
	case !p.update:
		return "", fmt.Errorf("account [%s] already exists, use -update to reset its password", email)
	default:
		user, err := service.Update(ctx, provisioner, existing.ID, users.UpdateUserInput{
			Name:     existing.Name,
			Email:    existing.Email,
			Password: p.password,
			Role:     string(existing.Role),
		})
		if err != nil {
			return "", fmt.Errorf("update account: %w", err)
		}
		return fmt.Sprintf("password reset for account %d [%s]", user.ID, user.Email), nil
	}
}
