// Command seeduser creates a user or, when the username exists, resets its
// password and role and re-enables it.
//
//	go run ./cmd/seeduser -username admin -password secreto -rol admin
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"gestionventas/internal/config"
	"gestionventas/internal/infra"
	"gestionventas/internal/model"
	"gestionventas/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	username := flag.String("username", "admin", "nombre de usuario")
	password := flag.String("password", "", "password (minimo 8 caracteres)")
	nombre := flag.String("nombre", "Administrador", "nombre visible")
	email := flag.String("email", "", "email opcional")
	rol := flag.String("rol", model.RolAdmin, "admin | seller | viewer")
	flag.Parse()

	switch *rol {
	case model.RolAdmin, model.RolSeller, model.RolViewer:
	default:
		log.Fatal().Str("rol", *rol).Msg("rol invalido")
	}
	if len(*password) < 8 {
		log.Fatal().Msg("el password debe tener al menos 8 caracteres")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt")
	}

	var emailPtr *string
	if *email != "" {
		emailPtr = email
	}

	ctx := context.Background()
	repo := repository.NewUsuarioRepository(db)
	u, err := repo.FindAnyByUsername(ctx, *username)
	switch {
	case repository.IsNotFound(err):
		u = &model.Usuario{
			Username:     *username,
			Nombre:       *nombre,
			Email:        emailPtr,
			PasswordHash: string(hash),
			Rol:          *rol,
			Activo:       true,
		}
		if err := repo.Create(ctx, u); err != nil {
			log.Fatal().Err(err).Msg("create user")
		}
		log.Info().Str("username", u.Username).Str("rol", u.Rol).Msg("usuario creado")
	case err != nil:
		log.Fatal().Err(err).Msg("lookup user")
	default:
		u.Nombre = *nombre
		u.PasswordHash = string(hash)
		u.Rol = *rol
		u.Activo = true
		if emailPtr != nil {
			u.Email = emailPtr
		}
		if err := repo.Update(ctx, u); err != nil {
			log.Fatal().Err(err).Msg("update user")
		}
		log.Info().Str("username", u.Username).Str("rol", u.Rol).Msg("usuario actualizado")
	}
}
