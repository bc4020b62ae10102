// Command resetcontador sets a document counter; the next number handed out
// is valor+1.
//
//	go run ./cmd/resetcontador -id ventas -valor 0
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
	"gestionventas/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	id := flag.String("id", model.ContadorVentas, "ventas | proformas | productos")
	valor := flag.Int64("valor", 0, "valor actual del contador")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	sec := service.NewSecuenciador(repository.NewContadorRepository(db))
	c, err := sec.Reiniciar(context.Background(), *id, *valor)
	if err != nil {
		log.Fatal().Err(err).Str("id", *id).Msg("reset failed")
	}
	log.Info().Str("id", c.ID).Int64("seq", c.Seq).Str("last_number", c.LastNumber).Msg("contador reiniciado")
}
