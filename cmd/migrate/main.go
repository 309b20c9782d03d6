// migrate aplica las migraciones embebidas sobre la base configurada (DATABASE_URL o DB_*).
//
// Uso: go run ./cmd/migrate [up|down|steps N|version]
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jhoicas/inventario-cocina/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-cocina/pkg/config"
	"github.com/jhoicas/inventario-cocina/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, App: cfg.App.Name})

	cmd, args := "up", []string(nil)
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	migrator, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("crear migrador")
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrar migrador")
		}
	}()

	if err := run(migrator, cmd, args); err != nil {
		log.Error().Err(err).Str("cmd", cmd).Msg("migración fallida")
		os.Exit(1)
	}
}

func run(m *postgres.Migrator, cmd string, args []string) error {
	switch cmd {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps":
		if len(args) == 0 {
			return fmt.Errorf("steps requiere N")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("steps: %w", err)
		}
		return m.Steps(n)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("versión %d (dirty=%t)\n", v, dirty)
		return nil
	}
	return fmt.Errorf("comando desconocido %q (up|down|steps N|version)", cmd)
}
