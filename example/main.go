package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/damian-ds7/classconf"
)

// AppConfig is the top-level record: its fields sit directly on the
// document root.
type AppConfig struct {
	Name    string `classconf:"name"`
	Verbose bool   `classconf:"verbose"`
	Storage string `classconf:"storage"`
}

// PostgresConfig and SQLiteConfig are section records; AppConfig.Storage
// selects between them by name.
type PostgresConfig struct {
	Host string `classconf:"host"`
	Port int    `classconf:"port"`
}

type SQLiteConfig struct {
	Path string `classconf:"path"`
}

func main() {
	dir, err := os.MkdirTemp("", "classconf-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "app.toml")

	appSpec := classconf.MustSpec[AppConfig](
		classconf.WithTopLevel(),
		classconf.WithDefaults(AppConfig{Name: "demo", Storage: "sqlite"}),
	)
	pgSpec := classconf.MustSpec[PostgresConfig](
		classconf.WithName("postgres"),
		classconf.WithDefaults(PostgresConfig{Host: "localhost", Port: 5432}),
	)
	liteSpec := classconf.MustSpec[SQLiteConfig](
		classconf.WithName("sqlite"),
		classconf.WithDefaults(SQLiteConfig{Path: "data.db"}),
	)

	reg, err := classconf.New(path,
		classconf.WithSpecs(appSpec, pgSpec, liteSpec),
		classconf.WithCreateMissing(),
	)
	if err != nil {
		log.Fatal(err)
	}

	// First Get creates the file from defaults and parses it back.
	app, err := classconf.Get[AppConfig](reg)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("app %q, storage backend %q\n", app.Name, app.Storage)

	switch app.Storage {
	case "postgres":
		pg, err := classconf.Get[PostgresConfig](reg)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("postgres at %s:%d\n", pg.Host, pg.Port)
	default:
		lite, err := classconf.Get[SQLiteConfig](reg)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("sqlite at %s\n", lite.Path)
	}

	// Standalone generation, no registry involved.
	jsonPath := filepath.Join(dir, "app.json")
	err = classconf.Generate(jsonPath, classconf.NewJSONFormat(), false,
		classconf.Bind(appSpec, AppConfig{Name: "generated", Storage: "postgres"}),
		classconf.Bind(pgSpec, PostgresConfig{Host: "db.internal", Port: 5433}),
	)
	if err != nil {
		log.Fatal(err)
	}

	generated, err := os.ReadFile(jsonPath)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("generated %s:\n%s", jsonPath, generated)
}
