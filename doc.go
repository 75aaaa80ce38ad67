// Package classconf maps structured record types to and from config files
// through declarative, per-type metadata. A Spec declares how one record
// type is laid out in the file: its section name, whether its fields occupy
// the document root, renamed keys, and custom field converters. A Registry
// orchestrates any number of specs against a single backing file, creating
// it from defaults when asked, and hands out cached instances on demand.
//
// Features:
//   - Pluggable file formats (TOML, JSON, YAML) behind a small Format
//     contract, all round-tripping through an order-preserving document tree
//   - Per-field custom serializers and deserializers, including
//     registry-aware deserializers that resolve other registered sections
//   - Nested record types serialized as nested tables
//   - Create-on-missing: a nonexistent file is written from default values
//   - Standalone config generation independent of any registry
//
// Quick start:
//
//	type ServerConfig struct {
//	    Host string `classconf:"host"`
//	    Port int    `classconf:"port"`
//	}
//
//	spec := classconf.MustSpec[ServerConfig](
//	    classconf.WithName("server"),
//	    classconf.WithDefaults(ServerConfig{Host: "localhost", Port: 8080}),
//	)
//
//	reg, err := classconf.New("app.toml",
//	    classconf.WithSpecs(spec),
//	    classconf.WithCreateMissing(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server, err := classconf.Get[ServerConfig](reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(server.Host, server.Port)
//
// Errors are sentinel values (ErrFileNotFound, ErrParse, ErrMissingKey, ...)
// wrapped with context; match them with errors.Is.
//
// A Registry performs no locking of its own. Loading happens once, lazily,
// on first Get; callers sharing a Registry across goroutines must serialize
// Load and Add themselves.
package classconf
