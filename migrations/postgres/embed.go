// Package migrations embebe los archivos SQL del backend KV sobre Postgres.
package migrations

import "embed"

// KVFS contiene las migraciones de la tabla kv_entries.
//
//go:embed kv/*.sql
var KVFS embed.FS

// KVDir es el directorio dentro de KVFS donde viven las migraciones.
const KVDir = "kv"
