package models

import (
	"strings"

	audit "datatrail/pkg/platform/audit"
)

// RelacionConf is one entry of the conflict-of-interest declaration: a
// relative or associate of the Usuario and how they relate to the company.
type RelacionConf struct {
	ID             int64   `db:"id_relacion_conf" audit:"id" json:"id"`
	IDUsuario      int64   `db:"id_usuario" json:"id_usuario"`
	NombreCompleto string  `db:"nombre_completo" json:"nombre_completo"`
	Parentesco     *string `db:"parentesco" json:"parentesco,omitempty"`
	TipoParteAsoc  string  `db:"tipo_parte_asoc" json:"tipo_parte_asoc"`
	TieneCL        bool    `db:"tiene_cl" audit:"tiene_cl" json:"tiene_cl"`
	Version        int     `db:"version" json:"version"`
}

var relacionSchema = audit.SchemaOf[RelacionConf]()

// RelacionConfDefinition describes the RELACION_CONF table.
var RelacionConfDefinition = &Definition[RelacionConf]{
	Table:    "RELACION_CONF",
	SQLTable: "relacion_conf",
	IDColumn: "id_relacion_conf",
	Path:     "relaciones-conf",
	Columns:  []string{"id_usuario", "nombre_completo", "parentesco", "tipo_parte_asoc", "tiene_cl"},
	Values: func(r *RelacionConf) []any {
		return []any{r.IDUsuario, r.NombreCompleto, r.Parentesco, r.TipoParteAsoc, r.TieneCL}
	},
	Schema:   relacionSchema,
	Identity: identity(relacionSchema, func(r *RelacionConf) int64 { return r.ID }),
	ID:       func(r *RelacionConf) int64 { return r.ID },
	SetID:    func(r *RelacionConf, id int64) { r.ID = id },
	Version:  func(r *RelacionConf) *int { return &r.Version },
	Normalize: func(r *RelacionConf) {
		r.NombreCompleto = collapse(r.NombreCompleto)
		r.Parentesco = trimPtr(r.Parentesco)
		r.TipoParteAsoc = strings.ToUpper(collapse(r.TipoParteAsoc))
	},
	Validate: func(r *RelacionConf) error {
		var p problems
		p.owner(r.IDUsuario)
		p.required("nombre_completo", r.NombreCompleto)
		p.required("tipo_parte_asoc", r.TipoParteAsoc)
		return p.err()
	},
}
