package models

import audit "datatrail/pkg/platform/audit"

// Vivienda is the housing situation declared by a Usuario.
type Vivienda struct {
	ID              int64   `db:"id_vivienda" audit:"id" json:"id"`
	IDUsuario       int64   `db:"id_usuario" json:"id_usuario"`
	TipoVivienda    *string `db:"tipo_vivienda" json:"tipo_vivienda,omitempty"`
	Direccion       *string `db:"direccion" json:"direccion,omitempty"`
	InfoAdicional   *string `db:"info_adicional" json:"info_adicional,omitempty"`
	Barrio          *string `db:"barrio" json:"barrio,omitempty"`
	Ciudad          *string `db:"ciudad" json:"ciudad,omitempty"`
	Vivienda        *string `db:"vivienda" json:"vivienda,omitempty"`
	Entidad         *string `db:"entidad" json:"entidad,omitempty"`
	Anio            *int    `db:"anio" json:"anio,omitempty"`
	TipoAdquisicion *string `db:"tipo_adquisicion" json:"tipo_adquisicion,omitempty"`
	Version         int     `db:"version" json:"version"`
}

var viviendaSchema = audit.SchemaOf[Vivienda]()

// ViviendaDefinition describes the VIVIENDA table.
var ViviendaDefinition = &Definition[Vivienda]{
	Table:    "VIVIENDA",
	SQLTable: "vivienda",
	IDColumn: "id_vivienda",
	Path:     "viviendas",
	Columns: []string{
		"id_usuario", "tipo_vivienda", "direccion", "info_adicional", "barrio",
		"ciudad", "vivienda", "entidad", "anio", "tipo_adquisicion",
	},
	Values: func(v *Vivienda) []any {
		return []any{
			v.IDUsuario, v.TipoVivienda, v.Direccion, v.InfoAdicional, v.Barrio,
			v.Ciudad, v.Vivienda, v.Entidad, v.Anio, v.TipoAdquisicion,
		}
	},
	Schema:   viviendaSchema,
	Identity: identity(viviendaSchema, func(v *Vivienda) int64 { return v.ID }),
	ID:       func(v *Vivienda) int64 { return v.ID },
	SetID:    func(v *Vivienda, id int64) { v.ID = id },
	Version:  func(v *Vivienda) *int { return &v.Version },
	Normalize: func(v *Vivienda) {
		for _, p := range []**string{
			&v.TipoVivienda, &v.Direccion, &v.InfoAdicional, &v.Barrio,
			&v.Ciudad, &v.Vivienda, &v.Entidad, &v.TipoAdquisicion,
		} {
			*p = trimPtr(*p)
		}
	},
	Validate: func(v *Vivienda) error {
		var p problems
		p.owner(v.IDUsuario)
		p.maxLen("direccion", v.Direccion, 200)
		if v.Anio != nil {
			p.year("anio", *v.Anio)
		}
		return p.err()
	},
}
