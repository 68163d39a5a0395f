package models

import audit "datatrail/pkg/platform/audit"

// EstudioAcademico is one academic degree or ongoing program of a Usuario.
type EstudioAcademico struct {
	ID             int64   `db:"id_estudio" audit:"id" json:"id"`
	IDUsuario      int64   `db:"id_usuario" json:"id_usuario"`
	NivelAcademico string  `db:"nivel_academico" json:"nivel_academico"`
	Institucion    string  `db:"institucion" json:"institucion"`
	Programa       *string `db:"programa" json:"programa,omitempty"`
	Semestre       *int    `db:"semestre" json:"semestre,omitempty"`
	Graduacion     *string `db:"graduacion" json:"graduacion,omitempty"`
	Version        int     `db:"version" json:"version"`
}

var estudioSchema = audit.SchemaOf[EstudioAcademico]()

// EstudioAcademicoDefinition describes the ESTUDIO_ACADEMICO table.
var EstudioAcademicoDefinition = &Definition[EstudioAcademico]{
	Table:    "ESTUDIO_ACADEMICO",
	SQLTable: "estudio_academico",
	IDColumn: "id_estudio",
	Path:     "estudios",
	Columns:  []string{"id_usuario", "nivel_academico", "institucion", "programa", "semestre", "graduacion"},
	Values: func(e *EstudioAcademico) []any {
		return []any{e.IDUsuario, e.NivelAcademico, e.Institucion, e.Programa, e.Semestre, e.Graduacion}
	},
	Schema:   estudioSchema,
	Identity: identity(estudioSchema, func(e *EstudioAcademico) int64 { return e.ID }),
	ID:       func(e *EstudioAcademico) int64 { return e.ID },
	SetID:    func(e *EstudioAcademico, id int64) { e.ID = id },
	Version:  func(e *EstudioAcademico) *int { return &e.Version },
	Normalize: func(e *EstudioAcademico) {
		e.NivelAcademico = collapse(e.NivelAcademico)
		e.Institucion = collapse(e.Institucion)
		e.Programa = trimPtr(e.Programa)
		e.Graduacion = trimPtr(e.Graduacion)
	},
	Validate: func(e *EstudioAcademico) error {
		var p problems
		p.owner(e.IDUsuario)
		p.required("nivel_academico", e.NivelAcademico)
		p.required("institucion", e.Institucion)
		if e.Semestre != nil && (*e.Semestre < 1 || *e.Semestre > 20) {
			p.add("semestre out of range (got %d)", *e.Semestre)
		}
		return p.err()
	},
}
