package models

import (
	"time"

	audit "datatrail/pkg/platform/audit"
)

// PersonaACargo is a dependant of a Usuario.
type PersonaACargo struct {
	ID              int64      `db:"id_persona" audit:"id" json:"id"`
	IDUsuario       int64      `db:"id_usuario" json:"id_usuario"`
	Nombre          string     `db:"nombre" json:"nombre"`
	Parentesco      string     `db:"parentesco" json:"parentesco"`
	FechaNacimiento *time.Time `db:"fecha_nacimiento" json:"fecha_nacimiento,omitempty"`
	Edad            *int       `db:"edad" json:"edad,omitempty"`
	Version         int        `db:"version" json:"version"`
}

var personaSchema = audit.SchemaOf[PersonaACargo]()

// PersonaACargoDefinition describes the PERSONA_A_CARGO table.
var PersonaACargoDefinition = &Definition[PersonaACargo]{
	Table:    "PERSONA_A_CARGO",
	SQLTable: "persona_a_cargo",
	IDColumn: "id_persona",
	Path:     "personas-a-cargo",
	Columns:  []string{"id_usuario", "nombre", "parentesco", "fecha_nacimiento", "edad"},
	Values: func(p *PersonaACargo) []any {
		return []any{p.IDUsuario, p.Nombre, p.Parentesco, p.FechaNacimiento, p.Edad}
	},
	Schema:   personaSchema,
	Identity: identity(personaSchema, func(p *PersonaACargo) int64 { return p.ID }),
	ID:       func(p *PersonaACargo) int64 { return p.ID },
	SetID:    func(p *PersonaACargo, id int64) { p.ID = id },
	Version:  func(p *PersonaACargo) *int { return &p.Version },
	Normalize: func(p *PersonaACargo) {
		p.Nombre = collapse(p.Nombre)
		p.Parentesco = collapse(p.Parentesco)
	},
	Validate: func(pc *PersonaACargo) error {
		var p problems
		p.owner(pc.IDUsuario)
		p.required("nombre", pc.Nombre)
		p.required("parentesco", pc.Parentesco)
		if pc.FechaNacimiento != nil && pc.FechaNacimiento.After(time.Now()) {
			p.add("fecha_nacimiento is in the future")
		}
		if pc.Edad != nil && (*pc.Edad < 0 || *pc.Edad > 130) {
			p.add("edad out of range (got %d)", *pc.Edad)
		}
		return p.err()
	},
}
