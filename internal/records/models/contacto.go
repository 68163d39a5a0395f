package models

import audit "datatrail/pkg/platform/audit"

// ContactoEmergencia is who to call about a Usuario in an emergency.
type ContactoEmergencia struct {
	ID             int64   `db:"id_contacto" audit:"id" json:"id"`
	IDUsuario      int64   `db:"id_usuario" json:"id_usuario"`
	NombreCompleto string  `db:"nombre_completo" json:"nombre_completo"`
	Parentesco     *string `db:"parentesco" json:"parentesco,omitempty"`
	NumeroCelular  string  `db:"numero_celular" json:"numero_celular"`
	Version        int     `db:"version" json:"version"`
}

var contactoSchema = audit.SchemaOf[ContactoEmergencia]()

// ContactoEmergenciaDefinition describes the CONTACTO_EMERGENCIA table.
var ContactoEmergenciaDefinition = &Definition[ContactoEmergencia]{
	Table:    "CONTACTO_EMERGENCIA",
	SQLTable: "contacto_emergencia",
	IDColumn: "id_contacto",
	Path:     "contactos",
	Columns:  []string{"id_usuario", "nombre_completo", "parentesco", "numero_celular"},
	Values: func(c *ContactoEmergencia) []any {
		return []any{c.IDUsuario, c.NombreCompleto, c.Parentesco, c.NumeroCelular}
	},
	Schema:   contactoSchema,
	Identity: identity(contactoSchema, func(c *ContactoEmergencia) int64 { return c.ID }),
	ID:       func(c *ContactoEmergencia) int64 { return c.ID },
	SetID:    func(c *ContactoEmergencia, id int64) { c.ID = id },
	Version:  func(c *ContactoEmergencia) *int { return &c.Version },
	Normalize: func(c *ContactoEmergencia) {
		c.NombreCompleto = collapse(c.NombreCompleto)
		c.Parentesco = trimPtr(c.Parentesco)
		c.NumeroCelular = digits(c.NumeroCelular)
	},
	Validate: func(c *ContactoEmergencia) error {
		var p problems
		p.owner(c.IDUsuario)
		p.required("nombre_completo", c.NombreCompleto)
		p.phone("numero_celular", c.NumeroCelular)
		return p.err()
	},
}
