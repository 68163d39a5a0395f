package models

import (
	"strconv"
	"strings"
	"time"

	audit "datatrail/pkg/platform/audit"
)

// Usuario is the employee whose personal data the forms update.
type Usuario struct {
	ID                 int64      `db:"id_usuario" audit:"id" json:"id"`
	Nombre             string     `db:"nombre" json:"nombre"`
	Cedula             int64      `db:"documento" audit:"cedula" json:"cedula"`
	Correo             string     `db:"correo" json:"correo"`
	NumeroFijo         *string    `db:"numero_fijo" json:"numero_fijo,omitempty"`
	NumeroCelular      *string    `db:"numero_celular" json:"numero_celular,omitempty"`
	NumeroCorp         *string    `db:"numero_corp" json:"numero_corp,omitempty"`
	CedulaExpedicion   *string    `db:"cedula_expedicion" json:"cedula_expedicion,omitempty"`
	PaisNacimiento     *string    `db:"pais_nacimiento" json:"pais_nacimiento,omitempty"`
	CiudadNacimiento   *string    `db:"ciudad_nacimiento" json:"ciudad_nacimiento,omitempty"`
	Cargo              *string    `db:"cargo" json:"cargo,omitempty"`
	Area               *string    `db:"area" json:"area,omitempty"`
	FechaNacimiento    *time.Time `db:"fecha_nacimiento" json:"fecha_nacimiento,omitempty"`
	EstadoCivil        *string    `db:"estado_civil" json:"estado_civil,omitempty"`
	TipoSangre         *string    `db:"tipo_sangre" json:"tipo_sangre,omitempty"`
	Version            int        `db:"version" json:"version"`
	FechaActualizacion *time.Time `db:"fecha_actualizacion" json:"fecha_actualizacion,omitempty"`
}

var usuarioSchema = audit.SchemaOf[Usuario]()

// UsuarioDefinition describes the USUARIO table.
var UsuarioDefinition = &Definition[Usuario]{
	Table:    "USUARIO",
	SQLTable: "usuario",
	IDColumn: "id_usuario",
	Path:     "usuarios",
	Columns: []string{
		"nombre", "documento", "correo", "numero_fijo", "numero_celular",
		"numero_corp", "cedula_expedicion", "pais_nacimiento", "ciudad_nacimiento",
		"cargo", "area", "fecha_nacimiento", "estado_civil", "tipo_sangre",
	},
	Values: func(u *Usuario) []any {
		return []any{
			u.Nombre, u.Cedula, u.Correo, u.NumeroFijo, u.NumeroCelular,
			u.NumeroCorp, u.CedulaExpedicion, u.PaisNacimiento, u.CiudadNacimiento,
			u.Cargo, u.Area, u.FechaNacimiento, u.EstadoCivil, u.TipoSangre,
		}
	},
	TouchColumn: "fecha_actualizacion",
	Schema:      usuarioSchema,
	Identity:    identity(usuarioSchema, func(u *Usuario) int64 { return u.ID }),
	ID:          func(u *Usuario) int64 { return u.ID },
	SetID:       func(u *Usuario, id int64) { u.ID = id },
	Version:     func(u *Usuario) *int { return &u.Version },
	Touch:       func(u *Usuario, at time.Time) { u.FechaActualizacion = &at },
	Normalize:   normalizeUsuario,
	Validate:    validateUsuario,
	Unique: func(u *Usuario) []string {
		return []string{"documento=" + strconv.FormatInt(u.Cedula, 10), "correo=" + u.Correo}
	},
}

func normalizeUsuario(u *Usuario) {
	u.Nombre = collapse(u.Nombre)
	u.Correo = strings.ToLower(strings.TrimSpace(u.Correo))
	for _, p := range []**string{
		&u.NumeroFijo, &u.NumeroCelular, &u.NumeroCorp, &u.CedulaExpedicion,
		&u.PaisNacimiento, &u.CiudadNacimiento, &u.Cargo, &u.Area,
		&u.EstadoCivil, &u.TipoSangre,
	} {
		*p = trimPtr(*p)
	}
}

func validateUsuario(u *Usuario) error {
	var p problems
	p.required("nombre", u.Nombre)
	if u.Cedula <= 0 {
		p.add("cedula must be a positive number")
	}
	p.required("correo", u.Correo)
	p.email("correo", u.Correo)
	p.maxLen("tipo_sangre", u.TipoSangre, 3)
	if u.FechaNacimiento != nil && u.FechaNacimiento.After(time.Now()) {
		p.add("fecha_nacimiento is in the future")
	}
	return p.err()
}
