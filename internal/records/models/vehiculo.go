package models

import (
	"strings"

	audit "datatrail/pkg/platform/audit"
)

// Vehiculo is a vehicle declared by a Usuario.
type Vehiculo struct {
	ID           int64  `db:"id_vehiculo" audit:"id" json:"id"`
	IDUsuario    int64  `db:"id_usuario" json:"id_usuario"`
	TipoVehiculo string `db:"tipo_vehiculo" json:"tipo_vehiculo"`
	Marca        string `db:"marca" json:"marca"`
	Placa        string `db:"placa" json:"placa"`
	Anio         int    `db:"anio" json:"anio"`
	Propietario  string `db:"propietario" json:"propietario"`
	Version      int    `db:"version" json:"version"`
}

var vehiculoSchema = audit.SchemaOf[Vehiculo]()

// VehiculoDefinition describes the VEHICULO table.
var VehiculoDefinition = &Definition[Vehiculo]{
	Table:    "VEHICULO",
	SQLTable: "vehiculo",
	IDColumn: "id_vehiculo",
	Path:     "vehiculos",
	Columns:  []string{"id_usuario", "tipo_vehiculo", "marca", "placa", "anio", "propietario"},
	Values: func(v *Vehiculo) []any {
		return []any{v.IDUsuario, v.TipoVehiculo, v.Marca, v.Placa, v.Anio, v.Propietario}
	},
	Schema:   vehiculoSchema,
	Identity: identity(vehiculoSchema, func(v *Vehiculo) int64 { return v.ID }),
	ID:       func(v *Vehiculo) int64 { return v.ID },
	SetID:    func(v *Vehiculo, id int64) { v.ID = id },
	Version:  func(v *Vehiculo) *int { return &v.Version },
	Normalize: func(v *Vehiculo) {
		v.Placa = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(v.Placa), " ", ""))
		v.Marca = strings.TrimSpace(v.Marca)
		v.TipoVehiculo = strings.TrimSpace(v.TipoVehiculo)
		v.Propietario = strings.TrimSpace(v.Propietario)
	},
	Validate: func(v *Vehiculo) error {
		var p problems
		p.owner(v.IDUsuario)
		p.required("tipo_vehiculo", v.TipoVehiculo)
		p.required("marca", v.Marca)
		p.required("placa", v.Placa)
		p.required("propietario", v.Propietario)
		p.year("anio", v.Anio)
		return p.err()
	},
}
