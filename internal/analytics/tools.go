// Package analytics holds the closed set of read-only sales tools the chat
// model may call, their JSON schemas, and their SQL implementations.
package analytics

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// ToolName identifies one of the permitted tools.
type ToolName string

const (
	ToolTopProductos         ToolName = "top_productos"
	ToolClientesInactivos    ToolName = "clientes_inactivos"
	ToolComprasPorCliente    ToolName = "compras_por_cliente"
	ToolProductosPorCliente  ToolName = "productos_por_cliente"
	ToolProductosDisminuidos ToolName = "productos_disminuidos"
)

// Limits shared by every tool.
const (
	MaxRangeDays = 730
	MaxRows      = 50
	DefaultLimit = 10
)

// Params is the typed parameter set of a single tool call. Each tool has
// exactly one implementation, so a Params value identifies its tool.
type Params interface {
	Tool() ToolName
}

type TopProductosParams struct {
	FechaInicio string `json:"fecha_inicio" jsonschema:"description=Fecha inicial inclusive (YYYY-MM-DD),format=date"`
	FechaFin    string `json:"fecha_fin" jsonschema:"description=Fecha final inclusive (YYYY-MM-DD),format=date"`
	Limite      *int   `json:"limite" jsonschema:"description=Cantidad máxima de productos (1-50); null usa 10,minimum=1,maximum=50,nullable"`
}

type ClientesInactivosParams struct {
	Dias int `json:"dias" jsonschema:"description=Días sin compras (1-730),minimum=1,maximum=730"`
}

type ComprasPorClienteParams struct {
	ClienteID   *int   `json:"cliente_id" jsonschema:"description=Id del cliente; null para buscarlo por nombre en la pregunta,nullable"`
	FechaInicio string `json:"fecha_inicio" jsonschema:"description=Fecha inicial inclusive (YYYY-MM-DD),format=date"`
	FechaFin    string `json:"fecha_fin" jsonschema:"description=Fecha final inclusive (YYYY-MM-DD),format=date"`
}

type ProductosPorClienteParams struct {
	ClienteID   *int   `json:"cliente_id" jsonschema:"description=Id del cliente; null para buscarlo por nombre en la pregunta,nullable"`
	FechaInicio string `json:"fecha_inicio" jsonschema:"description=Fecha inicial inclusive (YYYY-MM-DD),format=date"`
	FechaFin    string `json:"fecha_fin" jsonschema:"description=Fecha final inclusive (YYYY-MM-DD),format=date"`
	Limite      *int   `json:"limite" jsonschema:"description=Cantidad máxima de productos (1-50); null usa 10,minimum=1,maximum=50,nullable"`
}

type ProductosDisminuidosParams struct {
	ClienteID  *int `json:"cliente_id" jsonschema:"description=Id del cliente; null para buscarlo por nombre en la pregunta,nullable"`
	YearActual int  `json:"year_actual" jsonschema:"description=Año a evaluar (ej. 2024)"`
	YearPasado int  `json:"year_pasado" jsonschema:"description=Año de comparación (ej. 2023)"`
}

func (TopProductosParams) Tool() ToolName         { return ToolTopProductos }
func (ClientesInactivosParams) Tool() ToolName    { return ToolClientesInactivos }
func (ComprasPorClienteParams) Tool() ToolName    { return ToolComprasPorCliente }
func (ProductosPorClienteParams) Tool() ToolName  { return ToolProductosPorCliente }
func (ProductosDisminuidosParams) Tool() ToolName { return ToolProductosDisminuidos }

// Definition is the immutable description of a tool handed to the model.
type Definition struct {
	Name        ToolName
	Description string
	Schema      map[string]any

	params     reflect.Type
	properties map[string]bool
	required   []string
}

var definitions = mustBuildDefinitions()

// Definitions returns the tool catalog in a stable order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func lookup(name ToolName) (Definition, bool) {
	for _, d := range definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

func mustBuildDefinitions() []Definition {
	specs := []struct {
		name        ToolName
		description string
		params      any
	}{
		{ToolTopProductos,
			"Productos más vendidos en un rango de fechas, ordenados por cantidad y luego por monto.",
			TopProductosParams{}},
		{ToolClientesInactivos,
			"Clientes cuya última compra es anterior a N días (o que nunca compraron).",
			ClientesInactivosParams{}},
		{ToolComprasPorCliente,
			"Resumen de compras de un cliente en un rango de fechas: líneas, cantidad, monto y última compra.",
			ComprasPorClienteParams{}},
		{ToolProductosPorCliente,
			"Productos más comprados por un cliente en un rango de fechas.",
			ProductosPorClienteParams{}},
		{ToolProductosDisminuidos,
			"Productos que un cliente compró menos en un año respecto a otro.",
			ProductosDisminuidosParams{}},
	}

	out := make([]Definition, 0, len(specs))
	for _, s := range specs {
		schema, err := generateSchema(s.params)
		if err != nil {
			panic(fmt.Sprintf("analytics: schema for %s: %v", s.name, err))
		}
		d := Definition{
			Name:        s.name,
			Description: s.description,
			Schema:      schema,
			params:      reflect.TypeOf(s.params),
			properties:  map[string]bool{},
		}
		if props, ok := schema["properties"].(map[string]any); ok {
			for k := range props {
				d.properties[k] = true
			}
		}
		if req, ok := schema["required"].([]any); ok {
			for _, k := range req {
				if ks, ok := k.(string); ok {
					d.required = append(d.required, ks)
				}
			}
		}
		out = append(out, d)
	}
	return out
}

// generateSchema reflects a params struct into a plain JSON-schema map with
// additionalProperties=false and every field required.
func generateSchema(v any) (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema, nil
}
