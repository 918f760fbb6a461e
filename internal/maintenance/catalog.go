package maintenance

import "strings"

// modelEntry is one model family in the built-in catalog. Aliases cover the
// free-text modelo values seen in the registry ("320", "cat 320", "320 gc").
type modelEntry struct {
	Modelo  string
	Aliases []string
	Catalog ModelCatalog
}

// staticCatalog carries the factory maintenance data for the Caterpillar
// model families operated by the fleet. Kits for other brands come from the
// kit tables; this static data is the fallback the planner screens use.
var staticCatalog = []modelEntry{
	{
		Modelo:  "Excavadora 320",
		Aliases: []string{"320", "cat 320", "excavadora 320", "320 gc"},
		Catalog: ModelCatalog{
			"PM1": {
				Tareas: []string{
					"Toma de muestras SOS de aceite de motor, hidráulico y refrigerante.",
					"Inspección visual de fugas, correas y mangueras.",
				},
				Piezas: []PartRef{},
			},
			"PM2": {
				Tareas: []string{
					"Cambio de aceite y filtro de motor (15L aprox.).",
					"Sustitución de filtros de combustible primario y secundario.",
					"Reemplazo del filtro de aire del motor.",
				},
				Piezas: []PartRef{
					{Nombre: "Filtro de aceite de motor", NumeroParte: "322-3155", Tipo: "Filtro", Cantidad: 1},
					{Nombre: "Filtro primario de combustible", NumeroParte: "479-4131", Tipo: "Filtro", Cantidad: 1},
					{Nombre: "Filtro secundario de combustible", NumeroParte: "360-8960", Tipo: "Filtro", Cantidad: 1},
				},
			},
			"PM3": {
				Tareas: []string{
					"Cambiar filtros hidráulicos principales y de retorno.",
					"Cambiar filtros de transmisión.",
					"Sustituir aceite de transmisión final y motor de giro.",
				},
				Piezas: []PartRef{
					{Nombre: "Filtro hidráulico de retorno", NumeroParte: "174-8573", Tipo: "Filtro", Cantidad: 1},
					{Nombre: "Filtro de transmisión", NumeroParte: "114-3173", Tipo: "Filtro", Cantidad: 1},
				},
			},
			"PM4": {
				Tareas: []string{
					"Sustituir filtro del secador de A/C.",
					"Reemplazar juntas de tapa de válvulas y realizar ajuste de válvulas.",
					"Reemplazar respiradero del depósito hidráulico y lubricar puntos estructurales.",
				},
				Piezas: []PartRef{
					{Nombre: "Filtro secador de aire acondicionado", NumeroParte: "191-3340", Tipo: "A/C", Cantidad: 1},
				},
			},
		},
	},
	{
		Modelo:  "Retroexcavadora 416F",
		Aliases: []string{"416f", "retroexcavadora 416", "416"},
		Catalog: ModelCatalog{
			"PM1": {
				Tareas: []string{
					"Muestras SOS y revisión general de fugas.",
					"Verificar desgaste de neumáticos y ajustes de frenos.",
				},
				Piezas: []PartRef{},
			},
			"PM2": {
				Tareas: []string{
					"Cambio de aceite y filtro de motor.",
					"Sustitución de filtros de combustible primario y secundario.",
					"Cambio de filtro de aire del motor y limpieza de prefiltro.",
				},
				Piezas: []PartRef{
					{Nombre: "Filtro de aceite de motor", NumeroParte: "7W-2326", Tipo: "Filtro", Cantidad: 1},
					{Nombre: "Filtro de combustible", NumeroParte: "326-1644", Tipo: "Filtro", Cantidad: 1},
				},
			},
			"PM3": {
				Tareas: []string{
					"Reemplazar filtros hidráulicos y revisar caja de cambios.",
					"Lubricación general de pivotes y estabilizadores.",
				},
				Piezas: []PartRef{
					{Nombre: "Filtro hidráulico", NumeroParte: "126-1813", Tipo: "Filtro", Cantidad: 1},
				},
			},
			"PM4": {
				Tareas: []string{
					"Cambio de filtro del secador de A/C.",
					"Revisión de convertidor de par y ajuste de válvulas.",
				},
				Piezas: []PartRef{
					{Nombre: "Filtro secador de A/C", NumeroParte: "191-3340", Tipo: "A/C", Cantidad: 1},
				},
			},
		},
	},
}

// FindModelCatalog resolves the static catalog for a free-text modelo value.
// Matching is case-insensitive over the model name and its aliases; no match
// returns nil, which ResolveKitAndTasks treats as an empty catalog.
func FindModelCatalog(modelo string) ModelCatalog {
	needle := strings.ToLower(strings.TrimSpace(modelo))
	if needle == "" {
		return nil
	}
	for _, entry := range staticCatalog {
		if strings.ToLower(entry.Modelo) == needle {
			return entry.Catalog
		}
		for _, alias := range entry.Aliases {
			if needle == alias || strings.Contains(needle, alias) {
				return entry.Catalog
			}
		}
	}
	return nil
}
