// Package maintenance holds the pure maintenance-interval resolution and
// remaining-life computation shared by every screen and report. It has no
// framework or persistence dependency; all functions are total over their
// stated domain and never return errors for degenerate numeric inputs.
package maintenance

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Status classifies the remaining life of a scheduled maintenance
type Status string

const (
	StatusVencido Status = "vencido"
	StatusProximo Status = "proximo"
	StatusNormal  Status = "normal"
)

// DefaultThreshold is the upcoming-window size in hours/km used when a caller
// does not choose one explicitly. Screens may pass 50 or 250 instead; the
// threshold is always an explicit parameter so call sites cannot drift apart.
const DefaultThreshold = 100

var pmTokenPattern = regexp.MustCompile(`(?i)(PM\d)`)

// ComputeRemaining derives the next due point and remaining life from the
// three base fields. The stored proximo_mantenimiento / horas_km_restante
// columns are caches only; this recomputation is authoritative.
//
// No bounds checking: zero or negative frecuencia propagates into a remaining
// value the classifier renders as permanently overdue.
func ComputeRemaining(horasKmActuales, horasKmUltimoMantenimiento, frecuencia float64) (proximo, restante float64) {
	proximo = horasKmUltimoMantenimiento + frecuencia
	restante = proximo - horasKmActuales
	return proximo, restante
}

// Classify maps a remaining value onto exactly one status. The boundary
// restante == threshold belongs to StatusProximo (inclusive upper bound);
// restante == 0 is already StatusVencido.
func Classify(restante, threshold float64) Status {
	switch {
	case restante <= 0:
		return StatusVencido
	case restante <= threshold:
		return StatusProximo
	default:
		return StatusNormal
	}
}

// FormatRemainingLabel renders a remaining value for display. Rounding is to
// the nearest integer for display only; the numeric value stays a float for
// further computation.
func FormatRemainingLabel(restante float64, unidad string) string {
	if restante <= 0 {
		magnitud := int(math.Round(math.Abs(restante)))
		if magnitud == 0 {
			return "Vencido"
		}
		return fmt.Sprintf("%d %s vencido", magnitud, unidad)
	}
	return fmt.Sprintf("%d %s restantes", int(math.Round(restante)), unidad)
}

// ResolveIntervalCode infers the PM interval code for a scheduled maintenance.
// A PMn token embedded in the tipo_mantenimiento label always wins over the
// frequency table; an unmatched label with zero frecuencia, or a frecuencia
// above 2000, yields the empty string (unclassified).
func ResolveIntervalCode(tipoMantenimiento string, frecuencia float64) string {
	if match := pmTokenPattern.FindString(tipoMantenimiento); match != "" {
		return strings.ToUpper(match)
	}
	if frecuencia == 0 {
		return ""
	}
	switch {
	case frecuencia <= 250:
		return "PM1"
	case frecuencia <= 500:
		return "PM2"
	case frecuencia <= 1000:
		return "PM3"
	case frecuencia <= 2000:
		return "PM4"
	default:
		return ""
	}
}

// PartRef is one recommended part for an interval of a model family
type PartRef struct {
	Nombre      string `json:"nombre"`
	NumeroParte string `json:"numero_parte"`
	Tipo        string `json:"tipo,omitempty"`
	Cantidad    int    `json:"cantidad"`
}

// IntervalKit bundles the recommended tasks and parts for one interval code
type IntervalKit struct {
	Tareas []string  `json:"tareas"`
	Piezas []PartRef `json:"piezas"`
}

// ModelCatalog maps interval codes (PM1..PM4) to their kit for one model family
type ModelCatalog map[string]IntervalKit

// ResolveKitAndTasks looks up the recommended tasks and parts for an interval
// code in a model catalog. Absent entries yield empty lists, never an error.
func ResolveKitAndTasks(intervalo string, catalog ModelCatalog) IntervalKit {
	if catalog == nil {
		return IntervalKit{Tareas: []string{}, Piezas: []PartRef{}}
	}
	kit, ok := catalog[strings.ToUpper(intervalo)]
	if !ok {
		return IntervalKit{Tareas: []string{}, Piezas: []PartRef{}}
	}
	if kit.Tareas == nil {
		kit.Tareas = []string{}
	}
	if kit.Piezas == nil {
		kit.Piezas = []PartRef{}
	}
	return kit
}
