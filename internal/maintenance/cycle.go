package maintenance

import (
	"fmt"
	"math"
)

// The PM cycle repeats every 2000 hours:
//
//	250h  PM1   500h  PM2   750h  PM1   1000h PM3
//	1250h PM1   1500h PM2   1750h PM1   2000h PM4
const cycleLength = 2000

// AlertLevel grades how close the next cycle maintenance is
type AlertLevel string

const (
	AlertNormal  AlertLevel = "normal"
	AlertProximo AlertLevel = "proximo"
	AlertUrgente AlertLevel = "urgente"
	AlertVencido AlertLevel = "vencido"
)

// Interval is one preventive-maintenance tier definition
type Interval struct {
	Codigo         string  `json:"codigo"`
	Nombre         string  `json:"nombre"`
	HorasIntervalo float64 `json:"horas_intervalo"`
	Descripcion    string  `json:"descripcion,omitempty"`
}

// StandardIntervals are the Caterpillar/Volvo factory tiers
var StandardIntervals = []Interval{
	{Codigo: "PM1", Nombre: "Servicio básico 250h", HorasIntervalo: 250,
		Descripcion: "Cambio de aceite y filtro de motor, inspección general"},
	{Codigo: "PM2", Nombre: "Servicio extendido 500h", HorasIntervalo: 500,
		Descripcion: "PM1 + filtros de combustible y aire"},
	{Codigo: "PM3", Nombre: "Servicio mayor 1000h", HorasIntervalo: 1000,
		Descripcion: "PM2 + filtros hidráulicos"},
	{Codigo: "PM4", Nombre: "Overhaul programado 2000h", HorasIntervalo: 2000,
		Descripcion: "PM3 + cambio de aceite hidráulico completo"},
}

// CycleStep is one maintenance inside a simulated 2000h cycle
type CycleStep struct {
	Numero          int      `json:"numero"`
	HorasProgramada float64  `json:"horas_programadas"`
	Intervalo       Interval `json:"intervalo"`
	Completado      bool     `json:"completado"`
	EsProximo       bool     `json:"es_proximo"`
}

// CycleState describes where in the PM cycle an equipment sits, simulating
// the route from 0 hours as if every maintenance had been done on schedule
type CycleState struct {
	HorasActuales    float64     `json:"horas_actuales"`
	CicloActual      int         `json:"ciclo_actual"`
	IntervaloProximo *Interval   `json:"intervalo_proximo"`
	IntervaloActual  *Interval   `json:"intervalo_actual"`
	HorasParaProximo float64     `json:"horas_para_proximo"`
	HorasDesdeUltimo float64     `json:"horas_desde_ultimo"`
	Historial        []CycleStep `json:"historial_ciclo"`
	PorcentajeCiclo  float64     `json:"porcentaje_ciclo"`
	EstadoAlerta     AlertLevel  `json:"estado_alerta"`
}

func intervalByCode(intervals []Interval, codigo string) Interval {
	for _, iv := range intervals {
		if iv.Codigo == codigo {
			return iv
		}
	}
	return intervals[len(intervals)-1]
}

// CycleSequence generates the sequence of maintenances inside one 2000h cycle
func CycleSequence(intervals []Interval) []CycleStep {
	if len(intervals) == 0 {
		intervals = StandardIntervals
	}
	pm1 := intervalByCode(intervals, "PM1")
	pm2 := intervalByCode(intervals, "PM2")
	pm3 := intervalByCode(intervals, "PM3")
	pm4 := intervalByCode(intervals, "PM4")

	plan := []struct {
		horas     float64
		intervalo Interval
	}{
		{250, pm1}, {500, pm2}, {750, pm1}, {1000, pm3},
		{1250, pm1}, {1500, pm2}, {1750, pm1}, {2000, pm4},
	}

	steps := make([]CycleStep, 0, len(plan))
	for i, p := range plan {
		steps = append(steps, CycleStep{
			Numero:          i + 1,
			HorasProgramada: p.horas,
			Intervalo:       p.intervalo,
		})
	}
	return steps
}

// ComputeCycleState simulates the PM cycle for the given reading. The alert
// window defaults to 50h when horasAlerta is zero; "urgente" kicks in at half
// the window.
func ComputeCycleState(horasActuales float64, intervals []Interval, horasAlerta float64) CycleState {
	if len(intervals) == 0 {
		intervals = StandardIntervals
	}
	if horasAlerta == 0 {
		horasAlerta = 50
	}

	cicloActual := int(math.Floor(horasActuales/cycleLength)) + 1
	horasEnCiclo := math.Mod(horasActuales, cycleLength)

	historial := CycleSequence(intervals)
	for i := range historial {
		horasAbsolutas := float64(cicloActual-1)*cycleLength + historial[i].HorasProgramada
		historial[i].HorasProgramada = horasAbsolutas
		historial[i].Completado = horasActuales >= horasAbsolutas
	}

	state := CycleState{
		HorasActuales:   horasActuales,
		CicloActual:     cicloActual,
		Historial:       historial,
		PorcentajeCiclo: math.Min(100, horasEnCiclo/cycleLength*100),
	}

	proximoIndex := -1
	for i := range historial {
		if !historial[i].Completado {
			historial[i].EsProximo = true
			iv := historial[i].Intervalo
			state.IntervaloProximo = &iv
			state.HorasParaProximo = historial[i].HorasProgramada - horasActuales
			proximoIndex = i
			break
		}
	}
	if proximoIndex == -1 {
		// Everything in this cycle done: next is PM1 of the following cycle
		pm1 := intervalByCode(intervals, "PM1")
		state.IntervaloProximo = &pm1
		state.HorasParaProximo = float64(cicloActual)*cycleLength + 250 - horasActuales
	}

	for i := len(historial) - 1; i >= 0; i-- {
		if historial[i].Completado {
			iv := historial[i].Intervalo
			state.IntervaloActual = &iv
			break
		}
	}
	if state.IntervaloActual == nil && cicloActual > 1 {
		pm4 := intervalByCode(intervals, "PM4")
		state.IntervaloActual = &pm4
	}

	state.HorasDesdeUltimo = horasEnCiclo
	if proximoIndex > 0 {
		state.HorasDesdeUltimo = horasActuales - historial[proximoIndex-1].HorasProgramada
	} else if proximoIndex == 0 && cicloActual > 1 {
		state.HorasDesdeUltimo = horasActuales - float64(cicloActual-1)*cycleLength
	}

	switch {
	case state.HorasParaProximo <= 0:
		state.EstadoAlerta = AlertVencido
	case state.HorasParaProximo <= horasAlerta/2:
		state.EstadoAlerta = AlertUrgente
	case state.HorasParaProximo <= horasAlerta:
		state.EstadoAlerta = AlertProximo
	default:
		state.EstadoAlerta = AlertNormal
	}

	return state
}

// DescribeCycleState renders a one-line human summary of a cycle state
func DescribeCycleState(state CycleState) string {
	if state.IntervaloProximo == nil {
		return "No hay intervalo de mantenimiento configurado"
	}
	codigo := state.IntervaloProximo.Codigo
	switch state.EstadoAlerta {
	case AlertVencido:
		return fmt.Sprintf("%s VENCIDO - Excedido por %.0fh", codigo, math.Abs(state.HorasParaProximo))
	case AlertUrgente:
		return fmt.Sprintf("%s URGENTE - Faltan %.0fh", codigo, state.HorasParaProximo)
	case AlertProximo:
		return fmt.Sprintf("%s próximo - Faltan %.0fh", codigo, state.HorasParaProximo)
	default:
		return fmt.Sprintf("%s en %.0fh (Ciclo %d)", codigo, state.HorasParaProximo, state.CicloActual)
	}
}
