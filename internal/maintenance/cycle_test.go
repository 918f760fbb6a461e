package maintenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleSequence(t *testing.T) {
	steps := CycleSequence(StandardIntervals)
	require.Len(t, steps, 8)

	wantCodes := []string{"PM1", "PM2", "PM1", "PM3", "PM1", "PM2", "PM1", "PM4"}
	wantHoras := []float64{250, 500, 750, 1000, 1250, 1500, 1750, 2000}
	for i, step := range steps {
		assert.Equal(t, wantCodes[i], step.Intervalo.Codigo)
		assert.Equal(t, wantHoras[i], step.HorasProgramada)
		assert.Equal(t, i+1, step.Numero)
	}
}

func TestComputeCycleStateFirstCycle(t *testing.T) {
	state := ComputeCycleState(600, nil, 0)

	assert.Equal(t, 1, state.CicloActual)
	require.NotNil(t, state.IntervaloProximo)
	assert.Equal(t, "PM1", state.IntervaloProximo.Codigo) // 750h is next
	assert.Equal(t, float64(150), state.HorasParaProximo)
	require.NotNil(t, state.IntervaloActual)
	assert.Equal(t, "PM2", state.IntervaloActual.Codigo) // 500h done
	assert.Equal(t, float64(100), state.HorasDesdeUltimo)
	assert.Equal(t, AlertNormal, state.EstadoAlerta)
}

func TestComputeCycleStateSecondCycle(t *testing.T) {
	state := ComputeCycleState(2100, nil, 0)

	assert.Equal(t, 2, state.CicloActual)
	require.NotNil(t, state.IntervaloProximo)
	assert.Equal(t, "PM1", state.IntervaloProximo.Codigo) // 2250h
	assert.Equal(t, float64(150), state.HorasParaProximo)
	// nothing completed yet in cycle 2: current interval is prior PM4
	require.NotNil(t, state.IntervaloActual)
	assert.Equal(t, "PM4", state.IntervaloActual.Codigo)
	assert.Equal(t, float64(100), state.HorasDesdeUltimo)
}

func TestComputeCycleStateAlertLevels(t *testing.T) {
	// 40h to next PM with the default 50h window
	assert.Equal(t, AlertProximo, ComputeCycleState(210, nil, 0).EstadoAlerta)
	// 20h to next PM: urgente (half window)
	assert.Equal(t, AlertUrgente, ComputeCycleState(230, nil, 0).EstadoAlerta)
	// on the due point the step counts as done and PM2 becomes next
	onDue := ComputeCycleState(250, nil, 0)
	assert.Equal(t, "PM2", onDue.IntervaloProximo.Codigo)
	assert.Equal(t, AlertNormal, onDue.EstadoAlerta)
	// comfortable distance
	assert.Equal(t, AlertNormal, ComputeCycleState(100, nil, 0).EstadoAlerta)
}

func TestDescribeCycleState(t *testing.T) {
	state := ComputeCycleState(230, nil, 0)
	assert.Contains(t, DescribeCycleState(state), "URGENTE")

	state = ComputeCycleState(100, nil, 0)
	assert.Contains(t, DescribeCycleState(state), "PM1 en 150h")
}
