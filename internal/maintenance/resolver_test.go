package maintenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRemaining(t *testing.T) {
	tests := []struct {
		name          string
		actuales      float64
		ultimo        float64
		frecuencia    float64
		wantProximo   float64
		wantRestante  float64
	}{
		{"upcoming window", 900, 0, 1000, 1000, 100},
		{"overdue", 1050, 0, 1000, 1000, -50},
		{"mid cycle", 730, 500, 250, 750, 20},
		{"zero frequency stays due at last service", 120, 100, 0, 100, -20},
		{"negative remaining magnitude", 3000, 1000, 500, 1500, -1500},
		{"fractional readings", 1000.5, 750.25, 250, 1000.25, -0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proximo, restante := ComputeRemaining(tt.actuales, tt.ultimo, tt.frecuencia)
			assert.Equal(t, tt.wantProximo, proximo)
			assert.Equal(t, tt.wantRestante, restante)
		})
	}
}

// Recomputation must be authoritative regardless of any stored cache: the
// identity restante == (ultimo + frecuencia) - actuales holds for all inputs.
func TestComputeRemainingIdentity(t *testing.T) {
	cases := [][3]float64{
		{0, 0, 0}, {900, 0, 1000}, {1050, 0, 1000}, {515.5, 250.25, 250},
		{-10, 0, 100}, {100, 200, -50},
	}
	for _, c := range cases {
		proximo, restante := ComputeRemaining(c[0], c[1], c[2])
		assert.Equal(t, c[1]+c[2], proximo)
		assert.Equal(t, proximo-c[0], restante)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		restante  float64
		threshold float64
		want      Status
	}{
		{"zero is overdue", 0, 100, StatusVencido},
		{"negative is overdue", -50, 100, StatusVencido},
		{"inside window", 1, 100, StatusProximo},
		{"boundary belongs to upcoming", 100, 100, StatusProximo},
		{"just above boundary", 100.01, 100, StatusNormal},
		{"normal", 500, 100, StatusNormal},
		{"tight screen threshold", 60, 50, StatusNormal},
		{"wide screen threshold", 240, 250, StatusProximo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.restante, tt.threshold))
		})
	}
}

// Exactly one status for any remaining value
func TestClassifyExclusive(t *testing.T) {
	for _, restante := range []float64{-1000, -0.5, 0, 0.5, 50, 100, 100.5, 99999} {
		matches := 0
		got := Classify(restante, DefaultThreshold)
		for _, s := range []Status{StatusVencido, StatusProximo, StatusNormal} {
			if got == s {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "restante=%v", restante)
	}
}

func TestFormatRemainingLabel(t *testing.T) {
	assert.Equal(t, "100 horas restantes", FormatRemainingLabel(100, "horas"))
	assert.Equal(t, "50 horas vencido", FormatRemainingLabel(-50, "horas"))
	assert.Equal(t, "Vencido", FormatRemainingLabel(0, "horas"))
	assert.Equal(t, "Vencido", FormatRemainingLabel(-0.2, "horas"))
	assert.Equal(t, "120 km restantes", FormatRemainingLabel(120.4, "km"))
	// display rounds, value stays float upstream
	assert.Equal(t, "100 horas restantes", FormatRemainingLabel(99.6, "horas"))
}

func TestResolveIntervalCodeTokenPrecedence(t *testing.T) {
	// A PMn token in the label wins over any frequency inference
	assert.Equal(t, "PM3", ResolveIntervalCode("Mantenimiento pm3 completo", 5000))
	assert.Equal(t, "PM2", ResolveIntervalCode("PM2", 250))
	assert.Equal(t, "PM1", ResolveIntervalCode("servicio Pm1 aceite", 0))
}

func TestResolveIntervalCodeFrequencyTable(t *testing.T) {
	tests := []struct {
		frecuencia float64
		want       string
	}{
		{250, "PM1"},
		{500, "PM2"},
		{1000, "PM3"},
		{2000, "PM4"},
		{2001, ""},
		{100, "PM1"},
		{251, "PM2"},
		{750, "PM3"},
		{1500, "PM4"},
		{0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveIntervalCode("Mantenimiento preventivo", tt.frecuencia),
			"frecuencia=%v", tt.frecuencia)
	}
}

func TestResolveKitAndTasks(t *testing.T) {
	catalog := FindModelCatalog("CAT 320")
	assert.NotNil(t, catalog)

	kit := ResolveKitAndTasks("pm2", catalog)
	assert.NotEmpty(t, kit.Tareas)
	assert.NotEmpty(t, kit.Piezas)

	// absent entries yield empty lists, never nil or a panic
	empty := ResolveKitAndTasks("PM9", catalog)
	assert.Empty(t, empty.Tareas)
	assert.Empty(t, empty.Piezas)

	none := ResolveKitAndTasks("PM1", nil)
	assert.NotNil(t, none.Tareas)
	assert.NotNil(t, none.Piezas)
}

func TestFindModelCatalogAliases(t *testing.T) {
	assert.NotNil(t, FindModelCatalog("Excavadora 320"))
	assert.NotNil(t, FindModelCatalog("320 GC"))
	assert.NotNil(t, FindModelCatalog("416f"))
	assert.Nil(t, FindModelCatalog("D6 Dozer"))
	assert.Nil(t, FindModelCatalog(""))
}

// End-to-end scenarios from the control screens
func TestScheduledMaintenanceScenarios(t *testing.T) {
	// EX-01 at 900 of 1000h cycle
	proximo, restante := ComputeRemaining(900, 0, 1000)
	assert.Equal(t, float64(1000), proximo)
	assert.Equal(t, float64(100), restante)
	assert.Equal(t, StatusProximo, Classify(restante, 100))
	assert.Equal(t, "100 horas restantes", FormatRemainingLabel(restante, "horas"))

	// same equipment past due
	_, restante = ComputeRemaining(1050, 0, 1000)
	assert.Equal(t, float64(-50), restante)
	assert.Equal(t, StatusVencido, Classify(restante, 100))
	assert.Equal(t, "50 horas vencido", FormatRemainingLabel(restante, "horas"))
}
