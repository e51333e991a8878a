package pubchem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

func TestExtractGHS(t *testing.T) {
	record := viewRecord{
		Section: []viewSection{{
			TOCHeading: "Safety and Hazards",
			Section: []viewSection{{
				TOCHeading: "GHS Classification",
				Information: []viewInformation{
					{
						Name: "Pictogram(s)",
						Value: viewValue{StringWithMarkup: []viewString{{
							Markup: []viewMarkup{
								{Type: "Icon", Extra: "Flammable"},
								{Type: "Icon", Extra: "Irritant"},
								{Type: "Icon", Extra: "Flammable"}, // repeated across notifiers
							},
						}}},
					},
					{
						Name: "GHS Hazard Statements",
						Value: viewValue{StringWithMarkup: []viewString{
							{String: "H225 (100%): Highly flammable liquid and vapour"},
							{String: "H319 (95%): Causes serious eye irritation"},
						}},
					},
				},
			}},
		}},
	}

	pictograms, statements := extractGHS(record)

	assert.Equal(t, []ctypes.Pictogram{ctypes.PictogramFlammable, ctypes.PictogramIrritant}, pictograms)
	require.Len(t, statements, 2)
	assert.Contains(t, statements[0], "H225")
}

func TestExtractGHS_EmptyRecord(t *testing.T) {
	pictograms, statements := extractGHS(viewRecord{})
	assert.Empty(t, pictograms)
	assert.Empty(t, statements)
}

func TestDedupeStatements(t *testing.T) {
	raw := []string{
		"H225 (92.5%): Highly flammable liquid and vapour",
		"H225 (7.5%): Highly flammable liquid and vapour",
		"H319 (100%): Causes serious eye irritation",
		"Flammable liquid category 2",
		"  ",
		"H319 (1%): Causes serious eye irritation",
	}

	got := dedupeStatements(raw)

	require.Len(t, got, 3)
	assert.Contains(t, got[0], "92.5%")
	assert.Contains(t, got[1], "H319 (100%)")
	assert.Equal(t, "Flammable liquid category 2", got[2])
}

func TestDedupeStatements_PlainStatementsPassThrough(t *testing.T) {
	raw := []string{
		"H290: May be corrosive to metals",
		"H290: May be corrosive to metals",
	}

	// Without a percentage there is no notifier aggregation to collapse.
	got := dedupeStatements(raw)
	assert.Len(t, got, 2)
}

func TestParseTemperatureC(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"78.5 °C", 78.5, true},
		{"-114.1 °C", -114.1, true},
		{"173.1 °F (NTP, 1992)", 78.4, true},
		{"32 °F", 0, true},
		{"352 to 354 °F", 178.9, true},
		{"100C", 100, true},
		{"no temperature here", 0, false},
		{"373 K", 0, false},
		{"40 CFR protocol", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseTemperatureC(tt.input)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 0.1)
			}
		})
	}
}

func TestExtractTemperatureC_PrefersStructuredNumbers(t *testing.T) {
	record := viewRecord{
		Section: []viewSection{{
			TOCHeading: "Boiling Point",
			Information: []viewInformation{
				{
					Name:  "Boiling Point",
					Value: viewValue{Number: []float64{78.24}, Unit: "°C"},
				},
				{
					Name:  "Boiling Point",
					Value: viewValue{StringWithMarkup: []viewString{{String: "172.9 °F"}}},
				},
			},
		}},
	}

	v, ok := extractTemperatureC(record)
	require.True(t, ok)
	assert.InDelta(t, 78.24, v, 0.001)
}

func TestExtractTemperatureC_FallsBackToText(t *testing.T) {
	record := viewRecord{
		Section: []viewSection{{
			TOCHeading: "Melting Point",
			Information: []viewInformation{{
				Name:  "Melting Point",
				Value: viewValue{StringWithMarkup: []viewString{{String: "greater than ambient"}, {String: "-114.1 °C"}}},
			}},
		}},
	}

	v, ok := extractTemperatureC(record)
	require.True(t, ok)
	assert.InDelta(t, -114.1, v, 0.001)
}

func TestExtractTemperatureC_FahrenheitNumbers(t *testing.T) {
	record := viewRecord{
		Section: []viewSection{{
			Information: []viewInformation{{
				Value: viewValue{Number: []float64{212}, Unit: "°F"},
			}},
		}},
	}

	v, ok := extractTemperatureC(record)
	require.True(t, ok)
	assert.InDelta(t, 100, v, 0.001)
}
//Personal.AI order the ending
