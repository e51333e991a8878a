package pubchem

import (
	"regexp"
	"strconv"
	"strings"

	ctypes "github.com/turtacn/ChemStor-Intelligence/pkg/types/compound"
)

// PUG View returns one deeply nested record per compound; the data we need
// sits in Information entries scattered across the section tree.

type viewResponse struct {
	Record viewRecord `json:"Record"`
}

type viewRecord struct {
	RecordType  string        `json:"RecordType"`
	RecordTitle string        `json:"RecordTitle"`
	Section     []viewSection `json:"Section"`
}

type viewSection struct {
	TOCHeading  string            `json:"TOCHeading"`
	Section     []viewSection     `json:"Section"`
	Information []viewInformation `json:"Information"`
}

type viewInformation struct {
	Name      string    `json:"Name"`
	Reference []string  `json:"Reference"`
	Value     viewValue `json:"Value"`
}

type viewValue struct {
	StringWithMarkup []viewString `json:"StringWithMarkup"`
	Number           []float64    `json:"Number"`
	Unit             string       `json:"Unit"`
}

type viewString struct {
	String string       `json:"String"`
	Markup []viewMarkup `json:"Markup"`
}

type viewMarkup struct {
	Start  int    `json:"Start"`
	Length int    `json:"Length"`
	URL    string `json:"URL"`
	Type   string `json:"Type"`
	Extra  string `json:"Extra"`
}

// walkInformation visits every Information entry in the section tree in
// document order.
func walkInformation(sections []viewSection, visit func(viewInformation)) {
	for _, s := range sections {
		for _, info := range s.Information {
			visit(info)
		}
		walkInformation(s.Section, visit)
	}
}

// extractGHS pulls pictogram labels and hazard statements out of a PUG View
// record.  Pictograms arrive as image markup whose Extra field carries the
// label; statements arrive as display strings.
func extractGHS(record viewRecord) ([]ctypes.Pictogram, []string) {
	var pictograms []ctypes.Pictogram
	seen := map[ctypes.Pictogram]bool{}
	var statements []string

	walkInformation(record.Section, func(info viewInformation) {
		switch {
		case info.Name == "Pictogram(s)":
			for _, swm := range info.Value.StringWithMarkup {
				for _, markup := range swm.Markup {
					label := strings.TrimSpace(markup.Extra)
					if label == "" {
						continue
					}
					p := ctypes.Pictogram(label)
					if !seen[p] {
						seen[p] = true
						pictograms = append(pictograms, p)
					}
				}
			}
		case strings.Contains(info.Name, "Hazard Statements"):
			for _, swm := range info.Value.StringWithMarkup {
				if s := strings.TrimSpace(swm.String); s != "" {
					statements = append(statements, s)
				}
			}
		}
	})

	return pictograms, statements
}

var hazardCodeRe = regexp.MustCompile(`^(H\d{3})`)

// dedupeStatements removes repeated hazard statements.  PubChem aggregates
// statements across notifiers, so the same H-code appears once per reported
// percentage ("H225 (92.5%): ...", "H225 (7.5%): ..."); the first occurrence
// of each code wins.  Statements without a percentage pass through untouched.
func dedupeStatements(raw []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Contains(s, "%") {
			if code := hazardCodeRe.FindString(s); code != "" {
				if seen[code] {
					continue
				}
				seen[code] = true
			}
		}
		out = append(out, s)
	}
	return out
}

var temperatureRe = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*°?\s*([CF])\b`)

// parseTemperatureC reads the first Celsius or Fahrenheit temperature out of
// a free-text property string ("78.5 °C", "173.1 °F (NTP, 1992)").
func parseTemperatureC(s string) (float64, bool) {
	m := temperatureRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if m[2] == "F" {
		v = (v - 32) * 5 / 9
	}
	return v, true
}

// extractTemperatureC finds the first usable temperature in a record, trying
// structured number values before free text.
func extractTemperatureC(record viewRecord) (float64, bool) {
	var value float64
	found := false

	walkInformation(record.Section, func(info viewInformation) {
		if found {
			return
		}
		if len(info.Value.Number) > 0 {
			unit := strings.ToUpper(info.Value.Unit)
			switch {
			case strings.Contains(unit, "C"):
				value, found = info.Value.Number[0], true
				return
			case strings.Contains(unit, "F"):
				value, found = (info.Value.Number[0]-32)*5/9, true
				return
			}
		}
		for _, swm := range info.Value.StringWithMarkup {
			if v, ok := parseTemperatureC(swm.String); ok {
				value, found = v, true
				return
			}
		}
	})

	return value, found
}

//Personal.AI order the ending
