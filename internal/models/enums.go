package models

import dErrors "smarttracing/pkg/domain-errors"

// ScannableType identifies the kind of check-in hardware a scannable is.
// Invariant: the value must be one of the supported types.
//
// Usage: construct via ParseScannableType at trust boundaries; direct casting
// bypasses validation and the DAO will reject it before writing.
type ScannableType string

const (
	ScannableTypeQRCode    ScannableType = "QR_CODE"
	ScannableTypeBluetooth ScannableType = "BLUETOOTH"
)

var validScannableTypes = map[ScannableType]bool{
	ScannableTypeQRCode:    true,
	ScannableTypeBluetooth: true,
}

// ParseScannableType constructs a ScannableType from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParseScannableType(s string) (ScannableType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "scannable type cannot be empty")
	}
	t := ScannableType(s)
	if !t.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unsupported scannable type %q", s)
	}
	return t, nil
}

func (t ScannableType) IsValid() bool {
	return validScannableTypes[t]
}

func (t ScannableType) String() string {
	return string(t)
}

// Symptom is a self-reported symptom.
type Symptom string

const (
	SymptomFever             Symptom = "FEVER"
	SymptomCough             Symptom = "COUGH"
	SymptomShortnessOfBreath Symptom = "SHORTNESS_OF_BREATH"
	SymptomFatigue           Symptom = "FATIGUE"
	SymptomMuscleAches       Symptom = "MUSCLE_ACHES"
	SymptomHeadache          Symptom = "HEADACHE"
	SymptomSoreThroat        Symptom = "SORE_THROAT"
	SymptomLossOfTaste       Symptom = "LOSS_OF_TASTE"
	SymptomLossOfSmell       Symptom = "LOSS_OF_SMELL"
	SymptomCongestion        Symptom = "CONGESTION"
	SymptomNausea            Symptom = "NAUSEA"
	SymptomDiarrhea          Symptom = "DIARRHEA"
)

var validSymptoms = map[Symptom]bool{
	SymptomFever:             true,
	SymptomCough:             true,
	SymptomShortnessOfBreath: true,
	SymptomFatigue:           true,
	SymptomMuscleAches:       true,
	SymptomHeadache:          true,
	SymptomSoreThroat:        true,
	SymptomLossOfTaste:       true,
	SymptomLossOfSmell:       true,
	SymptomCongestion:        true,
	SymptomNausea:            true,
	SymptomDiarrhea:          true,
}

func ParseSymptom(s string) (Symptom, error) {
	sym := Symptom(s)
	if !sym.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unsupported symptom %q", s)
	}
	return sym, nil
}

func (s Symptom) IsValid() bool {
	return validSymptoms[s]
}

func (s Symptom) String() string {
	return string(s)
}

// ReportKind is the vertex label of a self-reported health event. Each kind
// links back to its device with its own edge label.
type ReportKind string

const (
	ReportKindTestResult ReportKind = "TestResult"
	ReportKindSymptoms   ReportKind = "Symptoms"
)

// Label returns the vertex label for the kind.
func (k ReportKind) Label() string {
	return string(k)
}

// LinkLabel returns the label of the report -> device edge.
func (k ReportKind) LinkLabel() (string, error) {
	switch k {
	case ReportKindTestResult:
		return "FOR", nil
	case ReportKindSymptoms:
		return "REPORT_FOR", nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unsupported report kind %q", string(k))
	}
}
