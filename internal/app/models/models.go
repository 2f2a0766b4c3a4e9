package models

// ScanStatus is the lifecycle state of an uploaded scan
type ScanStatus string

const (
	ScanStatusProcessing ScanStatus = "processing"
	ScanStatusSuccess    ScanStatus = "success"
	ScanStatusError      ScanStatus = "error"
)

// Valid reports whether s is one of the known scan states
func (s ScanStatus) Valid() bool {
	switch s {
	case ScanStatusProcessing, ScanStatusSuccess, ScanStatusError:
		return true
	}
	return false
}

// WidgetKind discriminates the widget variants stored in the widgets table
type WidgetKind string

const (
	WidgetKindExam    WidgetKind = "exam"
	WidgetKindProblem WidgetKind = "problem"
)
