package budget

// Severity orders validation findings: info < warning < error.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rank returns the position of s in the severity order. Unknown values rank
// below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	default:
		return 0
	}
}

// Status is the rolled-up validation outcome of a line item or budget.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// StatusOf maps a maximum severity to a status. Info findings leave a record valid.
func StatusOf(max Severity) Status {
	switch max {
	case SeverityError:
		return StatusError
	case SeverityWarning:
		return StatusWarning
	default:
		return StatusValid
	}
}

// ValidationType groups messages by the record they concern.
type ValidationType string

const (
	TypeCoverSheet ValidationType = "cover_sheet"
	TypeLineItem   ValidationType = "line_item"
	TypeClassTotal ValidationType = "class_total"
	TypeBudget     ValidationType = "budget"
	TypeVersion    ValidationType = "version"
)

// ValidationMessage is one finding about the extracted data.
type ValidationMessage struct {
	ValidationType ValidationType `json:"validation_type"`
	Severity       Severity       `json:"severity"`
	Message        string         `json:"message"`
	ClassCode      string         `json:"class_code,omitempty"`
	LineItemID     string         `json:"line_item_id,omitempty"`
	FieldName      string         `json:"field_name,omitempty"`
	ExpectedValue  string         `json:"expected_value,omitempty"`
	ActualValue    string         `json:"actual_value,omitempty"`
}

// MaxSeverity returns the highest severity among msgs, or "" when empty.
func MaxSeverity(msgs []ValidationMessage) Severity {
	var max Severity
	for _, m := range msgs {
		if m.Severity.Rank() > max.Rank() {
			max = m.Severity
		}
	}
	return max
}

// Rollup returns the overall status of msgs; no messages means valid.
func Rollup(msgs []ValidationMessage) Status {
	return StatusOf(MaxSeverity(msgs))
}

// CountBySeverity tallies msgs per severity.
func CountBySeverity(msgs []ValidationMessage) map[Severity]int {
	out := map[Severity]int{SeverityInfo: 0, SeverityWarning: 0, SeverityError: 0}
	for _, m := range msgs {
		out[m.Severity]++
	}
	return out
}
