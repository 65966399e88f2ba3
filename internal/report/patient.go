package report

import (
	"strconv"
	"strings"
	"time"
)

// BirthDateLayout is the DD/MM/YYYY format used for birth dates; one-digit
// days and months are accepted as well
const BirthDateLayout = "2/1/2006"

// PatientService derives patient fields from the data typed by the clinician
type PatientService struct {
	now func() time.Time
}

// NewPatientService creates a patient service; a nil clock uses time.Now
func NewPatientService(now func() time.Time) *PatientService {
	if now == nil {
		now = time.Now
	}
	return &PatientService{now: now}
}

// ExtractFirstName returns the first whitespace-delimited token of fullName
func (s *PatientService) ExtractFirstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// CalculateAge returns the completed years between birth (DD/MM/YYYY) and
// today. ok is false when birth cannot be parsed or lies in the future.
func (s *PatientService) CalculateAge(birth string) (string, bool) {
	born, err := time.Parse(BirthDateLayout, strings.TrimSpace(birth))
	if err != nil {
		return "", false
	}
	today := s.now()

	years := today.Year() - born.Year()
	if today.Month() < born.Month() || (today.Month() == born.Month() && today.Day() < born.Day()) {
		years--
	}
	if years < 0 {
		return "", false
	}
	return strconv.Itoa(years), true
}
