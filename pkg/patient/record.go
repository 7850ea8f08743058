// Package patient models the structured patient record: a base-info mapping
// plus ordered fact sequences, each fact carrying a short unique identifier
// and a creation timestamp. The record is filled by the triage front-end and
// read by the deliberation core through its portrait rendering.
package patient

import (
	"fmt"
	"time"
)

// Fact field names reserved for record metadata.
const (
	FieldID   = "id"
	FieldTime = "t_time"
)

const timestampLayout = "2006-01-02 15:04:05"

// Fact is one free-form entry in a record sequence.
type Fact map[string]any

// Section names, in the fixed rendering order.
const (
	SectionBaseInfo           = "base_info"
	SectionSymptoms           = "symptoms"
	SectionVitals             = "vitals"
	SectionExams              = "exams"
	SectionMedications        = "medications"
	SectionFamilyHistory      = "family_history"
	SectionPastMedicalHistory = "past_medical_history"
	SectionOthers             = "others"
)

// sequenceSections lists the fact sequences in rendering order.
var sequenceSections = []string{
	SectionSymptoms,
	SectionVitals,
	SectionExams,
	SectionMedications,
	SectionFamilyHistory,
	SectionPastMedicalHistory,
	SectionOthers,
}

// ExtraSection is an additional named sequence beyond the seven standard
// ones, preserved in insertion order.
type ExtraSection struct {
	Name  string `json:"name" yaml:"name"`
	Facts []Fact `json:"facts" yaml:"facts"`
}

// Record is the structured patient bundle.
type Record struct {
	BaseInfo           map[string]any `json:"base_info,omitempty" yaml:"base_info,omitempty"`
	Symptoms           []Fact         `json:"symptoms,omitempty" yaml:"symptoms,omitempty"`
	Vitals             []Fact         `json:"vitals,omitempty" yaml:"vitals,omitempty"`
	Exams              []Fact         `json:"exams,omitempty" yaml:"exams,omitempty"`
	Medications        []Fact         `json:"medications,omitempty" yaml:"medications,omitempty"`
	FamilyHistory      []Fact         `json:"family_history,omitempty" yaml:"family_history,omitempty"`
	PastMedicalHistory []Fact         `json:"past_medical_history,omitempty" yaml:"past_medical_history,omitempty"`
	Others             []Fact         `json:"others,omitempty" yaml:"others,omitempty"`
	Extras             []ExtraSection `json:"extras,omitempty" yaml:"extras,omitempty"`

	// now is the timestamp source, replaceable in tests.
	now func() time.Time
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{BaseInfo: map[string]any{}}
}

func (r *Record) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// section returns a pointer to the named sequence, looking through standard
// sections first, then extras.
func (r *Record) section(name string) (*[]Fact, error) {
	switch name {
	case SectionSymptoms:
		return &r.Symptoms, nil
	case SectionVitals:
		return &r.Vitals, nil
	case SectionExams:
		return &r.Exams, nil
	case SectionMedications:
		return &r.Medications, nil
	case SectionFamilyHistory:
		return &r.FamilyHistory, nil
	case SectionPastMedicalHistory:
		return &r.PastMedicalHistory, nil
	case SectionOthers:
		return &r.Others, nil
	}
	for i := range r.Extras {
		if r.Extras[i].Name == name {
			return &r.Extras[i].Facts, nil
		}
	}
	return nil, fmt.Errorf("unknown record section %q", name)
}

// AddSection registers an extra named sequence. Standard section names are
// rejected; re-adding an existing extra is a no-op.
func (r *Record) AddSection(name string) error {
	if _, err := r.section(name); err == nil {
		return nil
	}
	if name == SectionBaseInfo {
		return fmt.Errorf("cannot add reserved section %q", name)
	}
	r.Extras = append(r.Extras, ExtraSection{Name: name})
	return nil
}

// SetBaseInfo merges fields into base_info.
func (r *Record) SetBaseInfo(fields map[string]any) {
	if r.BaseInfo == nil {
		r.BaseInfo = map[string]any{}
	}
	for k, v := range fields {
		r.BaseInfo[k] = v
	}
}

// UpsertFacts merges facts into a sequence. A fact whose id matches an
// existing entry merges field-by-field into it; otherwise the fact is
// appended with a freshly generated id and creation timestamp. Identifiers
// are unique within a sequence.
func (r *Record) UpsertFacts(sectionName string, facts []Fact) error {
	seq, err := r.section(sectionName)
	if err != nil {
		return err
	}

	existing := map[string]bool{}
	byID := map[string]Fact{}
	for _, f := range *seq {
		if id, ok := f[FieldID].(string); ok {
			existing[id] = true
			byID[id] = f
		}
	}

	for _, incoming := range facts {
		id, _ := incoming[FieldID].(string)
		if target, ok := byID[id]; ok && id != "" {
			for k, v := range incoming {
				if k == FieldID || k == FieldTime {
					continue
				}
				target[k] = v
			}
			continue
		}

		freshID, err := newFactID(existing)
		if err != nil {
			return fmt.Errorf("upsert into %s: %w", sectionName, err)
		}
		existing[freshID] = true

		entry := Fact{}
		for k, v := range incoming {
			if k == FieldID || k == FieldTime {
				continue
			}
			entry[k] = v
		}
		entry[FieldID] = freshID
		entry[FieldTime] = r.clock().Format(timestampLayout)
		*seq = append(*seq, entry)
		byID[freshID] = entry
	}
	return nil
}

// DeleteFacts removes the facts with the given ids from a sequence.
// Unknown ids are ignored.
func (r *Record) DeleteFacts(sectionName string, ids []string) error {
	seq, err := r.section(sectionName)
	if err != nil {
		return err
	}

	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}

	kept := (*seq)[:0]
	for _, f := range *seq {
		id, _ := f[FieldID].(string)
		if !drop[id] {
			kept = append(kept, f)
		}
	}
	*seq = kept
	return nil
}
