package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stage is the procedural stage of a process
type Stage string

// Process stages
const (
	StageDraft                Stage = "DRAFT"
	StageFiled                Stage = "FILED"
	StageUnderCorrection      Stage = "UNDER_CORRECTION"
	StageRejected             Stage = "REJECTED"
	StageAdmitted             Stage = "ADMITTED"
	StageCited                Stage = "CITED"
	StageAnswered             Stage = "ANSWERED"
	StagePreliminaryHearing   Stage = "PRELIMINARY_HEARING"
	StageSupplementaryHearing Stage = "SUPPLEMENTARY_HEARING"
	StageAwaitingJudgment     Stage = "AWAITING_JUDGMENT"
	StageJudged               Stage = "JUDGED"
	StageAppealed             Stage = "APPEALED"
	StageFinalAndBinding      Stage = "FINAL_AND_BINDING"
	StageConciliated          Stage = "CONCILIATED"
	StageArchived             Stage = "ARCHIVED"
)

// AllStages lists every stage in declaration order
var AllStages = []Stage{
	StageDraft, StageFiled, StageUnderCorrection, StageRejected, StageAdmitted,
	StageCited, StageAnswered, StagePreliminaryHearing, StageSupplementaryHearing,
	StageAwaitingJudgment, StageJudged, StageAppealed, StageFinalAndBinding,
	StageConciliated, StageArchived,
}

// IsTerminal reports whether no procedural event can leave the stage.
// Terminal stages other than Archived still accept the archive event.
func (s Stage) IsTerminal() bool {
	switch s {
	case StageRejected, StageConciliated, StageFinalAndBinding, StageArchived:
		return true
	}
	return false
}

// Event is a procedural event requesting a stage transition
type Event string

// Process events
const (
	EventFile                   Event = "file"
	EventRequireCorrection      Event = "require_correction"
	EventResubmit               Event = "resubmit"
	EventReject                 Event = "reject"
	EventAdmit                  Event = "admit"
	EventCitationSucceeded      Event = "citation_succeeded"
	EventSubmitResponse         Event = "submit_response"
	EventHearingScheduled       Event = "hearing_scheduled"
	EventConciliationReached    Event = "conciliation_reached"
	EventSupplementaryScheduled Event = "supplementary_scheduled"
	EventEnterJudgmentPhase     Event = "enter_judgment_phase"
	EventJudgmentIssued         Event = "judgment_issued"
	EventAppeal                 Event = "appeal"
	EventDeclareFinal           Event = "declare_final"
	EventResolveAppeal          Event = "resolve_appeal"
	EventArchive                Event = "archive"
)

// AllEvents lists every event in declaration order
var AllEvents = []Event{
	EventFile, EventRequireCorrection, EventResubmit, EventReject, EventAdmit,
	EventCitationSucceeded, EventSubmitResponse, EventHearingScheduled,
	EventConciliationReached, EventSupplementaryScheduled, EventEnterJudgmentPhase,
	EventJudgmentIssued, EventAppeal, EventDeclareFinal, EventResolveAppeal, EventArchive,
}

// Process represents a civil lawsuit tracked from filing to judgment
type Process struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseReference string `gorm:"not null;uniqueIndex" json:"case_reference"`

	// Stage is written only by the state machine. Version increments on
	// every stage write and guards concurrent transitions.
	Stage          Stage      `gorm:"not null;default:DRAFT;index" json:"stage"`
	Version        int        `gorm:"not null;default:1" json:"version"`
	StageChangedAt *time.Time `json:"stage_changed_at,omitempty"`

	// Parties
	FilingPartyID             string  `gorm:"not null" json:"filing_party_id"`
	FilerRepresentativeID     string  `gorm:"type:uuid;not null;index" json:"filer_representative_id"`
	RespondingPartyID         string  `gorm:"not null" json:"responding_party_id"`
	ResponderRepresentativeID *string `gorm:"type:uuid;index" json:"responder_representative_id,omitempty"`

	// Court
	PresidingOfficerID string `gorm:"type:uuid;not null;index" json:"presiding_officer_id"`
	CourtID            string `gorm:"not null;index" json:"court_id"`

	// Classification
	SubjectMatter string `gorm:"not null" json:"subject_matter"`
	ProcessType   string `gorm:"not null" json:"process_type"`
	ClaimValue    int64  `gorm:"not null;default:0" json:"claim_value"` // minor currency units

	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// BeforeCreate hook to generate UUID and default the stage
func (p *Process) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Stage == "" {
		p.Stage = StageDraft
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

// TableName specifies the table name for Process model
func (Process) TableName() string {
	return "processes"
}

// RepresentativeIDs returns the user IDs of both represented parties that are known
func (p *Process) RepresentativeIDs() []string {
	ids := []string{p.FilerRepresentativeID}
	if p.ResponderRepresentativeID != nil && *p.ResponderRepresentativeID != "" {
		ids = append(ids, *p.ResponderRepresentativeID)
	}
	return ids
}

// IsRepresentative reports whether userID represents either party
func (p *Process) IsRepresentative(userID string) bool {
	for _, id := range p.RepresentativeIDs() {
		if id == userID {
			return true
		}
	}
	return false
}

// ProcessTransition is the append-only history of accepted stage changes
type ProcessTransition struct {
	ID         string    `gorm:"type:uuid;primarykey" json:"id"`
	ProcessID  string    `gorm:"type:uuid;not null;index:idx_transition_process_time" json:"process_id"`
	FromStage  Stage     `gorm:"not null" json:"from_stage"`
	ToStage    Stage     `gorm:"not null" json:"to_stage"`
	Event      Event     `gorm:"not null" json:"event"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`
	Version    int       `gorm:"not null" json:"version"`
	OccurredAt time.Time `gorm:"not null;index:idx_transition_process_time" json:"occurred_at"`
}

// BeforeCreate hook to generate UUID
func (t *ProcessTransition) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

func (ProcessTransition) TableName() string {
	return "process_transitions"
}
