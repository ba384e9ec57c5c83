package expansion

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of an expansion job.
type State string

// Job states.
const (
	StateNotStarted State = "non_iniziato"
	StateRunning    State = "in_corso"
	StatePaused     State = "in_pausa"
	StateCompleted  State = "completato"
	StatePartial    State = "parziale"
	StateCanceled   State = "annullato"
	StateFailed     State = "fallito"
)

// Active reports whether a job in this state blocks a new one.
func (s State) Active() bool {
	return s == StateRunning || s == StatePaused
}

// Terminal reports whether the job has finished.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StatePartial, StateCanceled, StateFailed:
		return true
	default:
		return false
	}
}

// User-facing job messages.
const (
	msgWaiting         = "In attesa di elaborazione"
	msgInProgress      = "Elaborazione in corso..."
	msgNoContent       = "Contenuto non trovato"
	msgExpanded        = "Capitolo espanso con successo"
	msgAlreadyExpanded = "Capitolo già espanso in precedenza"
	msgSaveFailed      = "Errore nel salvataggio del contenuto espanso"
	msgCheckpointError = "Errore nel salvataggio della sezione %d: %s"
	msgSectionError    = "Errore nella sezione %d: %s"
	msgSectionsFailed  = "Capitolo espanso con errori nelle sezioni: %s"
	msgResumeFrom      = "Ripresa dalla sezione %d/%d"
	msgSkipped         = "Capitolo saltato: la ripresa parte da un capitolo successivo"
	msgCheckpointLoad  = "Errore nel caricamento delle sezioni già espanse: %s"

	msgStarted     = "Espansione avviata"
	msgPaused      = "Espansione in pausa"
	msgResumed     = "Espansione ripresa"
	msgCanceled    = "Espansione annullata dall'utente"
	msgAborted     = "Impossibile avviare l'espansione: %s"
	msgCompleted   = "Tutti i %d capitoli sono stati espansi con successo!"
	msgPartial     = "Espansi %d capitoli su %d."
	msgFailed      = "Nessun capitolo è stato espanso. Verifica i dettagli per maggiori informazioni."
	msgStopped     = "Espansione interrotta al capitolo %d/%d a causa di un errore."
	msgStoppedSave = "Espansione interrotta al capitolo %d/%d a causa di un errore di salvataggio."
	msgInterrupted = "Espansione interrotta prima del completamento. Riprendi dal punto di ripresa."
	msgRecovered   = "Espansione interrotta da un riavvio del server. Riprendi dal punto di ripresa."
)

// ResumePoint locates the first section that still needs expanding.
// Section is a zero-based index into the chapter's sections and equals the
// length of the chapter's checkpoint.
type ResumePoint struct {
	ChapterID string `json:"chapter_id"`
	Section   int    `json:"section"`
}

// ChapterDetail is the progress record of one chapter.
type ChapterDetail struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	Expanded   bool `json:"expanded"`
	InProgress bool `json:"in_progress,omitempty"`

	// CurrentSection is the zero-based index of the section being expanded.
	CurrentSection int `json:"current_section"`
	TotalSections  int `json:"total_sections,omitempty"`

	Error          bool   `json:"error,omitempty"`
	Message        string `json:"message,omitempty"`
	FailedSections []int  `json:"failed_sections,omitempty"`

	OriginalLength int     `json:"original_length,omitempty"`
	ExpandedLength int     `json:"expanded_length,omitempty"`
	Ratio          float64 `json:"ratio,omitempty"`
}

// Summary is a snapshot of an expansion job.
type Summary struct {
	JobID    uuid.UUID `json:"job_id"`
	CourseID uuid.UUID `json:"course_id"`
	State    State     `json:"state"`

	// Success is false only for jobs that failed outright.
	Success bool `json:"success"`

	ExpandedChapters int             `json:"expanded_chapters"`
	TotalChapters    int             `json:"total_chapters"`
	Chapters         []ChapterDetail `json:"chapters"`
	ResumePoint      *ResumePoint    `json:"resume_point,omitempty"`
	Message          string          `json:"message,omitempty"`

	Options   *Options  `json:"options,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of s.
func (s *Summary) Clone() *Summary {
	if s == nil {
		return nil
	}
	c := *s
	c.Chapters = make([]ChapterDetail, len(s.Chapters))
	for i, d := range s.Chapters {
		d.FailedSections = append([]int(nil), d.FailedSections...)
		c.Chapters[i] = d
	}
	if s.ResumePoint != nil {
		rp := *s.ResumePoint
		c.ResumePoint = &rp
	}
	if s.Options != nil {
		o := s.Options.clone()
		c.Options = &o
	}
	return &c
}

// chapter returns the detail record for id, or nil.
func (s *Summary) chapter(id string) *ChapterDetail {
	for i := range s.Chapters {
		if s.Chapters[i].ID == id {
			return &s.Chapters[i]
		}
	}
	return nil
}
