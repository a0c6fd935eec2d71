package attempt

import (
	"encoding/json"

	"github.com/SAP-F-2025/placement-service/internal/bank"
	"github.com/SAP-F-2025/placement-service/internal/models"
	"github.com/SAP-F-2025/placement-service/internal/modules"
	"github.com/SAP-F-2025/placement-service/internal/timer"
)

// ViewItem is a question as the page renders it, without accepted answers
type ViewItem struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"question"`
	Options []string `json:"options,omitempty"`
	Marks   int      `json:"marks"`
}

type ViewSection struct {
	Key     string             `json:"key"`
	SetID   string             `json:"set_id"`
	Audio   string             `json:"audio,omitempty"`
	Table   []models.TableCell `json:"table,omitempty"`
	Example *models.Question   `json:"example,omitempty"`
	Items   []ViewItem         `json:"items"`
}

// View is everything a page needs to render the current state
type View struct {
	Module       string                  `json:"module"`
	Label        string                  `json:"label"`
	Phase        models.Phase            `json:"phase"`
	Connection   models.ConnectionStatus `json:"connection"`
	Persistent   bool                    `json:"persistent"`
	Notice       string                  `json:"notice,omitempty"`
	AttemptID    string                  `json:"attempt_id,omitempty"`
	Program      string                  `json:"program,omitempty"`
	ProgramLabel string                  `json:"program_label,omitempty"`
	Programs     []models.Program        `json:"programs,omitempty"`

	Sections []ViewSection              `json:"sections,omitempty"`
	Answers  map[string]string          `json:"answers,omitempty"`
	Aux      json.RawMessage            `json:"aux,omitempty"`
	Tokens   map[string][]modules.Token `json:"tokens,omitempty"`

	Untimed bool        `json:"untimed"`
	Timer   *timer.Tick `json:"timer,omitempty"`

	Outcome *Outcome `json:"outcome,omitempty"`
	Prior   *Prior   `json:"prior,omitempty"`
}

func (c *Controller) View() *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() *View {
	v := &View{
		Module:     c.def.Key,
		Label:      c.def.Label,
		Phase:      c.phase,
		Connection: c.session.Status(),
		Persistent: c.session.IsActive(),
		Notice:     c.notice,
		Untimed:    c.def.Untimed(),
		Outcome:    c.outcome,
		Prior:      c.prior,
	}

	if c.phase == models.PhaseAwaitingStart && c.def.RequiresProgram {
		v.Programs = availablePrograms(c.bank)
	}

	if c.snapshot == nil || c.phase == models.PhaseShowCompleted {
		return v
	}

	v.AttemptID = c.snapshot.AttemptID
	if program := c.snapshot.Selection.Program; program != "" {
		v.Program = program
		v.ProgramLabel = models.ProgramLabel(program)
	}
	if c.finalized {
		return v
	}

	v.Sections = viewSections(c.paper, c.def.Marks)
	v.Answers = make(map[string]string, len(c.snapshot.Answers))
	for k, val := range c.snapshot.Answers {
		v.Answers[k] = val
	}
	if c.def.Aux != "" {
		v.Aux = c.snapshot.AuxState[c.def.Aux]
	}
	v.Tokens = c.def.Tokens(c.items, c.snapshot.Selection.Seed)

	if !c.def.Untimed() {
		tick := c.currentTickLocked()
		v.Timer = &tick
	}
	return v
}

func (c *Controller) currentTickLocked() timer.Tick {
	if c.clock != nil {
		return c.clock.Current()
	}
	return timer.Tick{
		Remaining:       c.def.Duration,
		RemainingMillis: c.def.Duration.Milliseconds(),
		Fraction:        1,
		Display:         timer.Format(c.def.Duration),
		Band:            timer.BandNormal,
	}
}

func viewSections(paper *bank.Paper, marks int) []ViewSection {
	if paper == nil {
		return nil
	}
	sections := make([]ViewSection, 0, len(paper.Sections))
	for _, s := range paper.Sections {
		items := make([]ViewItem, 0, len(s.Items))
		for _, item := range s.Items {
			items = append(items, ViewItem{
				ID:      item.ID,
				Prompt:  item.Prompt,
				Options: item.Options,
				Marks:   marks,
			})
		}
		sections = append(sections, ViewSection{
			Key:     s.Key,
			SetID:   s.SetID,
			Audio:   s.Audio,
			Table:   s.Table,
			Example: s.Example,
			Items:   items,
		})
	}
	return sections
}

func availablePrograms(b *bank.Bank) []models.Program {
	var programs []models.Program
	for _, p := range models.Programs {
		if b.HasGroup(p.Key) {
			programs = append(programs, p)
		}
	}
	return programs
}
