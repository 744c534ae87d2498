package reveal

import (
	"sort"

	"github.com/anchal00/morningstar/internal/model"
	"github.com/hashicorp/go-set/v2"
)

// Entry is what one side may see of a question. Partner stays nil until the
// pair is revealed, so nobody reads the other answer before committing theirs.
type Entry struct {
	QuestionID      string  `json:"question_id"`
	Text            string  `json:"text"`
	Mine            *string `json:"mine"`
	Partner         *string `json:"partner"`
	PartnerAnswered bool    `json:"partner_answered"`
	Revealed        bool    `json:"revealed"`
}

type View struct {
	RoomID        string           `json:"room_id"`
	Role          model.PlayerRole `json:"role"`
	Entries       []Entry          `json:"entries"`
	Answered      int              `json:"answered"`
	Revealed      int              `json:"revealed"`
	PartnerOnline bool             `json:"partner_online"`
}

// Entry returns the entry for questionID.
func (v View) Entry(questionID string) (Entry, bool) {
	for _, e := range v.Entries {
		if e.QuestionID == questionID {
			return e, true
		}
	}
	return Entry{}, false
}

func entryFor(q model.Question, p Pair, role model.PlayerRole) Entry {
	e := Entry{QuestionID: q.ID, Text: q.Text}
	mine, partner := p.Get(role), p.Get(role.Partner())
	if present(mine) {
		e.Mine = text(*mine)
	}
	e.PartnerAnswered = present(partner)
	if e.Mine != nil && e.PartnerAnswered {
		e.Partner = text(*partner)
		e.Revealed = true
	}
	return e
}

// BuildView lays out answers in question order for role. Answered questions
// missing from the pool (deleted custom prompts) are appended by id.
func BuildView(roomID string, role model.PlayerRole, questions []model.Question, answers Answers) View {
	v := View{RoomID: roomID, Role: role, Entries: make([]Entry, 0, len(questions))}
	known := set.New[string](len(questions))
	for _, q := range questions {
		if !known.Insert(q.ID) {
			continue
		}
		v.Entries = append(v.Entries, entryFor(q, answers[q.ID], role))
	}
	extra := make([]string, 0)
	for id := range answers {
		if !known.Contains(id) {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		v.Entries = append(v.Entries, entryFor(model.Question{ID: id}, answers[id], role))
	}
	for _, e := range v.Entries {
		if e.Mine != nil {
			v.Answered++
		}
		if e.Revealed {
			v.Revealed++
		}
	}
	return v
}
