package reveal

import (
	"strings"

	"github.com/anchal00/morningstar/internal/model"
)

// Pair holds both sides' answers to one question. A nil field means the side
// has not answered yet.
type Pair struct {
	Host  *string `json:"host"`
	Guest *string `json:"guest"`
}

// Answers maps question id to its pair.
type Answers map[string]Pair

func present(s *string) bool {
	return s != nil && *s != ""
}

func text(s string) *string {
	return &s
}

func (p Pair) Get(role model.PlayerRole) *string {
	if role == model.RoleHost {
		return p.Host
	}
	return p.Guest
}

// With returns a copy of p with role's answer set to value.
func (p Pair) With(role model.PlayerRole, value string) Pair {
	if role == model.RoleHost {
		p.Host = text(value)
	} else {
		p.Guest = text(value)
	}
	return p
}

// Only returns a copy of p keeping just role's answer.
func (p Pair) Only(role model.PlayerRole) Pair {
	if role == model.RoleHost {
		return Pair{Host: p.Host}
	}
	return Pair{Guest: p.Guest}
}

func (p Pair) Revealed() bool {
	return present(p.Host) && present(p.Guest)
}

func mergePair(local, incoming Pair) Pair {
	merged := local
	if present(incoming.Host) {
		merged.Host = text(*incoming.Host)
	}
	if present(incoming.Guest) {
		merged.Guest = text(*incoming.Guest)
	}
	return merged
}

// Merge combines two answer maps field by field: a present incoming value
// wins, a missing one never erases what local already has. The inputs are
// not modified.
func Merge(local, incoming Answers) Answers {
	merged := make(Answers, len(local)+len(incoming))
	for id, p := range local {
		merged[id] = p
	}
	for id, p := range incoming {
		merged[id] = mergePair(merged[id], p)
	}
	return merged
}

// Column projects the map onto a single role's answers.
func (a Answers) Column(role model.PlayerRole) Answers {
	out := make(Answers, len(a))
	for id, p := range a {
		if present(p.Get(role)) {
			out[id] = p.Only(role)
		}
	}
	return out
}

func (a Answers) Count(role model.PlayerRole) int {
	n := 0
	for _, p := range a {
		if present(p.Get(role)) {
			n++
		}
	}
	return n
}

// FromRows folds stored answer rows into pairs as seen by userID holding
// role. Rows by other users land in the partner column unless room says
// otherwise.
func FromRows(rows []model.Answer, room *model.Room, userID string, role model.PlayerRole) Answers {
	out := make(Answers, len(rows))
	for _, a := range rows {
		if strings.TrimSpace(a.Text) == "" {
			continue
		}
		col := role.Partner()
		if a.UserID == userID {
			col = role
		} else if room != nil {
			if r, ok := room.RoleOf(a.UserID); ok {
				col = r
			}
		}
		out[a.QuestionID] = out[a.QuestionID].With(col, a.Text)
	}
	return out
}
