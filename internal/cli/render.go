package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/reveal"
)

const maxCell = 48

func clip(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > maxCell {
		return string(r[:maxCell-1]) + "…"
	}
	return s
}

func partnerCell(e reveal.Entry) string {
	switch {
	case e.Revealed:
		return clip(*e.Partner)
	case e.PartnerAnswered:
		return "(answered, hidden)"
	}
	return "-"
}

func renderView(out io.Writer, v reveal.View) error {
	partner := "waiting for partner"
	if v.PartnerOnline {
		partner = "partner linked"
	}
	fmt.Fprintf(out, "Room %s as %s, %s. Answered %d, revealed %d.\n\n", v.RoomID, v.Role, partner, v.Answered, v.Revealed)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tQUESTION\tYOU\tPARTNER")
	for _, e := range v.Entries {
		mine := "-"
		if e.Mine != nil {
			mine = clip(*e.Mine)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.QuestionID, clip(e.Text), mine, partnerCell(e))
	}
	return w.Flush()
}

func renderRooms(out io.Writer, rooms []model.Room, me string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tHOST\tGUEST\tYOU\tCREATED")
	for _, r := range rooms {
		guest := "-"
		if r.HasGuest() {
			guest = *r.GuestID
			if r.GuestName != nil && *r.GuestName != "" {
				guest = *r.GuestName
			}
		}
		role := "-"
		if rl, ok := r.RoleOf(me); ok {
			role = string(rl)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.HostName, guest, role, r.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func renderQuestions(out io.Writer, questions []model.Question) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tQUESTION")
	for _, q := range questions {
		fmt.Fprintf(w, "%s\t%s\n", q.ID, q.Text)
	}
	return w.Flush()
}
