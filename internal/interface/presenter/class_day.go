package presenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/classbook/register-archive/internal/application/query"
	"github.com/classbook/register-archive/internal/domain/period"
	"github.com/classbook/register-archive/internal/domain/register"
	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASS DIARY PAGE
// ══════════════════════════════════════════════════════════════════════════════

// ClassDay writes one page of the class register.
func (p *RegisterPresenter) ClassDay(c Canvas, term period.Term, d *query.ClassDay) {
	p.pageHeader(c, TitleClassRegister, header{class: d.Class, term: term})
	c.WriteMarkup(`<p style="font-size:14pt"><b>`+esc(timeutil.FormatLong(d.Date))+"</b></p>", AlignCenter)

	c.WriteMarkup(lessonsTable(d), AlignCenter)
	if len(d.OutOfClass) > 0 {
		c.WriteMarkup(outOfClassTable(d.OutOfClass), AlignLeft)
	}
	c.WriteMarkup(attendanceTable(d), AlignCenter)
	if len(d.Notes) > 0 || len(d.Annotations) > 0 {
		c.WriteMarkup(notesTable(d), AlignCenter)
	}
}

func lessonsTable(d *query.ClassDay) string {
	var sb strings.Builder
	sb.WriteString(`<table><thead><tr><th width="6%">Ora</th><th width="24%">Materia</th>` +
		`<th width="20%">Docenti</th><th width="50%">Argomenti/Attivit&agrave;</th></tr></thead>`)
	for _, row := range d.Slots {
		span := len(row.Lessons)
		if span < 1 {
			span = 1
		}
		fmt.Fprintf(&sb, `<tr style="font-size:9pt"><td rowspan="%d">%s<br>-<br>%s</td>`,
			span, timeutil.FormatTime(row.Slot.Start), timeutil.FormatTime(row.Slot.End))
		if len(row.Lessons) == 0 {
			sb.WriteString("<td></td><td></td><td></td></tr>")
			continue
		}
		for i, l := range row.Lessons {
			if i > 0 {
				sb.WriteString(`<tr style="font-size:9pt">`)
			}
			subject := esc(l.SubjectName)
			if g := groupLabel(d.Class, l.GroupType, l.Group); g != "" {
				subject = "<b>" + g + "</b><br>" + subject
			}
			teachers := make([]string, len(l.Teachers))
			for j, t := range l.Teachers {
				teachers[j] = "<i>" + esc(t) + "</i>"
			}
			fmt.Fprintf(&sb, `<td align="left">%s</td><td align="left">%s</td><td align="left">%s</td></tr>`,
				subject, joinLines(teachers),
				register.JoinTopic(register.CleanText(l.Topic), register.CleanText(l.Activity)))
		}
	}
	sb.WriteString("</table>")
	return sb.String()
}

// groupLabel names the group a lesson or note belongs to; empty for the whole class.
func groupLabel(class school.Class, groupType, group string) string {
	switch groupType {
	case school.GroupReligion:
		switch group {
		case "S":
			return "Gruppo: Religione"
		case "A":
			return "Gruppo: Mat. Alt."
		default:
			return "Gruppo: N.A."
		}
	case school.GroupClass:
		if group == "" {
			return ""
		}
		return "Gruppo: " + esc(class.Base()+"-"+group)
	}
	return ""
}

func outOfClassTable(rows []school.OutOfClass) string {
	lines := make([]string, 0, len(rows))
	for _, o := range rows {
		when := "tutto il giorno"
		switch {
		case o.From != nil && o.To != nil:
			when = "dalle " + timeutil.FormatTime(*o.From) + " alle " + timeutil.FormatTime(*o.To)
		case o.From != nil:
			when = "dalle " + timeutil.FormatTime(*o.From)
		case o.To != nil:
			when = "fino alle " + timeutil.FormatTime(*o.To)
		}
		line := fmt.Sprintf("<b>%s</b>: %s (%s", esc(o.Student.Label()), when, esc(o.KindLabel()))
		if o.Description != "" {
			line += ": " + register.CleanText(o.Description)
		}
		lines = append(lines, line+")")
	}
	return `<table style="font-size:9pt"><tr><td width="20%"><b>Fuori classe:</b></td>` +
		`<td width="80%" align="left">` + joinLines(lines) + "</td></tr></table>"
}

func attendanceTable(d *query.ClassDay) string {
	var absent, late, exit []string
	for _, a := range d.Attendance {
		name := esc(a.Student.Label())
		if a.Absent {
			absent = append(absent, "- "+name)
		}
		if a.Late != nil {
			late = append(late, "- <b>"+timeutil.FormatTime(*a.Late)+"</b> "+name)
		}
		if a.EarlyExit != nil {
			exit = append(exit, "- <b>"+timeutil.FormatTime(*a.EarlyExit)+"</b> "+name)
		}
	}
	var justified []string
	for _, j := range d.Justifications {
		var parts []string
		if len(j.Absences) > 0 {
			parts = append(parts, plural(len(j.Absences), "Assenza", "Assenze")+" del "+dateList(j.Absences))
		}
		if len(j.Lates) > 0 {
			parts = append(parts, plural(len(j.Lates), "Ritardo", "Ritardi")+" del "+dateList(j.Lates))
		}
		if len(j.Exits) > 0 {
			parts = append(parts, plural(len(j.Exits), "Uscita", "Uscite")+" del "+dateList(j.Exits))
		}
		if len(parts) > 0 {
			justified = append(justified, "- "+esc(j.Student.Label())+": "+strings.Join(parts, "; ")+".")
		}
	}

	var sb strings.Builder
	sb.WriteString(`<table><thead><tr><th width="25%">Assenze</th><th width="25%">Ritardi</th>` +
		`<th width="25%">Uscite anticipate</th><th width="25%">Giustificazioni</th></tr></thead>`)
	fmt.Fprintf(&sb, `<tr style="font-size:9pt"><td align="left">%s</td><td align="left">%s</td>`+
		`<td align="left">%s</td><td align="left">%s</td></tr>`,
		joinLines(absent), joinLines(late), joinLines(exit), joinLines(justified))
	sb.WriteString("</table>")
	return sb.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func dateList(days []time.Time) string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = timeutil.FormatDate(d)
	}
	return strings.Join(out, ", ")
}

// ─────────────────────────────────────────────────────────────────────────────
// NOTES AND ANNOTATIONS
// ─────────────────────────────────────────────────────────────────────────────

func notesTable(d *query.ClassDay) string {
	notes := make([]string, 0, len(d.Notes))
	for _, n := range d.Notes {
		var sb strings.Builder
		if g := groupLabel(d.Class, school.GroupClass, n.Group); g != "" {
			sb.WriteString("<b>" + g + "</b><br>")
		}
		if len(n.Students) > 0 {
			sb.WriteString("<i>Alunni: " + boldNames(n.Students) + "</i><br>")
		}
		sb.WriteString(register.CleanText(n.Text))
		sb.WriteString("<br>(<i>" + esc(n.Teacher) + "</i>)")
		if n.Provision != "" {
			sb.WriteString("<br><br>Provvedimento disciplinare:<br><b>" + register.CleanText(n.Provision) + "</b>")
			if n.ProvisionTeacher != "" {
				sb.WriteString("<br>(<i>" + esc(n.ProvisionTeacher) + "</i>)")
			}
		}
		if n.Cancelled {
			sb.WriteString("<br><b>*** ANNULLATA ***</b>")
		}
		notes = append(notes, sb.String())
	}

	annotations := make([]string, 0, len(d.Annotations))
	for _, a := range d.Annotations {
		var sb strings.Builder
		if g := groupLabel(d.Class, school.GroupClass, a.Group); g != "" {
			sb.WriteString("<b>" + g + "</b><br>")
		}
		if len(a.Students) > 0 {
			to := strings.ToLower(a.Recipients)
			if to == "" {
				to = "alunni"
			}
			sb.WriteString("<i>Destinatari " + esc(to) + ": " + boldNames(a.Students) + "</i><br>")
		}
		sb.WriteString(register.CleanText(a.Text))
		sb.WriteString("<br>(<i>" + esc(a.Teacher) + "</i>)")
		annotations = append(annotations, sb.String())
	}

	return `<table><thead><tr><th width="50%">Note disciplinari</th><th width="50%">Annotazioni</th></tr></thead>` +
		`<tr style="font-size:9pt"><td align="left">` + strings.Join(notes, "<br><br>") +
		`</td><td align="left">` + strings.Join(annotations, "<br><br>") + "</td></tr></table>"
}

func boldNames(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "<b>" + esc(n) + "</b>"
	}
	return strings.Join(out, ", ")
}
