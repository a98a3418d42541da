// Package annotate rewrites task text with inline [tag::value] annotations
// describing computed schedule fields.
package annotate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"eta-planner/pkg/schedule"
)

// annotation matches [tag::value] where tag has no whitespace or '-'. The
// value may contain [link] or [[link]] brackets.
var annotation = regexp.MustCompile(`\[[^\s-]*::(?:[^\]\[]+|\[(?:[^\]\[]+|\[[^\]\[]*\])*\])*\]`)

const dateLayout = "2006-01-02"

// Strip removes every annotation from s and trims surrounding space.
func Strip(s string) string {
	return strings.TrimSpace(annotation.ReplaceAllString(s, ""))
}

// StripForest strips annotations from the text of every node.
func StripForest(nodes []*schedule.Node) {
	for _, n := range nodes {
		n.Text = Strip(n.Text)
		StripForest(n.Children)
	}
}

// Render returns text followed by the annotations for n's priority, due,
// eta and owner. Priority is only written when positive. The eta date is
// highlighted when the task is due at or before it.
func Render(text string, n *schedule.Node) string {
	var b strings.Builder
	b.WriteString(text)
	if n.Priority != nil && *n.Priority > 0 {
		b.WriteString(" [priority::")
		b.WriteString(strconv.FormatFloat(*n.Priority, 'f', -1, 64))
		b.WriteString("]")
	}
	if n.Due != nil {
		b.WriteString(" [due::" + n.Due.Format(dateLayout) + "]")
	}
	if n.ETA != nil {
		b.WriteString(" [eta::" + etaDate(n.Due, *n.ETA) + "]")
	}
	if n.Owner != "" {
		b.WriteString(" [owner::" + n.Owner + "]")
	}
	return b.String()
}

func etaDate(due *time.Time, eta time.Time) string {
	d := eta.Format(dateLayout)
	if due != nil && !due.After(eta) {
		return `<font color="red"><b>` + d + `</b></font>`
	}
	return d
}

// Forest replaces the annotations of every node with freshly rendered ones.
func Forest(nodes []*schedule.Node) {
	for _, n := range nodes {
		n.Text = Render(Strip(n.Text), n)
		Forest(n.Children)
	}
}
