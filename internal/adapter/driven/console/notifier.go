// Package console renders notices and review events to a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.Notifier       = (*Notifier)(nil)
	_ driven.EventPublisher = (*Notifier)(nil)
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	colorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	colorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	colorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	colorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	colorGray   = lipgloss.AdaptiveColor{Dark: "#888888", Light: "#718096"}
)

type styles struct {
	title    lipgloss.Style
	info     lipgloss.Style
	warning  lipgloss.Style
	err      lipgloss.Style
	action   lipgloss.Style
	meta     lipgloss.Style
	link     lipgloss.Style
	sticky   lipgloss.Style
	severity map[model.Severity]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	s := styles{
		title:   r.NewStyle().Bold(true),
		info:    r.NewStyle().Foreground(colorBlue).Bold(true),
		warning: r.NewStyle().Foreground(colorYellow).Bold(true),
		err:     r.NewStyle().Foreground(colorRed).Bold(true),
		action:  r.NewStyle().Foreground(colorGreen),
		meta:    r.NewStyle().Foreground(colorGray),
		link:    r.NewStyle().Foreground(colorBlue).Underline(true),
		sticky:  r.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(colorGray).Padding(0, 1),
	}
	s.severity = map[model.Severity]lipgloss.Style{
		model.SeverityInfo:    s.info,
		model.SeverityWarning: s.warning,
		model.SeverityError:   s.err,
	}
	return s
}

// Notifier writes one styled block per notice to w. Colors are dropped
// automatically when w is not a terminal.
type Notifier struct {
	mu     sync.Mutex
	w      io.Writer
	styles styles
	now    func() time.Time
}

// NewNotifier creates a Notifier writing to w.
func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{
		w:      w,
		styles: newStyles(lipgloss.NewRenderer(w)),
		now:    time.Now,
	}
}

// Notify renders the notice. Sticky notices are boxed.
func (n *Notifier) Notify(_ context.Context, notice model.Notice) {
	s := n.styles

	label, ok := s.severity[notice.Severity]
	if !ok {
		label = s.info
	}

	ts := notice.CreatedAt
	if ts.IsZero() {
		ts = n.now()
	}

	var b strings.Builder
	b.WriteString(s.meta.Render(ts.Format("15:04:05")))
	b.WriteString(" ")
	b.WriteString(label.Render(strings.ToUpper(string(notice.Severity))))
	b.WriteString(" ")
	b.WriteString(s.title.Render(notice.Title))
	b.WriteString(": ")
	b.WriteString(notice.Body)
	if notice.Action != "" {
		b.WriteString(" ")
		b.WriteString(s.action.Render("[" + notice.Action + "]"))
	}

	line := b.String()
	if notice.Sticky {
		line = s.sticky.Render(line)
	}

	n.write(line)
}

// Publish renders a link to the pull request behind a review request.
func (n *Notifier) Publish(_ context.Context, event model.ReviewRequested) {
	s := n.styles

	target := event.HTMLURL
	if target == "" {
		target = event.PullRequestURL
	}
	n.write(fmt.Sprintf("%s %s %s",
		s.meta.Render(fmt.Sprintf("  PR #%d", event.Number)),
		s.meta.Render("->"),
		s.link.Render(target),
	))
}

func (n *Notifier) write(line string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, line)
}
