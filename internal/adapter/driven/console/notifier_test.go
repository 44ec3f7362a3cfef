package console_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/gitnotify/internal/adapter/driven/console"
	"github.com/ericfisherdev/gitnotify/internal/domain/model"
)

func TestNotifier_RendersNotice(t *testing.T) {
	var buf bytes.Buffer
	n := console.NewNotifier(&buf)

	notice := model.NewNotice(model.SeverityInfo, "Validation successful")
	notice.CreatedAt = time.Date(2026, 3, 1, 9, 15, 30, 0, time.UTC)

	n.Notify(context.Background(), notice)

	out := buf.String()
	assert.Contains(t, out, "09:15:30")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "Git-Notify: Validation successful")
	assert.NotContains(t, out, "[")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestNotifier_RendersActionAndSeverity(t *testing.T) {
	tests := []struct {
		severity model.Severity
		label    string
	}{
		{model.SeverityInfo, "INFO"},
		{model.SeverityWarning, "WARNING"},
		{model.SeverityError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			var buf bytes.Buffer
			n := console.NewNotifier(&buf)

			n.Notify(context.Background(), model.NewNotice(tt.severity, "body").WithAction(model.ActionRestart))

			assert.Contains(t, buf.String(), tt.label)
			assert.Contains(t, buf.String(), "[Restart plugin]")
		})
	}
}

func TestNotifier_StickyNoticeIsBoxed(t *testing.T) {
	var buf bytes.Buffer
	n := console.NewNotifier(&buf)

	n.Notify(context.Background(), model.NewNotice(model.SeverityInfo, "ALICE has requested you review their PR").
		WithAction(model.ActionReviewed).AsSticky())

	out := buf.String()
	assert.Contains(t, out, "ALICE has requested you review their PR")
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "╯")
}

func TestNotifier_PublishPrintsLink(t *testing.T) {
	var buf bytes.Buffer
	n := console.NewNotifier(&buf)

	n.Publish(context.Background(), model.ReviewRequested{
		Number:         42,
		PullRequestURL: "https://api.github.com/repos/octo/hello/pulls/42",
		HTMLURL:        "https://github.com/octo/hello/pull/42",
	})
	n.Publish(context.Background(), model.ReviewRequested{
		Number:         7,
		PullRequestURL: "https://api.github.com/repos/octo/hello/pulls/7",
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(t, lines, 2) {
		assert.Contains(t, lines[0], "PR #42")
		assert.Contains(t, lines[0], "https://github.com/octo/hello/pull/42")
		assert.Contains(t, lines[1], "https://api.github.com/repos/octo/hello/pulls/7")
	}
}
