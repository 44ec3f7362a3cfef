package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/gitnotify/internal/application"
	"github.com/ericfisherdev/gitnotify/internal/domain/model"
)

type panickingNotifier struct{}

func (panickingNotifier) Notify(context.Context, model.Notice) { panic("boom") }

func TestNotifiers_DeliversToAll(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	ns := application.Notifiers{a, panickingNotifier{}, b}

	assert.NotPanics(t, func() {
		ns.Notify(context.Background(), model.NewNotice(model.SeverityInfo, "hello"))
	})

	assert.Len(t, a.all(), 1)
	assert.Len(t, b.all(), 1)
}
