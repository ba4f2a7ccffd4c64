package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorderFunc func(context.Context, Entry) error

func (f recorderFunc) Record(ctx context.Context, e Entry) error { return f(ctx, e) }

func TestMulti_RecordsToAllEvenOnError(t *testing.T) {
	var calls int
	boom := errors.New("boom")
	m := Multi{
		recorderFunc(func(context.Context, Entry) error { calls++; return boom }),
		recorderFunc(func(context.Context, Entry) error { calls++; return nil }),
	}

	err := m.Record(context.Background(), Entry{Action: ActionEmailSent})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi{}.Record(context.Background(), Entry{}))
}
