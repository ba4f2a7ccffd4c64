package campaignsrv

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/placement/campaign"
)

func TestExportReport(t *testing.T) {
	f := newFixture(t)
	f.gateway.fail["meera@example.edu"] = errors.New("timeout")
	c := f.create(t, shortlistedBlock())
	_, err := f.svc.SendCampaign(context.Background(), c.ID)
	require.NoError(t, err)

	raw, err := f.svc.ExportReport(context.Background(), c.ID)
	require.NoError(t, err)

	xl, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows("Deliveries")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Email", rows[0][1])
	assert.Equal(t, "asha@example.edu", rows[1][1])
	assert.Equal(t, "FAILED", rows[3][3])

	summary, err := xl.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sent", "2"}, summary[4])
	assert.Equal(t, []string{"Failed", "1"}, summary[5])
}

func TestExportReport_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ExportReport(context.Background(), "missing")
	assert.True(t, errx.IsCode(err, campaign.CodeCampaignNotFound))
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	s := NewScheduler(f.svc, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
