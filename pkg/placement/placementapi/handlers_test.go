package placementapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/Abraxas-365/placement/pkg/placement/campaign"
	"github.com/Abraxas-365/placement/pkg/placement/notification"
	"github.com/Abraxas-365/placement/pkg/placement/recipient"
)

type fakeCampaigns struct {
	created  campaign.CreateCampaignRequest
	listOpts kernel.PaginationOptions
	sendErr  error
}

func (f *fakeCampaigns) CreateCampaign(_ context.Context, req campaign.CreateCampaignRequest) (*campaign.Campaign, error) {
	f.created = req
	return &campaign.Campaign{ID: "c1", Name: req.Name, DriveID: req.DriveID, Status: campaign.StatusDraft, TotalRecipients: 3}, nil
}

func (f *fakeCampaigns) GetCampaign(_ context.Context, id kernel.CampaignID) (*campaign.Campaign, error) {
	if id != "c1" {
		return nil, campaign.ErrCampaignNotFound(id)
	}
	return &campaign.Campaign{ID: id, Status: campaign.StatusDraft}, nil
}

func (f *fakeCampaigns) ListCampaigns(_ context.Context, driveID kernel.DriveID, opts kernel.PaginationOptions) (kernel.Paginated[campaign.Campaign], error) {
	f.listOpts = opts
	items := []campaign.Campaign{{ID: "c1", DriveID: driveID}}
	return kernel.NewPaginated(items, opts.Page, opts.PageSize, 1), nil
}

func (f *fakeCampaigns) SendCampaign(_ context.Context, id kernel.CampaignID) (*campaign.SendResult, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &campaign.SendResult{
		Success: true,
		Status:  campaign.StatusCompleted,
		Stats:   campaign.RunStats{TotalBlocks: 1, TotalRecipients: 3, EmailsSent: 3},
	}, nil
}

func (f *fakeCampaigns) ResendFailed(ctx context.Context, id kernel.CampaignID) (*campaign.SendResult, error) {
	return f.SendCampaign(ctx, id)
}

func (f *fakeCampaigns) CancelCampaign(context.Context, kernel.CampaignID) error { return nil }

func (f *fakeCampaigns) GetStats(context.Context, kernel.CampaignID) (campaign.DeliveryStats, error) {
	return campaign.DeliveryStats{Total: 3, Sent: 2, Failed: 1}, nil
}

func (f *fakeCampaigns) HasReceivedEmail(_ context.Context, _ kernel.CampaignID, studentID kernel.UserID) (bool, error) {
	return studentID == "s1", nil
}

func (f *fakeCampaigns) ExportReport(context.Context, kernel.CampaignID) ([]byte, error) {
	return []byte("PK-xlsx"), nil
}

func (f *fakeCampaigns) PreviewEmail(_ context.Context, req campaign.PreviewRequest) (*campaign.Preview, error) {
	return &campaign.Preview{Subject: req.Subject, Body: req.Body}, nil
}

func (f *fakeCampaigns) ResolveRecipients(_ context.Context, _ kernel.DriveID, targetType, _ string) ([]recipient.Recipient, error) {
	if targetType != string(recipient.KindAllApplicants) {
		return nil, nil
	}
	return []recipient.Recipient{{StudentID: "s1", Email: "asha@example.edu"}}, nil
}

type fakeDispatcher struct {
	req    notification.Request
	jobIDs []string
}

func (f *fakeDispatcher) SendNotification(_ context.Context, req notification.Request) ([]string, error) {
	f.req = req
	return f.jobIDs, nil
}

func (f *fakeDispatcher) SendNotificationAsync(context.Context, notification.Request) {}

func (f *fakeDispatcher) NotifyApplicationStatus(context.Context, kernel.UserID, kernel.DriveID, placement.ApplicationStatus) error {
	return nil
}

func (f *fakeDispatcher) NotifyNewDrive(context.Context, kernel.DriveID) (int, error) { return 0, nil }

func newApp(campaigns *fakeCampaigns, dispatcher *fakeDispatcher) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(false)})
	NewHandlers(campaigns, dispatcher).RegisterRoutes(app)
	app.Use(NotFound)
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func TestCreateCampaign(t *testing.T) {
	campaigns := &fakeCampaigns{}
	app := newApp(campaigns, &fakeDispatcher{})

	resp, body := do(t, app, http.MethodPost, "/api/v1/campaigns", `{
		"name": "Round 1",
		"drive_id": "d1",
		"created_by": "tpo",
		"blocks": [{"target_type": "BY_STATUS", "target_value": "SHORTLISTED", "subject": "Hi", "body": "Hello {{student_name}}"}]
	}`)

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "c1", body["id"])
	require.Len(t, campaigns.created.Blocks, 1)
	assert.Equal(t, "SHORTLISTED", campaigns.created.Blocks[0].TargetValue)
}

func TestCreateCampaign_ActorHeaderFillsCreator(t *testing.T) {
	campaigns := &fakeCampaigns{}
	app := newApp(campaigns, &fakeDispatcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", strings.NewReader(`{
		"name": "Round 1",
		"drive_id": "d1",
		"blocks": [{"target_type": "ALL_APPLICANTS", "subject": "Hi", "body": "Hello"}]
	}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(HeaderActorID, "tpo-admin")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, kernel.UserID("tpo-admin"), campaigns.created.CreatedBy)
}

func TestCreateCampaign_MalformedBody(t *testing.T) {
	app := newApp(&fakeCampaigns{}, &fakeDispatcher{})

	resp, body := do(t, app, http.MethodPost, "/api/v1/campaigns", `{"name":`)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "API_INVALID_BODY", body["code"])
}

func TestListCampaigns_RequiresDrive(t *testing.T) {
	app := newApp(&fakeCampaigns{}, &fakeDispatcher{})

	resp, body := do(t, app, http.MethodGet, "/api/v1/campaigns", "")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "API_MISSING_PARAM", body["code"])
}

func TestListCampaigns_Pagination(t *testing.T) {
	campaigns := &fakeCampaigns{}
	app := newApp(campaigns, &fakeDispatcher{})

	resp, body := do(t, app, http.MethodGet, "/api/v1/campaigns?drive_id=d1&page=2&page_size=5", "")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, kernel.PaginationOptions{Page: 2, PageSize: 5}, campaigns.listOpts)
	assert.Len(t, body["items"], 1)
}

func TestGetCampaign_NotFoundUsesRegisteredStatus(t *testing.T) {
	app := newApp(&fakeCampaigns{}, &fakeDispatcher{})

	resp, body := do(t, app, http.MethodGet, "/api/v1/campaigns/nope", "")

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "CAMPAIGN_NOT_FOUND", body["code"])
	assert.Equal(t, "NOT_FOUND", body["type"])
}

func TestSendCampaign(t *testing.T) {
	app := newApp(&fakeCampaigns{}, &fakeDispatcher{})

	resp, body := do(t, app, http.MethodPost, "/api/v1/campaigns/c1/send", "")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "COMPLETED", body["status"])
}

func TestSendCampaign_AlreadySendingIsConflict(t *testing.T) {
	app := newApp(&fakeCampaigns{sendErr: campaign.ErrAlreadySending("c1")}, &fakeDispatcher{})

	resp, body := do(t, app, http.MethodPost, "/api/v1/campaigns/c1/send", "")

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CAMPAIGN_ALREADY_SENDING", body["code"])
}

func TestHasReceivedEmail(t *testing.T) {
	app := newApp(&fakeCampaigns{}, &fakeDispatcher{})

	_, body := do(t, app, http.MethodGet, "/api/v1/campaigns/c1/recipients/s1/received", "")
	assert.Equal(t, true, body["received"])

	_, body = do(t, app, http.MethodGet, "/api/v1/campaigns/c1/recipients/s9/received", "")
	assert.Equal(t, false, body["received"])
}

func TestExportReport(t *testing.T) {
	app := newApp(&fakeCampaigns{}, &fakeDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/c1/report.xlsx", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "campaign-c1.xlsx")
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "PK-xlsx", string(raw))
}

func TestResolveRecipients_DefaultsToAllApplicants(t *testing.T) {
	app := newApp(&fakeCampaigns{}, &fakeDispatcher{})

	resp, body := do(t, app, http.MethodGet, "/api/v1/drives/d1/recipients", "")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])
}

func TestSendNotification_Queued(t *testing.T) {
	dispatcher := &fakeDispatcher{jobIDs: []string{"job-1"}}
	app := newApp(&fakeCampaigns{}, dispatcher)

	resp, body := do(t, app, http.MethodPost, "/api/v1/notifications", `{
		"user_id": "s1",
		"event_type": "application-shortlisted",
		"data": {"company_name": "Acme"},
		"priority": "high",
		"delay_seconds": 90
	}`)

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "queued", body["status"])
	assert.Equal(t, kernel.UserID("s1"), dispatcher.req.UserID)
	assert.Equal(t, placement.EventApplicationShortlisted, dispatcher.req.EventType)
	assert.Equal(t, 90*time.Second, dispatcher.req.Delay)
	assert.Equal(t, "Acme", dispatcher.req.Data["company_name"])
}

func TestSendNotification_Suppressed(t *testing.T) {
	app := newApp(&fakeCampaigns{}, &fakeDispatcher{})

	resp, body := do(t, app, http.MethodPost, "/api/v1/notifications", `{"user_id": "s1", "event_type": "new-drive-published"}`)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "suppressed", body["status"])
}

func TestUnknownRoute(t *testing.T) {
	app := newApp(&fakeCampaigns{}, &fakeDispatcher{})

	resp, body := do(t, app, http.MethodGet, "/api/v1/nothing-here", "")

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])
}
