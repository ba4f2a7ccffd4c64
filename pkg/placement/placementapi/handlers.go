// Package placementapi exposes campaigns and notifications over HTTP.
package placementapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/jobx"
	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/Abraxas-365/placement/pkg/placement/campaign"
	"github.com/Abraxas-365/placement/pkg/placement/notification"
	"github.com/Abraxas-365/placement/pkg/placement/recipient"
	"github.com/Abraxas-365/placement/pkg/placement/template"
)

// HeaderActorID names the admin on whose behalf a request runs.
const HeaderActorID = "X-Actor-ID"

var ErrRegistry = errx.NewRegistry("API")

var (
	CodeInvalidBody  = ErrRegistry.Register("INVALID_BODY", errx.TypeValidation, http.StatusBadRequest, "Request body could not be parsed")
	CodeMissingParam = ErrRegistry.Register("MISSING_PARAM", errx.TypeValidation, http.StatusBadRequest, "Required parameter missing")
)

// CampaignService is the campaign surface the handlers drive.
type CampaignService interface {
	CreateCampaign(ctx context.Context, req campaign.CreateCampaignRequest) (*campaign.Campaign, error)
	GetCampaign(ctx context.Context, id kernel.CampaignID) (*campaign.Campaign, error)
	ListCampaigns(ctx context.Context, driveID kernel.DriveID, opts kernel.PaginationOptions) (kernel.Paginated[campaign.Campaign], error)
	SendCampaign(ctx context.Context, id kernel.CampaignID) (*campaign.SendResult, error)
	ResendFailed(ctx context.Context, id kernel.CampaignID) (*campaign.SendResult, error)
	CancelCampaign(ctx context.Context, id kernel.CampaignID) error
	GetStats(ctx context.Context, id kernel.CampaignID) (campaign.DeliveryStats, error)
	HasReceivedEmail(ctx context.Context, id kernel.CampaignID, studentID kernel.UserID) (bool, error)
	ExportReport(ctx context.Context, id kernel.CampaignID) ([]byte, error)
	PreviewEmail(ctx context.Context, req campaign.PreviewRequest) (*campaign.Preview, error)
	ResolveRecipients(ctx context.Context, driveID kernel.DriveID, targetType, targetValue string) ([]recipient.Recipient, error)
}

type Handlers struct {
	campaigns     CampaignService
	notifications notification.Dispatcher
}

func NewHandlers(campaigns CampaignService, notifications notification.Dispatcher) *Handlers {
	return &Handlers{campaigns: campaigns, notifications: notifications}
}

// RegisterRoutes mounts every route under /api/v1. Middleware, when given,
// guards the whole group.
func (h *Handlers) RegisterRoutes(app *fiber.App, middleware ...fiber.Handler) {
	api := app.Group("/api/v1", append([]fiber.Handler{requestScope}, middleware...)...)

	campaigns := api.Group("/campaigns")
	campaigns.Post("/", h.CreateCampaign)
	campaigns.Get("/", h.ListCampaigns)
	campaigns.Post("/preview", h.PreviewEmail)
	campaigns.Get("/:id", h.GetCampaign)
	campaigns.Post("/:id/send", h.SendCampaign)
	campaigns.Post("/:id/resend-failed", h.ResendFailed)
	campaigns.Post("/:id/cancel", h.CancelCampaign)
	campaigns.Get("/:id/stats", h.GetStats)
	campaigns.Get("/:id/report.xlsx", h.ExportReport)
	campaigns.Get("/:id/recipients/:studentId/received", h.HasReceivedEmail)

	api.Get("/drives/:id/recipients", h.ResolveRecipients)
	api.Post("/notifications", h.SendNotification)
}

// requestScope copies the request id and the acting admin, set by the
// upstream gateway in X-Actor-ID, into the request context.
func requestScope(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if id := c.Get(fiber.HeaderXRequestID); id != "" {
		ctx = kernel.WithRequestID(ctx, id)
	}
	if actor := c.Get(HeaderActorID); actor != "" {
		ctx = kernel.WithActor(ctx, kernel.NewUserID(actor))
	}
	c.SetUserContext(ctx)
	return c.Next()
}

func (h *Handlers) CreateCampaign(c *fiber.Ctx) error {
	var req campaign.CreateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	if req.CreatedBy.IsEmpty() {
		if actor, ok := kernel.ActorFrom(c.UserContext()); ok {
			req.CreatedBy = actor
		}
	}
	created, err := h.campaigns.CreateCampaign(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handlers) ListCampaigns(c *fiber.Ctx) error {
	driveID := c.Query("drive_id")
	if driveID == "" {
		return missingParam("drive_id")
	}
	opts := kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}
	page, err := h.campaigns.ListCampaigns(c.UserContext(), kernel.NewDriveID(driveID), opts)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handlers) GetCampaign(c *fiber.Ctx) error {
	found, err := h.campaigns.GetCampaign(c.UserContext(), campaignID(c))
	if err != nil {
		return err
	}
	return c.JSON(found)
}

func (h *Handlers) SendCampaign(c *fiber.Ctx) error {
	result, err := h.campaigns.SendCampaign(c.UserContext(), campaignID(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *Handlers) ResendFailed(c *fiber.Ctx) error {
	result, err := h.campaigns.ResendFailed(c.UserContext(), campaignID(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *Handlers) CancelCampaign(c *fiber.Ctx) error {
	if err := h.campaigns.CancelCampaign(c.UserContext(), campaignID(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": c.Params("id"), "status": campaign.StatusCancelled})
}

func (h *Handlers) GetStats(c *fiber.Ctx) error {
	stats, err := h.campaigns.GetStats(c.UserContext(), campaignID(c))
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (h *Handlers) HasReceivedEmail(c *fiber.Ctx) error {
	received, err := h.campaigns.HasReceivedEmail(c.UserContext(), campaignID(c), kernel.NewUserID(c.Params("studentId")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"received": received})
}

func (h *Handlers) ExportReport(c *fiber.Ctx) error {
	id := campaignID(c)
	data, err := h.campaigns.ExportReport(c.UserContext(), id)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="campaign-%s.xlsx"`, id))
	return c.Send(data)
}

func (h *Handlers) PreviewEmail(c *fiber.Ctx) error {
	var req campaign.PreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	preview, err := h.campaigns.PreviewEmail(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(preview)
}

func (h *Handlers) ResolveRecipients(c *fiber.Ctx) error {
	targetType := c.Query("target_type", string(recipient.KindAllApplicants))
	recipients, err := h.campaigns.ResolveRecipients(
		c.UserContext(),
		kernel.NewDriveID(c.Params("id")),
		targetType,
		c.Query("target_value"),
	)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": len(recipients), "recipients": recipients})
}

// notificationBody is the wire form of notification.Request.
type notificationBody struct {
	UserID       kernel.UserID       `json:"user_id"`
	EventType    placement.EventType `json:"event_type"`
	Data         template.Vars       `json:"data"`
	Channels     []placement.Channel `json:"channels"`
	Priority     jobx.Priority       `json:"priority"`
	DelaySeconds int                 `json:"delay_seconds"`
}

func (h *Handlers) SendNotification(c *fiber.Ctx) error {
	var body notificationBody
	if err := c.BodyParser(&body); err != nil {
		return invalidBody(err)
	}
	jobIDs, err := h.notifications.SendNotification(c.UserContext(), notification.Request{
		UserID:    body.UserID,
		EventType: body.EventType,
		Data:      body.Data,
		Channels:  body.Channels,
		Priority:  body.Priority,
		Delay:     time.Duration(body.DelaySeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	if len(jobIDs) == 0 {
		return c.JSON(fiber.Map{"status": "suppressed", "job_ids": []string{}})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued", "job_ids": jobIDs})
}

func campaignID(c *fiber.Ctx) kernel.CampaignID {
	return kernel.NewCampaignID(c.Params("id"))
}

func invalidBody(err error) error {
	return ErrRegistry.NewWithCause(CodeInvalidBody, err)
}

func missingParam(name string) error {
	return ErrRegistry.New(CodeMissingParam).WithDetail("param", name)
}
