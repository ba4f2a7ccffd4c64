package template

import "github.com/Abraxas-365/placement/pkg/placement"

const layoutHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="font-family:Arial,sans-serif;background:#f4f6f8;margin:0;padding:24px;">
<table width="100%" cellpadding="0" cellspacing="0" style="max-width:600px;margin:0 auto;background:#ffffff;border-radius:6px;">
<tr><td style="background:#1f3a5f;color:#ffffff;padding:16px 24px;font-size:18px;">{{.InstitutionName}}</td></tr>
<tr><td style="padding:24px;color:#222222;line-height:1.5;">{{.Content}}</td></tr>
<tr><td style="padding:16px 24px;font-size:12px;color:#777777;border-top:1px solid #e5e5e5;">
{{if .PortalURL}}Visit the <a href="{{.PortalURL}}">placement portal</a> for details.{{end}}
{{if .SupportEmail}}Questions? Write to {{.SupportEmail}}.{{end}}
</td></tr>
</table>
</body>
</html>`

var builtins = map[placement.EventType]Template{
	placement.EventRegistrationWelcome: {
		Subject: "Welcome to {{institution_name}} placements",
		Body: `<p>Hi {{student_name}},</p>
<p>Your account on the {{institution_name}} placement portal is ready. Complete your profile and upload your resume to start applying to drives.</p>`,
	},
	placement.EventProfileIncomplete: {
		Subject: "Complete your placement profile",
		Body: `<p>Hi {{student_name}},</p>
<p>Your profile is missing details recruiters need. Please update it on the portal before the next drive opens.</p>`,
	},
	placement.EventApplicationSubmitted: {
		Subject: "Application received: {{company_name}} {{role}}",
		Body: `<p>Hi {{student_name}},</p>
<p>We have received your application for <strong>{{role}}</strong> at <strong>{{company_name}}</strong>.</p>
<p>Location: {{location}}<br>CTC: {{ctc}}</p>`,
	},
	placement.EventApplicationUnderReview: {
		Subject: "Your {{company_name}} application is under review",
		Body: `<p>Hi {{student_name}},</p>
<p>Your application for <strong>{{role}}</strong> at <strong>{{company_name}}</strong> is now being reviewed.</p>`,
	},
	placement.EventApplicationShortlisted: {
		Subject: "Shortlisted: {{company_name}} {{role}}",
		Body: `<p>Hi {{student_name}},</p>
<p>Congratulations! You have been shortlisted for <strong>{{role}}</strong> at <strong>{{company_name}}</strong>.</p>
<p>Drive date: {{drive_date}}<br>Location: {{location}}</p>`,
	},
	placement.EventApplicationSelected: {
		Subject: "Selected: {{company_name}} {{role}}",
		Body: `<p>Hi {{student_name}},</p>
<p>Congratulations! You have been selected for <strong>{{role}}</strong> at <strong>{{company_name}}</strong> with a CTC of {{ctc}}.</p>
<p>The placement cell will contact you with next steps.</p>`,
	},
	placement.EventApplicationRejected: {
		Subject: "Update on your {{company_name}} application",
		Body: `<p>Hi {{student_name}},</p>
<p>Thank you for applying for <strong>{{role}}</strong> at <strong>{{company_name}}</strong>. The company will not be moving forward with your application.</p>
<p>Keep an eye on the portal for upcoming drives.</p>`,
	},
	placement.EventApplicationOnHold: {
		Subject: "Your {{company_name}} application is on hold",
		Body: `<p>Hi {{student_name}},</p>
<p>Your application for <strong>{{role}}</strong> at <strong>{{company_name}}</strong> has been put on hold. We will update you as soon as the company decides.</p>`,
	},
	placement.EventNewDrivePublished: {
		Subject: "New drive: {{company_name}} is hiring {{role}}",
		Body: `<p>Hi {{student_name}},</p>
<p><strong>{{company_name}}</strong> has opened a drive for <strong>{{role}}</strong>.</p>
<p>Location: {{location}}<br>CTC: {{ctc}}<br>Apply by: {{deadline}}</p>`,
	},
	placement.EventDriveDeadlineReminder: {
		Subject: "Reminder: {{company_name}} applications close {{deadline}}",
		Body: `<p>Hi {{student_name}},</p>
<p>Applications for <strong>{{role}}</strong> at <strong>{{company_name}}</strong> close on {{deadline}}. Apply on the portal if you are interested.</p>`,
	},
}
