// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// ProjectInviteData holds data for project invitation emails.
type ProjectInviteData struct {
	SiteName    string
	InviterName string
	ProjectName string
	ProjectURL  string
}

// BuildProjectInviteEmail creates an invitation with both HTML and text bodies.
func BuildProjectInviteEmail(data ProjectInviteData) Email {
	return Email{
		Subject:  fmt.Sprintf("%s invited you to the '%s' project", data.InviterName, data.ProjectName),
		TextBody: buildInviteText(data),
		HTMLBody: buildInviteHTML(data),
	}
}

func buildInviteText(data ProjectInviteData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s has invited you to contribute to the '%s' project on %s.\n\n", data.InviterName, data.ProjectName, data.SiteName)
	buf.WriteString("Open the project to accept or decline:\n")
	buf.WriteString(data.ProjectURL + "\n\n")
	buf.WriteString("If you were not expecting this invitation, you can safely ignore this email.\n")
	return buf.String()
}

var inviteHTML = template.Must(template.New("invite").Parse(inviteHTMLTemplate))

func buildInviteHTML(data ProjectInviteData) string {
	var buf bytes.Buffer
	_ = inviteHTML.Execute(&buf, data)
	return buf.String()
}

const inviteHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Project Invitation</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                <strong>{{.InviterName}}</strong> has invited you to contribute to the <strong>{{.ProjectName}}</strong> project.
              </p>
              <div style="text-align: center; margin-bottom: 24px;">
                <a href="{{.ProjectURL}}" style="display: inline-block; padding: 12px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-weight: 600; border-radius: 6px;">Open Project</a>
              </div>
              <p style="margin: 0; font-size: 13px; color: #9ca3af; text-align: center;">
                If you were not expecting this invitation, you can safely ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`
