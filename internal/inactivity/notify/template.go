package notify

import (
	"bytes"
	"errors"
	"html/template"
)

// DefaultTemplate is the HTML body for inactive-sensor alert emails.
const DefaultTemplate = `<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <div style="background-color: #ef4444; color: white; padding: 20px; border-radius: 8px 8px 0 0;">
        <h1 style="margin: 0;">Sensor Inactive Alert</h1>
      </div>
      <div style="background-color: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; border-top: none;">
        <p>Hello,</p>
        <p>The following sensor has been inactive for more than 24 hours and has not reported any data:</p>
        <div style="background-color: white; padding: 15px; border-radius: 8px; margin: 15px 0; border-left: 4px solid #ef4444;">
          <div style="margin: 8px 0;"><b>Sensor Name:</b> {{.SensorName}}</div>
          <div style="margin: 8px 0;"><b>Type:</b> {{.SensorType}}</div>
          <div style="margin: 8px 0;"><b>Location:</b> {{.LocationName}}</div>
          <div style="margin: 8px 0;"><b>Status:</b> <span style="color: #ef4444; font-weight: bold;">INACTIVE</span></div>
        </div>
        <p>Please check the sensor to ensure it is functioning correctly.</p>
        <a href="{{.SensorURL}}" style="display: inline-block; background-color: #3b82f6; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">View Sensor Details</a>
        <div style="text-align: center; color: #6b7280; font-size: 12px; margin-top: 20px;">
          <p>You are receiving this email because you are subscribed to sensor alerts.</p>
          <p>Sensor Cloud - Automated Alert System</p>
        </div>
      </div>
    </div>
  </body>
</html>`

// TemplateData provides fields for rendering alert email bodies.
type TemplateData struct {
	SensorName   string
	SensorType   string
	LocationName string
	SensorURL    string
}

// Template renders alert email content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses an email template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("inactive-sensor-alert").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
