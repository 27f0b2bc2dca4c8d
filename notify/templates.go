package notify

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/allura/allura-web/model"
)

var funcs = template.FuncMap{
	"paragraphs": func(s string) template.HTML {
		lines := strings.Split(template.HTMLEscapeString(s), "\n")
		return template.HTML(strings.Join(lines, "<br>"))
	},
}

var contactMail = template.Must(template.New("contact").Funcs(funcs).Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #4f46e5; border-bottom: 2px solid #4f46e5; padding-bottom: 10px;">New Contact Form Submission</h2>
  <div style="background: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #1e293b; margin-top: 0;">Contact Details</h3>
    <p><strong>Name:</strong> {{.FirstName}} {{.LastName}}</p>
    <p><strong>Phone:</strong> {{.PhoneNumber}}</p>
    <p><strong>Budget Range:</strong> {{.PotentialBudget}}</p>
    <p><strong>Project Types:</strong></p>
    <div style="margin: 10px 0;">
      {{range .ProjectTypes}}<span style="background: #ddd6fe; color: #5b21b6; padding: 4px 8px; border-radius: 4px; margin-right: 8px; font-size: 14px;">{{.}}</span>{{end}}
    </div>
    <p><strong>Project Description:</strong></p>
    <div style="background: white; padding: 15px; border-radius: 4px; border-left: 4px solid #4f46e5;">{{paragraphs .ProjectDescription}}</div>
  </div>
  <div style="background: #ecfdf5; padding: 15px; border-radius: 8px; border-left: 4px solid #10b981;">
    <p style="margin: 0; color: #065f46;"><strong>Action Required:</strong> Please follow up with this potential client.</p>
  </div>
  <p style="color: #6b7280; font-size: 14px; margin-top: 20px;">This email was sent from the Allura website contact form.</p>
</div>
`))

var applicationMail = template.Must(template.New("application").Funcs(funcs).Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #4f46e5; border-bottom: 2px solid #4f46e5; padding-bottom: 10px;">New Job Application Received</h2>
  <div style="background: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #1e293b; margin-top: 0;">Application Details</h3>
    <p><strong>Name:</strong> {{.FullName}}</p>
    <p><strong>Desired Role:</strong> {{.Role}}</p>
    <p><strong>Description:</strong></p>
    <div style="background: white; padding: 15px; border-radius: 4px; border-left: 4px solid #4f46e5;">{{paragraphs .Description}}</div>
    <p style="margin-top: 20px;"><strong>CV:</strong>
      <a href="{{.CVURL}}" target="_blank" style="color: #4f46e5; text-decoration: none; font-weight: bold;">View/Download CV</a>
    </p>
  </div>
  <div style="background: #ecfdf5; padding: 15px; border-radius: 8px; border-left: 4px solid #10b981;">
    <p style="margin: 0; color: #065f46;"><strong>Action Required:</strong> Please review this application and update the status in the admin dashboard.</p>
  </div>
  <p style="color: #6b7280; font-size: 14px; margin-top: 20px;">This email was sent from the Allura website join us form.</p>
</div>
`))

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ContactHTML renders the notification body for a contact submission
func ContactHTML(c model.Contact) (string, error) {
	return render(contactMail, c)
}

// ApplicationHTML renders the notification body for a join-us application
func ApplicationHTML(a model.Application) (string, error) {
	return render(applicationMail, a)
}
