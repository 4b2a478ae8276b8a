package gmailclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/carebridge/care-matching/pkg/core/model"
)

const EMAIL_INTERVAL = 3 * time.Second

// SendEmail sends an email with the specified subject and body
// Throttles requests to respect Gmail API rate limits
func (c *Client) SendEmail(ctx context.Context, to, subject, body string) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	// Check if we need to wait before sending
	if !c.lastSendTime.IsZero() {
		elapsed := time.Since(c.lastSendTime)
		if elapsed < EMAIL_INTERVAL {
			select {
			case <-time.After(EMAIL_INTERVAL - elapsed):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	gmailMessage := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(buildMessage(c.sender, to, subject, body))),
	}

	if _, err := c.service.Users.Messages.Send("me", gmailMessage).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.lastSendTime = time.Now()
	return nil
}

// NotifyPartnerAssignment emails a partner organization about an
// assignment awaiting its acceptance
func (c *Client) NotifyPartnerAssignment(ctx context.Context, notice model.PartnerNotice) error {
	if notice.ContactEmail == "" {
		return fmt.Errorf("partner organization %d has no contact email", notice.OrganizationID)
	}
	subject, body := partnerNoticeEmail(notice)
	return c.SendEmail(ctx, notice.ContactEmail, subject, body)
}

func buildMessage(from, to, subject, body string) string {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	return b.String()
}

func partnerNoticeEmail(n model.PartnerNotice) (subject, body string) {
	subject = fmt.Sprintf("New %s assignment awaiting acceptance", n.ServiceTypeName)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", n.OrganizationName)
	fmt.Fprintf(&b, "A %s visit has been assigned to %s and is awaiting your acceptance.\n\n", n.ServiceTypeName, n.StaffName)
	fmt.Fprintf(&b, "Assignment: %s\n", n.AssignmentID)
	fmt.Fprintf(&b, "Patient:    %d\n", n.PatientID)
	fmt.Fprintf(&b, "Start:      %s\n", n.Start.Format("Mon 2 Jan 2006 15:04 MST"))
	fmt.Fprintf(&b, "End:        %s\n\n", n.End.Format("Mon 2 Jan 2006 15:04 MST"))
	b.WriteString("Please accept or decline the assignment in the partner portal.\n")
	return subject, b.String()
}
