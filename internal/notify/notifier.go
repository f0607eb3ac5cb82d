package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/teamhub/teamhub/backend/go-services/internal/models"
)

// Notifier builds the reset-password, email-verification and team-invitation
// emails. Links point at the client application.
type Notifier struct {
	sender    Sender
	clientURL string
}

func NewNotifier(s Sender, clientURL string) *Notifier {
	return &Notifier{sender: s, clientURL: strings.TrimRight(clientURL, "/")}
}

func (n *Notifier) SendResetPassword(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/auth/reset-password?token=%s", n.clientURL, url.QueryEscape(token))
	return n.sender.Send(ctx, Message{
		To:      to,
		Subject: "Reset password",
		Text: "Dear user,\n" +
			"To reset your password, click on this link: " + link + "\n" +
			"If you did not request any password resets, then ignore this email.",
	})
}

func (n *Notifier) SendEmailVerification(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", n.clientURL, url.QueryEscape(token))
	return n.sender.Send(ctx, Message{
		To:      to,
		Subject: "Verify email",
		Text: "Dear user,\n" +
			"To verify your email, click on this link: " + link + "\n" +
			"If you did not sign up, then ignore this email.",
	})
}

func (n *Notifier) SendTeamInvitation(ctx context.Context, to string, team *models.Team, invitationID string) error {
	link := fmt.Sprintf("%s/app/team-invitation/%s?invitationId=%s",
		n.clientURL, url.PathEscape(team.ID), url.QueryEscape(invitationID))
	return n.sender.Send(ctx, Message{
		To:      to,
		Subject: "Team invitation",
		Text: "Dear user,\n" +
			"To join the team " + team.Name + ", click on this link: " + link + "\n" +
			"If you do not wish to join, then ignore this email.",
	})
}
