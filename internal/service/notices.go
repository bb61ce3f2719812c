package service

// User- and staff-facing texts. End users never see internal error details.
const (
	NoticeRetryLater     = "⚠️ Your message could not be delivered right now. Please try again later."
	NoticeClosed         = "🔒 This conversation is closed. Your message was not delivered."
	NoticeVerify         = "🛡 Before your message can be delivered, please confirm you are human. The link is valid for a few minutes."
	NoticeVerified       = "✅ Verification complete. Your message has been delivered."
	NoticeVerifiedNoMsg  = "✅ Verification complete. You can send your message now."
	NoticeLinkExpired    = "This link has expired. Send a new message to get another one."
	NoticeLinkRefreshed  = "A new link was issued."
	NoticeDeliveryFailed = "⚠️ Message was not delivered to the user"
	NoticeUserBanned     = "⛔ User is banned, message was not delivered."
)

// ChallengeMarkup is the inline keyboard under the verification prompt:
// one URL button with the challenge link, one callback button to reissue it.
func ChallengeMarkup(link, ticketID string) map[string]any {
	return map[string]any{
		"inline_keyboard": [][]map[string]string{
			{{"text": "✅ Verify", "url": link}},
			{{"text": "🔄 New link", "callback_data": "\f" + RefreshUnique + "|" + ticketID}},
		},
	}
}

// RefreshUnique routes the "new link" callback
const RefreshUnique = "refresh"
