
package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/Armin-kho/fsub-video-bot/internal/store"
)

const (
	txtNotConfigured   = "<blockquote><b>Hi!</b> This bot is not configured yet.\n\nRun /setup first.</blockquote>"
	txtSetupDone       = "<blockquote>🎉 Congratulations! You are now the admin of this bot.</blockquote>"
	txtAlreadySetUp    = "<blockquote>❌ 404 Not Found.</blockquote>"
	txtAdminOnly       = "<blockquote>❌ This command is for admins only.</blockquote>"
	txtJoinedNoLink    = "<blockquote>✅ You have already joined. Use the link sent by the admin.</blockquote>"
	txtVideoCaption    = "Enjoy watching ☕"
	txtTryAgain        = "🔄 Try Again"
	txtChannelExists   = "<blockquote>✅ Channel is already in the FSub list.</blockquote>"
	txtChannelNotFound = "<blockquote>❌ Channel not found in the FSub list.</blockquote>"
	txtUnsupported     = "<blockquote>❌ This message type is not supported.</blockquote>"
	txtNoVideos        = "<blockquote>No videos saved yet.</blockquote>"
	txtBroadcastBusy   = "<blockquote>⏳ A broadcast is already running. Wait for it to finish.</blockquote>"
	txtBackupDisabled  = "<blockquote>❌ Backups are not available.</blockquote>"
)

func quote(s string) string {
	return "<blockquote>" + s + "</blockquote>"
}

func esc(s string) string {
	return html.EscapeString(s)
}

func usageText(usage string) string {
	return quote("⚙️ " + esc(usage))
}

func welcomeText(welcome string) string {
	return quote(esc(welcome))
}

func listFsubText(doc store.Document) string {
	var b strings.Builder
	b.WriteString("<b>🔊 FSub Channels:</b>\n")
	if len(doc.FsubChannels) == 0 {
		b.WriteString("No channels.\n")
	}
	for _, id := range doc.FsubChannels {
		fmt.Fprintf(&b, "• <code>%d</code>\n", id)
	}
	b.WriteString("\n<b>🔊 FSub Buttons:</b>\n")
	if len(doc.FsubButtons) == 0 {
		b.WriteString("No buttons.")
	}
	for i, btn := range doc.FsubButtons {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "• %s | <code>%s</code>", esc(btn.Text), esc(btn.URL))
	}
	return quote(strings.TrimRight(b.String(), "\n"))
}
