package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	dg "github.com/open-builders/reward-rush-bot/internal/domain/giveaway"
	"github.com/open-builders/reward-rush-bot/internal/platform/telegram"
)

// Callback data values.
const (
	cbJoinGiveaways = "join_giveaways"
	cbJoinPrefix    = "join_"
	cbRedeemCode    = "redeem_code"
	cbCheckStatus   = "check_status"
	cbViewStatus    = "view_status"
	cbShowGuide     = "show_guide"
	cbAdminGuide    = "admin_guide"
	cbBackToMenu    = "back_to_menu"
	cbAddNewAdmin   = "add_new_admin"
	cbConfirmClear  = "confirm_clear"
)

const (
	textWelcome = "🎉 Welcome to <b>Reward Rush Bot</b>! 🎉\n" +
		"Win exciting accounts through giveaways and redeem codes!\n\n" +
		"🚀 Get started:"
	textNotAuthorized   = "You are not authorized to use this command."
	textOwnersOnly      = "❌ This command is for owners only."
	textNoActive        = "🚫 No active giveaways running currently."
	textChooseGiveaway  = "🎁 Choose a giveaway to join:"
	textCodesRemain     = "🎟️ Kindly try another code. There are some unredeemed codes available."
	textCodesExhausted  = "🎟️ All the codes have already been redeemed, Please Wait for our next giveaway."
	textRedeemMenuOpen  = "🎟️ There are remaining codes. Please paste your code directly in the chat to redeem it."
	textRedeemMenuEmpty = "🎟️ All the codes have already been redeemed. Please wait for our next giveaway."
	textRedeemUsage     = "❌ Please provide a redeem code after the /redeem command.\n/redeem &lt;Your_Redeem_code&gt;"
	textDeliveryFailed  = "❌ Error sending your reward. Please contact an admin."
	textInvalidPrefix   = "Invalid prefix. Only alphanumeric characters and hyphens are allowed."
	textClearConfirm    = "⚠️ Are you sure you want to clear all accounts and giveaway data?\n\nThis will NOT delete user data."
	textRandomUsage     = "⚠️ Usage: /random &lt;giveaway_name&gt; &lt;duration&gt;\nExample: /random netflix 2 min"
	textBadDuration     = "❌ Invalid time format. Use formats like 10 sec, 5 min, or 2 hour."
	textGiveawayGone    = "❌ Giveaway not found or already ended."
	textNotForwarded    = "⚠️ This message wasn't forwarded from a user or the user has restricted forwarding."
	textInvalidAdminID  = "❌ Invalid User ID. Please send a valid numeric user ID."
	textSomethingFailed = "❌ Something went wrong. Please try again later."
)

func bannedText(support string) string {
	if support == "" {
		return "❌ You are banned from using this bot.\n👉 Contact an admin to request unban."
	}
	return fmt.Sprintf("❌ You are banned from using this bot.\n👉 Contact %s to request unban.", html.EscapeString(support))
}

func guideText(support string) string {
	help := "- Need help? Contact an admin."
	if support != "" {
		help = fmt.Sprintf("- Need help? Contact %s.", html.EscapeString(support))
	}
	return "📖 <b>Reward Rush Bot Guide</b>\n" +
		"- Click \"Join Giveaways\" to enter contests.\n" +
		"- Use \"Redeem Code\" to claim rewards.\n" +
		"- Check \"Status\" for updates.\n" +
		help
}

func joinChannelsText(missing int) string {
	if missing == 2 {
		return "Join both channels to use the bot."
	}
	return "Join the required channels to use the bot."
}

func commandsText(owner bool) string {
	var b strings.Builder
	if owner {
		b.WriteString("👑 <b>Owner Commands:</b>\n" +
			"📢 <b>/broadcast</b> - Send a message to all users.\n" +
			"🚫 <b>/ban &lt;user_id&gt;</b> - Ban a user.\n" +
			"✅ <b>/unban &lt;user_id&gt;</b> - Unban a user.\n" +
			"➕ <b>/addadmin &lt;user_id&gt;</b> - Add a new admin.\n\n")
	}
	b.WriteString("🛠️ <b>Admin Commands:</b>\n" +
		"➕ <b>/add &lt;prefix&gt;</b> - Add accounts and generate codes.\n" +
		"📄 <b>/addfile &lt;prefix&gt;</b> - Add text files and generate codes.\n" +
		"🎲 <b>/random &lt;name&gt; &lt;duration&gt;</b> - Start a timed giveaway.\n" +
		"👥 <b>/tuser</b> - View total number of users.\n" +
		"📂 <b>/backup</b> - Get a backup of the database.\n" +
		"🧹 <b>/clear</b> - Clear all accounts and giveaway history.\n" +
		"📩 <b>Reply to forwarded user message</b> - Send a reply to the user.\n\n")
	b.WriteString("🔄 <b>Everyone's Commands:</b>\n" +
		"🎯 <b>Join Giveaways</b> button - Join an ongoing giveaway.\n" +
		"📈 <b>Check Status</b> button - View active giveaways.\n" +
		"🎁 <b>/redeem &lt;code&gt;</b> - Redeem a code.")
	return b.String()
}

func statusText(active []dg.Giveaway, now time.Time) string {
	var b strings.Builder
	b.WriteString("🎉 <b>Active Giveaways</b> 🎉\n\n")
	for _, g := range active {
		fmt.Fprintf(&b, "<b>%s</b>\n👥 Participants: %d\n⏰ Remaining: %s\n\n",
			html.EscapeString(dg.DisplayName(g.Name)),
			len(g.Participants),
			dg.FormatRemaining(g.Remaining(now)),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func codesText(header string, codes []string) string {
	var b strings.Builder
	b.WriteString(header)
	for _, c := range codes {
		b.WriteString("\n<code>")
		b.WriteString(html.EscapeString(c))
		b.WriteString("</code>")
	}
	return b.String()
}

func waitText(format string, d time.Duration) string {
	return fmt.Sprintf(format, int(d.Seconds()))
}

func mainMenu(admin, owner bool) telegram.Keyboard {
	guide := telegram.DataButton("Guide", cbShowGuide)
	if admin {
		guide = telegram.DataButton("Admin Guide", cbAdminGuide)
	}
	kb := telegram.Keyboard{
		telegram.Row(
			telegram.DataButton("Join Giveaways", cbJoinGiveaways),
			telegram.DataButton("Redeem Code", cbRedeemCode),
		),
		telegram.Row(
			telegram.DataButton("Check Status", cbCheckStatus),
			guide,
		),
	}
	if owner {
		kb = append(kb, telegram.Row(telegram.DataButton("👑 Add New Admin", cbAddNewAdmin)))
	}
	return kb
}

func backKeyboard() telegram.Keyboard {
	return telegram.Keyboard{telegram.Row(telegram.DataButton("Back to Menu", cbBackToMenu))}
}

func giveawaysKeyboard(active []dg.Giveaway) telegram.Keyboard {
	kb := make(telegram.Keyboard, 0, len(active)+1)
	for _, g := range active {
		kb = append(kb, telegram.Row(telegram.DataButton("Join "+dg.DisplayName(g.Name), cbJoinPrefix+g.Name)))
	}
	return append(kb, backKeyboard()...)
}

func clearKeyboard() telegram.Keyboard {
	return telegram.Keyboard{telegram.Row(telegram.DataButton("✅ Confirm Clear", cbConfirmClear))}
}
