package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/ElusiveMori/mmhscanner/internal/game"
)

const (
	colorActive = 0x45FA8B
	colorIdle   = 0xFFD1B2
)

// sortedGames returns the displayed games ordered by account so the list
// is stable between renders.
func sortedGames(view map[string]game.Info) []game.Info {
	games := make([]game.Info, 0, len(view))
	for _, info := range view {
		games = append(games, info)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Account < games[j].Account })
	return games
}

func sortedCategories(categories map[game.Category]bool) []game.Category {
	out := make([]game.Category, 0, len(categories))
	for c := range categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func headerLine(categories map[game.Category]bool) string {
	names := make([]string, 0, len(categories))
	for _, c := range sortedCategories(categories) {
		names = append(names, string(c))
	}
	return "Currently active game types: " + strings.Join(names, ", ")
}

func gameListLines(view map[string]game.Info) []string {
	games := sortedGames(view)

	longest := 0
	for _, info := range games {
		if len(info.Account) > longest {
			longest = len(info.Account)
		}
	}

	lines := make([]string, 0, len(games))
	for _, info := range games {
		padding := strings.Repeat(" ", longest-len(info.Account))
		lines = append(lines, fmt.Sprintf("%s%s --- (%s) %s", info.Account, padding, info.Players, info.Name))
	}
	return lines
}

// buildStatusEmbed renders the rich status message.
func buildStatusEmbed(categories map[game.Category]bool, view map[string]game.Info) *discordgo.MessageEmbed {
	color := colorIdle
	if len(view) > 0 {
		color = colorActive
	}

	list := "No games hosted right now."
	if lines := gameListLines(view); len(lines) > 0 {
		quoted := make([]string, len(lines))
		for i, line := range lines {
			quoted[i] = "`" + line + "`"
		}
		list = strings.Join(quoted, "\n")
	}

	return &discordgo.MessageEmbed{
		Title:       "MMH Scanner",
		Color:       color,
		Description: headerLine(categories),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Game List:",
				Value: list,
			},
		},
	}
}

// buildStatusText renders the plain-text status message, used when the
// bot lacks embed permissions in the channel.
func buildStatusText(categories map[game.Category]bool, view map[string]game.Info) string {
	var sb strings.Builder
	sb.WriteString("```")
	sb.WriteString(headerLine(categories))
	sb.WriteString("\n")

	lines := gameListLines(view)
	if len(lines) == 0 {
		sb.WriteString("No games hosted right now.")
	} else {
		sb.WriteString("Currently hosted games:\n")
		for _, line := range lines {
			sb.WriteString("| ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("```")
	return sb.String()
}

// announceText is the ping message posted when a game first appears.
func announceText(mention string, info game.Info) string {
	return fmt.Sprintf("%s A game has been hosted! `%s`", mention, info.Name)
}
