package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"tubedeck/types"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("37"))            // dark green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))             // red
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))            // cyan
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))            // purple
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")) // purple
)

func printSuccess(w io.Writer, text string) {
	fmt.Fprintln(w, successStyle.Render("✓ "+text))
}

func printError(w io.Writer, text string) {
	fmt.Fprintln(w, errorStyle.Render("✗ "+text))
}

func printInfo(w io.Writer, text string) {
	fmt.Fprintln(w, infoStyle.Render(text))
}

func printHeader(w io.Writer, text string) {
	fmt.Fprintln(w, headerStyle.Render(text))
}

// videoSummary renders the title block shown before a download or format listing
func videoSummary(info types.VideoInfo) string {
	item := types.Item{VideoInfo: info}
	var b strings.Builder
	b.WriteString(headerStyle.Render(info.Title))
	b.WriteString("\n")
	b.WriteString(detailStyle.Render(fmt.Sprintf("%s • %s • %s", info.ID, orNA(info.Uploader), item.DurationString())))
	return b.String()
}

// variantTable renders ranked variants as a bordered table
func variantTable(variants []types.Variant) string {
	t := table.New().
		Headers("ID", "Resolution", "Container", "Size", "Streams").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Align(lipgloss.Center).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, v := range variants {
		t.Row(v.ID, orNA(v.ResolutionLabel), v.Container, sizeLabel(v.SizeBytes), streamsLabel(v))
	}
	return t.String()
}

func sizeLabel(size *int64) string {
	if size == nil || *size <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f MB", float64(*size)/(1024*1024))
}

func streamsLabel(v types.Variant) string {
	switch {
	case v.HasVideo && v.HasAudio:
		return "video+audio"
	case v.HasVideo:
		return "video"
	default:
		return "audio"
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
