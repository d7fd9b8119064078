package main

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"equirect/internal/queue"
)

func buildQueueListRows(items []*queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			itoa(item.ID),
			displayTitle(item.InputPath),
			itoa(int64(item.FOV)),
			string(item.Status),
			item.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(item.ErrorMessage, 48),
		})
	}
	return rows
}

func buildQueueStatusRows(stats map[queue.Status]int) [][]string {
	order := []queue.Status{queue.StatusPending, queue.StatusConverting, queue.StatusCompleted, queue.StatusFailed}
	rows := make([][]string, 0, len(order))
	for _, status := range order {
		if count, ok := stats[status]; ok {
			rows = append(rows, []string{string(status), itoa(int64(count))})
		}
	}
	return rows
}

// displayTitle derives a human readable name from a video path.
func displayTitle(sourcePath string) string {
	if sourcePath == "" {
		return "Unknown Video"
	}
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Unknown Video"
	}
	return cases.Title(language.Und).String(title)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}

func itoa(value int64) string {
	return strconv.FormatInt(value, 10)
}
