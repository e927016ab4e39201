package register

import (
	"html"
	"io"
	"strings"
	"time"

	nethtml "golang.org/x/net/html"

	"github.com/classbook/register-archive/pkg/timeutil"
)

// CleanText strips markup from free text, collapses line breaks and runs of
// spaces, trims the result and escapes it for inclusion in markup.
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	z := nethtml.NewTokenizer(strings.NewReader(raw))
	for {
		tt := z.Next()
		if tt == nethtml.ErrorToken {
			if z.Err() != io.EOF {
				// malformed input: fall back to the raw text
				b.Reset()
				b.WriteString(raw)
			}
			break
		}
		if tt == nethtml.TextToken {
			b.Write(z.Text())
		}
	}

	text := strings.Join(strings.Fields(b.String()), " ")
	return html.EscapeString(text)
}

// JoinTopic joins a topic and an activity with " - " when both are present.
func JoinTopic(topic, activity string) string {
	switch {
	case topic != "" && activity != "":
		return topic + " - " + activity
	case topic != "":
		return topic
	default:
		return activity
	}
}

// TopicEntry is one lesson's already cleaned text. Key splits a day into
// sub-rows, e.g. by subject on support registers; it is empty otherwise.
type TopicEntry struct {
	Date     time.Time
	Key      string
	Topic    string
	Activity string
}

// NewTopicEntry cleans topic and activity text.
func NewTopicEntry(date time.Time, key, topic, activity string) TopicEntry {
	return TopicEntry{
		Date:     timeutil.StartOfDay(date),
		Key:      key,
		Topic:    CleanText(topic),
		Activity: CleanText(activity),
	}
}

// TopicRow is the visible output for one (date, key).
type TopicRow struct {
	Date       time.Time
	Key        string
	Topics     []string
	Activities []string
}

type rowKey struct {
	day string
	key string
}

// Deduplicate groups entries by (date, key) in first-seen order. Within a
// group, a text is kept only if it differs, case-insensitively, from the last
// kept text of the same column. Empty texts are dropped; a column left with
// nothing holds a single empty placeholder so the date still shows.
func Deduplicate(entries []TopicEntry) []TopicRow {
	var rows []TopicRow
	index := make(map[rowKey]int)

	for _, e := range entries {
		k := rowKey{day: timeutil.DayKey(e.Date), key: e.Key}
		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			rows = append(rows, TopicRow{Date: timeutil.StartOfDay(e.Date), Key: e.Key})
		}
		rows[i].Topics = appendDistinct(rows[i].Topics, e.Topic)
		rows[i].Activities = appendDistinct(rows[i].Activities, e.Activity)
	}

	for i := range rows {
		if len(rows[i].Topics) == 0 {
			rows[i].Topics = []string{""}
		}
		if len(rows[i].Activities) == 0 {
			rows[i].Activities = []string{""}
		}
	}
	return rows
}

func appendDistinct(kept []string, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return kept
	}
	if n := len(kept); n > 0 && strings.EqualFold(kept[n-1], text) {
		return kept
	}
	return append(kept, text)
}

// Entries flattens rows back into entries, pairing topics and activities by position.
func Entries(rows []TopicRow) []TopicEntry {
	var out []TopicEntry
	for _, r := range rows {
		n := len(r.Topics)
		if len(r.Activities) > n {
			n = len(r.Activities)
		}
		for i := 0; i < n; i++ {
			e := TopicEntry{Date: r.Date, Key: r.Key}
			if i < len(r.Topics) {
				e.Topic = r.Topics[i]
			}
			if i < len(r.Activities) {
				e.Activity = r.Activities[i]
			}
			out = append(out, e)
		}
	}
	return out
}
