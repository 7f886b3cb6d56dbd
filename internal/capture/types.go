package capture

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sample is one timestamped observation of foreground app/window/text content.
type Sample struct {
	Timestamp  time.Time
	AppName    string
	WindowName string
	Text       string
}

// searchResponse mirrors the capture service's search payload.
type searchResponse struct {
	Data []rawSample `json:"data"`
}

type rawSample struct {
	Content rawContent `json:"content"`
}

// rawContent tolerates both camelCase and snake_case field names; capture
// service releases have shipped both.
type rawContent struct {
	Timestamp     string `json:"timestamp"`
	AppName       string `json:"appName"`
	AppNameSnake  string `json:"app_name"`
	WindowName    string `json:"windowName"`
	WindowSnake   string `json:"window_name"`
	Text          string `json:"text"`
	Transcription string `json:"transcription"`
}

// normalize converts a raw sample into a Sample. Samples whose timestamp
// does not parse are rejected; app/window/text may all be empty.
func (r rawSample) normalize() (Sample, error) {
	ts, err := parseTimestamp(r.Content.Timestamp)
	if err != nil {
		return Sample{}, err
	}

	sample := Sample{
		Timestamp:  ts,
		AppName:    firstNonEmpty(r.Content.AppName, r.Content.AppNameSnake),
		WindowName: firstNonEmpty(r.Content.WindowName, r.Content.WindowSnake),
		Text:       firstNonEmpty(r.Content.Text, r.Content.Transcription),
	}
	return sample, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("sample timestamp missing")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999999"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable sample timestamp: %q", value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// UnmarshalJSON keeps unexpected content payloads from failing the whole
// search response; a sample with a malformed content object decodes to the
// zero rawContent and is dropped during normalization.
func (r *rawSample) UnmarshalJSON(data []byte) error {
	type alias rawSample
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return nil
	}
	*r = rawSample(a)
	return nil
}
