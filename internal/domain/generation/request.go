package generation

import "time"

// Request is the input of one generation.
type Request struct {
	Kind    Kind
	Prompt  string
	Images  []*ImagePayload
	Options map[string]string
}

// Result is the media reference produced by a successful generation.
type Result struct {
	Kind      Kind      `json:"kind"`
	Media     MediaKind `json:"media"`
	Reference string    `json:"reference"`
	MIMEType  string    `json:"mime_type"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// DownloadName returns the file name a host should save the result under.
func (r *Result) DownloadName() string {
	return r.FileName
}
