package entity

// Document is one uploaded filing awaiting analysis. It lives for the
// duration of a single pipeline invocation and is owned by that invocation.
type Document struct {
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
	Content   []byte `json:"-"`
}
