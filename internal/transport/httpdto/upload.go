package httpdto

// DeleteRequest holds the query of a delete call: ?_method=delete&file=...
type DeleteRequest struct {
	Method string `form:"_method"`
	File   string `form:"file"`
}

// FileDescriptor describes one stored upload to the widget.
type FileDescriptor struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	DeleteURL    string `json:"deleteUrl"`
	DeleteType   string `json:"deleteType"`
	SyncStatus   string `json:"syncStatus"`
}

// FilesResponse is the success body: {"files":[{...}]}
type FilesResponse struct {
	Files []FileDescriptor `json:"files"`
}

// FileError carries validation messages keyed by attribute.
type FileError struct {
	Error map[string][]string `json:"error"`
}

// FileErrorsResponse is the validation failure body: {"files":[{"error":{...}}]}
type FileErrorsResponse struct {
	Files []FileError `json:"files"`
}
