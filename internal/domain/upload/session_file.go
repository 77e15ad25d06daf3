package upload

// StateVariable is the session slot holding the caller's uploaded files.
const StateVariable = "xuploadFiles"

// SessionFile is what the session remembers about one uploaded file so that
// only files the caller uploaded can be deleted later.
type SessionFile struct {
	Path     string `json:"path"`
	Thumb    string `json:"thumb"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Mime     string `json:"mime"`
	Name     string `json:"name"`
	Folder   string `json:"fldrname"`
}

// SessionFiles maps generated file names to their records.
type SessionFiles map[string]SessionFile
