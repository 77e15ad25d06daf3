package upload

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FileAttribute is the attribute validation errors are reported under.
const FileAttribute = "file"

var validate = validator.New()

// Rules configure which files a Form accepts.
type Rules struct {
	MaxSize           int64
	MinSize           int64
	AllowedExtensions []string
	AllowedTypes      []string
}

// Form binds one incoming upload and validates it.
type Form struct {
	File        *multipart.FileHeader `validate:"required"`
	MimeType    string
	Size        int64
	DisplayName string `validate:"required"`
	FileName    string

	errs map[string][]string
}

// NewForm populates the form attributes from the uploaded part header.
func NewForm(fh *multipart.FileHeader) *Form {
	f := &Form{File: fh}
	if fh != nil {
		f.MimeType = fh.Header.Get("Content-Type")
		f.Size = fh.Size
		f.DisplayName = fh.Filename
		f.FileName = fh.Filename
	}
	return f
}

// Extension returns the lowercased extension of FileName without the dot.
func (f *Form) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(f.FileName), "."))
}

// Validate checks the form against rules. Errors are available afterwards
// through Errors and ErrorMap.
func (f *Form) Validate(rules Rules) bool {
	f.errs = make(map[string][]string)

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			f.addError("Please upload a file.")
			return false
		}
		f.addError(err.Error())
		return false
	}

	if rules.MaxSize > 0 {
		if err := validate.Var(f.Size, fmt.Sprintf("lte=%d", rules.MaxSize)); err != nil {
			f.addError(fmt.Sprintf("The file %q is too big. Its size cannot exceed %d bytes.", f.DisplayName, rules.MaxSize))
		}
	}
	if rules.MinSize > 0 {
		if err := validate.Var(f.Size, fmt.Sprintf("gte=%d", rules.MinSize)); err != nil {
			f.addError(fmt.Sprintf("The file %q is too small. Its size cannot be smaller than %d bytes.", f.DisplayName, rules.MinSize))
		}
	}
	if len(rules.AllowedExtensions) > 0 {
		if err := validate.Var(f.Extension(), "required,oneof="+strings.Join(rules.AllowedExtensions, " ")); err != nil {
			f.addError(fmt.Sprintf("The file %q cannot be uploaded. Only files with these extensions are allowed: %s.",
				f.DisplayName, strings.Join(rules.AllowedExtensions, ", ")))
		}
	}
	if len(rules.AllowedTypes) > 0 {
		mime := strings.ToLower(strings.TrimSpace(strings.SplitN(f.MimeType, ";", 2)[0]))
		if err := validate.Var(mime, "required,oneof="+strings.Join(rules.AllowedTypes, " ")); err != nil {
			f.addError(fmt.Sprintf("The file %q cannot be uploaded. Only files of these MIME-types are allowed: %s.",
				f.DisplayName, strings.Join(rules.AllowedTypes, ", ")))
		}
	}

	return len(f.errs) == 0
}

// Errors returns the messages recorded for attribute by the last Validate call.
func (f *Form) Errors(attribute string) []string {
	return f.errs[attribute]
}

// ErrorMap returns every recorded message keyed by attribute.
func (f *Form) ErrorMap() map[string][]string {
	out := make(map[string][]string, len(f.errs))
	for k, v := range f.errs {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (f *Form) addError(msg string) {
	f.errs[FileAttribute] = append(f.errs[FileAttribute], msg)
}
